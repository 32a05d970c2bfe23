// Command registryd runs the RegistryStore's RPC front end: a gRPC server
// bound to --ip:--port, backed by either the in-memory or the SQLite
// RegistryStore variant.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ambrsb/shmbus/internal/regrpc"
	"github.com/ambrsb/shmbus/internal/regstore"
)

func main() {
	ip := flag.String("ip", "0.0.0.0", "bind address for the registry")
	port := flag.Uint("port", 40040, "bind port for the registry")
	dbPath := flag.String("db", getEnv("REGISTRY_DB", ""), "SQLite database path; empty uses the in-memory store")
	redisAddr := flag.String("redis-addr", getEnv("REGISTRY_REDIS_ADDR", ""), "optional Redis address for a Lookup read-through cache")
	flag.Parse()

	if *port > 65535 {
		log.Fatalf("registryd: port %d does not fit 16 bits", *port)
	}

	addr := net.JoinHostPort(*ip, fmt.Sprint(*port))

	store, closeStore, err := buildStore(*dbPath, *redisAddr)
	if err != nil {
		log.Fatalf("registryd: %v", err)
	}
	defer closeStore()

	srv := regrpc.NewServer(store)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("registryd: received shutdown signal")
		srv.Stop()
	}()

	log.Printf("registryd: listening on %s", addr)
	if err := srv.ListenAndServe(addr); err != nil {
		log.Fatalf("registryd: %v", err)
	}
	log.Println("registryd: stopped")
}

func buildStore(dbPath, redisAddr string) (regstore.Store, func(), error) {
	if dbPath == "" {
		return regstore.NewInMemory(), func() {}, nil
	}

	var opts []regstore.PersistentOption
	if redisAddr != "" {
		opts = append(opts, regstore.WithCache(redis.NewClient(&redis.Options{Addr: redisAddr})))
	}

	store, err := regstore.OpenPersistent(dbPath, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open persistent store %q: %w", dbPath, err)
	}
	return store, func() { store.Close() }, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
