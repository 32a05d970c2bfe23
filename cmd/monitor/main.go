// Command monitor runs a single supervised service: it forks
// <executable_path> [args...], restarts it on any crash, and stops it on
// SIGINT. The Manager lives in main's local frame; the signal handler
// closes over it rather than reaching through a package-level global.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ambrsb/shmbus/internal/supervisor"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: monitor <executable_path> [args...]\n")
		os.Exit(2)
	}

	execPath := os.Args[1]
	argv := os.Args[1:]

	mgr := supervisor.New(execPath, argv)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	go func() {
		<-sigCh
		log.Println("monitor: SIGINT received")
		mgr.Stop()
	}()

	mgr.Start()
	if err := mgr.Wait(); err != nil {
		log.Fatalf("monitor: %v", err)
	}
}
