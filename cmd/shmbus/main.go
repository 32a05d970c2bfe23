// Command shmbus is a demo CLI over Spring/Extractor: it publishes data on
// a named channel, reads it back, or queries the registry directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ambrsb/shmbus/internal/elem"
	"github.com/ambrsb/shmbus/internal/extractor"
	"github.com/ambrsb/shmbus/internal/regclient"
	"github.com/ambrsb/shmbus/internal/regtypes"
	"github.com/ambrsb/shmbus/internal/spring"
)

func main() {
	endpoint := flag.String("registry", "127.0.0.1:40040", "registry endpoint")

	springCmd := flag.NewFlagSet("spring", flag.ExitOnError)
	springOwner := springCmd.String("owner", "", "owner name")
	springChannel := springCmd.String("channel", "", "channel name")
	springCapacity := springCmd.Uint64("capacity", 1024, "ring capacity")
	springData := springCmd.String("data", "", "payload to push")
	springID := springCmd.Uint64("id", 0, "record id")

	extractCmd := flag.NewFlagSet("extract", flag.ExitOnError)
	extractOwner := extractCmd.String("owner", "", "owner name")
	extractChannel := extractCmd.String("channel", "", "channel name")

	lookupCmd := flag.NewFlagSet("lookup", flag.ExitOnError)
	lookupFilter := lookupCmd.String("filter", "", "substring filter")

	// Global flags come before the subcommand: shmbus -registry HOST:PORT <cmd> ...
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch args[0] {
	case "spring":
		springCmd.Parse(args[1:])
		runSpring(ctx, *endpoint, *springOwner, *springChannel, *springCapacity, *springID, *springData)
	case "extract":
		extractCmd.Parse(args[1:])
		runExtract(ctx, *endpoint, *extractOwner, *extractChannel)
	case "lookup":
		lookupCmd.Parse(args[1:])
		runLookup(ctx, *endpoint, *lookupFilter)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`shmbus - demo client for the shared-memory message bus

Usage:
  shmbus <command> [options]

Commands:
  spring   Publish a channel and push one record to it
  extract  Attach to a published channel and pop one record
  lookup   Query the registry for RegItems matching a filter`)
}

func runSpring(ctx context.Context, endpoint, owner, channel string, capacity, id uint64, data string) {
	s, err := spring.New(ctx, owner, channel, capacity, elem.Size, endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spring: %v\n", err)
		os.Exit(1)
	}
	defer s.Close(ctx)

	if err := s.Push(data, id); err != nil {
		fmt.Fprintf(os.Stderr, "push: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("pushed %q (id=%d) to %s/%s\n", data, id, owner, channel)
}

func runExtract(ctx context.Context, endpoint, owner, channel string) {
	e, err := extractor.New(ctx, owner, channel, endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
	defer e.Close()

	el, ok, err := e.Pop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pop: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("ring is empty")
		return
	}
	fmt.Printf("id=%d data=%q\n", el.ID, el.String())
}

func runLookup(ctx context.Context, endpoint, filter string) {
	c, err := regclient.NewExtractorRegistryClient(endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	items, err := c.Lookup(ctx, regtypes.Filter(filter))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup: %v\n", err)
		os.Exit(1)
	}
	for _, it := range items {
		fmt.Printf("%s\t%s\n", it.Owner(), it.Location().Name)
	}
}
