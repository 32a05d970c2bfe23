//go:build unix

package spring

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ambrsb/shmbus/internal/elem"
	"github.com/ambrsb/shmbus/internal/extractor"
	"github.com/ambrsb/shmbus/internal/regrpc"
	"github.com/ambrsb/shmbus/internal/regstore"
	"github.com/ambrsb/shmbus/internal/ring"
)

// destroyRing unlinks the backing segment a test's Spring created, since
// Spring.Close only detaches the local mapping.
func destroyRing(t *testing.T, name string) {
	t.Helper()
	r, err := ring.Lookup(name)
	if err != nil {
		return
	}
	r.Destroy()
}

func startRegistry(t *testing.T) string {
	t.Helper()

	store := regstore.NewInMemory()
	srv := regrpc.NewServer(store)

	go func() {
		srv.ListenAndServe("127.0.0.1:0")
	}()
	t.Cleanup(srv.Stop)

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)
	return srv.Addr().String()
}

// TestSpringExtractorEndToEnd demonstrates the whole message bus working
// together: a producer publishes a channel, a consumer discovers it
// through the registry, and a record flows through shared memory from one
// to the other.
func TestSpringExtractorEndToEnd(t *testing.T) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("TEST: Spring -> Registry -> Ring -> Extractor")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Println(`
CONCEPT: Producers and consumers never address each other directly. A
         Spring publishes (owner, channel) to the registry and then owns
         a shared-memory ring; an Extractor discovers the same (owner,
         channel) pair through the registry and attaches to that ring by
         name. Neither side needs to know the other exists in advance.

WHAT TO EXPECT:
- The Extractor's registry lookup returns nothing before Spring publishes
- After Spring publishes, the Extractor finds the channel and attaches
- A record pushed by Spring is popped by the Extractor byte-for-byte
- Once Spring closes (unpublishes), a fresh lookup no longer finds it`)

	endpoint := startRegistry(t)
	ctx := context.Background()

	fmt.Println("\n--- step 1: extractor looks up before anything is published ---")
	probe, err := extractor.New(ctx, "producer-1", "telemetry", endpoint)
	require.Error(t, err, "expected no channel to be found before Spring publishes")
	require.Nil(t, probe)

	fmt.Println("--- step 2: spring publishes the channel and initializes its ring ---")
	s, err := springNewForTest(ctx, endpoint)
	require.NoError(t, err)
	defer s.Close(ctx)
	defer destroyRing(t, s.Owner()+"_"+s.Channel())

	fmt.Println("--- step 3: extractor discovers the channel through the registry ---")
	e, err := extractor.New(ctx, s.Owner(), s.Channel(), endpoint)
	require.NoError(t, err)
	defer e.Close()

	fmt.Println("--- step 4: spring pushes a record, extractor pops it back out ---")
	require.NoError(t, s.Push("hello from spring", 42))

	el, ok, err := e.Pop()
	require.NoError(t, err)
	require.True(t, ok, "expected a record to be ready")
	require.Equal(t, uint64(42), el.ID)
	require.Equal(t, "hello from spring", el.String())

	fmt.Println("--- step 5: the ring is empty again ---")
	_, ok, err = e.Pop()
	require.NoError(t, err)
	require.False(t, ok, "expected the ring to be empty after draining the one record")

	fmt.Println("--- step 6: closing spring unpublishes the channel ---")
	require.NoError(t, s.Close(ctx))

	_, err = extractor.New(ctx, s.Owner(), s.Channel(), endpoint)
	require.Error(t, err, "expected the channel to be gone from the registry after Close")
}

func springNewForTest(ctx context.Context, endpoint string) (*Spring, error) {
	return New(ctx, "producer-1", "telemetry", 8, elem.Size, endpoint)
}
