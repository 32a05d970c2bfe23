package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStartStopLifecycle(t *testing.T) {
	mgr := New("/bin/sleep", []string{"/bin/sleep", "5"})

	mgr.Start()
	require.Eventually(t, func() bool { return mgr.State() == Running }, time.Second, 5*time.Millisecond)
	assert.NotZero(t, mgr.Pid())

	mgr.Stop()
	err := mgr.Wait()
	require.NoError(t, err)
	assert.Equal(t, Stopped, mgr.State())
}

func TestManagerStopIsIdempotent(t *testing.T) {
	mgr := New("/bin/sleep", []string{"/bin/sleep", "5"})
	mgr.Start()
	require.Eventually(t, func() bool { return mgr.State() == Running }, time.Second, 5*time.Millisecond)

	mgr.Stop()
	mgr.Stop()

	require.NoError(t, mgr.Wait())
}

func TestManagerRestartsAfterChildExits(t *testing.T) {
	mgr := New("/bin/sh", []string{"/bin/sh", "-c", "exit 0"})

	mgr.Start()

	var firstPid int
	require.Eventually(t, func() bool {
		firstPid = mgr.Pid()
		return firstPid != 0
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return mgr.Pid() != firstPid && mgr.Pid() != 0
	}, time.Second, 5*time.Millisecond, "expected the monitor loop to respawn the child after it exited")

	mgr.Stop()
	require.NoError(t, mgr.Wait())
}

func TestManagerWaitBlocksUntilStop(t *testing.T) {
	mgr := New("/bin/sleep", []string{"/bin/sleep", "5"})
	mgr.Start()

	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Stop was called")
	case <-time.After(50 * time.Millisecond):
	}

	mgr.Stop()
	<-done
}
