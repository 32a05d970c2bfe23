// Package supervisor keeps one child process running: it forks/execs the
// target executable, polls its exit status, and restarts it on any exit
// other than an explicit Stop.
package supervisor

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ambrsb/shmbus/internal/regerr"
)

// State is the ServiceManager's view of its child process.
type State int32

const (
	NotStarted State = iota
	Running
	Crashed
	Finished
	Error
	Stopped
	Unknown
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Crashed:
		return "crashed"
	case Finished:
		return "finished"
	case Error:
		return "error"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// NotRunning reports whether s is any terminal-or-unstarted state other
// than Running. Stopped counts as NotRunning but is excluded from the
// restart trigger the monitor loop checks.
func (s State) NotRunning() bool {
	return s != Running
}

const pollInterval = 10 * time.Millisecond

// Manager supervises one executable, restarting it whenever it exits for
// any reason other than an explicit Stop.
type Manager struct {
	execPath string
	argv     []string
	logger   *log.Logger

	pid       atomic.Int64
	state     atomic.Int32
	terminate atomic.Bool
	stopOnce  sync.Once
	done      chan struct{}

	cmd   *exec.Cmd
	cmdMu sync.Mutex

	errMu    sync.Mutex
	spawnErr error
}

// New constructs a Manager for execPath, invoked with argv (argv[0] should
// conventionally be execPath, matching execv's own convention).
func New(execPath string, argv []string) *Manager {
	return &Manager{
		execPath: execPath,
		argv:     argv,
		logger:   log.New(os.Stderr, "supervisor: ", log.LstdFlags),
		done:     make(chan struct{}),
	}
}

// State returns the current State of the child process.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Pid returns the most recently started child's PID, or 0 if none has
// started yet.
func (m *Manager) Pid() int {
	return int(m.pid.Load())
}

// Start spawns the monitor goroutine and blocks until the first child
// process has actually been forked, so a caller observes Running (or
// Error) rather than NotStarted on return.
func (m *Manager) Start() {
	started := make(chan struct{})
	go m.monitor(started)
	<-started
}

func (m *Manager) monitor(started chan struct{}) {
	m.logger.Println("monitor loop started")
	var notifiedStart bool
	for {
		if m.terminate.Load() {
			break
		}
		state := m.State()
		if state == NotStarted || (state.NotRunning() && state != Stopped) {
			m.spawn()
		}
		if !notifiedStart {
			close(started)
			notifiedStart = true
		}
		time.Sleep(pollInterval)
	}
	m.logger.Println("monitor loop finished")
	close(m.done)
}

func (m *Manager) spawn() {
	m.logger.Printf("forking service process %q", m.execPath)

	argv := m.argv
	if len(argv) == 0 {
		argv = []string{m.execPath}
	}

	cmd := exec.Command(m.execPath, argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		var sentinel error = regerr.ErrForkFailed
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			sentinel = regerr.ErrExecFailed
		}
		wrapped := fmt.Errorf("supervisor: spawn %q: %w: %v", m.execPath, sentinel, err)
		m.logger.Printf("%v", wrapped)

		m.errMu.Lock()
		m.spawnErr = wrapped
		m.errMu.Unlock()

		m.state.Store(int32(Error))
		// A failed exec/fork is fatal for the supervisor, not a retry
		// trigger. Without this the monitor loop's NotRunning check would
		// spawn() again on the very next tick forever.
		m.terminate.Store(true)
		return
	}

	m.cmdMu.Lock()
	m.cmd = cmd
	m.cmdMu.Unlock()

	m.pid.Store(int64(cmd.Process.Pid))
	m.state.Store(int32(Running))

	go func() {
		err := cmd.Wait()
		if m.terminate.Load() {
			return
		}
		if err != nil {
			m.logger.Printf("service exited: %v", err)
			m.state.Store(int32(Crashed))
			return
		}
		m.state.Store(int32(Finished))
	}()
}

// Stop sets the terminate flag, waits for the monitor goroutine to exit,
// then sends SIGTERM to the supervised child. It is idempotent: subsequent
// calls are no-ops.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		if m.pid.Load() == 0 {
			m.terminate.Store(true)
			return
		}

		m.logger.Printf("stopping service instance (pid %d)", m.pid.Load())
		m.terminate.Store(true)
		<-m.done

		m.cmdMu.Lock()
		cmd := m.cmd
		m.cmdMu.Unlock()
		if cmd != nil && cmd.Process != nil {
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				m.logger.Printf("failed to signal service instance: %v", err)
			}
		}
		m.state.Store(int32(Stopped))
	})
}

// Wait blocks until the monitor goroutine has exited, which happens after
// Stop or after a failed spawn; in the latter case it returns an error.
func (m *Manager) Wait() error {
	<-m.done
	if m.State() == Error {
		return fmt.Errorf("supervisor: %q exited in error state", m.execPath)
	}
	return nil
}
