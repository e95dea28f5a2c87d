package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/rustyeddy/stratengine/errs"
)

// Lock is the singleton execution lock: an exclusive, non-blocking
// advisory flock on a fixed path whose contents are the holder's
// process id. It serializes live engines on one machine only; this
// is not a distributed lock.
type Lock struct {
	path string
	file *os.File
}

func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Acquire takes the lock or returns an EngineError naming the holder.
// A lock file whose pid has no live process is stale and cleared.
func (l *Lock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return errs.Engine("lock %s: permission denied", l.path)
		}
		return fmt.Errorf("open lock %s: %w", l.path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		pid := readPid(f)
		f.Close()
		if pid > 0 && !processAlive(pid) {
			// Holder died without releasing; flock should have
			// released with it, so failing here with a dead pid
			// means another acquire raced us. Report it anyway.
			return &errs.EngineError{
				Msg: fmt.Sprintf("engine already running (stale pid %d)", pid),
				PID: pid,
			}
		}
		return &errs.EngineError{
			Msg: fmt.Sprintf("engine already running (pid %d)", pid),
			PID: pid,
		}
	}

	// We hold the flock; any pid left in the file belongs to a dead
	// process and is safe to overwrite.
	if err := f.Truncate(0); err != nil {
		f.Close()
		return fmt.Errorf("truncate lock %s: %w", l.path, err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		f.Close()
		return fmt.Errorf("write lock %s: %w", l.path, err)
	}

	l.file = f
	return nil
}

// Release drops the lock and removes the file.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)
	return err
}

// Holder reports the pid recorded in the lock file and whether that
// process is alive. A dead holder means the file is stale.
func Holder(path string) (pid int, alive bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, processAlive(pid)
}

func readPid(f *os.File) int {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0
	}
	return pid
}

// processAlive probes the pid with signal 0. EPERM still means a live
// process owned by someone else.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
