// Package proclock guards against two bot processes polling the same token.
// The lock is a pair of marker files: one holding the acquisition time, one
// holding the owning PID. A marker naming a dead PID is stale and reclaimed.
package proclock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Sokphirun99/Telegrambot-khmer/internal/atomicfile"
)

const (
	lockFilename = ".bot.lock"
	pidFilename  = ".bot.pid"
)

// ErrAlreadyRunning is returned by Acquire when a live process holds the lock.
var ErrAlreadyRunning = errors.New("proclock: another instance is already running")

type Lock struct {
	dir    string
	logger *slog.Logger
	held   bool
}

func New(dir string, logger *slog.Logger) *Lock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lock{dir: dir, logger: logger}
}

func (l *Lock) lockPath() string { return filepath.Join(l.dir, lockFilename) }
func (l *Lock) pidPath() string  { return filepath.Join(l.dir, pidFilename) }

// Acquire claims the lock for the current process. It fails with
// ErrAlreadyRunning only when the recorded PID still names a live process;
// missing or corrupt markers are treated as stale and cleaned up.
func (l *Lock) Acquire() error {
	if err := atomicfile.EnsureDir(l.dir); err != nil {
		return err
	}

	if pid, held := l.currentHolder(); held {
		if processAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		l.logger.Info("proclock_stale", "pid", pid)
		l.removeMarkers()
	}

	pid := os.Getpid()
	if err := atomicfile.WriteText(l.lockPath(), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("proclock: write lock marker: %w", err)
	}
	if err := atomicfile.WriteText(l.pidPath(), strconv.Itoa(pid)); err != nil {
		_ = os.Remove(l.lockPath())
		return fmt.Errorf("proclock: write pid marker: %w", err)
	}
	l.held = true
	l.logger.Info("proclock_acquired", "pid", pid, "dir", l.dir)
	return nil
}

// Release removes the markers unconditionally. Safe to call more than once.
func (l *Lock) Release() {
	l.removeMarkers()
	if l.held {
		l.logger.Info("proclock_released", "pid", os.Getpid())
		l.held = false
	}
}

// currentHolder reports the PID recorded by a previous instance. A lock
// marker without a parseable PID counts as not held: the previous process
// cannot be identified, so the markers are stale by definition.
func (l *Lock) currentHolder() (int, bool) {
	if _, err := os.Stat(l.lockPath()); err != nil {
		return 0, false
	}
	raw, ok, err := atomicfile.ReadText(l.pidPath())
	if err != nil || !ok {
		l.removeMarkers()
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || pid <= 0 {
		l.removeMarkers()
		return 0, false
	}
	return pid, true
}

func (l *Lock) removeMarkers() {
	_ = os.Remove(l.lockPath())
	_ = os.Remove(l.pidPath())
}
