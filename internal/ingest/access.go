package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"fileflows/internal/library"
)

// RecentWriteWindow is how recent a write must be for the accessibility probe
// to wait and compare sizes before opening the file.
const RecentWriteWindow = 10 * time.Second

var (
	errStillGrowing = errors.New("file size changed during detection interval")
	errLockedByPeer = errors.New("file is locked by another process")
)

// accessProbe reports whether a file-mode candidate can be read, written and
// is no longer being produced by another process.
type accessProbe struct {
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newAccessProbe() accessProbe {
	return accessProbe{now: time.Now, sleep: sleepContext}
}

// Check returns nil when the file is ready for ingestion.
func (p accessProbe) Check(ctx context.Context, lib library.Library, entry library.Entry) error {
	if p.now().Sub(entry.LastWriteTime) < RecentWriteWindow {
		if wait := lib.SizeDetectionWait(); wait > 0 {
			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
		}
		info, err := os.Stat(entry.Path)
		if err != nil {
			return fmt.Errorf("restat: %w", err)
		}
		if info.Size() != entry.Size {
			return fmt.Errorf("%w: %d -> %d bytes", errStillGrowing, entry.Size, info.Size())
		}
	}

	if err := unix.Access(entry.Path, unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("access: %w", err)
	}
	// O_RDWR without O_CREATE: the probe must never recreate a file that
	// vanished after the access check.
	lock := flock.New(entry.Path, flock.SetFlag(os.O_RDWR))
	defer lock.Close()
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("open read-write: %w", err)
	}
	if !locked {
		return errLockedByPeer
	}
	return lock.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
