package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Entry is the filesystem view of a candidate path.
type Entry struct {
	Path          string
	IsDir         bool
	Size          int64
	CreationTime  time.Time
	LastWriteTime time.Time
}

// Stat describes path. Creation time comes from the birth time when the
// filesystem records one and falls back to the inode change time.
func Stat(path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Path:          path,
		IsDir:         info.IsDir(),
		Size:          info.Size(),
		CreationTime:  creationTime(path, info),
		LastWriteTime: info.ModTime(),
	}, nil
}

func creationTime(path string, info os.FileInfo) time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME, &stx); err == nil {
		if stx.Mask&unix.STATX_BTIME != 0 {
			return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
		}
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	}
	return info.ModTime()
}

// Exists reports whether path exists with the expected kind.
func Exists(path string, dir bool) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir() == dir
}

// NewestWrite returns the most recent modification time of any file below dir.
// A directory without files returns the zero time.
func NewestWrite(dir string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}

// Subdirectories lists the immediate subdirectories of root.
func Subdirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	return dirs, nil
}

// Files walks root recursively and returns every regular file with its
// creation time. Unreadable subtrees are skipped.
func Files(root string) []Entry {
	var files []Entry
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, Entry{
			Path:          path,
			Size:          info.Size(),
			CreationTime:  creationTime(path, info),
			LastWriteTime: info.ModTime(),
		})
		return nil
	})
	return files
}
