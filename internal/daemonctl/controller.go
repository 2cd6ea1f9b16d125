package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"fileflows/internal/api"
	"fileflows/internal/config"
	"fileflows/internal/ipc"
	"fileflows/internal/preflight"
	"fileflows/internal/store"
)

// FileQuery filters file listings.
type FileQuery struct {
	Library  string
	Statuses []string
	Limit    int
}

// Controller issues control commands to the running daemon or, when none is
// listening, directly to the record store.
type Controller interface {
	Online() bool
	Status(ctx context.Context) (api.DaemonStatus, error)
	Files(ctx context.Context, query FileQuery) ([]api.LibraryFile, error)
	File(ctx context.Context, id int64) (*api.LibraryFile, error)
	Libraries(ctx context.Context) ([]api.Library, error)
	Reprocess(ctx context.Context, ids []int64) (int64, error)
	Cancel(ctx context.Context, ids []int64) (int64, error)
	MoveToTop(ctx context.Context, ids []int64) (int64, error)
	Rescan(ctx context.Context, full bool, libraries []string) (int, error)
	Reload(ctx context.Context) (string, error)
	Close() error
}

// Connect dials the daemon socket and falls back to the record store when the
// daemon is not running.
func Connect(cfg *config.Config) (Controller, error) {
	client, err := ipc.Dial(cfg.SocketPath())
	if err == nil {
		return &ipcController{client: client}, nil
	}
	if !isDaemonUnavailable(err) {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &storeController{cfg: cfg, store: st}, nil
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, os.ErrNotExist)
}

// --- IPC adapter ---

type ipcController struct {
	client *ipc.Client
}

func (c *ipcController) Online() bool { return true }

func (c *ipcController) Status(context.Context) (api.DaemonStatus, error) {
	resp, err := c.client.Status()
	if err != nil {
		return api.DaemonStatus{}, err
	}
	return resp.Status, nil
}

func (c *ipcController) Files(_ context.Context, query FileQuery) ([]api.LibraryFile, error) {
	resp, err := c.client.FileList(ipc.FileListRequest{Library: query.Library, Statuses: query.Statuses, Limit: query.Limit})
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (c *ipcController) File(_ context.Context, id int64) (*api.LibraryFile, error) {
	resp, err := c.client.FileShow(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	return &resp.File, nil
}

func (c *ipcController) Libraries(context.Context) ([]api.Library, error) {
	resp, err := c.client.LibraryList()
	if err != nil {
		return nil, err
	}
	return resp.Libraries, nil
}

func (c *ipcController) Reprocess(_ context.Context, ids []int64) (int64, error) {
	resp, err := c.client.Reprocess(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *ipcController) Cancel(_ context.Context, ids []int64) (int64, error) {
	resp, err := c.client.Cancel(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *ipcController) MoveToTop(_ context.Context, ids []int64) (int64, error) {
	resp, err := c.client.MoveToTop(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *ipcController) Rescan(_ context.Context, full bool, libraries []string) (int, error) {
	resp, err := c.client.Rescan(ipc.RescanRequest{Full: full, Libraries: libraries})
	if err != nil {
		return 0, err
	}
	return resp.Signalled, nil
}

func (c *ipcController) Reload(context.Context) (string, error) {
	resp, err := c.client.ReloadLibraries()
	if err != nil {
		return "", err
	}
	if !resp.Reloaded {
		return "", errors.New(resp.Message)
	}
	return resp.Message, nil
}

func (c *ipcController) Close() error {
	return c.client.Close()
}

// --- store adapter ---

type storeController struct {
	cfg   *config.Config
	store *store.Store
}

func (c *storeController) Online() bool { return false }

func (c *storeController) Status(ctx context.Context) (api.DaemonStatus, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	libraries, err := c.store.ListLibraries(ctx)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	health, err := c.store.CheckHealth(ctx)
	if err != nil && health.Error == "" {
		health.Error = err.Error()
	}
	return api.DaemonStatus{
		DatabasePath: c.store.Path(),
		LockFilePath: c.cfg.LockPath(),
		Workflow:     api.WorkflowStatus{FileStats: api.StatusCounts(stats)},
		Libraries:    api.FromLibraries(libraries, nil),
		Preflight:    api.FromPreflight(preflight.RunAll(ctx, c.cfg)),
		Database: api.DatabaseHealth{
			DBPath:           health.DBPath,
			DatabaseExists:   health.DatabaseExists,
			DatabaseReadable: health.DatabaseReadable,
			SchemaVersion:    health.SchemaVersion,
			Error:            health.Error,
		},
	}, nil
}

func (c *storeController) Files(ctx context.Context, query FileQuery) ([]api.LibraryFile, error) {
	files, err := c.store.List(ctx, store.ListOptions{
		Library:  query.Library,
		Statuses: api.ParseStatuses(query.Statuses),
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, err
	}
	return api.FromFiles(files), nil
}

func (c *storeController) File(ctx context.Context, id int64) (*api.LibraryFile, error) {
	file, err := c.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if file == nil {
		return nil, nil
	}
	dto := api.FromFile(file)
	return &dto, nil
}

func (c *storeController) Libraries(ctx context.Context) ([]api.Library, error) {
	states, err := c.store.ListLibraries(ctx)
	if err != nil {
		return nil, err
	}
	return api.FromLibraries(states, nil), nil
}

func (c *storeController) Reprocess(ctx context.Context, ids []int64) (int64, error) {
	return c.store.Reprocess(ctx, ids...)
}

// Cancel only reaches claimable files; nothing is running without a daemon.
func (c *storeController) Cancel(ctx context.Context, ids []int64) (int64, error) {
	return c.store.Cancel(ctx, ids...)
}

func (c *storeController) MoveToTop(ctx context.Context, ids []int64) (int64, error) {
	if err := c.store.MoveToTop(ctx, ids...); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// Rescan records a full rescan for the next daemon start. A partial rescan
// has nothing to act on offline.
func (c *storeController) Rescan(ctx context.Context, full bool, libraries []string) (int, error) {
	if !full {
		return 0, fmt.Errorf("%w: only --full rescans can be recorded offline", ErrDaemonNotRunning)
	}
	n, err := c.store.MarkForRescan(ctx, libraries...)
	return int(n), err
}

func (c *storeController) Reload(context.Context) (string, error) {
	return "", ErrDaemonNotRunning
}

func (c *storeController) Close() error {
	return c.store.Close()
}
