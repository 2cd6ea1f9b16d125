package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"fileflows/internal/api"
	"fileflows/internal/daemon"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.Event("ipc_accept_failed"),
					logging.Impact("IPC clients may fail to connect"),
					logging.Hint("check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server, drops open client connections and removes the
// socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.Event("ipc_socket_cleanup_failed"),
			logging.Impact("stale IPC socket may block future starts"),
			logging.Hint("remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	libraries, err := s.daemon.ListLibraries(s.ctx)
	if err != nil {
		return err
	}
	resp.Status = api.FromDaemonStatus(status, libraries)
	return nil
}

func (s *service) FileList(req FileListRequest, resp *FileListResponse) error {
	files, err := s.daemon.ListFiles(s.ctx, store.ListOptions{
		Library:  req.Library,
		Statuses: api.ParseStatuses(req.Statuses),
		Limit:    req.Limit,
	})
	if err != nil {
		return err
	}
	resp.Files = api.FromFiles(files)
	return nil
}

func (s *service) FileShow(req FileShowRequest, resp *FileShowResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid file id %d", req.ID)
	}
	file, err := s.daemon.GetFile(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if file == nil {
		return fmt.Errorf("library file %d not found", req.ID)
	}
	resp.File = api.FromFile(file)
	return nil
}

func (s *service) Reprocess(req IDsRequest, resp *UpdatedResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("reprocess requires at least one id")
	}
	s.logger.Debug("reprocess requested", logging.Int("file_count", len(req.IDs)))
	updated, err := s.daemon.Reprocess(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	return nil
}

func (s *service) Cancel(req IDsRequest, resp *UpdatedResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("cancel requires at least one id")
	}
	s.logger.Debug("cancel requested", logging.Int("file_count", len(req.IDs)))
	updated, err := s.daemon.Cancel(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	return nil
}

func (s *service) MoveToTop(req IDsRequest, resp *UpdatedResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("move to top requires at least one id")
	}
	if err := s.daemon.MoveToTop(s.ctx, req.IDs); err != nil {
		return err
	}
	resp.Updated = int64(len(req.IDs))
	return nil
}

func (s *service) Rescan(req RescanRequest, resp *RescanResponse) error {
	signalled, err := s.daemon.Rescan(s.ctx, req.Full, req.Libraries)
	if err != nil {
		return err
	}
	resp.Signalled = signalled
	s.logger.Info("rescan requested via IPC",
		logging.Event("rescan_requested"),
		logging.Bool("full", req.Full),
		logging.Int("signalled", signalled))
	return nil
}

func (s *service) LibraryList(_ LibraryListRequest, resp *LibraryListResponse) error {
	states, err := s.daemon.ListLibraries(s.ctx)
	if err != nil {
		return err
	}
	resp.Libraries = api.FromLibraries(states, s.daemon.LibraryActivity())
	return nil
}

func (s *service) ReloadLibraries(_ ReloadRequest, resp *ReloadResponse) error {
	if err := s.daemon.ReloadFromDisk(s.ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Reloaded = true
	resp.Message = "configuration reloaded"
	return nil
}
