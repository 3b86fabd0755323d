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
	"time"

	"tvcore/internal/daemon"
	"tvcore/internal/logging"
	"tvcore/internal/logs"
	"tvcore/internal/services"
)

// ServiceName is the name the RPC service is registered under.
const ServiceName = "TVCore"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger.With(logging.String("component", "ipc")), ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
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
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually before restarting tvcore"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// call derives a per-request context carrying a fresh request id.
func (s *service) call() context.Context {
	return services.EnsureRequestID(s.ctx)
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status()
	return nil
}

func (s *service) Channels(_ ChannelsRequest, resp *ChannelsResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	resp.Channels = mgr.Catalog().Channels()
	return nil
}

func (s *service) Programs(req ProgramsRequest, resp *ProgramsResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	ch, err := mgr.Channel(req.ChannelID)
	if err != nil {
		return err
	}
	from := req.From
	if from.IsZero() {
		from = time.Now()
	}
	to := req.To
	if to.IsZero() {
		to = from.Add(24 * time.Hour)
	}
	programs, err := mgr.Programs(s.call(), req.ChannelID, from, to)
	if err != nil {
		return err
	}
	resp.Channel = ch
	resp.From = from
	resp.To = to
	resp.Programs = programs
	return nil
}

func (s *service) NowPlaying(req NowPlayingRequest, resp *NowPlayingResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	program, err := mgr.NowPlaying(s.call(), req.ChannelID)
	if err != nil {
		return err
	}
	resp.Program = program
	return nil
}

func (s *service) Tune(req TuneRequest, resp *TuneResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	ctx := services.WithChannelID(s.call(), req.ChannelID)
	result, err := mgr.Tune(ctx, req.ChannelID)
	if err != nil {
		return err
	}
	resp.Channel, _ = mgr.Channel(req.ChannelID)
	resp.Result = result
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	s.logger.Info("tune requested via IPC",
		logging.ChannelID(req.ChannelID),
		logging.Bool("ok", result.OK),
		logging.String(logging.FieldEventType, "ipc_tune"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	mgr.Stop(s.call())
	resp.Stopped = true
	return nil
}

func (s *service) ScanStart(_ ScanRequest, resp *ScanResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	status, err := mgr.Scanner().Start(s.call())
	if err != nil {
		return err
	}
	resp.Status = status
	s.logger.Info("scan started via IPC",
		logging.String("scan_id", status.ScanID),
		logging.String(logging.FieldEventType, "ipc_scan_start"))
	return nil
}

func (s *service) ScanStop(_ ScanRequest, resp *ScanResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	if err := mgr.Scanner().Stop(s.call()); err != nil {
		return err
	}
	resp.Status = mgr.Scanner().Status()
	return nil
}

func (s *service) ScanStatus(_ ScanRequest, resp *ScanResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	resp.Status = mgr.Scanner().Status()
	return nil
}

func (s *service) Routes(_ RoutesRequest, resp *RoutesResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	resp.Counts = mgr.Routes().Counts()
	resp.Assignments = mgr.Routes().Assignments()
	return nil
}

func (s *service) EPG(req EPGRequest, resp *EPGResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	if req.Acquire {
		if err := mgr.RequestEPG(); err != nil {
			return err
		}
		resp.Queued = true
	}
	worker := mgr.EPG()
	resp.Enabled = worker != nil
	if worker == nil {
		return nil
	}
	if win, ok := worker.CurrentWindow(); ok {
		resp.Window = &win
	}
	if run := worker.LastRun(); run.Mode != "" {
		resp.LastRun = &run
	}
	resp.Acquisitions = mgr.Acquisitions()
	return nil
}

func (s *service) Volume(req VolumeRequest, resp *VolumeResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	ctx := s.call()
	tuner := mgr.Tuner()
	if req.Set != nil {
		if err := tuner.SetVolume(ctx, *req.Set); err != nil {
			return err
		}
	}
	if req.Mute != nil {
		if err := tuner.SetMute(ctx, *req.Mute); err != nil {
			return err
		}
	}
	resp.Volume, err = tuner.Volume(ctx)
	return err
}

func (s *service) Tracks(_ TracksRequest, resp *TracksResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	ctx := s.call()
	if resp.Audio, err = mgr.Tuner().AudioTracks(ctx); err != nil {
		return err
	}
	resp.Subtitles, err = mgr.Tuner().SubtitleTracks(ctx)
	return err
}

func (s *service) SelectAudio(req SelectAudioRequest, resp *SelectAudioResponse) error {
	mgr, err := s.daemon.Manager()
	if err != nil {
		return err
	}
	if err := mgr.Tuner().SelectAudioTrack(s.call(), req.Index); err != nil {
		return err
	}
	resp.Selected = true
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.call())
	resp.Sent = sent
	resp.Message = message
	if err != nil {
		resp.Message = fmt.Sprintf("%s: %v", message, err)
	}
	return nil
}

func (s *service) Database(_ DatabaseRequest, resp *DatabaseResponse) error {
	ctx := s.call()
	st := s.daemon.Store()
	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	resp.Stats = stats
	resp.Health, err = st.CheckHealth(ctx)
	return err
}

const maxLogTailWait = 10 * time.Second

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	path := s.daemon.LogPath()
	if path == "" {
		return errors.New("daemon log file is not configured")
	}
	wait := min(time.Duration(req.WaitMillis)*time.Millisecond, maxLogTailWait)
	chunk, err := logs.Tail(s.call(), path, logs.Request{Offset: req.Offset, Lines: req.Lines, Wait: wait})
	if err != nil {
		return err
	}
	resp.Lines = chunk.Lines
	resp.Offset = chunk.Offset
	return nil
}
