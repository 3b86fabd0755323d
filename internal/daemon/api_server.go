package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tvcore/internal/config"
	"tvcore/internal/epg"
	"tvcore/internal/logging"
	"tvcore/internal/metrics"
	"tvcore/internal/routes"
	"tvcore/internal/scan"
	"tvcore/internal/services"
	"tvcore/internal/store"
	"tvcore/internal/tuning"
)

// ChannelListResponse is the body of GET /api/channels.
type ChannelListResponse struct {
	Channels []store.Channel `json:"channels"`
}

// ProgramListResponse is the body of GET /api/channels/{id}/programs.
type ProgramListResponse struct {
	Channel  store.Channel    `json:"channel"`
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Programs []*store.Program `json:"programs"`
}

// TuneResponse is the body of POST /api/tune/{id}.
type TuneResponse struct {
	Channel store.Channel `json:"channel"`
	Result  tuning.Result `json:"result"`
	Error   string        `json:"error,omitempty"`
}

// RoutesResponse is the body of GET /api/routes.
type RoutesResponse struct {
	Counts      routes.Counts       `json:"counts"`
	Assignments []routes.Assignment `json:"assignments"`
}

// EPGResponse is the body of GET /api/epg.
type EPGResponse struct {
	Enabled      bool              `json:"enabled"`
	Window       *epg.Window       `json:"window,omitempty"`
	LastRun      *epg.Run          `json:"last_run,omitempty"`
	Acquisitions []epg.Acquisition `json:"acquisitions"`
}

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.handler = srv.routes(cfg.Paths.APIToken)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(metrics.RequestMiddleware(s.daemon.metrics))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.daemon.metrics.Handler(s.updateGauges).ServeHTTP(w, r)
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(token))
		r.Get("/status", s.handleStatus)
		r.Get("/channels", s.handleChannels)
		r.Get("/channels/{id}/programs", s.handlePrograms)
		r.Get("/channels/{id}/now", s.handleNowPlaying)
		r.Post("/tune/{id}", s.handleTune)
		r.Post("/stop", s.handleStop)
		r.Get("/scan", s.handleScanStatus)
		r.Post("/scan", s.handleScanStart)
		r.Delete("/scan", s.handleScanStop)
		r.Get("/routes", s.handleRoutes)
		r.Get("/epg", s.handleEPG)
		r.Post("/epg", s.handleEPGRequest)
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) updateGauges() {
	if mgr, err := s.daemon.Manager(); err == nil {
		s.daemon.metrics.SetChannels(mgr.Catalog().Size())
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleChannels(w http.ResponseWriter, _ *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ChannelListResponse{Channels: mgr.Catalog().Channels()})
}

func parseChannelID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid channel id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// parseRange reads RFC 3339 from/to query values. The default range is the
// next 24 hours.
func parseRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	from, to := now, now.Add(24*time.Hour)
	query := r.URL.Query()
	if value := query.Get("from"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return from, to, fmt.Errorf("invalid from: %w", err)
		}
		from = parsed
		if query.Get("to") == "" {
			to = from.Add(24 * time.Hour)
		}
	}
	if value := query.Get("to"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return from, to, fmt.Errorf("invalid to: %w", err)
		}
		to = parsed
	}
	return from, to, nil
}

func (s *apiServer) handlePrograms(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	id, err := parseChannelID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, to, err := parseRange(r, time.Now())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ch, err := mgr.Channel(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	programs, err := mgr.Programs(r.Context(), id, from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ProgramListResponse{Channel: ch, From: from, To: to, Programs: programs})
}

func (s *apiServer) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	id, err := parseChannelID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prog, err := mgr.NowPlaying(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if prog == nil {
		s.writeError(w, http.StatusNotFound, "no program airing now")
		return
	}
	s.writeJSON(w, http.StatusOK, prog)
}

func (s *apiServer) handleTune(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	id, err := parseChannelID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ch, err := mgr.Channel(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	ctx := services.WithChannelID(services.EnsureRequestID(r.Context()), id)
	res, _ := mgr.Tune(ctx, id)
	resp := TuneResponse{Channel: ch, Result: res}
	status := http.StatusOK
	if !res.OK {
		resp.Error = errorMessage(res.Err)
		status = statusFor(res.Err)
	}
	s.writeJSON(w, status, resp)
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	mgr.Stop(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleScanStatus(w http.ResponseWriter, _ *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mgr.Scanner().Status())
}

func (s *apiServer) handleScanStart(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	status, err := mgr.Scanner().Start(services.EnsureRequestID(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	code := http.StatusAccepted
	if status.Outcome == scan.OutcomeSkipped {
		code = http.StatusOK
	}
	s.writeJSON(w, code, status)
}

func (s *apiServer) handleScanStop(w http.ResponseWriter, r *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := mgr.Scanner().Stop(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mgr.Scanner().Status())
}

func (s *apiServer) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RoutesResponse{
		Counts:      mgr.Routes().Counts(),
		Assignments: mgr.Routes().Assignments(),
	})
}

func (s *apiServer) handleEPG(w http.ResponseWriter, _ *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, epgSummary(mgr.EPG()))
}

func epgSummary(worker *epg.Worker) EPGResponse {
	resp := EPGResponse{Enabled: worker != nil}
	if worker == nil {
		return resp
	}
	if win, ok := worker.CurrentWindow(); ok {
		resp.Window = &win
	}
	if run := worker.LastRun(); run.Mode != "" {
		resp.LastRun = &run
	}
	resp.Acquisitions = worker.Scheduler().Snapshot()
	return resp
}

func (s *apiServer) handleEPGRequest(w http.ResponseWriter, _ *http.Request) {
	mgr, err := s.daemon.Manager()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := mgr.RequestEPG(); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// statusFor maps error markers onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTimedOut):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrMiddlewareComm):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrHardwareAbsent), errors.Is(err, services.ErrInvalidOperation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Warn("api request failed", logging.Error(err), logging.Int("status", status))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error(), "kind": services.Kind(err)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
