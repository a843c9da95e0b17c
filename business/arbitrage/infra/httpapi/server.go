// Package httpapi exposes the scanner, opportunity registry and execution
// history over HTTP, and streams hub events to websocket clients.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	defaultExecutionLimit = 50
	eventBuffer           = 128
	writeTimeout          = 5 * time.Second
)

// ScannerControl is the scanner surface the API drives. Satisfied by *app.Scanner.
type ScannerControl interface {
	Start(ctx context.Context, cfg domain.ScanConfig) error
	Stop()
	IsRunning() bool
	Phase() app.Phase
	LastCycle() *domain.CycleReport
	Opportunities() []domain.Opportunity
}

// Deps are the collaborators of a Server. Storage and Hub may be nil.
type Deps struct {
	Port     int
	Scanner  ScannerControl
	Storage  app.Storage
	Hub      *app.Hub
	Settings app.SettingsSource
	Logger   logger.LoggerInterface
}

// Server serves the REST and websocket API.
type Server struct {
	port     int
	scanner  ScannerControl
	storage  app.Storage
	hub      *app.Hub
	settings app.SettingsSource
	log      logger.LoggerInterface

	// sessions started over HTTP outlive the request
	baseCtx context.Context
	server  *http.Server
}

// NewServer creates an API server. Call Start to listen.
func NewServer(deps Deps) *Server {
	return &Server{
		port:     deps.Port,
		scanner:  deps.Scanner,
		storage:  deps.Storage,
		hub:      deps.Hub,
		settings: deps.Settings,
		log:      deps.Logger,
		baseCtx:  context.Background(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	// routes live on the root router so a method mismatch answers 405
	r.Handle("/api/opportunities", traced("opportunities", s.handleOpportunities)).Methods(http.MethodGet)
	r.Handle("/api/executions", traced("executions", s.handleExecutions)).Methods(http.MethodGet)
	r.Handle("/api/scanner", traced("scanner", s.handleScanner)).Methods(http.MethodGet)
	r.Handle("/api/scanner/start", traced("scanner.start", s.handleStart)).Methods(http.MethodPost)
	r.Handle("/api/scanner/stop", traced("scanner.stop", s.handleStop)).Methods(http.MethodPost)

	// the upgrade needs the raw connection, so the stream is not instrumented
	r.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("method not allowed"),
			apperror.WithContext(req.Method+" "+req.URL.Path)))
	})

	return r
}

func traced(operation string, h http.HandlerFunc) http.Handler {
	return otelhttp.NewHandler(h, "api."+operation)
}

// Start listens on the configured port. Scanner sessions started through the
// API run under ctx.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = context.WithoutCancel(ctx)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn(context.Background(), "api server stopped", "error", err)
		}
	}()

	s.log.Info(ctx, "api server listening", "port", s.port)
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type scannerState struct {
	Running   bool                `json:"running"`
	Phase     string              `json:"phase"`
	LastCycle *domain.CycleReport `json:"lastCycle,omitempty"`
}

func (s *Server) state() scannerState {
	return scannerState{
		Running:   s.scanner.IsRunning(),
		Phase:     s.scanner.Phase().String(),
		LastCycle: s.scanner.LastCycle(),
	}
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := s.scanner.Opportunities()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opps),
		"opportunities": opps,
	})
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		writeError(w, http.StatusServiceUnavailable, apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithMessage("execution storage is not configured")))
		return
	}

	limit := defaultExecutionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, apperror.New(apperror.CodeInvalidInput,
				apperror.WithMessage("limit must be a positive integer"),
				apperror.WithContext(raw)))
			return
		}
		limit = n
	}

	results, err := s.storage.RecentExecutions(r.Context(), limit)
	if err != nil {
		s.log.Error(r.Context(), "failed to read executions", apperror.LogArgs(err)...)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []domain.TradeExecutionResult{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(results),
		"executions": results,
	})
}

func (s *Server) handleScanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	cfg, err := app.NewScanConfig(s.settings.Current())
	if err != nil {
		writeError(w, http.StatusBadRequest, apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err)))
		return
	}

	if err := s.scanner.Start(s.baseCtx, cfg); err != nil {
		status := http.StatusBadRequest
		if apperror.GetCode(err) == apperror.CodeScannerRunning {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	s.log.Info(r.Context(), "scanner started over api", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, s.state())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.scanner.Stop()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithMessage("event stream is not configured")))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	events, unsubscribe := s.hub.Subscribe(eventBuffer)
	defer unsubscribe()

	// clients only listen; CloseRead cancels ctx when they go away
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "hub closed")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				s.log.Debug(ctx, "event stream closed", "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Code:  string(apperror.GetCode(err)),
		Hint:  apperror.HintOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
