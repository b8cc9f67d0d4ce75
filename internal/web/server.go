package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"webp-converter-go/internal/codec"
	"webp-converter-go/internal/config"
	"webp-converter-go/internal/converter"
	"webp-converter-go/internal/metadata"
	"webp-converter-go/internal/scanner"
	"webp-converter-go/internal/session"
	"webp-converter-go/internal/statistics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg        *config.Config
	codec      codec.Codec
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex
	meta       *metadata.CachedReader

	// Current job state
	operationMutex sync.RWMutex
	current        *Job
	cancel         context.CancelFunc
	jobs           sync.WaitGroup
}

// Job is one conversion started through the API.
type Job struct {
	ID         string                  `json:"id"`
	State      string                  `json:"state"`
	Config     config.RunConfiguration `json:"config"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
	Done       int                     `json:"done"`
	Total      int                     `json:"total"`
	Summary    *statistics.RunSummary  `json:"summary,omitempty"`
	Error      string                  `json:"error,omitempty"`
	running    bool
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ScanRequest struct {
	Directory string `json:"directory"`
}

type ScanResponse struct {
	Root      string                `json:"root"`
	Stats     statistics.ScanStats  `json:"stats"`
	Files     []scanner.ImageRecord `json:"files"`
	TotalMB   string                `json:"total_mb"`
	AverageKB string                `json:"average_kb"`
}

// ConvertRequest starts a conversion. Missing fields take the server's
// configured defaults; Quality is a pointer so 0 stays a valid request.
type ConvertRequest struct {
	InputDirectory  string `json:"input_directory"`
	OutputDirectory string `json:"output_directory"`
	Quality         *int   `json:"quality,omitempty"`
	MaxWidth        int    `json:"max_width,omitempty"`
}

type InspectResponse struct {
	Info  metadata.Info       `json:"info"`
	Cache metadata.CacheStats `json:"cache"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(cfg *config.Config, c codec.Codec, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		codec:     c,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		meta:      metadata.NewCachedReader(metadata.ChainReader{metadata.NewGoExifReader(log)}),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/convert", s.handleConvert).Methods("POST")
	api.HandleFunc("/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/summary", s.handleSummary).Methods("GET")
	api.HandleFunc("/inspect", s.handleInspect).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop cancels the running job, waits for it and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.operationMutex.RLock()
	cancel := s.cancel
	s.operationMutex.RUnlock()
	if cancel != nil {
		cancel()
	}
	s.Wait()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Wait blocks until no job is running.
func (s *Server) Wait() {
	s.jobs.Wait()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, running := s.snapshot()
	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running": running,
			"job":     job,
		},
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Directory == "" {
		req.Directory = s.cfg.InputDirectory
	}

	result, err := s.newScanner().Scan(req.Directory)
	if err != nil {
		if errors.Is(err, scanner.ErrNotFound) {
			s.writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		s.writeError(w, fmt.Sprintf("Scan failed: %v", err), http.StatusInternalServerError)
		return
	}

	stats := statistics.FromScan(result)
	s.writeJSON(w, APIResponse{
		Success: true,
		Data: ScanResponse{
			Root:      result.Root,
			Stats:     stats,
			Files:     result.Records,
			TotalMB:   statistics.FormatMB(stats.TotalBytes),
			AverageKB: statistics.FormatKB(stats.AverageSize()),
		},
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	defaults := s.cfg.RunConfiguration()
	run := config.NewRunConfiguration(
		firstNonEmpty(req.InputDirectory, defaults.InputDir),
		firstNonEmpty(req.OutputDirectory, defaults.OutputDir),
		defaults.Quality,
		defaults.MaxWidth,
	)
	if req.Quality != nil {
		run.Quality = config.NormalizeQuality(*req.Quality)
	}
	if req.MaxWidth > 0 {
		run.MaxWidth = req.MaxWidth
	}

	s.operationMutex.Lock()
	if s.current != nil && s.current.running {
		s.operationMutex.Unlock()
		s.writeError(w, "Operation already in progress", http.StatusConflict)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:        uuid.NewString(),
		State:     session.StateStart.String(),
		Config:    run,
		StartedAt: time.Now(),
		running:   true,
	}
	s.current = job
	s.cancel = cancel
	s.jobs.Add(1)
	s.operationMutex.Unlock()

	go s.runConvertAsync(ctx, cancel, job)

	s.writeJSONStatus(w, http.StatusAccepted, APIResponse{
		Success: true,
		Message: "Conversion started",
		Data:    map[string]string{"job_id": job.ID},
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	cancel := s.cancel
	running := s.current != nil && s.current.running
	s.operationMutex.RUnlock()

	if !running || cancel == nil {
		s.writeJSON(w, APIResponse{Success: true, Message: "No operation running"})
		return
	}
	cancel()

	s.broadcastWSMessage("operation_stopped", map[string]interface{}{
		"message": "Operation stopped by user",
	})

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Operation stopped",
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	job, _ := s.snapshot()
	if job == nil || job.Summary == nil {
		s.writeJSON(w, APIResponse{Success: true, Data: nil})
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"job_id":  job.ID,
			"summary": job.Summary,
			"text":    job.Summary.GetSummary(),
		},
	})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, "Missing path parameter", http.StatusBadRequest)
		return
	}
	if !s.cfg.IsSupportedExtension(filepath.Ext(path)) {
		s.writeError(w, fmt.Sprintf("Unsupported file type: %s", filepath.Ext(path)), http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		s.writeError(w, fmt.Sprintf("File not found: %s", path), http.StatusNotFound)
		return
	}

	info, err := metadata.Inspect(path, s.cfg.Conversion.MaxWidth, s.meta)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: InspectResponse{
			Info:  info,
			Cache: s.meta.Stats(),
		},
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) runConvertAsync(ctx context.Context, cancel context.CancelFunc, job *Job) {
	defer s.jobs.Done()
	defer cancel()

	s.broadcastWSMessage("convert_started", map[string]interface{}{
		"job_id": job.ID,
		"config": job.Config,
	})

	pipeline := converter.NewPipeline(s.codec, s.log, converter.Options{
		MaxWidth: job.Config.MaxWidth,
		Workers:  s.cfg.Conversion.Workers,
		Progress: func(_, done, total int, o converter.Outcome) {
			s.updateJob(job, func(j *Job) { j.Done, j.Total = done, total })
			s.broadcastWSMessage("convert_progress", map[string]interface{}{
				"job_id":  job.ID,
				"done":    done,
				"total":   total,
				"outcome": o,
			})
		},
	})

	controller := session.NewController(job.Config, session.StaticPrompter{Answer: true}, s.newScanner(), pipeline, s.log, session.Hooks{
		OnState: func(st session.State) {
			s.updateJob(job, func(j *Job) { j.State = st.String() })
		},
		OnScan: func(r *scanner.Result) {
			s.updateJob(job, func(j *Job) { j.Total = r.Count() })
			s.broadcastWSMessage("scan_completed", map[string]interface{}{
				"job_id": job.ID,
				"stats":  statistics.FromScan(r),
			})
		},
	})

	res, err := controller.Run(ctx)

	s.updateJob(job, func(j *Job) {
		now := time.Now()
		j.FinishedAt = &now
		j.running = false
		if res.State == session.StateCompleted {
			summary := res.Summary
			j.Summary = &summary
		}
		if err != nil {
			j.Error = err.Error()
		}
	})

	if err != nil {
		s.broadcastWSMessage("convert_error", map[string]interface{}{
			"job_id": job.ID,
			"state":  res.State.String(),
			"error":  err.Error(),
		})
		return
	}
	s.broadcastWSMessage("convert_completed", map[string]interface{}{
		"job_id":  job.ID,
		"state":   res.State.String(),
		"summary": res.Summary,
	})
}

func (s *Server) newScanner() *scanner.Scanner {
	return scanner.New(s.log, s.cfg.SupportedExtensions)
}

func (s *Server) updateJob(job *Job, fn func(*Job)) {
	s.operationMutex.Lock()
	fn(job)
	s.operationMutex.Unlock()
}

// snapshot returns a copy of the current job and whether it is running.
func (s *Server) snapshot() (*Job, bool) {
	s.operationMutex.RLock()
	defer s.operationMutex.RUnlock()
	if s.current == nil {
		return nil, false
	}
	job := *s.current
	return &job, job.running
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	// gorilla/websocket allows one writer per connection
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSONStatus(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
