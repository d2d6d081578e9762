package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/stylecam/internal/config"
	"github.com/bryanchriswhite/stylecam/internal/logger"
	"github.com/bryanchriswhite/stylecam/internal/pipeline"
	"github.com/bryanchriswhite/stylecam/internal/sink"
	"github.com/bryanchriswhite/stylecam/internal/style"
)

// Server represents the HTTP API server
type Server struct {
	router     *mux.Router
	supervisor *pipeline.Supervisor
	configMgr  *config.Manager
	mjpeg      *sink.MJPEG
	upgrader   websocket.Upgrader
}

// NewServer creates a new API server. mjpegSink may be nil when the
// pipeline publishes to a v4l2 device instead of the HTTP stream.
func NewServer(supervisor *pipeline.Supervisor, configMgr *config.Manager, mjpegSink *sink.MJPEG) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		supervisor: supervisor,
		configMgr:  configMgr,
		mjpeg:      mjpegSink,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// API routes
	api := s.router.PathPrefix("/api").Subrouter()

	// Pipeline lifecycle
	api.HandleFunc("/pipeline/status", s.handlePipelineStatus).Methods("GET")
	api.HandleFunc("/pipeline/start", s.handlePipelineStart).Methods("POST")
	api.HandleFunc("/pipeline/stop", s.handlePipelineStop).Methods("POST")
	api.HandleFunc("/pipeline/stats", s.handlePipelineStats).Methods("GET")
	api.HandleFunc("/pipeline/snapshot", s.handlePipelineSnapshot).Methods("GET")
	api.HandleFunc("/pipeline/events", s.handleEventStream)

	// Styles
	api.HandleFunc("/styles", s.handleGetStyles).Methods("GET")
	api.HandleFunc("/style", s.handleGetStyle).Methods("GET")
	api.HandleFunc("/style", s.handleSetStyle).Methods("PUT")
	api.HandleFunc("/style/params", s.handleSetParams).Methods("PUT")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// MJPEG preview stream
	if s.mjpeg != nil {
		s.router.HandleFunc("/stream", s.mjpeg.Handler())
	}

	// Index page
	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().
		Str("addr", fmt.Sprintf("http://localhost%s", addr)).
		Msg("Starting server")
	return http.ListenAndServe(addr, s.enableCORS(s.router))
}

// Handler returns the root handler, CORS included. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"state": s.supervisor.State().String(),
		"style": s.supervisor.Style(),
	}
	if desc := s.supervisor.Descriptor(); desc != nil {
		status["source"] = desc
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handlePipelineStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Device string        `json:"device"`
		Style  *style.Config `json:"style"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	cfg := s.configMgr.Get()
	device := cfg.Input.Device
	if req.Device != "" {
		device = req.Device
	}
	initial := cfg.Style
	if req.Style != nil {
		initial = *req.Style
	}

	if err := s.supervisor.Start(device, initial); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handlePipelineStop(w http.ResponseWriter, r *http.Request) {
	s.supervisor.Stop()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handlePipelineStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.supervisor.Stats())
}

func (s *Server) handlePipelineSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.mjpeg != nil {
		if data := s.mjpeg.LastJPEG(); data != nil {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(data)
			return
		}
	}
	http.Error(w, "no frame published yet", http.StatusNotFound)
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.supervisor.Subscribe()
	defer cancel()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			logger.WithComponent("api").Debug().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

type styleInfo struct {
	Name   string            `json:"name"`
	Params []style.ParamSpec `json:"params"`
}

func (s *Server) handleGetStyles(w http.ResponseWriter, r *http.Request) {
	registry := s.supervisor.Registry()

	styles := make([]styleInfo, 0)
	for _, name := range registry.Names() {
		st, ok := registry.Get(name)
		if !ok {
			continue
		}
		styles = append(styles, styleInfo{Name: name, Params: st.ParamSpecs()})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(styles)
}

func (s *Server) handleGetStyle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.supervisor.Style())
}

func (s *Server) handleSetStyle(w http.ResponseWriter, r *http.Request) {
	var cfg style.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.supervisor.UpdateStyle(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	var params style.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.supervisor.UpdateParameters(params)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configMgr.Get()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.configMgr.Update(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>StyleCam</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            max-width: 800px;
            margin: 50px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 {
            color: #333;
            margin-top: 0;
        }
        .status {
            padding: 10px;
            background: #e8f5e9;
            border-left: 4px solid #4caf50;
            margin: 20px 0;
        }
        .info {
            color: #666;
            line-height: 1.6;
        }
        a {
            color: #1976d2;
            text-decoration: none;
        }
        a:hover {
            text-decoration: underline;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>🎨 StyleCam</h1>
        <div class="status">
            ✅ Server is running
        </div>
        <div class="info">
            <p>StyleCam applies real-time artistic styles to your webcam feed.</p>
            <h3>API Endpoints:</h3>
            <ul>
                <li><a href="/api/health">/api/health</a> - Server health check</li>
                <li><a href="/api/pipeline/status">/api/pipeline/status</a> - Pipeline state</li>
                <li><a href="/api/pipeline/stats">/api/pipeline/stats</a> - Pipeline counters</li>
                <li><a href="/api/styles">/api/styles</a> - Available styles</li>
                <li><a href="/api/config">/api/config</a> - View configuration</li>
                <li><a href="/stream">/stream</a> - Live MJPEG preview</li>
            </ul>
        </div>
    </div>
</body>
</html>`

	// Only serve HTML for root path
	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
		return
	}

	// For other paths, return 404
	if !strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
	}
}
