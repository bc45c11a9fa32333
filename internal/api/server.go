package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hematrace/labxtract/internal/config"
	"github.com/hematrace/labxtract/internal/pipeline"
	"github.com/hematrace/labxtract/internal/session"
	"github.com/hematrace/labxtract/internal/template"
)

// Server is the HTTP API for the extraction service.
type Server struct {
	router    chi.Router
	processor *pipeline.Processor
	tmpl      *template.Template
	sessions  *session.Store
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(proc *pipeline.Processor, tmpl *template.Template, sessions *session.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		processor: proc,
		tmpl:      tmpl,
		sessions:  sessions,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/template", s.handleTemplate)
	r.Post("/ocr", s.handleOCR)
	r.Post("/ocr/append", s.handleAppend)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tmpl)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
