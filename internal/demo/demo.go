// Package demo serves the single-page photo upload front-end.
package demo

import (
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vnprr/SnapDish/internal/middleware"
	"github.com/vnprr/SnapDish/internal/vision"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Analyzer classifies a food photo and estimates its calories.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*vision.Prediction, error)
}

// page is the data rendered into the index template.
type page struct {
	Image      template.URL
	Prediction *vision.Prediction
	Error      string
}

// Server renders the upload page and runs uploads through the analyzer.
type Server struct {
	analyzer       Analyzer
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewServer creates a demo server.
func NewServer(analyzer Analyzer, maxUploadBytes int64, logger *slog.Logger) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Server{analyzer: analyzer, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Routes returns the demo router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logging(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.index)
	r.Post("/", s.upload)
	return r
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, page{})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	data, problem := s.readUpload(w, r)
	if problem != "" {
		s.render(w, http.StatusBadRequest, page{Error: problem})
		return
	}

	var p page
	prediction, err := s.analyzer.Analyze(r.Context(), data)
	if !errors.Is(err, vision.ErrInvalidImage) {
		p.Image = dataURI(data)
	}
	switch {
	case errors.Is(err, vision.ErrInvalidImage):
		p.Error = "That file does not look like an image we can read."
	case err != nil:
		s.logger.Error("prediction failed", "error", err)
		p.Error = "An error occurred during prediction: " + err.Error()
	default:
		p.Prediction = prediction
	}

	s.render(w, http.StatusOK, p)
}

// readUpload returns the uploaded file, or a message for the page when
// there is nothing usable.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string) {
	const choose = "Please choose an image to upload."

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "The uploaded file is too large."
		}
		return nil, choose
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, choose
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil, choose
	}
	return data, ""
}

func (s *Server) render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, p); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

// dataURI embeds an uploaded image so the page can show it without storing it.
func dataURI(data []byte) template.URL {
	mediaType := http.DetectContentType(data)
	return template.URL("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}
