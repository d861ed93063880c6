// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/arie/internal/pipeline"
	"github.com/spigell/arie/internal/resume"
)

const (
	DefaultAddr          = ":8000"
	DefaultMaxUploadSize = 20 << 20

	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 15 * time.Second
	pdfContentType  = "application/pdf"
)

// Extractor produces a profile from raw PDF bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*resume.Profile, error)
}

type Server struct {
	extractor Extractor
	logger    *zap.Logger
	maxUpload int64
	http      *http.Server
}

func New(addr string, extractor Extractor, maxUpload int64, logger *zap.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		extractor: extractor,
		logger:    logger,
		maxUpload: maxUpload,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/health", s.handleHealth)
	r.Post("/extract", s.handleExtract)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	log := s.logger.With(zap.String("request_id", requestIDFrom(r.Context())))

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %d byte upload limit.", s.maxUpload))
			return
		}
		writeDetail(w, http.StatusBadRequest, "Field 'file' is required.")
		return
	}
	defer file.Close()

	if !isPDF(header.Header.Get("Content-Type")) {
		writeDetail(w, http.StatusBadRequest, "Only PDF files are accepted.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Could not read upload: %v", err))
		return
	}

	log.Info("extracting upload", zap.String("filename", header.Filename), zap.Int("size", len(data)))

	profile, err := s.extractor.Extract(r.Context(), data)
	if err != nil {
		status := http.StatusInternalServerError
		if pipeline.IsInput(err) {
			status = http.StatusBadRequest
		}
		log.Error("extraction failed", zap.Error(err), zap.Stringer("kind", pipeline.KindOf(err)))
		writeDetail(w, status, fmt.Sprintf("Extraction failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func isPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == pdfContentType
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
