// Package server exposes the stamper as a small web form.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/geostamp"
	"github.com/menta2k/geostamp/pkg/storage"
	"github.com/menta2k/geostamp/pkg/types"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Form field names
const (
	FieldAddress = "address"
	FieldCity    = "city"
	FieldState   = "state"
	FieldCountry = "country"
	FieldImage   = "image"
)

// Processor stamps one uploaded photo
type Processor interface {
	Process(ctx context.Context, r io.Reader, loc types.Location) (*types.Result, error)
}

// Config holds the server settings
type Config struct {
	Addr           string
	MaxUploadBytes int64
	ArchiveSuffix  string
}

// Server serves the upload form and the stamping endpoint
type Server struct {
	processor Processor
	sink      storage.Sink
	config    Config
	log       logrus.FieldLogger
	router    *mux.Router
}

// New creates a server. sink may be nil to disable archiving.
func New(processor Processor, sink storage.Sink, config Config) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 32 << 20
	}
	s := &Server{
		processor: processor,
		sink:      sink,
		config:    config,
		log:       logrus.StandardLogger(),
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

// SetLogger replaces the request logger
func (s *Server) SetLogger(log logrus.FieldLogger) {
	if log != nil {
		s.log = log
	}
}

func (s *Server) routes() {
	s.router.Use(handlers.RecoveryHandler())
	s.router.Handle("/", s.form()).Methods(http.MethodGet)
	s.router.Handle("/", s.stamp()).Methods(http.MethodPost)
	s.router.Handle("/health_check", health()).Methods(http.MethodGet)
}

// Handler returns the routed handler with access logging
func (s *Server) Handler() http.Handler {
	return handlers.CombinedLoggingHandler(logrus.StandardLogger().Writer(), s.router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Serving web form")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

// health Health Check controller
func health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var healthCheck = "{\"status\": \"UP\"}"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(healthCheck))
	})
}

func (s *Server) form() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := struct {
			Title   string
			Version string
		}{"Geo Stamp", geostamp.Version}
		if err := indexTemplate.Execute(w, data); err != nil {
			s.log.WithError(err).Error("Failed to render form")
		}
	})
}

func (s *Server) stamp() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
		if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
			http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
			return
		}

		loc, err := locationFromForm(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile(FieldImage)
		if err != nil {
			http.Error(w, "missing image upload", http.StatusBadRequest)
			return
		}
		defer file.Close()

		log := s.log.WithFields(logrus.Fields{
			"upload": header.Filename,
			"size":   header.Size,
		})

		result, err := s.processor.Process(r.Context(), file, loc)
		if err != nil {
			log.WithError(err).Warn("Stamping failed")
			http.Error(w, geostamp.ErrProcessingFailed.Error(), http.StatusUnprocessableEntity)
			return
		}

		s.archive(r.Context(), log, result)

		w.Header().Set("Content-Type", result.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "output_image."+result.Extension()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
	})
}

// archive stores a copy of result; failures are logged, not returned
func (s *Server) archive(ctx context.Context, log logrus.FieldLogger, result *types.Result) {
	if s.sink == nil {
		return
	}
	name := storage.ObjectName(time.Now(), s.config.ArchiveSuffix, result.Extension())
	where, err := s.sink.Store(ctx, name, result.Data, result.ContentType)
	if err != nil {
		log.WithError(err).Warn("Failed to archive stamped image")
		return
	}
	log.WithField("location", where).Info("Archived stamped image")
}

func locationFromForm(r *http.Request) (types.Location, error) {
	var loc types.Location
	fields := []struct {
		name string
		dst  *string
	}{
		{FieldAddress, &loc.Address},
		{FieldCity, &loc.City},
		{FieldState, &loc.State},
		{FieldCountry, &loc.Country},
	}
	for _, f := range fields {
		vals, ok := r.MultipartForm.Value[f.name]
		if !ok || len(vals) == 0 {
			return types.Location{}, fmt.Errorf("missing form field %q", f.name)
		}
		*f.dst = vals[0]
	}
	return loc, nil
}
