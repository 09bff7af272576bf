package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/staffmidi/config"
	"github.com/jsphweid/staffmidi/constants"
	"github.com/jsphweid/staffmidi/db"
	"github.com/jsphweid/staffmidi/file"
	"github.com/jsphweid/staffmidi/logger"
	"github.com/jsphweid/staffmidi/midi"
	"github.com/jsphweid/staffmidi/model"
	"github.com/jsphweid/staffmidi/pitch"
	"github.com/jsphweid/staffmidi/score"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

// songs are tiny, anything bigger is a mistake
const maxBodyBytes = 1 << 20

const registryTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the export endpoint",
	Long:  `Serves POST /export, turning song JSON into a downloadable MIDI file`,
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(serve(config.Load()))
	},
}

type Server struct {
	cfg   *config.Config
	store db.MetadataStore
}

// NewServer builds the export server. store may be nil.
func NewServer(cfg *config.Config, store db.MetadataStore) *Server {
	return &Server{cfg: cfg, store: store}
}

func (s *Server) Router() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(requestTracking)
	router.HandleFunc("/export", s.HandleExport).Methods("POST")
	router.HandleFunc("/health", s.HandleHealth).Methods("GET")

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID", "X-Export-ID"},
	})
	return c.Handler(router)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func requestTracking(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.New().String()
			r.Header.Set("X-Request-ID", requestId)
		}
		w.Header().Set("X-Request-ID", requestId)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		fields := logger.WithRequest(r)
		fields["duration_ms"] = time.Since(start).Milliseconds()
		fields["status_code"] = sw.status
		switch {
		case sw.status >= http.StatusInternalServerError:
			logger.Error("Request failed with server error", nil, fields)
		case sw.status >= http.StatusBadRequest:
			logger.Warn("Request failed with client error", fields)
		default:
			logger.Info("Request completed", fields)
		}
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: err.Error()})
}

// isClientError reports whether err came from bad input rather than from us.
func isClientError(err error) bool {
	var parseErr *pitch.ParseError
	switch {
	case errors.As(err, &parseErr),
		errors.Is(err, score.ErrInvalidInput),
		errors.Is(err, midi.ErrInvalidTempo),
		errors.Is(err, midi.ErrPitchOutOfRange),
		errors.Is(err, midi.ErrInvalidDuration),
		errors.Is(err, midi.ErrInvalidStart),
		errors.Is(err, midi.ErrTickOverflow):
		return true
	}
	return false
}

func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	input, err := decodeSongInput(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var previewBars int
	if v := r.URL.Query().Get("preview_bars"); v != "" {
		previewBars, err = strconv.Atoi(v)
		if err != nil || previewBars < 0 {
			writeError(w, http.StatusBadRequest, errors.New("preview_bars must be a non-negative integer"))
			return
		}
	}

	buf, sc, err := encodeSong(input, s.cfg.DefaultTempo, previewBars)
	if err != nil {
		if isClientError(err) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		logger.Error("export failed", err, logger.WithRequest(r))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.cfg.SaveExports {
		exportId, err := s.persist(r.Context(), buf, sc)
		if err != nil {
			logger.Error("could not persist export", err, logger.WithRequest(r))
			writeError(w, http.StatusInternalServerError, errors.New("could not persist export"))
			return
		}
		w.Header().Set("X-Export-ID", exportId)
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.DefaultFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
}

func (s *Server) persist(ctx context.Context, buf []byte, sc model.Score) (string, error) {
	exportId := file.NewExportId()
	if _, err := file.Save(s.cfg.OutDir, file.ExportName(exportId), buf); err != nil {
		return "", err
	}
	if s.store == nil {
		return exportId, nil
	}

	ctx, cancel := context.WithTimeout(ctx, registryTimeout)
	defer cancel()
	err := s.store.PutExportMetadata(ctx, model.ExportMetadata{
		ExportId:    exportId,
		Title:       sc.Title,
		Tempo:       sc.Tempo,
		MelodyNotes: len(sc.Melody),
		ChordNotes:  len(model.ExpandChords(sc.Chords)),
		Bytes:       len(buf),
		CreatedAt:   time.Now().UTC(),
	})
	return exportId, err
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	storage := "disabled"
	if s.store != nil {
		storage = "dynamodb"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.HealthResponse{Status: "healthy", Storage: storage})
}

func openStore(cfg *config.Config) (db.MetadataStore, error) {
	if !cfg.RegistryEnabled() {
		return nil, nil
	}
	return db.NewStore(cfg.DynamoEndpoint, cfg.DynamoRegion, cfg.DynamoTable)
}

func serve(cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	srv := NewServer(cfg, store)

	logger.Info("Starting server", logger.Fields{"port": cfg.Port, "save_exports": cfg.SaveExports})
	return http.ListenAndServe(":"+cfg.Port, srv.Router())
}
