package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/cache"
	"github.com/raaihank/regex-splitter/internal/dataset"
	"github.com/raaihank/regex-splitter/internal/report"
	"github.com/raaihank/regex-splitter/internal/source"
	"github.com/raaihank/regex-splitter/internal/splitter"
	"github.com/raaihank/regex-splitter/internal/websocket"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
	Line  int    `json:"line,omitempty"`
}

// AverageResponse carries the averages with the rounded display values
type AverageResponse struct {
	*report.Averages
	MeanPositiveFixed string `json:"mean_positive_fixed"`
	MeanNegativeFixed string `json:"mean_negative_fixed"`
}

// InfoResponse describes the running server
type InfoResponse struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Dialect      string             `json:"dialect"`
	MatchTimeout string             `json:"match_timeout"`
	CacheEnabled bool               `json:"cache_enabled"`
	Cache        *cache.CacheStats  `json:"cache,omitempty"`
	WebSocket    websocket.HubStats `json:"websocket"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	cfg := s.currentConfig()
	sc := s.splitter.Config()
	info := InfoResponse{
		Name:         "regex-splitter",
		Version:      Version,
		Dialect:      string(sc.Dialect),
		MatchTimeout: sc.MatchTimeout.String(),
		CacheEnabled: cfg.Cache.Enabled,
		WebSocket:    s.wsHub.GetStats(),
	}
	if s.cache != nil {
		stats, err := s.cache.Stats(r.Context())
		if err != nil {
			s.logger.Warn("Failed to read cache stats", zap.Error(err))
		}
		info.Cache = stats
	}
	writeJSON(w, http.StatusOK, info)
}

// handleClassify classifies a single entry
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	entry, err := dataset.ParseLine(1, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.splitter.Classify(r.Context(), 1, entry)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSplit streams the classified array for a JSONL body
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	runID := uuid.NewString()
	log := s.logger.WithRequestID(requestID).WithRunID(runID)

	sp := s.splitter.With(
		splitter.WithLogger(log.Logger),
		splitter.WithObserver(websocket.NewRunObserver(s.wsHub, runID)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Run-ID", runID)

	rw, _ := w.(*responseWriter)
	summary, err := sp.Split(r.Context(), source.NewJSONL(r.Body), w)
	if err != nil {
		log.Error("Split request failed", zap.Error(err))
		// The array is buffered until it grows or completes, so a failure on
		// a small body can still be reported properly.
		if rw == nil || !rw.wroteHeader {
			writeBodyError(w, err)
		}
		return
	}

	log.Info("Split request completed",
		zap.Int("entries", summary.Entries),
		zap.Int("parse_errors", summary.ParseErrors),
		zap.Int("regex_errors", summary.RegexErrors))
}

// handleAverage averages a classified array body
func (s *Server) handleAverage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	entries, err := report.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	avg, err := report.Summarize(entries)
	if errors.Is(err, dataset.ErrNoEntries) {
		writeError(w, http.StatusUnprocessableEntity, "no entries to average")
		return
	}

	writeJSON(w, http.StatusOK, AverageResponse{
		Averages:          avg,
		MeanPositiveFixed: report.Fixed(avg.MeanPositive, 2),
		MeanNegativeFixed: report.Fixed(avg.MeanNegative, 2),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeBodyError maps request body failures to a status
func writeBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
