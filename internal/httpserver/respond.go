package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/storage"
)

const maxBodyBytes = 1 << 20

func (s *Server) jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	s.jsonResponse(w, code, map[string]string{"error": message})
}

// storageError reports a failed record fetch as a bad gateway.
func (s *Server) storageError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("record source failed",
		zap.String("path", r.URL.Path),
		zap.String("class", storage.Classify(err)),
		zap.Error(err),
	)
	s.errorResponse(w, "failed to load campaign data: "+err.Error(), http.StatusBadGateway)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
