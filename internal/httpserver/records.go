package httpserver

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/models"
	"github.com/radiusdt/adintelli/internal/storage"
)

// handleInsertRecord stores one ad row and refreshes insights right away.
func (s *Server) handleInsertRecord(w http.ResponseWriter, r *http.Request) {
	writer, ok := s.source.(storage.RecordWriter)
	if !ok {
		s.errorResponse(w, storage.ErrReadOnly.Error(), http.StatusNotImplemented)
		return
	}

	var rec models.AdRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := writer.InsertRecord(r.Context(), &rec); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidRecord):
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, storage.ErrDuplicate):
			s.errorResponse(w, err.Error(), http.StatusConflict)
		case errors.Is(err, storage.ErrReadOnly):
			s.errorResponse(w, err.Error(), http.StatusNotImplemented)
		default:
			s.logger.Error("failed to insert record", zap.Error(err))
			s.errorResponse(w, "failed to insert record", http.StatusInternalServerError)
		}
		return
	}

	if s.refresher != nil {
		// A client hanging up must not publish a canceled refresh over the
		// shared snapshot.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.config.Refresh.Timeout)
		err := s.refresher.Refresh(ctx)
		cancel()
		if err != nil {
			s.logger.Debug("refresh after insert not published", zap.Error(err))
		}
	}

	s.logger.Info("record inserted",
		zap.String("ad_id", rec.AdID),
		zap.String("campaign", rec.CampaignName),
	)
	s.jsonResponse(w, http.StatusCreated, rec)
}
