package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/radiusdt/adintelli/internal/models"
)

// RecordSource supplies raw ad records. Each call returns a fresh batch.
type RecordSource interface {
	ListRecords(ctx context.Context) ([]models.AdRecord, error)
}

// RecordWriter accepts new ad records. Not every source is writable.
type RecordWriter interface {
	InsertRecord(ctx context.Context, r *models.AdRecord) error
}

// Fetch failures. A source wraps one of these so callers can classify it
// with errors.Is / errors.As.
var (
	// ErrTransport means the source could not be reached.
	ErrTransport = errors.New("transport failure")
	// ErrMalformed means the source answered with an unexpected payload.
	ErrMalformed = errors.New("malformed response")
	// ErrReadOnly is returned by InsertRecord on sources that cannot be written.
	ErrReadOnly = errors.New("record source is read-only")

	ErrInvalidRecord = errors.New("invalid ad record")
	ErrDuplicate     = errors.New("ad record already exists")
)

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Code)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Code, e.Body)
}

// Classify names the failure class of a fetch error for logs and metrics.
func Classify(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
