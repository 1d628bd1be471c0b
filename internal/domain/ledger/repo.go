package ledger

import (
	"context"
	"time"

	"mise/internal/core/id"
)

// Filter narrows movement listings. Zero-valued fields are ignored.
type Filter struct {
	LocationID id.ID
	VariantID  id.ID
	Reason     Reason
	From       time.Time
	To         time.Time
	Limit      uint64
	Offset     uint64
}

// Repository persists movements. Movements are insert-only; there is no
// update path.
type Repository interface {
	// Create inserts the header and its lines. Must run inside the
	// operation's transaction.
	Create(ctx context.Context, m *Movement) error

	// GetByID loads a movement with its lines. Returns apperror.NewNotFound
	// when missing.
	GetByID(ctx context.Context, movementID id.ID) (*Movement, error)

	// List returns movements matching the filter, newest first, lines
	// attached.
	List(ctx context.Context, f Filter) ([]Movement, error)
}

// NumberGenerator issues sequential document numbers like "MOV-2026-00042".
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Journal records posted movements to the audit trail. Implementations run
// inside the posting transaction; a journal failure aborts the post.
type Journal interface {
	Record(ctx context.Context, m *Movement) error
}

// Recorder observes ledger outcomes for metrics.
type Recorder interface {
	MovementPosted(reason Reason)
	StockOutRejected(code string)
}

// NopRecorder is a Recorder that discards everything.
type NopRecorder struct{}

func (NopRecorder) MovementPosted(Reason)   {}
func (NopRecorder) StockOutRejected(string) {}
