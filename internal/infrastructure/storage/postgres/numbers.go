package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"mise/internal/domain/ledger"
	"mise/pkg/numerator"
)

// NumberSource adapts the numerator to the ledger's NumberGenerator. The
// sequence row is bumped through the active transaction, so an aborted post
// rolls its number back too.
type NumberSource struct {
	txm *TxManager
}

// NewNumberSource creates a new document number source.
func NewNumberSource(txm *TxManager) *NumberSource {
	return &NumberSource{txm: txm}
}

var _ ledger.NumberGenerator = (*NumberSource)(nil)

type txQuerier struct {
	txm *TxManager
}

func (q txQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}

// Next issues the next yearly-reset number for the prefix.
func (s *NumberSource) Next(ctx context.Context, prefix string) (string, error) {
	svc := numerator.New(txQuerier{txm: s.txm})
	return svc.GetNextNumber(ctx, numerator.DefaultConfig(prefix), time.Now())
}
