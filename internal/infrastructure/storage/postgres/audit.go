package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "mise/internal/core/context"
	"mise/internal/core/id"
	"mise/internal/domain/ledger"
)

// CompressionAlgo specifies the compression algorithm used for a journal row.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// JournalEntry is one row of the movement audit journal: the full movement
// payload as it was posted, kept even if reporting later reshapes the
// ledger tables.
type JournalEntry struct {
	ID                id.ID           `db:"id"`
	MovementID        id.ID           `db:"movement_id"`
	Number            string          `db:"number"`
	Reason            string          `db:"reason"`
	UserID            string          `db:"user_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// MovementJournal records every posted movement inside the posting
// transaction. Payloads above the threshold are stored zstd-compressed.
type MovementJournal struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// Compile-time check that MovementJournal satisfies the ledger contract.
var _ ledger.Journal = (*MovementJournal)(nil)

// NewMovementJournal creates the journal.
func NewMovementJournal(txManager *TxManager) (*MovementJournal, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &MovementJournal{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements ledger.Journal.
func (j *MovementJournal) Record(ctx context.Context, m *ledger.Movement) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal movement: %w", err)
	}

	entry := JournalEntry{
		ID:              id.New(),
		MovementID:      m.ID,
		Number:          m.Number,
		Reason:          string(m.Reason),
		Payload:         payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if user := appctx.GetUser(ctx); user != nil {
		entry.UserID = user.UserID
	}

	if len(entry.Payload) > j.compressThreshold {
		entry.PayloadCompressed = j.encoder.EncodeAll(entry.Payload, nil)
		entry.Payload = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO ledger_journal (
			id, movement_id, number, reason, user_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := j.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.MovementID, entry.Number, entry.Reason, entry.UserID,
		entry.Payload, entry.PayloadCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	return err
}

// History retrieves the journal rows for one movement, newest first,
// decompressing payloads as needed.
func (j *MovementJournal) History(ctx context.Context, movementID id.ID, limit int) ([]JournalEntry, error) {
	sql := `
		SELECT id, movement_id, number, reason, user_id,
			   payload, payload_compressed, compression_algo, created_at
		FROM ledger_journal
		WHERE movement_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := j.txManager.GetQuerier(ctx).Query(ctx, sql, movementID, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		err := rows.Scan(
			&e.ID, &e.MovementID, &e.Number, &e.Reason, &e.UserID,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.PayloadCompressed) > 0 {
			decompressed, err := j.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress payload: %w", err)
			}
			e.Payload = decompressed
			e.PayloadCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
