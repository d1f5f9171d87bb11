package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/brojonat/solgate/service/gateway"
)

const intentColumns = `id::text, from_address, to_address, amount::text, memo, status, created_at`

// RecordTransferIntent inserts a new transfer intent.
// Returns ErrDuplicateKey if the id already exists.
func (s *Store) RecordTransferIntent(ctx context.Context, intent *gateway.TransferIntent) (err error) {
	defer func(start time.Time) { s.observe("insert", "transfer_intents", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `
		INSERT INTO transfer_intents (id, from_address, to_address, amount, memo, status, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		intent.ID,
		intent.From,
		intent.To,
		strconv.FormatUint(intent.Amount, 10),
		intent.Memo,
		string(intent.Status),
		intent.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer intent: %w", err)
	}
	return nil
}

// GetTransferIntent returns the intent with the given id.
func (s *Store) GetTransferIntent(ctx context.Context, id string) (intent *gateway.TransferIntent, err error) {
	defer func(start time.Time) { s.observe("select", "transfer_intents", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+intentColumns+` FROM transfer_intents WHERE id::text = $1`, id)
	intent, err = scanIntent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get transfer intent: %w", err)
	}
	return intent, nil
}

// ListTransferIntents returns intents from the given source address, newest first.
func (s *Store) ListTransferIntents(ctx context.Context, from string, limit, offset int) (intents []*gateway.TransferIntent, err error) {
	defer func(start time.Time) { s.observe("select", "transfer_intents", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+intentColumns+`
		FROM transfer_intents
		WHERE from_address = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		from, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transfer intents: %w", err)
	}
	defer rows.Close()

	intents = make([]*gateway.TransferIntent, 0)
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer intent: %w", err)
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer intents: %w", err)
	}
	return intents, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*gateway.TransferIntent, error) {
	var (
		intent gateway.TransferIntent
		amount string
		status string
	)
	if err := row.Scan(&intent.ID, &intent.From, &intent.To, &amount, &intent.Memo, &status, &intent.CreatedAt); err != nil {
		return nil, err
	}
	v, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	intent.Amount = v
	intent.Status = gateway.IntentStatus(status)
	intent.CreatedAt = intent.CreatedAt.UTC()
	return &intent, nil
}
