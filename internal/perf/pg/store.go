// Package pg — персистентное зеркало перфоманс-леджера.
// Таблица append-only: insert при выпуске сигнала, update только полей итога.
package pg

import (
	"context"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const createTable = `
CREATE TABLE IF NOT EXISTS signal_ledger (
	id           BIGSERIAL PRIMARY KEY,
	local_id     BIGINT NOT NULL,
	inst_id      TEXT NOT NULL,
	side         TEXT NOT NULL,
	entry        DOUBLE PRECISION NOT NULL,
	stop         DOUBLE PRECISION NOT NULL,
	take         DOUBLE PRECISION NOT NULL,
	rr           DOUBLE PRECISION NOT NULL,
	strategies   JSONB NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	outcome      TEXT NOT NULL DEFAULT 'pending',
	r_multiple   DOUBLE PRECISION NOT NULL DEFAULT 0,
	resolved_at  TIMESTAMPTZ
)`

const insertRecord = `
INSERT INTO signal_ledger
	(local_id, inst_id, side, entry, stop, take, rr, strategies, score, generated_at, outcome)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const updateOutcome = `
UPDATE signal_ledger
SET outcome = $2, r_multiple = $3, resolved_at = $4
WHERE local_id = $1 AND outcome = 'pending'`

type Store struct {
	tm  *db.PgTxManager
	ctx context.Context
}

func New(ctx context.Context, tm *db.PgTxManager) (*Store, error) {
	s := &Store{tm: tm, ctx: ctx}
	err := tm.Run(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, createTable)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create signal_ledger table")
	}
	return s, nil
}

func (s *Store) InsertRecord(rec models.PerformanceRecord) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "Store.InsertRecord")
		}
	}()

	var strategies []byte
	strategies, err = sonic.Marshal(rec.Signal.Strategies)
	if err != nil {
		return err
	}
	return s.tm.Run(s.ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertRecord,
			rec.ID,
			rec.Signal.InstID,
			string(rec.Signal.Side),
			rec.Signal.Entry,
			rec.Signal.Stop,
			rec.Signal.Take,
			rec.Signal.RR,
			strategies,
			rec.Signal.Score,
			rec.Signal.GeneratedAt,
			string(rec.Outcome),
		)
		return err
	})
}

func (s *Store) UpdateOutcome(rec models.PerformanceRecord) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "Store.UpdateOutcome")
		}
	}()

	resolvedAt := rec.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now()
	}
	return s.tm.Run(s.ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, updateOutcome,
			rec.ID,
			string(rec.Outcome),
			rec.RMultiple,
			resolvedAt,
		)
		return err
	})
}
