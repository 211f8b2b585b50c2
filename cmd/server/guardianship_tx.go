package main

import (
	"context"
	"database/sql"
	"time"

	animalstore "pawhaven/internal/animal/store"
	guardianshipservice "pawhaven/internal/guardianship/service"
	guardianshipstore "pawhaven/internal/guardianship/store"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/pgerr"
)

const maxTxAttempts = 3

// guardianshipPostgresTx runs each unit of work in one database transaction
// with the guardianship and animal stores bound to it. Serialization and
// lock-timeout failures are retried.
type guardianshipPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newGuardianshipPostgresTx(db *sql.DB) *guardianshipPostgresTx {
	return &guardianshipPostgresTx{db: db}
}

func (t *guardianshipPostgresTx) RunInTx(ctx context.Context, fn func(stores guardianshipservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = guardianshipservice.DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = t.runOnce(ctx, fn)
		if err == nil || !pgerr.IsRetryable(err) {
			break
		}
	}
	if err != nil && ctx.Err() != nil && dErrors.CodeOf(err) == dErrors.CodeInternal {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
	}
	return err
}

func (t *guardianshipPostgresTx) runOnce(ctx context.Context, fn func(stores guardianshipservice.TxStores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stores := guardianshipservice.TxStores{
		Guardianships: guardianshipstore.NewPostgres(tx),
		Animals:       animalstore.NewPostgres(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}
	return tx.Commit()
}
