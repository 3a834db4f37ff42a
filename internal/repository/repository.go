package repository

import (
	"database/sql"
	"fmt"

	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type Repository struct {
	DB            *sql.DB
	GoquDBWrapper *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB:            db,
		GoquDBWrapper: goqu.New("postgres", db),
	}
}

// WithTransaction runs fn inside one transaction: commit on success, full
// rollback on error or panic. Every multi-row mutation of the allocation
// workflow goes through here so the store is never left partially mutated.
func WithTransaction(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) (err error) {
	rawTx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	tx := goqu.NewTx("postgres", rawTx)
	defer func() {
		if p := recover(); p != nil {
			rawTx.Rollback()
			panic(p)
		} else if err != nil {
			rawTx.Rollback()
		} else {
			err = rawTx.Commit()
		}
	}()

	err = fn(tx)
	return
}

// WithTransactionRetry behaves like WithTransaction but retries once when the
// first attempt died on a row-lock deadlock or serialization failure.
func WithTransactionRetry(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) error {
	err := WithTransaction(db, fn)
	if err != nil && custom_error.IsDeadlock(err) {
		return WithTransaction(db, fn)
	}
	return err
}
