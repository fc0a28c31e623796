// Package store is the GORM-backed persistence layer of the ledger. A Store is
// either bound to the connection pool or, inside WithTx/ReadSnapshot, to a
// single database transaction; the same methods work in both modes.
package store

import (
	"context"
	"database/sql"
	"errors"

	"fjacquet/church-ledger/internal/ledgererror"

	"gorm.io/gorm"
)

// Store provides typed access to the ledger tables.
type Store struct {
	db   *gorm.DB
	inTx bool
}

// New wraps an open connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle, scoped to the current transaction if any.
func (s *Store) DB() *gorm.DB { return s.db }

// InTx reports whether the store is bound to a transaction.
func (s *Store) InTx() bool { return s.inTx }

// Dialect returns the driver name ("sqlite" or "postgres").
func (s *Store) Dialect() string { return s.db.Dialector.Name() }

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// WithTx runs fn in a read-write transaction. Returning an error rolls back.
// Nested calls reuse the enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// ReadSnapshot runs fn in a read-only transaction so that every read inside it
// sees the same committed state. PostgreSQL gets REPEATABLE READ; SQLite
// transactions are already serialisable.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	var opts []*sql.TxOptions
	if s.Dialect() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	}, opts...)
}

// translate maps GORM errors onto the ledger error taxonomy.
func translate(op, entity string, id interface{}, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledgererror.NotFound(entity, id)
	}
	return ledgererror.Dependency(op, err)
}
