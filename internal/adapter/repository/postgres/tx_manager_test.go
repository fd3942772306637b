package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}

	t.Cleanup(pool.Close)
	t.Cleanup(func() {
		if err := pool.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations were not met: %v", err)
		}
	})

	return pool
}

func TestTxManagerCommit(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectCommit()

	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
}

func TestTxManagerRollback(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectRollback()

	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
}

func TestTxManagerBeginError(t *testing.T) {
	pool := newMockPool(t)

	beginErr := errors.New("pool exhausted")
	pool.ExpectBegin().WillReturnError(beginErr)

	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if !errors.Is(err, beginErr) {
		t.Fatalf("expected begin error, got err=%v tx=%v", err, tx)
	}
}

func TestTxManagerCommitError(t *testing.T) {
	pool := newMockPool(t)

	commitErr := errors.New("connection reset")
	pool.ExpectBegin()
	pool.ExpectCommit().WillReturnError(commitErr)

	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	if err := tx.Commit(context.Background()); !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
}
