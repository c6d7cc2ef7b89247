package repository

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = eris.New("record not found")
	// ErrBlankInput is returned by resolve operations given blank required values.
	ErrBlankInput = eris.New("required value is blank")
	// ErrConflict wraps unique constraint violations.
	ErrConflict = eris.New("already been taken")
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a Querier that can open transactions.
type Pool interface {
	Querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

var (
	_ Pool    = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// TxRunner executes work inside a single database transaction.
type TxRunner struct {
	pool Pool
}

// NewTxRunner wires a runner on top of pool.
func NewTxRunner(pool Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// InTx runs fn in a transaction. It commits when fn returns nil and rolls back otherwise.
func (r *TxRunner) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return eris.Wrap(err, "repository: begin tx")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			zap.L().Warn("repository: rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "repository: commit tx")
	}
	return nil
}

// translateWriteError maps constraint violations to readable, typed errors.
func translateWriteError(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return eris.Wrapf(ErrConflict, "%s: %s has already been taken", what, conflictField(pgErr.ConstraintName))
		case "23514":
			return eris.Errorf("%s: violates check %s", what, pgErr.ConstraintName)
		case "23503":
			return eris.Errorf("%s: references a missing record", what)
		}
	}
	return eris.Wrap(err, what)
}

func conflictField(constraint string) string {
	switch {
	case strings.HasSuffix(constraint, "_slug"):
		return "slug"
	case strings.HasSuffix(constraint, "_code"):
		return "code"
	case constraint == "":
		return "value"
	default:
		return constraint
	}
}

// likeContains builds an ILIKE pattern matching s anywhere, escaping wildcards.
func likeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func stringOrNil(value *string) any {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func floatOrNil(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
