package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UOW is a unit of work over a single pgx transaction. One instance per
// request or per handled event, never shared between goroutines.
type UOW struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (u *UOW) Begin() (pgx.Tx, error) {
	tx, err := u.pool.BeginTx(context.Background(), pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't begin tx, %v", err)
	}
	u.tx = tx
	return u.tx, nil
}

func (u *UOW) GetTx() pgx.Tx {
	return u.tx
}

func (u *UOW) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("transaction is not started yet")
	}
	return u.tx.Commit(context.Background())
}

func (u *UOW) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("transaction is not started yet")
	}
	return u.tx.Rollback(context.Background())
}

// Finalize commits when *errp is nil and rolls back otherwise. Meant to be
// deferred right after Begin.
func (u *UOW) Finalize(errp *error) {
	if u.tx == nil {
		return
	}
	if errp != nil && *errp != nil {
		_ = u.Rollback()
		return
	}
	if err := u.Commit(); err != nil && errp != nil && *errp == nil {
		*errp = err
	}
}

type UOWFactory struct {
	Pool *pgxpool.Pool
}

func NewUoWFactory(pool *pgxpool.Pool) *UOWFactory {
	return &UOWFactory{Pool: pool}
}

func (u *UOWFactory) GetUoW() *UOW {
	return &UOW{pool: u.Pool}
}
