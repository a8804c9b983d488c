package service

import (
	"context"
	"database/sql"

	"vyre/backend/internal/db"
	sessionrepo "vyre/backend/internal/session/repository"
	userrepo "vyre/backend/internal/user/repository"
)

// PostgresTx implements TxRunner with database/sql transactions.
type PostgresTx struct {
	conn *sql.DB
}

// NewPostgresTx returns a TxRunner over conn.
func NewPostgresTx(conn *sql.DB) *PostgresTx {
	return &PostgresTx{conn: conn}
}

// InTx binds the user and session repositories to one transaction and runs fn.
func (p *PostgresTx) InTx(ctx context.Context, fn func(Stores) error) error {
	return db.WithTx(ctx, p.conn, func(tx *sql.Tx) error {
		return fn(Stores{
			Users:    userrepo.NewPostgresRepository(tx),
			Sessions: sessionrepo.NewPostgresRepository(tx),
		})
	})
}
