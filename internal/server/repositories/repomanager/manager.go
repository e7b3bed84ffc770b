package repomanager

import (
	"context"
	"database/sql"

	"github.com/kodasoftware/example-api/internal/dbx"
	"github.com/kodasoftware/example-api/internal/server/repositories/accounts"
	"github.com/kodasoftware/example-api/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// them on the pool or inside a transaction alike.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Accounts(db dbx.DBTX) accounts.Repository
}
