package repomanager

import (
	"context"
	"database/sql"

	"github.com/katlaang/pestscan-sub001/internal/dbx"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/audit"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/observations"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/photos"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/sessions"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/targets"
)

// RepositoryManager vends repositories bound to a DBTX, so services can bind
// every repository of one unit of work to the same transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Sessions(db dbx.DBTX) sessions.Repository
	Targets(db dbx.DBTX) targets.Repository
	Observations(db dbx.DBTX) observations.Repository
	Audit(db dbx.DBTX) audit.Repository
	Photos(db dbx.DBTX) photos.Repository
}
