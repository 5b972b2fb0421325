package client

import (
	"context"
	"database/sql"

	"github.com/katlaang/pestscan-sub001/internal/client/migrations"
	"github.com/katlaang/pestscan-sub001/internal/client/repositories/cache"
	"github.com/katlaang/pestscan-sub001/internal/client/repositories/metadata"
	"github.com/katlaang/pestscan-sub001/internal/client/repositories/outbox"
	"github.com/katlaang/pestscan-sub001/internal/timex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	DB       *sql.DB
	Metadata metadata.Repository
	Cache    cache.Repository
	Outbox   outbox.Repository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	// Set the database dialect
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite store at dsn, migrates it and returns the
// repositories bound to it.
func InitDatabase(ctx context.Context, dsn string, clock timex.Clock) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; an in-memory database also lives in a single connection.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	repos := &Repositories{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
		Cache:    cache.NewSQLiteRepository(db),
		Outbox:   outbox.NewSQLiteRepository(db, clock),
	}
	return repos, nil
}
