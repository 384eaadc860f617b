// Package storage opens the local client database and brings its schema up
// to date.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/catermarket/caterauth/internal/client/migrations"
	"github.com/catermarket/caterauth/internal/client/repositories/metadata"
	"github.com/catermarket/caterauth/internal/filex"
)

// RunMigrations applies the embedded migrations. It is safe to call on an
// up-to-date database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// OpenDatabase opens the SQLite database at dsn and migrates it. Several
// processes may open the same file; a busy timeout is set so their writes
// wait for each other instead of failing. One connection per process keeps
// the pragma in effect and serialises local writers.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if _, err := filex.EnsureDatabaseDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenPage opens the page-scoped backend. When secret is non-empty values
// are sealed at rest.
func OpenPage(ctx context.Context, db *sql.DB, secret string) (metadata.Repository, error) {
	repo := metadata.NewSQLiteRepository(db)
	if secret == "" {
		return repo, nil
	}
	return metadata.NewSealedRepository(ctx, repo, []byte(secret))
}
