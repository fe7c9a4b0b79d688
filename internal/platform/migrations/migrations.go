// Package migrations applies the reference Postgres schema: tables and their
// constraints, row-level security policies and the sign-up trigger.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed sql/*.sql
var files embed.FS

const createVersionTable = `create table if not exists public.schema_migrations (
    version text primary key,
    applied_at timestamptz not null default now()
)`

// Migration is one embedded SQL file.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Load returns the embedded migrations ordered by version.
func Load() ([]Migration, error) {
	return load(files)
}

func load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	out := make([]Migration, 0, len(entries))
	for _, name := range entries {
		base := strings.TrimSuffix(path.Base(name), ".sql")
		version, label, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: name must be <version>_<label>.sql", name)
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out = append(out, Migration{Version: version, Name: label, SQL: string(body)})
	}
	return out, nil
}

// Applied lists the versions recorded in schema_migrations.
func Applied(ctx context.Context, db *sql.DB) ([]string, error) {
	var versions []string
	if err := sqlx.NewDb(db, "postgres").SelectContext(ctx, &versions,
		"select version from public.schema_migrations order by version"); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return versions, nil
}

// Run applies every embedded migration that has not been applied yet, each
// in its own transaction, and reports the versions it applied.
func Run(ctx context.Context, db *sql.DB) ([]string, error) {
	migrations, err := Load()
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return nil, describe("create schema_migrations", err)
	}

	applied, err := Applied(ctx, db)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var ran []string
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return ran, err
		}
		ran = append(ran, m.Version)
	}
	return ran, nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return describe("migration "+m.Version+"_"+m.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"insert into public.schema_migrations (version) values ($1)", m.Version); err != nil {
		return describe("record migration "+m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", m.Version, err)
	}
	return nil
}

// describe adds the Postgres error code and detail when the driver reports them.
func describe(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Detail != "" {
			return fmt.Errorf("%s: %s (%s, %s): %w", op, pqErr.Message, pqErr.Code, pqErr.Detail, err)
		}
		return fmt.Errorf("%s: %s (%s): %w", op, pqErr.Message, pqErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
