package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestLoadOrdersEmbeddedMigrations(t *testing.T) {
	migrations, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	want := []string{"001", "002", "003"}
	for i, m := range migrations {
		if m.Version != want[i] {
			t.Fatalf("migration %d version = %s, want %s", i, m.Version, want[i])
		}
		if strings.TrimSpace(m.SQL) == "" {
			t.Fatalf("migration %s is empty", m.Version)
		}
	}
	if !strings.Contains(migrations[1].SQL, "enable row level security") {
		t.Fatal("row level security migration does not enable RLS")
	}
}

func TestLoadRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{"sql/initial.sql": {Data: []byte("select 1")}}
	if _, err := load(fsys); err == nil {
		t.Fatal("expected error for migration without version prefix")
	}
}

func TestRunExecutesPendingMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists public.schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select version from public.schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001"))

	for _, v := range []string{"002", "003"} {
		mock.ExpectBegin()
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("insert into public.schema_migrations").
			WithArgs(v).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	ran, err := Run(context.Background(), db)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if len(ran) != 2 || ran[0] != "002" || ran[1] != "003" {
		t.Fatalf("applied versions = %v", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunStopsAndRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select version").WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(".*").WillReturnError(&pq.Error{Code: "42P07", Message: `relation "profiles" already exists`})
	mock.ExpectRollback()

	ran, err := Run(context.Background(), db)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ran) != 0 {
		t.Fatalf("applied versions = %v, want none", ran)
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "42P07" {
		t.Fatalf("error does not wrap the driver error: %v", err)
	}
	if !strings.Contains(err.Error(), "42P07") {
		t.Fatalf("error lacks postgres code: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppliedListsVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001").AddRow("002"))

	versions, err := Applied(context.Background(), db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(versions) != 2 || versions[1] != "002" {
		t.Fatalf("versions = %v", versions)
	}
}
