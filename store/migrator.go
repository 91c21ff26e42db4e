package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Migration System Overview:
//
// Migration files live in store/migration/{driver}/NN__description.sql and are applied in
// lexicographic order. Applied files are recorded in migration_history, so each file runs
// exactly once per database. Demo mode additionally seeds store/seed/{driver}/*.sql.

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch version and the description in the migration file name.
	// For example, "01__schedule.sql".
	MigrateFileNameSplit = "__"

	modeDemo = "demo"
)

// validateMigrationFileName checks if a migration file follows the expected naming convention.
// Expected format: "NN__description.sql" where NN is a zero-padded number.
func validateMigrationFileName(filename string) error {
	if !strings.Contains(filename, MigrateFileNameSplit) {
		return errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	parts := strings.Split(filename, MigrateFileNameSplit)
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return nil
}

// Migrate applies every pending migration file and seeds demo data in demo mode.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ensureHistoryTable(ctx); err != nil {
		return errors.Wrap(err, "failed to prepare migration history")
	}
	if err := s.applyMigrations(ctx); err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}
	if s.profile.Mode == modeDemo {
		if err := s.seed(ctx); err != nil {
			return errors.Wrap(err, "failed to seed")
		}
	}
	return nil
}

func (s *Store) ensureHistoryTable(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS migration_history (
  version TEXT NOT NULL PRIMARY KEY,
  applied_ts BIGINT NOT NULL
)`
	_, err := s.driver.GetDB().ExecContext(ctx, stmt)
	return err
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.driver.GetDB().QueryContext(ctx, "SELECT version FROM migration_history")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// applyMigrations runs all pending migration files in a single transaction.
func (s *Store) applyMigrations(ctx context.Context) error {
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s*.sql", s.getMigrationBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	if len(filePaths) == 0 {
		return errors.Errorf("no migration files for driver %q", s.profile.Driver)
	}
	sort.Strings(filePaths)

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read migration history")
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	migrationsApplied := 0
	for _, filePath := range filePaths {
		filename := filepath.Base(filePath)
		if applied[filename] {
			continue
		}
		if err := validateMigrationFileName(filename); err != nil {
			slog.Warn("migration file has invalid name but will be applied", slog.String("file", filePath), slog.String("error", err.Error()))
		}

		slog.Info("applying migration", slog.String("file", filePath))
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO migration_history (version, applied_ts) VALUES (?, ?)"), filename, time.Now().Unix()); err != nil {
			return errors.Wrapf(err, "failed to record migration %s", filePath)
		}
		migrationsApplied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", migrationsApplied))
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) getSeedBasePath() string {
	return fmt.Sprintf("seed/%s/", s.profile.Driver)
}

// seed seeds the database with demo schedules.
// This is only supported for SQLite databases and is used in demo mode.
func (s *Store) seed(ctx context.Context) error {
	if s.profile.Driver != "sqlite" {
		slog.Warn("seed is only supported for SQLite, skipping for other databases")
		return nil
	}

	filenames, err := fs.Glob(seedFS, fmt.Sprintf("%s*.sql", s.getSeedBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read seed files")
	}
	sort.Strings(filenames)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	for _, filename := range filenames {
		bytes, err := seedFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "failed to read seed file, filename=%s", filename)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "seed error: %s", filename)
		}
	}
	return tx.Commit()
}

// execute runs each statement of a SQL script separately.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, script string) error {
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d", i+1)
		}
	}
	return nil
}

// rebind converts ? placeholders to $N for postgres.
func (s *Store) rebind(query string) string {
	if s.profile.Driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// splitSQL splits a script on statement-terminating semicolons.
// Comment lines are dropped; semicolons inside single quotes are kept.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	inSingleQuote := false

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inSingleQuote && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}
		for _, r := range line {
			switch {
			case r == '\'':
				inSingleQuote = !inSingleQuote
				current.WriteRune(r)
			case r == ';' && !inSingleQuote:
				if stmt := strings.TrimSpace(current.String()); stmt != "" {
					statements = append(statements, stmt)
				}
				current.Reset()
			default:
				current.WriteRune(r)
			}
		}
		current.WriteString("\n")
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
