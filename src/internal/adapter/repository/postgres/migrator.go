package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/api-sage/securebank-core/src/internal/logger"
)

// ErrMigrationChanged is returned when a migration file no longer matches the
// checksum recorded when it was applied.
var ErrMigrationChanged = errors.New("applied migration has changed")

type migration struct {
	version  string
	checksum string
	body     string
}

// RunMigrations applies every *.sql file in migrationsDir that is not yet
// recorded in schema_migrations, in file name order, each in its own
// transaction. Applied files are checked against their recorded checksum
// first; any drift aborts the run before anything new is applied.
func RunMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	pending, available, err := pendingMigrations(ctx, db, migrationsDir)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		logger.Info("postgres migration applied", logger.Fields{"version": m.version, "checksum": m.checksum[:12]})
	}

	logger.Info("postgres migrations complete", logger.Fields{
		"available": available,
		"applied":   len(pending),
	})
	return nil
}

// PendingMigrations reports, without applying anything, the versions that
// RunMigrations would apply next.
func PendingMigrations(ctx context.Context, db *sql.DB, migrationsDir string) ([]string, error) {
	pending, _, err := pendingMigrations(ctx, db, migrationsDir)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(pending))
	for _, m := range pending {
		versions = append(versions, m.version)
	}
	return versions, nil
}

func pendingMigrations(ctx context.Context, db *sql.DB, migrationsDir string) ([]migration, int, error) {
	if err := ensureSchemaMigrationsTable(ctx, db); err != nil {
		return nil, 0, err
	}

	migrations, err := loadMigrations(migrationsDir)
	if err != nil {
		return nil, 0, err
	}

	applied, err := appliedChecksums(ctx, db)
	if err != nil {
		return nil, 0, err
	}

	pending := make([]migration, 0, len(migrations))
	for _, m := range migrations {
		recorded, ok := applied[m.version]
		switch {
		case !ok:
			pending = append(pending, m)
		case !recorded.Valid:
			// Rows written before checksums were tracked adopt the current file.
			if err := recordChecksum(ctx, db, m); err != nil {
				return nil, 0, err
			}
		case recorded.String != m.checksum:
			return nil, 0, fmt.Errorf("%w: %s recorded %s, file is %s", ErrMigrationChanged, m.version, recorded.String, m.checksum)
		}
	}
	return pending, len(migrations), nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for migration %q: %w", m.version, err)
	}

	if _, err := tx.ExecContext(ctx, m.body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute migration %q: %w", m.version, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, checksum) VALUES ($1, $2)`, m.version, m.checksum); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %q: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %q: %w", m.version, err)
	}
	return nil
}

func ensureSchemaMigrationsTable(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE schema_migrations ADD COLUMN IF NOT EXISTS checksum TEXT`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	return nil
}

func appliedChecksums(ctx context.Context, db *sql.DB) (map[string]sql.NullString, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]sql.NullString)
	for rows.Next() {
		var version string
		var checksum sql.NullString
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return applied, nil
}

func recordChecksum(ctx context.Context, db *sql.DB, m migration) error {
	if _, err := db.ExecContext(ctx, `UPDATE schema_migrations SET checksum = $2 WHERE version = $1 AND checksum IS NULL`, m.version, m.checksum); err != nil {
		return fmt.Errorf("backfill checksum for %q: %w", m.version, err)
	}
	return nil
}

func loadMigrations(migrationsDir string) ([]migration, error) {
	files, err := migrationFiles(migrationsDir)
	if err != nil {
		return nil, err
	}

	migrations := make([]migration, 0, len(files))
	for _, file := range files {
		body, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", file, err)
		}
		migrations = append(migrations, migration{version: file, checksum: migrationChecksum(body), body: string(body)})
	}
	return migrations, nil
}

// migrationChecksum hashes the file with line endings normalised, so a
// checkout that converts LF to CRLF does not look like an edited migration.
func migrationChecksum(body []byte) string {
	normalised := strings.ReplaceAll(string(body), "\r\n", "\n")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}

func migrationFiles(migrationsDir string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %q: %w", migrationsDir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}
