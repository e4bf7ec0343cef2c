package sqlstore

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// MigrateUp применяет недостающие миграции для драйвера базы.
// Контрольная сумма уже примененной миграции не должна меняться.
func MigrateUp(db *sqlx.DB) error {
	dir, err := migrationsDir(db.DriverName())
	if err != nil {
		return err
	}

	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrations(dir)
	if err != nil {
		return fmt.Errorf("failed to parse migrations: %w", err)
	}

	applied := map[string]string{}
	rows, err := db.Queryx("SELECT migration_id, checksum FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	for rows.Next() {
		var id, checksum string
		if err := rows.Scan(&id, &checksum); err != nil {
			rows.Close()
			return err
		}
		applied[id] = checksum
	}
	rows.Close()

	for _, m := range migrations {
		if checksum, ok := applied[m.ID]; ok {
			if checksum != m.Checksum {
				return fmt.Errorf("migration %s was modified after being applied", m.ID)
			}
			continue
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(
			tx.Rebind("INSERT INTO schema_migrations (migration_id, checksum, applied_at) VALUES (?, ?, ?)"),
			m.ID, m.Checksum, time.Now().UTC().UnixNano(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
		}
	}
	return nil
}

func migrationsDir(driver string) (string, error) {
	switch driver {
	case "sqlite3":
		return "migrations/sqlite", nil
	case "postgres":
		return "migrations/postgres", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func createMigrationsTable(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			migration_id TEXT PRIMARY KEY,
			checksum     TEXT NOT NULL,
			applied_at   BIGINT NOT NULL
		)
	`)
	return err
}

// parseMigrations читает миграции каталога в порядке имен файлов
func parseMigrations(dir string) ([]migration, error) {
	var migrations []migration
	err := fs.WalkDir(migrationsFS, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		content, err := migrationsFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		migrations = append(migrations, migration{
			ID:       path.Base(p),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}
