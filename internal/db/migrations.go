package db

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	migrationFileName = regexp.MustCompile(`^(\d+)_[\w-]+\.sql$`)
	addColumnClause   = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+(\S+)\s+ADD\s+COLUMN\s+(\S+)`)
)

var errEmptyMigration = errors.New("migration has no SQL statements")

type sqlMigration struct {
	Version    int
	Name       string
	Statements []string
}

// migrationRunner applies forward-only SQL files from source, each inside
// its own transaction, and records them in schema_migrations.
type migrationRunner struct {
	database *gorm.DB
	source   fs.FS
	logger   logrus.FieldLogger
}

func newMigrationRunner(database *gorm.DB, source fs.FS, logger logrus.FieldLogger) *migrationRunner {
	return &migrationRunner{database: database, source: source, logger: logger}
}

// Run applies every pending migration in version order and returns the file
// names it applied.
func (runner *migrationRunner) Run() ([]string, error) {
	pending, err := runner.pending()
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(pending))
	for _, migration := range pending {
		if err := runner.apply(migration); err != nil {
			return applied, err
		}
		runner.logger.WithFields(logrus.Fields{
			"migration":  migration.Name,
			"statements": len(migration.Statements),
		}).Info("db: migration applied")
		applied = append(applied, migration.Name)
	}
	return applied, nil
}

func (runner *migrationRunner) pending() ([]sqlMigration, error) {
	if err := runner.database.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`).Error; err != nil {
		return nil, fmt.Errorf("create schema_migrations table: %w", err)
	}

	migrations, err := readMigrations(runner.source)
	if err != nil {
		return nil, err
	}

	var versions []string
	if err := runner.database.Table("schema_migrations").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("load applied migration versions: %w", err)
	}
	done := make(map[string]bool, len(versions))
	for _, version := range versions {
		done[version] = true
	}

	pending := migrations[:0]
	for _, migration := range migrations {
		if !done[migrationVersion(migration.Version)] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

func (runner *migrationRunner) apply(migration sqlMigration) error {
	return runner.database.Transaction(func(tx *gorm.DB) error {
		for index, statement := range migration.Statements {
			entry := runner.logger.WithFields(logrus.Fields{"migration": migration.Name, "statement": index + 1})

			if table, column, ok := addedColumn(statement); ok && tx.Migrator().HasColumn(table, column) {
				entry.WithField("column", table+"."+column).Debug("db: column exists, statement skipped")
				continue
			}
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("migration %s statement %d: %w", migration.Name, index+1, err)
			}
			entry.Debug("db: migration statement executed")
		}

		return tx.Exec(
			`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`,
			migrationVersion(migration.Version), migration.Name,
		).Error
	})
}

// readMigrations loads NNN_name.sql files from the root of source, sorted by
// version. Other files are ignored; a repeated version is an error.
func readMigrations(source fs.FS) ([]sqlMigration, error) {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	migrations := make([]sqlMigration, 0, len(names))
	byVersion := make(map[int]string, len(names))
	for _, name := range names {
		matches := migrationFileName.FindStringSubmatch(path.Base(name))
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", name, err)
		}
		if previous, taken := byVersion[version]; taken {
			return nil, fmt.Errorf("duplicate migration version %d in %s and %s", version, previous, name)
		}
		byVersion[version] = name

		raw, err := fs.ReadFile(source, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		statements := splitSQLStatements(string(raw))
		if len(statements) == 0 {
			return nil, fmt.Errorf("migration %s: %w", name, errEmptyMigration)
		}
		migrations = append(migrations, sqlMigration{Version: version, Name: name, Statements: statements})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// migrationVersion is the zero-padded form stored in schema_migrations.
func migrationVersion(version int) string {
	return fmt.Sprintf("%03d", version)
}

// splitSQLStatements drops "--" comment lines and splits on semicolons.
func splitSQLStatements(sqlText string) []string {
	var body strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}

	statements := make([]string, 0)
	for _, part := range strings.Split(body.String(), ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

func addedColumn(statement string) (string, string, bool) {
	matches := addColumnClause.FindStringSubmatch(statement)
	if matches == nil {
		return "", "", false
	}
	return unquoteIdentifier(matches[1]), unquoteIdentifier(matches[2]), true
}

func unquoteIdentifier(identifier string) string {
	return strings.Trim(identifier, "\"`[]")
}
