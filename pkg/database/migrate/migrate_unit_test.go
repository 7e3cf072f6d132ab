package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	migrateTestFileCount    = 4
	migrateTestSuccess      = "success"
	migrateTestFactoryError = "factory error"
)

// mockMigrator implements the migrator interface for testing.
type mockMigrator struct {
	upErr      error
	downErr    error
	stepsErr   error
	versionVal uint
	dirty      bool
	versionErr error
}

func (m *mockMigrator) Up() error         { return m.upErr }
func (m *mockMigrator) Down() error       { return m.downErr }
func (m *mockMigrator) Steps(_ int) error { return m.stepsErr }
func (m *mockMigrator) Version() (version uint, dirty bool, err error) {
	return m.versionVal, m.dirty, m.versionErr
}

func useMigrator(t *testing.T, m migrator, err error) {
	t.Helper()
	orig := migratorFactory
	t.Cleanup(func() { migratorFactory = orig })
	migratorFactory = func(_ *sql.DB) (migrator, error) {
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, migrateTestFileCount)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"000001_search_audit_logs.up.sql",
		"000001_search_audit_logs.down.sql",
		"000002_search_audit_status_index.up.sql",
		"000002_search_audit_status_index.down.sql",
	}, names)
}

func TestMigrationFilesNotEmpty(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)

	for _, e := range entries {
		content, err := migrations.ReadFile("migrations/" + e.Name())
		require.NoError(t, err, "failed to read %s", e.Name())
		assert.NotEmpty(t, strings.TrimSpace(string(content)), "migration file %s should not be empty", e.Name())
	}
}

func TestMigration001_Content(t *testing.T) {
	up, err := migrations.ReadFile("migrations/000001_search_audit_logs.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS search_audit_logs")

	down, err := migrations.ReadFile("migrations/000001_search_audit_logs.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS search_audit_logs")
}

func TestRun(t *testing.T) {
	t.Run(migrateTestSuccess, func(t *testing.T) {
		useMigrator(t, &mockMigrator{versionVal: 2}, nil)
		assert.NoError(t, Run(nil))
	})

	t.Run("no change is not an error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{upErr: migrate.ErrNoChange, versionVal: 2}, nil)
		assert.NoError(t, Run(nil))
	})

	t.Run("up error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{upErr: errors.New("up failed")}, nil)
		err := Run(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "running migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		useMigrator(t, nil, errors.New("factory failed"))
		err := Run(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "factory failed")
	})

	t.Run("version error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{versionErr: errors.New("version failed")}, nil)
		err := Run(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting migration version")
	})

	t.Run("nil version is not an error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{versionErr: migrate.ErrNilVersion}, nil)
		assert.NoError(t, Run(nil))
	})

	t.Run("dirty state logs warning", func(t *testing.T) {
		useMigrator(t, &mockMigrator{versionVal: 2, dirty: true}, nil)
		assert.NoError(t, Run(nil))
	})
}

func TestVersion(t *testing.T) {
	t.Run(migrateTestSuccess, func(t *testing.T) {
		useMigrator(t, &mockMigrator{versionVal: 2}, nil)
		version, dirty, err := Version(nil)
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.False(t, dirty)
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		useMigrator(t, nil, errors.New("factory failed"))
		_, _, err := Version(nil)
		assert.Error(t, err)
	})
}

func TestDown(t *testing.T) {
	t.Run(migrateTestSuccess, func(t *testing.T) {
		useMigrator(t, &mockMigrator{}, nil)
		assert.NoError(t, Down(nil))
	})

	t.Run("no change is not an error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{downErr: migrate.ErrNoChange}, nil)
		assert.NoError(t, Down(nil))
	})

	t.Run("down error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{downErr: errors.New("down failed")}, nil)
		err := Down(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rolling back migrations")
	})
}

func TestSteps(t *testing.T) {
	t.Run(migrateTestSuccess, func(t *testing.T) {
		useMigrator(t, &mockMigrator{}, nil)
		assert.NoError(t, Steps(nil, 1))
	})

	t.Run("steps error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{stepsErr: errors.New("steps failed")}, nil)
		err := Steps(nil, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stepping migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		useMigrator(t, nil, errors.New("factory failed"))
		assert.Error(t, Steps(nil, -1))
	})
}

func TestMigrationTablesHaveConsumers(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)

	createTableRe := regexp.MustCompile(`(?i)CREATE TABLE\s+(?:IF NOT EXISTS\s+)?(\w+)`)

	var tables []string
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		content, readErr := migrations.ReadFile("migrations/" + entry.Name())
		require.NoError(t, readErr)

		for _, m := range createTableRe.FindAllStringSubmatch(string(content), -1) {
			tables = append(tables, m[1])
		}
	}
	require.NotEmpty(t, tables, "migrations should contain CREATE TABLE statements")

	var goFiles []string
	require.NoError(t, collectGoSourceFiles("../../../pkg", &goFiles))
	require.NotEmpty(t, goFiles, "should find Go source files under pkg/")

	var corpus strings.Builder
	for _, path := range goFiles {
		content, readErr := os.ReadFile(path) //nolint:gosec // test reads source files, not user input
		require.NoError(t, readErr)
		corpus.Write(content)
		corpus.WriteByte('\n')
	}
	source := corpus.String()

	dmlPatterns := []string{"INSERT INTO %s", "FROM %s", "UPDATE %s", "DELETE FROM %s"}
	for _, table := range tables {
		found := false
		for _, pattern := range dmlPatterns {
			if strings.Contains(source, strings.ReplaceAll(pattern, "%s", table)) {
				found = true
				break
			}
		}
		assert.True(t, found,
			"table %q is created by a migration but no non-test Go code references it", table)
	}
}

// collectGoSourceFiles walks dir recursively and appends non-test, non-migration
// Go source file paths to dst.
func collectGoSourceFiles(dir string, dst *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := dir + "/" + entry.Name()
		if entry.IsDir() {
			if entry.Name() == "migrate" {
				continue
			}
			if err := collectGoSourceFiles(path, dst); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
			*dst = append(*dst, path)
		}
	}
	return nil
}
