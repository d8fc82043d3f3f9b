package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
	tables    []string
}

// NewIntegrationSuite creates a new integration test suite and applies the
// given migrations. tables lists the tables Reset truncates between tests.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    if !testutil.WantIntegration() {
//	        os.Exit(m.Run())
//	    }
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx, repository.Migrations(), repository.Tables)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer testutil.TerminateContainer(ctx)
//	    os.Exit(m.Run())
//	}
func NewIntegrationSuite(ctx context.Context, migrations []string, tables []string) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New("test", "test")
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	if err := container.ApplyMigrations(ctx, db, migrations); err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        wrappedDB,
		Fixtures:  NewFixtureFactory(db),
		Logger:    log,
		tables:    tables,
	}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// Reset empties every suite table. Call it at the start of each test that
// counts rows.
func (s *IntegrationSuite) Reset(t *testing.T, ctx context.Context) {
	t.Helper()
	if len(s.tables) == 0 {
		return
	}

	quoted := make([]string, len(s.tables))
	for i, table := range s.tables {
		quoted[i] = pq.QuoteIdentifier(table)
	}

	if _, err := s.RawDB.ExecContext(ctx, "TRUNCATE "+strings.Join(quoted, ", ")+" CASCADE"); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

// CountRows returns the number of rows in table, optionally filtered by column = value
func (s *IntegrationSuite) CountRows(t *testing.T, ctx context.Context, table string, where ...string) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + pq.QuoteIdentifier(table)
	var args []any
	if len(where) == 2 {
		query += fmt.Sprintf(" WHERE %s = $1", pq.QuoteIdentifier(where[0]))
		args = append(args, where[1])
	}

	var n int
	if err := s.RawDB.GetContext(ctx, &n, query, args...); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// WantIntegration reports whether integration tests should start a container.
// TestMain runs before flags are parsed, so -short is read from os.Args.
func WantIntegration() bool {
	for _, arg := range os.Args[1:] {
		if arg == "-test.short" || arg == "-test.short=true" {
			return false
		}
	}
	return os.Getenv("SKIP_INTEGRATION") == ""
}

// IsCI returns true if running in CI environment
func IsCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// SkipWithoutSuite skips integration tests in -short mode or when the
// container could not be started.
func SkipWithoutSuite(t *testing.T, s *IntegrationSuite) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if s == nil {
		t.Skip("skipping integration test: no database container")
	}
}
