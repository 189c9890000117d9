package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowgraph/pkg/adapters/postgres"
	"github.com/aretw0/flowgraph/pkg/domain"
	contract "github.com/aretw0/flowgraph/pkg/ports/tests"
)

// openTestDB connects to FLOWGRAPH_TEST_DATABASE_URL on a fresh schema.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("FLOWGRAPH_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("FLOWGRAPH_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, db))
	return db
}

func TestPostgres_GraphStoreContract(t *testing.T) {
	db := openTestDB(t)
	contract.GraphStoreContractTest(t, postgres.NewGraphStore(db))
}

func TestPostgres_SessionStoreContract(t *testing.T) {
	db := openTestDB(t)
	contract.SessionStoreContractTest(t, postgres.NewSessionStore(db))
}

func TestPostgres_TemplateEditsStoreContract(t *testing.T) {
	db := openTestDB(t)
	contract.TemplateEditsStoreContractTest(t, postgres.NewEditsStore(db))
}

func TestPostgres_MigrationsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Applying twice is a no-op.
	require.NoError(t, postgres.Migrate(ctx, db))

	require.NoError(t, postgres.RollbackMigrations(ctx, db))
	require.NoError(t, postgres.Migrate(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestPostgres_PublishUnknownFlow(t *testing.T) {
	db := openTestDB(t)
	store := postgres.NewGraphStore(db)

	_, err := store.Publish(context.Background(), "nope", domain.Graph{domain.RootID: {}}, "u", "", 0)
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}
