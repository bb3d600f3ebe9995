package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"betpro/internal/config"
	"betpro/internal/store"

	"github.com/jackc/pgx/v5"
)

const schemaFile = "000001_init.up.sql"

// OpenTestStore returns a Postgres store bound to a fresh schema that is
// dropped when the test ends. It skips unless TEST_POSTGRES_DSN is set.
func OpenTestStore(t *testing.T) *store.Postgres {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip postgres: %v", err)
	}
	ctx := context.Background()
	schema := pgx.Identifier{"betpro_test_" + strings.ToLower(store.NewID())}.Sanitize()

	admin, err := store.NewPostgres(cfg.TestPostgresDSN)
	if err != nil {
		t.Fatalf("open admin store: %v", err)
	}
	t.Cleanup(func() { _ = admin.Close() })
	if err := admin.ApplySchema(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		if err := admin.ApplySchema(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
	})

	st, err := store.NewPostgres(withSearchPath(cfg.TestPostgresDSN, strings.Trim(schema, `"`)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ddl, err := os.ReadFile(migrationPath(t))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := st.ApplySchema(ctx, string(ddl)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return st
}

// migrationPath walks up from the test's package directory to migrations/.
func migrationPath(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		p := filepath.Join(dir, "migrations", schemaFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("%s not found above the test directory", schemaFile)
		}
		dir = parent
	}
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s", dsn, sep, url.QueryEscape(schema))
}
