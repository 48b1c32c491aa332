package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"board-arena/internal/config"
	"board-arena/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const initMigration = "000001_init.up.sql"

// OpenTestStore gives each test its own schema on TEST_POSTGRES_DSN and
// drops it on cleanup. The test is skipped when no DSN is configured.
func OpenTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	ident := pgx.Identifier{schema}.Sanitize()

	base, err := pgxpool.New(ctx, cfg.TestPostgresDSN)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	if _, err := base.Exec(ctx, "CREATE SCHEMA "+ident); err != nil {
		base.Close()
		t.Fatalf("create schema: %v", err)
	}
	base.Close()

	st, err := store.New(withSearchPath(cfg.TestPostgresDSN, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := applySchema(ctx, st); err != nil {
		st.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
		if base, err := pgxpool.New(ctx, cfg.TestPostgresDSN); err == nil {
			_, _ = base.Exec(ctx, "DROP SCHEMA "+ident+" CASCADE")
			base.Close()
		}
	})
	return st
}

// MustCreateUser creates a user with a unique API key and returns it.
func MustCreateUser(t *testing.T, st *store.Store, name string, balance int64) *store.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), name, fmt.Sprintf("key-%s-%d", name, time.Now().UnixNano()), balance)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func applySchema(ctx context.Context, st *store.Store) error {
	path, err := findMigration(initMigration)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = st.Pool.Exec(ctx, string(b))
	return err
}

func findMigration(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		p := filepath.Join(dir, "migrations", name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found above %s", name, dir)
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}
