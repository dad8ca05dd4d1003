// Package migrations embeds the SQL schema and applies it in lexical order.
// Migrations are expected to be idempotent.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/yutaofr/clec-strategy-backtest/internal/storage/clickhouse"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded PostgreSQL SQL files.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	return apply(PostgresFS, "postgres", func(stmt string) error {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
		return nil
	})
}

// RunClickhouseMigrations applies all embedded ClickHouse SQL files.
func RunClickhouseMigrations(ctx context.Context, conn *clickhouse.Conn) error {
	return apply(ClickhouseFS, "clickhouse", func(stmt string) error {
		return conn.Exec(ctx, stmt)
	})
}

// apply reads *.sql files from the embedded FS in lexical order and executes
// each through exec.
func apply(fsys fs.FS, dir string, exec func(string) error) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(fsys, dir+"/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if err := exec(string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
