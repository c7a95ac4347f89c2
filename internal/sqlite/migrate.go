package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// schemaEntity is a row of sqlite_schema that differs between the live and the target schema.
type schemaEntity struct {
	name    string
	liveSQL string
	newSQL  string
}

// migrateTo makes the live schema match schemaDefinition declaratively.
//
// The target schema is created in an attached in-memory database and diffed against the live one. New tables are
// created, removed tables dropped, and changed tables rebuilt following the generalized ALTER TABLE procedure at
// https://www.sqlite.org/lang_altertable.html#otheralter. Indexes and triggers are synced last.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("enable foreign keys: %w", fkErr))
		}
	}()

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if err = db.syncTables(ctx, tx); err != nil {
			return fmt.Errorf("sync tables: %w", err)
		}
		for _, typ := range []string{"trigger", "index"} {
			if err = db.syncEntities(ctx, tx, typ); err != nil {
				return fmt.Errorf("sync %ss: %w", typ, err)
			}
		}
		if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
			return fmt.Errorf("foreign key check: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachTarget creates the target schema in a fresh in-memory database and attaches it as "target".
func (db *Database) attachTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	targetDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open target database: %w", err)
	}
	// The shared in-memory database lives as long as one connection is open, so keep targetDB open until detach.
	if _, err = targetDB.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("create target schema: %w", err), targetDB.Close())
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, errors.Join(fmt.Errorf("attach: %w", err), targetDB.Close())
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target database", slog.Any("error", detachErr))
		}
		if closeErr := targetDB.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close target database", slog.Any("error", closeErr))
		}
	}, nil
}

const (
	// Live entities missing from the target.
	sqlRemoved = `SELECT live.name FROM main.sqlite_schema AS live
LEFT JOIN schemaTarget.sqlite_schema AS t ON live.name = t.name AND live.type = t.type
WHERE live.type = ? AND t.type IS NULL AND live.name NOT LIKE 'sqlite_%'`
	// Target entities missing from the live schema.
	sqlAdded = `SELECT t.sql FROM schemaTarget.sqlite_schema AS t
LEFT JOIN main.sqlite_schema AS live ON live.name = t.name AND live.type = t.type
WHERE t.type = ? AND live.type IS NULL AND t.name NOT LIKE 'sqlite_%' AND t.sql IS NOT NULL`
	// Entities whose definition changed. Renamed tables get quoted names so quotes are ignored.
	sqlChanged = `SELECT live.name, live.sql, t.sql FROM main.sqlite_schema AS live
JOIN schemaTarget.sqlite_schema AS t ON live.name = t.name AND live.type = t.type
WHERE live.type = ? AND live.name NOT LIKE 'sqlite_%'
  AND REPLACE(live.sql, '"', '') <> REPLACE(t.sql, '"', '')`
)

func (db *Database) syncTables(ctx context.Context, tx *sql.Tx) error {
	removed, err := queryStrings(ctx, tx, sqlRemoved, "table")
	if err != nil {
		return fmt.Errorf("query removed tables: %w", err)
	}
	for _, table := range removed {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table))
		if _, err = tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}

	added, err := queryStrings(ctx, tx, sqlAdded, "table")
	if err != nil {
		return fmt.Errorf("query added tables: %w", err)
	}
	for _, stmt := range added {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", stmt))
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	changed, err := queryChanged(ctx, tx, "table")
	if err != nil {
		return fmt.Errorf("query changed tables: %w", err)
	}
	for _, table := range changed {
		if err = db.rebuildTable(ctx, tx, table); err != nil {
			return fmt.Errorf("rebuild table %s: %w", table.name, err)
		}
	}
	return nil
}

// rebuildTable creates the new definition under a temporary name, copies the common columns, and swaps the tables.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table schemaEntity) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
		slog.String("table", table.name), slog.String("live_sql", table.liveSQL), slog.String("new_sql", table.newSQL))

	tempName := table.name + "_migration_temp"
	if _, err := tx.ExecContext(ctx, strings.Replace(table.newSQL, table.name, tempName, 1)); err != nil {
		return fmt.Errorf("create temporary table: %w", err)
	}

	columns, err := queryStrings(ctx, tx, `SELECT '"' || t.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS live
JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS t ON t.name = live.name`, sql.Named("table_name", table.name))
	if err != nil {
		return fmt.Errorf("query common columns: %w", err)
	}
	common := strings.Join(columns, ", ")

	stmts := []string{
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", //nolint:gosec // identifiers come from sqlite_schema.
			quoteIdent(tempName), common, common, quoteIdent(table.name)),
		"DROP TABLE " + quoteIdent(table.name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(tempName), quoteIdent(table.name)),
	}
	for _, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// syncEntities drops, creates, and recreates indexes or triggers.
func (db *Database) syncEntities(ctx context.Context, tx *sql.Tx, typ string) error {
	logger := db.logger.With(slog.String("schemaType", typ))
	keyword := strings.ToUpper(typ)

	removed, err := queryStrings(ctx, tx, sqlRemoved, typ)
	if err != nil {
		return fmt.Errorf("query removed: %w", err)
	}
	for _, name := range removed {
		logger.LogAttrs(ctx, slog.LevelInfo, "dropping", slog.String("name", name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %s", keyword, quoteIdent(name))); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}

	changed, err := queryChanged(ctx, tx, typ)
	if err != nil {
		return fmt.Errorf("query changed: %w", err)
	}
	for _, entity := range changed {
		logger.LogAttrs(ctx, slog.LevelInfo, "recreating",
			slog.String("name", entity.name), slog.String("new_sql", entity.newSQL))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %s", keyword, quoteIdent(entity.name))); err != nil {
			return fmt.Errorf("drop changed %s: %w", entity.name, err)
		}
		if _, err = tx.ExecContext(ctx, entity.newSQL); err != nil {
			return fmt.Errorf("create changed %s: %w", entity.name, err)
		}
	}

	// Table rebuilds drop the indexes and triggers attached to the table so they show up as added here.
	added, err := queryStrings(ctx, tx, sqlAdded, typ)
	if err != nil {
		return fmt.Errorf("query added: %w", err)
	}
	for _, stmt := range added {
		logger.LogAttrs(ctx, slog.LevelInfo, "creating", slog.String("query", stmt))
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create: %w", err)
		}
	}
	return nil
}

func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) (_ []string, err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var results []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return results, nil
}

func queryChanged(ctx context.Context, tx *sql.Tx, typ string) (_ []schemaEntity, err error) {
	rows, err := tx.QueryContext(ctx, sqlChanged, typ)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var results []schemaEntity
	for rows.Next() {
		var e schemaEntity
		if err = rows.Scan(&e.name, &e.liveSQL, &e.newSQL); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return results, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
