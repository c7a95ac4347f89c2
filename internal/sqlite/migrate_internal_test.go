package sqlite

import (
	"log/slog"
	"testing"

	"github.com/myrjola/liftcoach/internal/testhelpers"
)

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
			wantErr:           false,
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"},
			testQueries: []string{
				"INSERT INTO test (name) VALUES ('test')",
				"SELECT * FROM test",
			},
			wantErr: false,
		},
		{
			name: "drop table",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"", // drop table
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "add column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "remove column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "create index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "drop index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     true,
		},
		{
			name: "update index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (id, name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "create trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "delete trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				"CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT )",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "tighten check constraint keeps rows",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, weight REAL); INSERT INTO test (weight) VALUES (1)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, weight REAL CHECK (weight > 0))",
			},
			testQueries: []string{"INSERT INTO test (weight) VALUES (-1)"},
			wantErr:     true,
		},
		{
			name: "update trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT 1; END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
			db, err := connect(":memory:", logger)
			if err != nil {
				t.Fatalf("Failed to connect to database: %v", err)
			}
			defer func(db *Database) {
				err = db.Close()
				if err != nil {
					t.Errorf("Failed to close database: %v", err)
				}
			}(db)

			for _, schemaDefinition := range tt.schemaDefinitions {
				logger.LogAttrs(ctx, slog.LevelInfo, "migrating", slog.String("schema", schemaDefinition))
				err = db.migrateTo(ctx, schemaDefinition)
				if err != nil {
					t.Fatalf("Failed to migrate: %v", err)
				}
			}

			for _, query := range tt.testQueries {
				logger.LogAttrs(ctx, slog.LevelInfo, "executing", slog.String("query", query))
				_, err = db.ReadWrite.ExecContext(ctx, query)
				if tt.wantErr && err == nil {
					t.Errorf("Expected error for query %q, but got none", query)
				}
				if !tt.wantErr && err != nil {
					t.Errorf("Unexpected error for query %q: %v", query, err)
				}
			}
		})
	}
}

func TestNewDatabase_idempotentSchema(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := connect(":memory:", logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for range 2 {
		if err = db.migrateTo(ctx, schemaDefinition); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
			t.Fatalf("fixtures: %v", err)
		}
	}

	var count int
	if err = db.ReadWrite.QueryRowContext(ctx, "SELECT COUNT(*) FROM muscle_groups").Scan(&count); err != nil {
		t.Fatalf("count muscle groups: %v", err)
	}
	if count == 0 {
		t.Error("expected fixtures to insert muscle groups")
	}
}

func TestSchema_completedWorkoutSetsAreFrozen(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("new database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		"INSERT INTO users (id) VALUES (1)",
		"INSERT INTO exercises (id, name, category, difficulty) VALUES (1, 'Squat', 'lower', 'beginner')",
		"INSERT INTO workouts (id, user_id, started_at) VALUES (1, 1, '2026-01-01T10:00:00.000Z')",
		"INSERT INTO workout_exercises (id, workout_id, exercise_id, position) VALUES (1, 1, 1, 1)",
		"INSERT INTO workout_sets (workout_exercise_id, set_number, weight_kg, reps, completed) VALUES (1, 1, 100, 5, 1)",
		"UPDATE workouts SET status = 'completed', completed_at = '2026-01-01T11:00:00.000Z' WHERE id = 1",
	}
	for _, stmt := range stmts {
		if _, err = db.ReadWrite.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	if _, err = db.ReadWrite.ExecContext(ctx, "UPDATE workout_sets SET reps = 6"); err == nil {
		t.Error("expected updating a set of a completed workout to fail")
	}
	if _, err = db.ReadWrite.ExecContext(ctx,
		"INSERT INTO workouts (user_id, started_at) VALUES (1, '2026-01-02T10:00:00.000Z')"); err != nil {
		t.Fatalf("start second workout: %v", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx,
		"INSERT INTO workouts (user_id, started_at) VALUES (1, '2026-01-03T10:00:00.000Z')"); err == nil {
		t.Error("expected a second in_progress workout to violate the unique index")
	}
}
