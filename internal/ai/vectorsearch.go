package ai

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/workout"
)

// SearchFilters narrow a vector search. All set filters are combined with AND; within a set filter an exercise
// matches when it has at least one of the values.
type SearchFilters struct {
	// Difficulty matches exactly when non-empty.
	Difficulty   workout.Difficulty
	Equipment    []string
	MuscleGroups []string
}

// ScoredExercise is a catalog exercise with its similarity to the query.
type ScoredExercise struct {
	Exercise   workout.Exercise
	Similarity float64
}

// Searcher finds the catalog exercises closest to a query vector.
type Searcher interface {
	Search(ctx context.Context, query []float32, limit int, filters SearchFilters) ([]ScoredExercise, error)
}

// ExerciseLoader loads catalog exercises by ID, keeping the order of ids.
type ExerciseLoader interface {
	ExercisesByID(ctx context.Context, ids []int) ([]workout.Exercise, error)
}

// VectorStore keeps exercise embeddings in the exercises table and searches them by cosine similarity.
//
// Only embeddings created with the store's model are considered.
type VectorStore struct {
	db     *sqlite.Database
	loader ExerciseLoader
	model  string
	logger *slog.Logger
}

// NewVectorStore creates a vector store for embeddings of model.
func NewVectorStore(db *sqlite.Database, loader ExerciseLoader, model string, logger *slog.Logger) *VectorStore {
	return &VectorStore{db: db, loader: loader, model: model, logger: logger}
}

// Search returns up to limit exercises ordered by descending similarity. Exercises without an embedding are
// skipped.
func (s *VectorStore) Search(
	ctx context.Context,
	query []float32,
	limit int,
	filters SearchFilters,
) (_ []ScoredExercise, err error) {
	if limit <= 0 || len(query) == 0 {
		return []ScoredExercise{}, nil
	}

	stmt, args := searchQuery(s.model, filters)
	rows, err := s.db.ReadOnly.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	type scored struct {
		id         int
		similarity float64
	}
	var matches []scored
	for rows.Next() {
		var (
			id   int
			blob []byte
		)
		if err = rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vec, decodeErr := decodeVector(blob)
		if decodeErr != nil || len(vec) != len(query) {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "skipping unusable embedding",
				slog.Int("exercise_id", id), slog.Int("dimensions", len(vec)), slog.Int("query_dimensions", len(query)))
			continue
		}
		matches = append(matches, scored{id: id, similarity: cosineSimilarity(query, vec)})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	slices.SortStableFunc(matches, func(a, b scored) int {
		switch {
		case a.similarity > b.similarity:
			return -1
		case a.similarity < b.similarity:
			return 1
		default:
			return a.id - b.id
		}
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if len(matches) == 0 {
		return []ScoredExercise{}, nil
	}

	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	exercises, err := s.loader.ExercisesByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load matched exercises: %w", err)
	}
	result := make([]ScoredExercise, len(matches))
	for i, m := range matches {
		result[i] = ScoredExercise{Exercise: exercises[i], Similarity: m.similarity}
	}
	return result, nil
}

// searchQuery builds the candidate query. Filter values are always bound as parameters and matched against the
// lowercase catalog names.
func searchQuery(model string, filters SearchFilters) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT e.id, e.embedding
		FROM exercises e
		WHERE e.embedding IS NOT NULL AND e.embedding_model = ?`)
	args := []any{model}

	if filters.Difficulty != "" {
		b.WriteString(` AND e.difficulty = ?`)
		args = append(args, filters.Difficulty)
	}
	if len(filters.Equipment) > 0 {
		b.WriteString(`
			AND EXISTS (SELECT 1 FROM exercise_equipment ee
				WHERE ee.exercise_id = e.id AND ee.equipment_name IN (` + placeholders(len(filters.Equipment)) + `))`)
		for _, eq := range filters.Equipment {
			args = append(args, normalizeName(eq))
		}
	}
	if len(filters.MuscleGroups) > 0 {
		b.WriteString(`
			AND EXISTS (SELECT 1 FROM exercise_muscle_groups emg
				WHERE emg.exercise_id = e.id AND emg.muscle_group_name IN (` +
			placeholders(len(filters.MuscleGroups)) + `))`)
		for _, mg := range filters.MuscleGroups {
			args = append(args, normalizeName(mg))
		}
	}
	return b.String(), args
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// PendingExerciseIDs lists exercises that have no embedding for the store's model.
func (s *VectorStore) PendingExerciseIDs(ctx context.Context) (_ []int, err error) {
	rows, err := s.db.ReadOnly.QueryContext(ctx, `
		SELECT id FROM exercises
		WHERE embedding IS NULL OR embedding_model IS NOT ?
		ORDER BY id`, s.model)
	if err != nil {
		return nil, fmt.Errorf("query pending exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var ids []int
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exercise id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

// SaveEmbeddings stores vectors for the exercises in one transaction. ids and vectors are parallel.
func (s *VectorStore) SaveEmbeddings(ctx context.Context, ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d exercises", len(vectors), len(ids))
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			res, err := tx.ExecContext(ctx, `
				UPDATE exercises SET embedding = ?, embedding_model = ? WHERE id = ?`,
				encodeVector(vectors[i]), s.model, id)
			if err != nil {
				return fmt.Errorf("update embedding of exercise %d: %w", id, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("rows affected: %w", err)
			} else if n == 0 {
				return fmt.Errorf("exercise %d: %w", id, workout.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save embeddings: %w", err)
	}
	return nil
}

// encodeVector stores a vector as little-endian float32 values.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec)) //nolint:mnd // float32 size.
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 vector", len(blob))
	}
	vec := make([]float32, len(blob)/4) //nolint:mnd // float32 size.
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}

// cosineSimilarity is one minus the cosine distance. A zero vector has no direction and scores zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
