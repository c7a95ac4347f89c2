package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/workout"
)

const backfillBatchSize = 32

// Backfill embeds every catalog exercise that has no embedding for the store's model and returns how many were
// embedded. Each batch is saved before the next one starts so an interrupted run keeps its progress.
func (s *VectorStore) Backfill(ctx context.Context, embedder Embedder) (int, error) {
	if embedder.Model() != s.model {
		return 0, errors.Wrap(ErrConfiguration, "embedder model does not match the vector store",
			slog.String("embedder_model", embedder.Model()), slog.String("store_model", s.model))
	}
	ids, err := s.PendingExerciseIDs(ctx)
	if err != nil {
		return 0, err
	}

	embedded := 0
	for start := 0; start < len(ids); start += backfillBatchSize {
		batch := ids[start:min(start+backfillBatchSize, len(ids))]
		exercises, loadErr := s.loader.ExercisesByID(ctx, batch)
		if loadErr != nil {
			return embedded, fmt.Errorf("load exercises: %w", loadErr)
		}
		documents := make([]string, len(exercises))
		for i, ex := range exercises {
			documents[i] = ExerciseDocument(ex)
		}
		vectors, embedErr := embedder.EmbedBatch(ctx, documents)
		if embedErr != nil {
			return embedded, fmt.Errorf("embed exercises: %w", embedErr)
		}
		if err = s.SaveEmbeddings(ctx, batch, vectors); err != nil {
			return embedded, err
		}
		embedded += len(batch)
		s.logger.LogAttrs(ctx, slog.LevelInfo, "embedded exercises",
			slog.Int("count", embedded), slog.Int("total", len(ids)), slog.String("model", s.model))
	}
	return embedded, nil
}

// ExerciseDocument is the text embedded for an exercise.
func ExerciseDocument(ex workout.Exercise) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. Difficulty: %s. Category: %s.",
		ex.Name, ex.Difficulty, strings.ReplaceAll(string(ex.Category), "_", " "))
	if len(ex.PrimaryMuscleGroups) > 0 {
		fmt.Fprintf(&b, " Primary muscles: %s.", strings.Join(ex.PrimaryMuscleGroups, ", "))
	}
	if len(ex.SecondaryMuscleGroups) > 0 {
		fmt.Fprintf(&b, " Secondary muscles: %s.", strings.Join(ex.SecondaryMuscleGroups, ", "))
	}
	if len(ex.Equipment) > 0 {
		fmt.Fprintf(&b, " Equipment: %s.", strings.Join(ex.Equipment, ", "))
	}
	if desc := strings.TrimSpace(ex.DescriptionMarkdown); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
	}
	return b.String()
}
