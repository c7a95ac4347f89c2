package ai_test

import (
	"context"
	"sync"
	"testing"

	"github.com/myrjola/liftcoach/internal/ai"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/testhelpers"
	"github.com/myrjola/liftcoach/internal/workout"
)

const testModel = "test-embedding-model"

// fakeEmbedder returns fixed vectors keyed by text and a default vector otherwise.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	texts   []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string {
	return testModel
}

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

// fakeSearcher returns fixed candidates and records the search arguments.
type fakeSearcher struct {
	candidates []ai.ScoredExercise
	err        error
	calls      int
	limit      int
	filters    ai.SearchFilters
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, limit int, filters ai.SearchFilters) (
	[]ai.ScoredExercise, error) {
	f.calls++
	f.limit = limit
	f.filters = filters
	return f.candidates, f.err
}

// fakeCompleter returns a canned response and records the requests.
type fakeCompleter struct {
	response string
	err      error
	requests []ai.JSONRequest
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, req ai.JSONRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func candidate(id int, name string) ai.ScoredExercise {
	return ai.ScoredExercise{
		Exercise: workout.Exercise{
			ID:                    id,
			Name:                  name,
			Category:              workout.CategoryUpper,
			Difficulty:            workout.DifficultyBeginner,
			DescriptionMarkdown:   "",
			PrimaryMuscleGroups:   []string{"chest"},
			SecondaryMuscleGroups: nil,
			Equipment:             []string{"dumbbell"},
		},
		Similarity: 1,
	}
}

// catalogEnv is a database with a small catalog and a vector store over it.
type catalogEnv struct {
	ctx       context.Context
	svc       *workout.Service
	store     *ai.VectorStore
	db        *sqlite.Database
	exercises map[string]workout.Exercise
}

func newCatalogEnv(t *testing.T) *catalogEnv {
	t.Helper()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	svc := workout.NewService(db, logger, nil)

	env := &catalogEnv{
		ctx:       ctx,
		svc:       svc,
		store:     ai.NewVectorStore(db, svc, testModel, logger),
		db:        db,
		exercises: make(map[string]workout.Exercise),
	}
	catalog := []workout.Exercise{
		{
			Name: "Barbell Bench Press", Category: workout.CategoryUpper, Difficulty: workout.DifficultyIntermediate,
			PrimaryMuscleGroups: []string{"chest"}, SecondaryMuscleGroups: []string{"triceps"},
			Equipment: []string{"barbell", "bench"},
		},
		{
			Name: "Barbell Back Squat", Category: workout.CategoryLower, Difficulty: workout.DifficultyIntermediate,
			PrimaryMuscleGroups: []string{"quadriceps"}, SecondaryMuscleGroups: []string{"glutes"},
			Equipment: []string{"barbell"},
		},
		{
			Name: "Pull-Up", Category: workout.CategoryUpper, Difficulty: workout.DifficultyBeginner,
			PrimaryMuscleGroups: []string{"back"}, SecondaryMuscleGroups: []string{"biceps"},
			Equipment: []string{"pull-up bar"},
		},
		{
			Name: "Barbell Deadlift", Category: workout.CategoryFullBody, Difficulty: workout.DifficultyAdvanced,
			PrimaryMuscleGroups: []string{"hamstrings", "back"}, SecondaryMuscleGroups: []string{"glutes"},
			Equipment: []string{"barbell"},
		},
	}
	for _, ex := range catalog {
		saved, _, saveErr := svc.SaveExercise(ctx, ex)
		if saveErr != nil {
			t.Fatalf("Failed to save exercise %s: %v", ex.Name, saveErr)
		}
		env.exercises[saved.Name] = saved
	}
	return env
}

func (e *catalogEnv) embed(t *testing.T, store *ai.VectorStore, vectors map[string][]float32) {
	t.Helper()
	var (
		ids  []int
		vecs [][]float32
	)
	for name, vec := range vectors {
		ids = append(ids, e.exercises[name].ID)
		vecs = append(vecs, vec)
	}
	if err := store.SaveEmbeddings(e.ctx, ids, vecs); err != nil {
		t.Fatalf("Failed to save embeddings: %v", err)
	}
}
