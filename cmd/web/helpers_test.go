package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/liftcoach/internal/ai"
	"github.com/myrjola/liftcoach/internal/catalog"
	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/metrics"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/testhelpers"
	"github.com/myrjola/liftcoach/internal/workout"
	"github.com/prometheus/client_golang/prometheus"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "LIFTCOACH_ADDR":
		return "localhost:0", true
	case "LIFTCOACH_SQLITE_URL":
		return ":memory:", true
	default:
		return "", false
	}
}

// fakeGenerator returns a fixed plan or error.
type fakeGenerator struct {
	plan     ai.GeneratedWorkoutPlan
	err      error
	requests []ai.GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req ai.GenerationRequest) (ai.GeneratedWorkoutPlan, error) {
	f.requests = append(f.requests, req)
	return f.plan, f.err
}

// newTestApp creates an application over an in-memory database seeded with the built-in catalog.
func newTestApp(t *testing.T, generator workoutGenerator) *application {
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

	registry := prometheus.NewRegistry()
	m := metrics.NewManager("test", registry)
	svc := workout.NewService(db, logger, m)
	exercises, err := catalog.Default()
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	if _, err = catalog.Sync(ctx, svc, exercises, logger); err != nil {
		t.Fatalf("Failed to sync catalog: %v", err)
	}

	return &application{
		logger:         logger,
		workoutService: svc,
		dashboard:      workout.NewDashboardAggregator(svc),
		generator:      generator,
		metrics:        m,
		registry:       registry,
		recorder:       nil,
		aiTimeout:      time.Second,
	}
}

// serve sends a request as userID through the application routes. A zero userID sends no identity header.
func serve(t *testing.T, app *application, method, target string, userID int, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequestWithContext(t.Context(), method, target, nil)
	} else {
		req = httptest.NewRequestWithContext(t.Context(), method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set(contexthelpers.UserIDHeader, strconv.Itoa(userID))
	}
	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)
	return rec
}
