package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// aiTimeoutMargin leaves room for the embedding call and the database around the provider calls.
const aiTimeoutMargin = 5 * time.Second

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		noAuth = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(app.recoverPanic(secureHeaders(noCache(next))))
		}
		api = func(next http.HandlerFunc) http.Handler {
			return noAuth(app.authenticate(app.timeout(defaultTimeout - 200*time.Millisecond)(next))) //nolint:mnd // leave time to write the response.
		}
		slowAPI = func(next http.HandlerFunc) http.Handler {
			return noAuth(app.authenticate(app.timeout(2*app.aiTimeout + aiTimeoutMargin)(next))) //nolint:mnd // embedding and completion.
		}
	)

	mux.Handle("POST /api/workouts", api(app.workoutsPOST))
	mux.Handle("GET /api/workouts", api(app.workoutsGET))
	mux.Handle("GET /api/workouts/{id}", api(app.workoutGET))
	mux.Handle("POST /api/workouts/{id}/exercises", api(app.workoutExercisesPOST))
	mux.Handle("POST /api/workouts/{id}/exercises/{workoutExerciseID}/sets", api(app.workoutSetsPOST))
	mux.Handle("POST /api/workouts/{id}/complete", api(app.workoutCompletePOST))
	mux.Handle("POST /api/workouts/{id}/cancel", api(app.workoutCancelPOST))

	mux.Handle("GET /api/exercises", api(app.exercisesGET))
	mux.Handle("GET /api/personal-records", api(app.personalRecordsGET))
	mux.Handle("GET /api/personal-records/{exerciseID}/history", api(app.personalRecordHistoryGET))

	mux.Handle("GET /api/stats/volume", api(app.volumeGET))
	mux.Handle("GET /api/stats/consistency", api(app.consistencyGET))
	mux.Handle("GET /api/stats/muscle-distribution", api(app.muscleDistributionGET))
	mux.Handle("GET /api/stats/recovery", api(app.recoveryGET))
	mux.Handle("GET /api/stats/strength", api(app.strengthGET))

	mux.Handle("POST /api/body/weights", api(app.bodyWeightsPOST))
	mux.Handle("PUT /api/body/height", api(app.heightPUT))
	mux.Handle("GET /api/body/trend", api(app.bodyTrendGET))

	mux.Handle("GET /api/me", api(app.meGET))
	mux.Handle("GET /api/dashboard", api(app.dashboardGET))
	mux.Handle("POST /api/ai/generate-workout", slowAPI(app.generateWorkoutPOST))

	mux.Handle("GET /api/healthy", noAuth(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{ //nolint:exhaustruct // defaults.
		Registry: app.registry,
	}))
	mux.Handle("/", noAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.writeError(w, r, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})))

	return mux
}
