package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/stats"
)

// volumeGET reports training volume for ?timeframe=week|month|year or an explicit ?from=&to= date range.
func (app *application) volumeGET(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("from") || q.Has("to") {
		from, err := parseDate(q.Get("from"), "from")
		if err != nil {
			app.handleError(w, r, err)
			return
		}
		to, err := parseDate(q.Get("to"), "to")
		if err != nil {
			app.handleError(w, r, err)
			return
		}
		// The range ends at the midnight after the to date.
		summary, err := app.workoutService.VolumeStatsBetween(r.Context(), from, to.AddDate(0, 0, 1))
		if err != nil {
			app.handleError(w, r, err)
			return
		}
		app.writeJSON(w, r, http.StatusOK, summary)
		return
	}

	tf, err := stats.ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	summary, err := app.workoutService.VolumeStats(r.Context(), tf)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, summary)
}

func parseDate(s, name string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Wrap(errBadRequest, "invalid "+name+" date", slog.String(name, s))
	}
	return d, nil
}

func (app *application) consistencyGET(w http.ResponseWriter, r *http.Request) {
	c, err := app.workoutService.ConsistencyStats(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, c)
}

func (app *application) muscleDistributionGET(w http.ResponseWriter, r *http.Request) {
	d, err := app.workoutService.MuscleDistribution(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, d)
}

func (app *application) recoveryGET(w http.ResponseWriter, r *http.Request) {
	recovery, err := app.workoutService.RecoveryStatus(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, recovery)
}

func (app *application) strengthGET(w http.ResponseWriter, r *http.Request) {
	profile, err := app.workoutService.StrengthProfile(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, profile)
}

func (app *application) dashboardGET(w http.ResponseWriter, r *http.Request) {
	d, err := app.dashboard.Dashboard(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, d)
}

func (app *application) meGET(w http.ResponseWriter, r *http.Request) {
	u, err := app.workoutService.GetUser(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, u)
}
