package main

import (
	"net/http"
	"time"

	"github.com/myrjola/liftcoach/internal/stats"
)

type logBodyWeightRequest struct {
	WeightKg float64 `json:"weight_kg"`
	// RecordedAt defaults to now.
	RecordedAt *time.Time `json:"recorded_at"`
}

func (app *application) bodyWeightsPOST(w http.ResponseWriter, r *http.Request) {
	var req logBodyWeightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	bw, err := app.workoutService.LogBodyWeight(r.Context(), req.WeightKg, req.RecordedAt)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, bw)
}

type setHeightRequest struct {
	HeightCm float64 `json:"height_cm"`
}

func (app *application) heightPUT(w http.ResponseWriter, r *http.Request) {
	var req setHeightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := app.workoutService.SetHeight(r.Context(), req.HeightCm); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) bodyTrendGET(w http.ResponseWriter, r *http.Request) {
	tf, err := stats.ParseBodyTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	trend, err := app.workoutService.BodyTrend(r.Context(), tf)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, trend)
}
