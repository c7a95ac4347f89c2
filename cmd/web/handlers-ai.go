package main

import (
	"net/http"

	"github.com/myrjola/liftcoach/internal/ai"
	"github.com/myrjola/liftcoach/internal/errors"
)

func (app *application) generateWorkoutPOST(w http.ResponseWriter, r *http.Request) {
	if app.generator == nil {
		app.handleError(w, r, errors.Wrap(ai.ErrConfiguration, "workout generation is not configured"))
		return
	}
	var req ai.GenerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	plan, err := app.generator.Generate(r.Context(), req)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, plan)
}
