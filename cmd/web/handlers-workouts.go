package main

import (
	"net/http"

	"github.com/myrjola/liftcoach/internal/ptr"
	"github.com/myrjola/liftcoach/internal/workout"
)

type startWorkoutRequest struct {
	Name string `json:"name"`
}

func (app *application) workoutsPOST(w http.ResponseWriter, r *http.Request) {
	var req startWorkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	wo, err := app.workoutService.StartWorkout(r.Context(), req.Name)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, wo)
}

func (app *application) workoutsGET(w http.ResponseWriter, r *http.Request) {
	var status *workout.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := workout.Status(s)
		status = &st
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	workouts, err := app.workoutService.ListWorkouts(r.Context(), status, ptr.Deref(limit, 0))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, workouts)
}

func (app *application) workoutGET(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	wo, err := app.workoutService.GetWorkout(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, wo)
}

type addExerciseRequest struct {
	ExerciseID int `json:"exercise_id"`
}

func (app *application) workoutExercisesPOST(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	var req addExerciseRequest
	if err = decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	we, err := app.workoutService.AddExercise(r.Context(), id, req.ExerciseID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, we)
}

type logSetRequest struct {
	SetNumber *int     `json:"set_number"`
	WeightKg  float64  `json:"weight_kg"`
	Reps      int      `json:"reps"`
	RPE       *float64 `json:"rpe"`
	Completed bool     `json:"completed"`
}

func (app *application) workoutSetsPOST(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	workoutExerciseID, err := pathID(r, "workoutExerciseID")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	var req logSetRequest
	if err = decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	set, err := app.workoutService.LogSet(r.Context(), id, workoutExerciseID, workout.SetInput{
		SetNumber: req.SetNumber,
		WeightKg:  req.WeightKg,
		Reps:      req.Reps,
		RPE:       req.RPE,
		Completed: req.Completed,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, set)
}

func (app *application) workoutCompletePOST(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	result, err := app.workoutService.CompleteWorkout(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}

func (app *application) workoutCancelPOST(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.workoutService.CancelWorkout(r.Context(), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) exercisesGET(w http.ResponseWriter, r *http.Request) {
	exercises, err := app.workoutService.ListExercises(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, exercises)
}

func (app *application) personalRecordsGET(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := queryInt(r, "exercise_id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	records, err := app.workoutService.ListPersonalRecords(r.Context(), exerciseID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, records)
}

func (app *application) personalRecordHistoryGET(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := pathID(r, "exerciseID")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	records, err := app.workoutService.PersonalRecordHistory(r.Context(), exerciseID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, records)
}
