package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/liftcoach/internal/ai"
	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/stats"
	"github.com/myrjola/liftcoach/internal/workout"
)

const maxRequestBodyBytes = 1 << 20

var errBadRequest = errors.NewSentinel("bad request")

type errorBody struct {
	Error string `json:"error"`
	// TraceID is set for server errors so that they can be found in the logs.
	TraceID string `json:"trace_id,omitempty"`
}

// writeJSON writes v with the given status. Encoding errors are logged because the header is already sent.
func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to write response", errors.SlogError(err))
	}
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	app.writeJSON(w, r, status, errorBody{Error: msg, TraceID: ""})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError, errorBody{
		Error:   http.StatusText(http.StatusInternalServerError),
		TraceID: contexthelpers.TraceID(r.Context()),
	})
}

// errorStatus maps domain errors to HTTP statuses. Zero means an unexpected error.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, workout.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workout.ErrNotOwned):
		return http.StatusForbidden
	case errors.Is(err, workout.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, workout.ErrValidation),
		errors.Is(err, stats.ErrUnknownTimeframe),
		errors.Is(err, ai.ErrInvalidRequest),
		errors.Is(err, ai.ErrNoCandidates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrEmbedding), errors.Is(err, ai.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, ai.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return 0
	}
}

// handleError responds with the status matching err. Client errors echo the error message; provider failures and
// unexpected errors are logged and answered with the status text only.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch {
	case status == 0:
		app.serverError(w, r, err)
	case status >= http.StatusInternalServerError:
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "upstream error", errors.SlogError(err))
		app.writeError(w, r, status, http.StatusText(status))
	default:
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "client error", errors.SlogError(err))
		app.writeError(w, r, status, err.Error())
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errBadRequest, "invalid JSON body: "+err.Error())
	}
	if dec.More() {
		return errors.Wrap(errBadRequest, "request body must contain a single JSON value")
	}
	return nil
}

// pathID parses the named path parameter as a positive ID.
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, errors.Wrap(workout.ErrNotFound, "invalid "+name, slog.String(name, r.PathValue(name)))
	}
	return id, nil
}

// queryInt parses an optional integer query parameter. A missing parameter returns nil.
func queryInt(r *http.Request, name string) (*int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil //nolint:nilnil // absence is not an error.
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.Wrap(errBadRequest, "invalid "+name, slog.String(name, s))
	}
	return &v, nil
}
