package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a strength and conditioning coach. You design a single workout session using only the ` +
	`exercises you are given. Never invent exercises and never use an exercise ID that is not in the list.`

// retrievalQuery describes the wanted workout in natural language for the embedding search.
func retrievalQuery(req GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s workout for a %s lifter lasting about %d minutes using %s.",
		req.Goal, req.ExperienceLevel, req.DurationMinutes, strings.Join(req.Equipment, ", "))
	if req.Injuries != "" {
		fmt.Fprintf(&b, " Avoid stressing: %s.", req.Injuries)
	}
	if req.Preferences != "" {
		fmt.Fprintf(&b, " Preferences: %s.", req.Preferences)
	}
	return b.String()
}

// generationPrompt enumerates the candidate exercises by ID and states the constraints of the plan.
func generationPrompt(req GenerationRequest, candidates []ScoredExercise) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Design a %d minute workout.\n", req.DurationMinutes)
	fmt.Fprintf(&b, "Goal: %s\nExperience level: %s\nAvailable equipment: %s\n",
		req.Goal, req.ExperienceLevel, strings.Join(req.Equipment, ", "))
	if req.Injuries != "" {
		fmt.Fprintf(&b, "Injuries and limitations: %s\n", req.Injuries)
	}
	if req.Preferences != "" {
		fmt.Fprintf(&b, "Preferences: %s\n", req.Preferences)
	}

	b.WriteString("\nChoose exercises ONLY from this list and refer to them by their ID:\n")
	for _, c := range candidates {
		ex := c.Exercise
		fmt.Fprintf(&b, "- ID %d: %s (%s; primary: %s; equipment: %s)\n",
			ex.ID, ex.Name, ex.Difficulty,
			strings.Join(ex.PrimaryMuscleGroups, ", "), strings.Join(ex.Equipment, ", "))
	}

	b.WriteString(`
Split the session into warmup, main, and cooldown sections. The main section must contain at least one exercise.
For every exercise give the number of sets, the reps as text such as "8-12" or "30 s", the rest between sets in ` +
		`seconds, and short coaching notes. Fit the whole session into the requested duration.`)
	return b.String()
}

// planSchema is the strict JSON schema of the model output. Strict mode requires every property to be listed as
// required and no additional properties.
func planSchema() map[string]any {
	entry := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"exercise_id":  map[string]any{"type": "integer", "description": "ID from the exercise list"},
			"sets":         map[string]any{"type": "integer"},
			"reps":         map[string]any{"type": "string"},
			"rest_seconds": map[string]any{"type": "integer"},
			"notes":        map[string]any{"type": "string"},
		},
		"required":             []string{"exercise_id", "sets", "reps", "rest_seconds", "notes"},
		"additionalProperties": false,
	}
	section := map[string]any{"type": "array", "items": entry}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workout_name": map[string]any{"type": "string"},
			"description":  map[string]any{"type": "string"},
			"warmup":       section,
			"main":         section,
			"cooldown":     section,
		},
		"required":             []string{"workout_name", "description", "warmup", "main", "cooldown"},
		"additionalProperties": false,
	}
}
