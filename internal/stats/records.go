package stats

// RecordType names the kind of personal record.
type RecordType string

const (
	RecordMaxWeight    RecordType = "max_weight"
	RecordMaxReps      RecordType = "max_reps"
	RecordMaxVolume    RecordType = "max_volume"
	RecordEstimated1RM RecordType = "estimated_1rm"
)

// RecordTypes lists every record type in detection order.
var RecordTypes = []RecordType{RecordMaxWeight, RecordMaxReps, RecordMaxVolume, RecordEstimated1RM}

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	for _, rt := range RecordTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// SetPerformance is a single logged set. Only completed sets count towards statistics.
type SetPerformance struct {
	WeightKg  float64
	Reps      int
	Completed bool
}

// Volume is weight times reps.
func (s SetPerformance) Volume() float64 {
	return s.WeightKg * float64(s.Reps)
}

// SessionBests summarises the completed sets of one exercise within one workout.
type SessionBests struct {
	MaxWeight float64
	// RepsAtMaxWeight is the rep count of the first completed set reaching MaxWeight.
	RepsAtMaxWeight int
	MaxReps         int
	Volume          float64
	Estimated1RM    float64
	// RepsAtEstimated1RM is the rep count of the first set producing the best estimate.
	RepsAtEstimated1RM int
	CompletedSets      int
}

// ComputeSessionBests folds the completed sets. It reports false when no set is completed.
func ComputeSessionBests(sets []SetPerformance) (SessionBests, bool) {
	var (
		bests SessionBests
		found bool
	)
	for _, s := range sets {
		if !s.Completed {
			continue
		}
		oneRM := EstimateOneRepMax(s.WeightKg, s.Reps)
		if !found || s.WeightKg > bests.MaxWeight {
			bests.MaxWeight = s.WeightKg
			bests.RepsAtMaxWeight = s.Reps
		}
		if !found || oneRM > bests.Estimated1RM {
			bests.Estimated1RM = oneRM
			bests.RepsAtEstimated1RM = s.Reps
		}
		bests.MaxReps = max(bests.MaxReps, s.Reps)
		bests.Volume += s.Volume()
		bests.CompletedSets++
		found = true
	}
	bests.Volume = round(bests.Volume, 2)
	return bests, found
}

// RecordCandidate is a session value that beats the stored best for its type.
type RecordCandidate struct {
	Type  RecordType
	Value float64
	// Reps is set for weight based records.
	Reps *int
}

// DetectRecords compares the session against the user's existing bests for one exercise.
//
// A value is a record when it is positive and strictly greater than the existing best. A missing entry in
// existingBests means no record of that type has been set yet.
func DetectRecords(sets []SetPerformance, existingBests map[RecordType]float64) []RecordCandidate {
	bests, ok := ComputeSessionBests(sets)
	if !ok {
		return nil
	}

	repsAtMax := bests.RepsAtMaxWeight
	repsAt1RM := bests.RepsAtEstimated1RM
	session := []RecordCandidate{
		{Type: RecordMaxWeight, Value: bests.MaxWeight, Reps: &repsAtMax},
		{Type: RecordMaxReps, Value: float64(bests.MaxReps), Reps: nil},
		{Type: RecordMaxVolume, Value: bests.Volume, Reps: nil},
		{Type: RecordEstimated1RM, Value: bests.Estimated1RM, Reps: &repsAt1RM},
	}

	var records []RecordCandidate
	for _, c := range session {
		if c.Value <= 0 {
			continue
		}
		if existing, ok := existingBests[c.Type]; ok && c.Value <= existing {
			continue
		}
		records = append(records, c)
	}
	return records
}
