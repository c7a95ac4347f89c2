package flightrecorder

import "time"

func SetClock(r *Recorder, now func() time.Time) {
	r.now = now
}
