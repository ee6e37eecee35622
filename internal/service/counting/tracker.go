package counting

import "github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"

// trackState is the accounting for one class. cumulative always equals len(seen).
type trackState struct {
	seen       map[int64]struct{}
	cumulative int
	previous   int
}

// Tracker keeps, per class, every distinct identity seen inside the class region.
// Identities never expire during a run. Not safe for concurrent use; each camera
// worker owns its own tracker.
type Tracker struct {
	states map[model.ClassID]*trackState
}

// NewTracker creates a tracker for the given classes.
func NewTracker(classes []model.ClassID) *Tracker {
	t := &Tracker{states: make(map[model.ClassID]*trackState, len(classes))}
	for _, id := range classes {
		t.states[id] = &trackState{seen: make(map[int64]struct{})}
	}
	return t
}

// Observe records an in-region identity for a class. Untracked detections (nil id)
// and classes that are not tracked are ignored. Returns true if the identity is new.
func (t *Tracker) Observe(class model.ClassID, trackID *int64) bool {
	if trackID == nil {
		return false
	}
	st, ok := t.states[class]
	if !ok {
		return false
	}
	if _, dup := st.seen[*trackID]; dup {
		return false
	}
	st.seen[*trackID] = struct{}{}
	st.cumulative = len(st.seen)
	return true
}

// Total returns the cumulative unique count for a class.
func (t *Tracker) Total(class model.ClassID) int {
	if st, ok := t.states[class]; ok {
		return st.cumulative
	}
	return 0
}

// TotalsSnapshot returns a copy of the cumulative count of every tracked class.
func (t *Tracker) TotalsSnapshot() map[model.ClassID]int {
	out := make(map[model.ClassID]int, len(t.states))
	for id, st := range t.states {
		out[id] = st.cumulative
	}
	return out
}

// advance moves the baseline of a class to its current total and returns the delta.
func (t *Tracker) advance(class model.ClassID) int {
	st, ok := t.states[class]
	if !ok {
		return 0
	}
	delta := st.cumulative - st.previous
	st.previous = st.cumulative
	return delta
}
