package domain

// DebounceState is the persisted per-target record.
type DebounceState struct {
	ConsecutiveFailures int  `json:"failures"`
	AlertedDown         bool `json:"notified_down"`
	AlertedUp           bool `json:"notified_up"`
}

// Normalize clamps a state read from storage back into its valid range.
// A down flag wins over an up flag when both are set.
func (s DebounceState) Normalize(threshold int) DebounceState {
	if s.ConsecutiveFailures < 0 {
		s.ConsecutiveFailures = 0
	}
	if threshold > 0 && s.ConsecutiveFailures > threshold {
		s.ConsecutiveFailures = threshold
	}
	if s.AlertedDown && s.AlertedUp {
		s.AlertedUp = false
	}
	return s
}

// States maps each target to its debounce state.
type States map[TargetID]DebounceState

// Get returns the stored state, or the zero state on first observation.
func (s States) Get(id TargetID) DebounceState {
	if s == nil {
		return DebounceState{}
	}
	return s[id]
}

// Clone returns a copy that can be mutated without touching s.
func (s States) Clone() States {
	out := make(States, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Prune drops ids that are not in keep and returns how many were removed.
func (s States) Prune(keep []Target) int {
	live := make(map[TargetID]struct{}, len(keep))
	for _, t := range keep {
		live[t.ID] = struct{}{}
	}
	n := 0
	for id := range s {
		if _, ok := live[id]; !ok {
			delete(s, id)
			n++
		}
	}
	return n
}
