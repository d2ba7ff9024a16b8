package shared

// State is the constraint satisfied by every entity family's state enum.
type State interface {
	~string
}

// Transitions is a per-family transition table keyed by current state.
// A transition absent from the table is illegal.
type Transitions[S State] map[S][]S

// Allowed reports whether moving from one state to another is legal.
func (t Transitions[S]) Allowed(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a state has no outgoing transitions.
func (t Transitions[S]) Terminal(s S) bool {
	return len(t[s]) == 0
}

// Contains reports whether the state appears in the set.
func Contains[S State](set []S, s S) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
