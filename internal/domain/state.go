package domain

// transitionAllowed is the single guard behind every state machine in the
// domain. Each machine declares a closed table from current state to the
// set of reachable states; terminal states simply have no entry.
func transitionAllowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
