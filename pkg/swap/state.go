package swap

// State is a step of the orchestration state machine
type State int

const (
	StateIdle State = iota
	StateQuoting
	StateValidating
	StateRejected
	StateExecuting
	StateSucceeded
	StateFailed
	StateAudited
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateQuoting:    "quoting",
	StateValidating: "validating",
	StateRejected:   "rejected",
	StateExecuting:  "executing",
	StateSucceeded:  "succeeded",
	StateFailed:     "failed",
	StateAudited:    "audited",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions lists the legal successors of each state
var transitions = map[State][]State{
	StateIdle:       {StateQuoting},
	StateQuoting:    {StateValidating, StateRejected},
	StateValidating: {StateRejected, StateExecuting},
	StateExecuting:  {StateSucceeded, StateFailed},
	StateRejected:   {StateAudited},
	StateSucceeded:  {StateAudited},
	StateFailed:     {StateAudited},
}

// CanTransition reports whether to may follow from
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s State) IsTerminal() bool {
	return s == StateAudited
}
