package pipeline

// State is a step of the per-submission state machine.
type State string

const (
	AwaitingSubmission State = "AwaitingSubmission"
	Validating         State = "Validating"
	Preprocessing      State = "Preprocessing"
	Classifying        State = "Classifying"
	Persisting         State = "Persisting"
	Complete           State = "Complete"
	Rejected           State = "Rejected"
	Failed             State = "Failed"
)

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == Complete || s == Rejected || s == Failed
}

var transitions = map[State][]State{
	AwaitingSubmission: {Validating},
	Validating:         {Preprocessing, Rejected},
	Preprocessing:      {Classifying, Failed},
	Classifying:        {Persisting, Failed},
	Persisting:         {Complete},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
