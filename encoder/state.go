package encoder

import "fmt"

// State tracks a job through the two passes.
type State int

const (
	StateIdle State = iota
	StatePaletteGenerating
	StatePaletteReady
	StateEncoding
	StateDone
	StateFailed
)

var stateNames = [...]string{"idle", "palette-generating", "palette-ready", "encoding", "done", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:              {StatePaletteGenerating},
	StatePaletteGenerating: {StatePaletteReady, StateFailed},
	StatePaletteReady:      {StateEncoding},
	StateEncoding:          {StateDone, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
