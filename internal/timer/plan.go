package timer

import "time"

// Kind of a phase.
type Kind int

const (
	Study Kind = iota
	Break
)

func (k Kind) String() string {
	if k == Break {
		return "Break"
	}
	return "Study"
}

// Phase is one countdown in a plan. Repetition is 1-based and shared by a
// study phase and the break that follows it.
type Phase struct {
	Kind       Kind
	Repetition int
	Length     time.Duration
}

// Plan lays out study phases with a break between consecutive repetitions
// and none after the last. repetitions == 0 means open-ended.
type Plan struct {
	Study       time.Duration
	Break       time.Duration
	Repetitions int
}

// Phase returns the i-th phase (0-based) and whether it exists.
func (p Plan) Phase(i int) (Phase, bool) {
	if i < 0 {
		return Phase{}, false
	}
	step := 2
	if p.Break <= 0 {
		step = 1
	}
	rep := i/step + 1
	if p.Repetitions > 0 && rep > p.Repetitions {
		return Phase{}, false
	}
	if step == 2 && i%2 == 1 {
		if p.Repetitions > 0 && rep == p.Repetitions {
			return Phase{}, false
		}
		return Phase{Kind: Break, Repetition: rep, Length: p.Break}, true
	}
	return Phase{Kind: Study, Repetition: rep, Length: p.Study}, true
}

// Len is the number of phases, or -1 for an open-ended plan.
func (p Plan) Len() int {
	if p.Repetitions == 0 {
		return -1
	}
	if p.Break <= 0 {
		return p.Repetitions
	}
	return 2*p.Repetitions - 1
}
