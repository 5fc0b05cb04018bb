package session

import (
	"errors"
	"fmt"
)

// Stage is a phase of the session lifecycle.
type Stage string

const (
	StageLanding  Stage = "landing"
	StageInput    Stage = "input"
	StageLoading  Stage = "loading"
	StageAnalysis Stage = "analysis"
)

// Event drives Transition.
type Event string

const (
	EventBegin          Event = "begin"
	EventSubmit         Event = "submit"
	EventScoreSucceeded Event = "score_succeeded"
	EventScoreFailed    Event = "score_failed"
	EventReset          Event = "reset"
)

var ErrInvalidTransition = errors.New("invalid transition")

// Transition returns the stage that follows stage on event. A failed score
// goes back to input; Reset goes to landing from anywhere.
func Transition(stage Stage, event Event) (Stage, error) {
	if event == EventReset {
		return StageLanding, nil
	}

	switch {
	case stage == StageLanding && event == EventBegin:
		return StageInput, nil
	case stage == StageInput && event == EventSubmit:
		return StageLoading, nil
	case stage == StageLoading && event == EventScoreSucceeded:
		return StageAnalysis, nil
	case stage == StageLoading && event == EventScoreFailed:
		return StageInput, nil
	}

	return stage, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, stage)
}
