// Package interview tracks where the guided conversation currently is:
// a coarse stage marker that switches UI surfaces, and the accumulated
// user profile extracted from conversation turns. Both are advisory
// session state driven by model tool calls.
package interview

// Stage is a coarse phase marker for the interview. Transitions are
// triggered by the model and accepted without validation against an
// ordering table: the sequencing discipline lives in prompt design, and
// rejecting an unexpected stage would deadlock the UI on a bad model
// turn.
type Stage string

// The single-pass interview stages.
const (
	StageOutcome     Stage = "outcome"
	StageDataSources Stage = "data_sources"
	StageProcessing  Stage = "processing"
	StageOutputs     Stage = "outputs"
	StageReview      Stage = "review"
	StageComplete    Stage = "complete"
)

// The two-phase (current state vs future state) interview stages, used
// when the richer discovery flow is configured.
const (
	StageCurrentState1 Stage = "current_state_1"
	StageCurrentState2 Stage = "current_state_2"
	StageCurrentState3 Stage = "current_state_3"
	StageCurrentState4 Stage = "current_state_4"
	StageCurrentState5 Stage = "current_state_5"

	StageFutureState1 Stage = "future_state_1"
	StageFutureState2 Stage = "future_state_2"
	StageFutureState3 Stage = "future_state_3"
	StageFutureState4 Stage = "future_state_4"
	StageFutureState5 Stage = "future_state_5"

	StageValidateCurrent Stage = "validate_current"
	StageValidateFuture  Stage = "validate_future"
	StageCompare         Stage = "compare"
	StageRefine          Stage = "refine"
	StageOrchestrate     Stage = "orchestrate"
)

// DefaultStage is where a fresh session starts.
const DefaultStage = StageOutcome

var knownStages = map[Stage]struct{}{
	StageOutcome:     {},
	StageDataSources: {},
	StageProcessing:  {},
	StageOutputs:     {},
	StageReview:      {},
	StageComplete:    {},

	StageCurrentState1: {},
	StageCurrentState2: {},
	StageCurrentState3: {},
	StageCurrentState4: {},
	StageCurrentState5: {},
	StageFutureState1:  {},
	StageFutureState2:  {},
	StageFutureState3:  {},
	StageFutureState4:  {},
	StageFutureState5:  {},

	StageValidateCurrent: {},
	StageValidateFuture:  {},
	StageCompare:         {},
	StageRefine:          {},
	StageOrchestrate:     {},
}

// KnownStage reports whether s is in the recognized stage set. Unknown
// stages are still accepted by the tracker; this exists so callers can
// log them.
func KnownStage(s Stage) bool {
	_, ok := knownStages[s]
	return ok
}
