package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTrackerDefaults(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, StageOutcome, tr.Stage())

	p := tr.Profile()
	assert.Empty(t, p.Name)
	assert.NotNil(t, p.DesiredOutcomes)
	assert.Empty(t, p.DesiredOutcomes)
}

func TestSetStageAcceptsAnything(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
	}{
		{name: "recognized forward", stage: StageDataSources},
		{name: "recognized backward jump", stage: StageOutcome},
		{name: "two-phase variant", stage: StageCurrentState3},
		{name: "terminal", stage: StageComplete},
		{name: "unrecognized", stage: Stage("vibes")},
	}

	tr := NewTracker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr.SetStage(tt.stage)
			assert.Equal(t, tt.stage, tr.Stage())
		})
	}
}

func TestKnownStage(t *testing.T) {
	assert.True(t, KnownStage(StageReview))
	assert.True(t, KnownStage(StageFutureState5))
	assert.True(t, KnownStage(StageOrchestrate))
	assert.False(t, KnownStage(Stage("")))
	assert.False(t, KnownStage(Stage("done")))
}

func TestUpdateProfileLastWriteWins(t *testing.T) {
	tr := NewTracker()

	tr.UpdateProfile(ProfileUpdate{
		Role:         strPtr("Ops Manager"),
		PainPoints:   []string{"manual copying"},
		CurrentTools: []string{"Salesforce"},
	})
	tr.UpdateProfile(ProfileUpdate{
		Role:       strPtr("Operations Manager"),
		PainPoints: []string{"manual copying", "stale reports"},
	})

	p := tr.Profile()
	assert.Equal(t, "Operations Manager", p.Role)
	assert.Equal(t, []string{"manual copying", "stale reports"}, p.PainPoints)
	assert.Equal(t, []string{"Salesforce"}, p.CurrentTools, "untouched fields persist")
}

func TestUpdateProfileNilFieldsUntouched(t *testing.T) {
	tr := NewTracker()
	tr.UpdateProfile(ProfileUpdate{Name: strPtr("Dana"), Department: strPtr("Finance")})
	tr.UpdateProfile(ProfileUpdate{CompanyContext: strPtr("Regional retail chain")})

	p := tr.Profile()
	assert.Equal(t, "Dana", p.Name)
	assert.Equal(t, "Finance", p.Department)
	assert.Equal(t, "Regional retail chain", p.CompanyContext)
}

func TestUpdateProfileListReplacedWholesale(t *testing.T) {
	tr := NewTracker()
	tr.UpdateProfile(ProfileUpdate{DesiredOutcomes: []string{"a", "b", "c"}})
	tr.UpdateProfile(ProfileUpdate{DesiredOutcomes: []string{"b"}})

	p := tr.Profile()
	assert.Equal(t, []string{"b"}, p.DesiredOutcomes, "lists are not merged element-wise")
}

func TestProfileSnapshotIsCopy(t *testing.T) {
	tr := NewTracker()
	tr.UpdateProfile(ProfileUpdate{PainPoints: []string{"x"}})

	p := tr.Profile()
	p.PainPoints[0] = "mutated"
	require.Equal(t, []string{"x"}, tr.Profile().PainPoints)
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.SetStage(StageReview)
	tr.UpdateProfile(ProfileUpdate{Name: strPtr("Dana"), DataSources: []string{"POS"}})

	tr.Reset()
	assert.Equal(t, StageOutcome, tr.Stage())
	p := tr.Profile()
	assert.Empty(t, p.Name)
	assert.Empty(t, p.DataSources)
}
