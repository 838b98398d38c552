package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerationJob_InProgressStatusByKind(t *testing.T) {
	report, err := NewGenerationJob("j1", "p1", "u1", JobReport, "Market report", testNow)
	require.NoError(t, err)
	assert.Equal(t, JobGenerating, report.Status)
	assert.True(t, report.InProgress())

	plan, err := NewGenerationJob("j2", "p1", "u1", JobBusinessPlan, "Plan", testNow)
	require.NoError(t, err)
	assert.Equal(t, JobDraft, plan.Status)

	_, err = NewGenerationJob("j3", "p1", "u1", "memo", "x", testNow)
	require.ErrorIs(t, err, ErrValidation)
	_, err = NewGenerationJob("", "p1", "u1", JobReport, "x", testNow)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPopulatedSections(t *testing.T) {
	j := &GenerationJob{Sections: []Section{
		{Key: "summary", Content: "text"},
		{Key: "market", Content: "   "},
		{Key: "risks"},
	}}
	assert.Equal(t, 1, j.PopulatedSections())
	assert.Equal(t, 0, CountPopulated(nil))
}
