package repository

import (
	"testing"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBulkTransition_Postgres(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	cutoff := now.Add(-time.Hour)
	reason := domain.AutoFailReason

	query, args, err := buildBulkTransition(
		domain.JobFilter{Kind: domain.JobReport, Status: domain.JobGenerating, UpdatedBefore: cutoff, Content: domain.ContentAbsent},
		domain.JobTransition{Status: domain.JobFailed, ErrorReason: &reason, AutoRecoveredAt: &now, UpdatedAt: now},
		postgresJobDialect,
	)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE generation_jobs SET status = $1, updated_at = $2, error_reason = $3, auto_recovered_at = $4"+
			" WHERE kind = $5 AND status = $6 AND updated_at < $7 AND NOT "+postgresJobDialect.hasContent,
		query)
	assert.Equal(t, []any{"failed", now, reason, now, "report", "generating", cutoff}, args)
}

func TestBuildBulkTransition_SQLiteWithoutCutoff(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	query, args, err := buildBulkTransition(
		domain.JobFilter{Kind: domain.JobBusinessPlan, Status: domain.JobDraft, Content: domain.ContentPresent},
		domain.JobTransition{Status: domain.JobCompleted, CompletedAt: &now, UpdatedAt: now},
		sqliteJobDialect,
	)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE generation_jobs SET status = ?, updated_at = ?, completed_at = ?"+
			" WHERE kind = ? AND status = ? AND "+sqliteJobDialect.hasContent,
		query)
	assert.Equal(t, []any{"completed", formatTime(now), formatTime(now), "business_plan", "draft"}, args)
}

func TestBuildBulkTransition_Validation(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		f    domain.JobFilter
		tr   domain.JobTransition
	}{
		{"unknown kind", domain.JobFilter{Kind: "memo", Status: domain.JobDraft}, domain.JobTransition{Status: domain.JobFailed, UpdatedAt: now}},
		{"no filter status", domain.JobFilter{Kind: domain.JobReport}, domain.JobTransition{Status: domain.JobFailed, UpdatedAt: now}},
		{"no target status", domain.JobFilter{Kind: domain.JobReport, Status: domain.JobGenerating}, domain.JobTransition{UpdatedAt: now}},
		{"no updated_at", domain.JobFilter{Kind: domain.JobReport, Status: domain.JobGenerating}, domain.JobTransition{Status: domain.JobFailed}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := buildBulkTransition(tc.f, tc.tr, sqliteJobDialect)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestBuildBulkTransition_AnyContentAddsNoPredicate(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	query, _, err := buildBulkTransition(
		domain.JobFilter{Kind: domain.JobReport, Status: domain.JobGenerating},
		domain.JobTransition{Status: domain.JobFailed, UpdatedAt: now},
		sqliteJobDialect,
	)
	require.NoError(t, err)
	assert.NotContains(t, query, "sections")
}
