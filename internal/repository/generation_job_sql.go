package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
)

const jobColumns = `id, project_id, user_id, kind, title, status, sections, error_reason,
	completed_at, auto_recovered_at, created_at, updated_at`

// inProgressStatuses is the SQL list of statuses a job can still be written in.
const inProgressStatuses = `('generating','draft')`

// jobDialect holds what differs between the SQLite and Postgres job stores.
// hasContent must be true exactly when some section has non-blank content;
// it reads the sections payload itself, since the generator writes that
// column directly.
type jobDialect struct {
	placeholder func(n int) string
	timeArg     func(time.Time) any
	hasContent  string
}

var sqliteJobDialect = jobDialect{
	placeholder: func(int) string { return "?" },
	timeArg:     func(t time.Time) any { return formatTime(t) },
	hasContent: `(CASE WHEN NOT json_valid(sections) THEN 0
		WHEN json_type(sections) = 'array' THEN EXISTS (
		SELECT 1 FROM json_each(sections)
		WHERE type = 'object'
		  AND trim(coalesce(json_extract(value, '$.content'), ''), ' ' || char(9, 10, 13)) <> ''
	) ELSE 0 END)`,
}

var postgresJobDialect = jobDialect{
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	timeArg:     func(t time.Time) any { return t.UTC() },
	hasContent: `(CASE WHEN jsonb_typeof(sections) = 'array' THEN EXISTS (
		SELECT 1 FROM jsonb_array_elements(sections) AS s
		WHERE btrim(coalesce(s->>'content', ''), E' \t\n\r') <> ''
	) ELSE false END)`,
}

// buildBulkTransition renders one filtered UPDATE. The filter is repeated in
// the WHERE clause of the same statement, so a row that leaves the filtered
// status or gains content between a caller's read and this write is judged
// on its current state.
func buildBulkTransition(f domain.JobFilter, tr domain.JobTransition, d jobDialect) (string, []any, error) {
	if !f.Kind.Valid() {
		return "", nil, fmt.Errorf("%w: unknown job kind %q", domain.ErrValidation, f.Kind)
	}
	if f.Status == "" || tr.Status == "" {
		return "", nil, fmt.Errorf("%w: filter and transition status are required", domain.ErrValidation)
	}
	if tr.UpdatedAt.IsZero() {
		return "", nil, fmt.Errorf("%w: transition updated_at is required", domain.ErrValidation)
	}

	var args []any
	bind := func(expr string, v any) string {
		args = append(args, v)
		return fmt.Sprintf(expr, d.placeholder(len(args)))
	}

	sets := []string{
		bind("status = %s", string(tr.Status)),
		bind("updated_at = %s", d.timeArg(tr.UpdatedAt)),
	}
	if tr.ErrorReason != nil {
		sets = append(sets, bind("error_reason = %s", *tr.ErrorReason))
	}
	if tr.CompletedAt != nil {
		sets = append(sets, bind("completed_at = %s", d.timeArg(*tr.CompletedAt)))
	}
	if tr.AutoRecoveredAt != nil {
		sets = append(sets, bind("auto_recovered_at = %s", d.timeArg(*tr.AutoRecoveredAt)))
	}

	where := []string{
		bind("kind = %s", string(f.Kind)),
		bind("status = %s", string(f.Status)),
	}
	if !f.UpdatedBefore.IsZero() {
		where = append(where, bind("updated_at < %s", d.timeArg(f.UpdatedBefore)))
	}
	switch f.Content {
	case domain.ContentPresent:
		where = append(where, d.hasContent)
	case domain.ContentAbsent:
		where = append(where, "NOT "+d.hasContent)
	}

	query := "UPDATE generation_jobs SET " + strings.Join(sets, ", ") +
		" WHERE " + strings.Join(where, " AND ")
	return query, args, nil
}
