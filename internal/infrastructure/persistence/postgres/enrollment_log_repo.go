package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT LOG REPOSITORY IMPLEMENTATION
// Append-only audit trail. Rows are never updated or deleted.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentLogRepository implements enrollment.LogRepository for PostgreSQL.
type EnrollmentLogRepository struct {
	conn *Connection
}

// NewEnrollmentLogRepository creates a new EnrollmentLogRepository.
func NewEnrollmentLogRepository(conn *Connection) *EnrollmentLogRepository {
	return &EnrollmentLogRepository{conn: conn}
}

// defaultLogLimit bounds reads when the caller passes limit <= 0.
const defaultLogLimit = 50

// Append appends one audit row and fills in the generated row ID.
func (r *EnrollmentLogRepository) Append(ctx context.Context, entry *enrollment.LogEntry) error {
	query := `
		INSERT INTO enrollment_log (action, student_id, course_code, seats_after, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.conn.QueryRow(ctx, query,
		string(entry.Action),
		entry.StudentID,
		entry.CourseCode,
		entry.SeatsAfter,
		entry.OccurredAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append enrollment log: %w", err)
	}

	return nil
}

// GetByStudent returns the most recent rows for a student, newest first.
func (r *EnrollmentLogRepository) GetByStudent(ctx context.Context, studentID string, limit int) ([]*enrollment.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	query := `
		SELECT id, action, student_id, course_code, seats_after, occurred_at
		FROM enrollment_log
		WHERE student_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment log by student: %w", err)
	}
	defer rows.Close()

	return r.scanEntries(rows)
}

// GetByCourse returns the most recent rows for a course, newest first.
func (r *EnrollmentLogRepository) GetByCourse(ctx context.Context, courseCode string, limit int) ([]*enrollment.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	query := `
		SELECT id, action, student_id, course_code, seats_after, occurred_at
		FROM enrollment_log
		WHERE course_code = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, courseCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment log by course: %w", err)
	}
	defer rows.Close()

	return r.scanEntries(rows)
}

// GetBetween returns all rows within the time range, oldest first.
func (r *EnrollmentLogRepository) GetBetween(ctx context.Context, from, to time.Time) ([]*enrollment.LogEntry, error) {
	query := `
		SELECT id, action, student_id, course_code, seats_after, occurred_at
		FROM enrollment_log
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment log by range: %w", err)
	}
	defer rows.Close()

	return r.scanEntries(rows)
}

// NetCounts computes ENROLLED minus DROPPED per course over the whole log.
// Negative nets are clamped to zero.
func (r *EnrollmentLogRepository) NetCounts(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT course_code,
			   SUM(CASE WHEN action = 'ENROLLED' THEN 1 ELSE -1 END) AS net
		FROM enrollment_log
		GROUP BY course_code
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to compute net counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var net int

		if err := rows.Scan(&code, &net); err != nil {
			return nil, fmt.Errorf("failed to scan net count: %w", err)
		}

		if net < 0 {
			net = 0
		}
		counts[code] = net
	}

	return counts, rows.Err()
}

// CountBetween counts rows per action within the time range.
func (r *EnrollmentLogRepository) CountBetween(ctx context.Context, from, to time.Time) (map[enrollment.Action]int, error) {
	query := `
		SELECT action, COUNT(*)
		FROM enrollment_log
		WHERE occurred_at >= $1 AND occurred_at < $2
		GROUP BY action
	`

	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollment log by action: %w", err)
	}
	defer rows.Close()

	counts := make(map[enrollment.Action]int)
	for rows.Next() {
		var action string
		var count int

		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}

		counts[enrollment.Action(action)] = count
	}

	return counts, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanEntries scans log entries from rows.
func (r *EnrollmentLogRepository) scanEntries(rows pgx.Rows) ([]*enrollment.LogEntry, error) {
	var entries []*enrollment.LogEntry

	for rows.Next() {
		var entry enrollment.LogEntry
		var action string

		err := rows.Scan(
			&entry.ID,
			&action,
			&entry.StudentID,
			&entry.CourseCode,
			&entry.SeatsAfter,
			&entry.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment log entry: %w", err)
		}

		entry.Action = enrollment.Action(action)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
