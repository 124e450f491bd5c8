package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new course offering.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	query := `
		INSERT INTO courses (
			code, name, credits, capacity, enrolled, instructor, prerequisites,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		string(c.Code),
		c.Name,
		c.Credits,
		c.Capacity,
		c.Enrolled,
		c.Instructor,
		c.Prerequisites,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return course.ErrCourseAlreadyExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// FindByCode returns a course by its code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*course.Course, error) {
	query := `
		SELECT code, name, credits, capacity, enrolled, instructor, prerequisites,
			   created_at, updated_at
		FROM courses
		WHERE code = $1
	`

	row := r.conn.QueryRow(ctx, query, normalizeCode(code))
	return r.scanCourse(row)
}

// Update persists the full course state, including the enrolled count.
// The valid_enrolled check constraint rejects counts outside [0, capacity].
func (r *CourseRepository) Update(ctx context.Context, c *course.Course) error {
	query := `
		UPDATE courses SET
			name = $1,
			credits = $2,
			capacity = $3,
			enrolled = $4,
			instructor = $5,
			prerequisites = $6,
			updated_at = $7
		WHERE code = $8
	`

	result, err := r.conn.Exec(ctx, query,
		c.Name,
		c.Credits,
		c.Capacity,
		c.Enrolled,
		c.Instructor,
		c.Prerequisites,
		time.Now().UTC(),
		string(c.Code),
	)
	if err != nil {
		if IsCheckViolation(err) {
			return course.ErrEnrolledOutOfRange
		}
		return fmt.Errorf("failed to update course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return course.ErrCourseNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Prerequisites
// ─────────────────────────────────────────────────────────────────────────────

// GetPrerequisites returns the prerequisite codes of a course.
func (r *CourseRepository) GetPrerequisites(ctx context.Context, code string) ([]string, error) {
	var prerequisites []string
	err := r.conn.QueryRow(ctx,
		"SELECT prerequisites FROM courses WHERE code = $1",
		normalizeCode(code),
	).Scan(&prerequisites)

	if IsNoRows(err) {
		return nil, course.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prerequisites: %w", err)
	}

	return prerequisites, nil
}

// IsPrerequisiteSatisfied checks whether the student has passed every
// prerequisite of the course. A course without prerequisites is always
// satisfied.
func (r *CourseRepository) IsPrerequisiteSatisfied(ctx context.Context, studentID, code string) (bool, error) {
	prerequisites, err := r.GetPrerequisites(ctx, code)
	if err != nil {
		return false, err
	}

	if len(prerequisites) == 0 {
		return true, nil
	}

	var completed int
	err = r.conn.QueryRow(ctx,
		`SELECT COUNT(DISTINCT course_code) FROM completions
		 WHERE student_id = $1 AND course_code = ANY($2)`,
		studentID,
		prerequisites,
	).Scan(&completed)
	if err != nil {
		return false, fmt.Errorf("failed to check prerequisites: %w", err)
	}

	return completed == len(prerequisites), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetAll returns all courses with pagination, ordered by code.
func (r *CourseRepository) GetAll(ctx context.Context, opts course.ListOptions) ([]*course.Course, error) {
	query := `
		SELECT code, name, credits, capacity, enrolled, instructor, prerequisites,
			   created_at, updated_at
		FROM courses
		ORDER BY code ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	return r.scanCourses(rows)
}

// Count returns the total number of course offerings.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM courses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Existence Checks
// ─────────────────────────────────────────────────────────────────────────────

// Exists checks if a course exists by code.
func (r *CourseRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM courses WHERE code = $1)",
		normalizeCode(code),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check course existence: %w", err)
	}
	return exists, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanCourse scans a single course from a row.
func (r *CourseRepository) scanCourse(row pgx.Row) (*course.Course, error) {
	var c course.Course
	var code string
	var prerequisites []string

	err := row.Scan(
		&code,
		&c.Name,
		&c.Credits,
		&c.Capacity,
		&c.Enrolled,
		&c.Instructor,
		&prerequisites,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, course.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	c.Code = course.Code(code)
	c.Prerequisites = prerequisites

	return &c, nil
}

// scanCourses scans multiple courses from rows.
func (r *CourseRepository) scanCourses(rows pgx.Rows) ([]*course.Course, error) {
	var courses []*course.Course

	for rows.Next() {
		var c course.Course
		var code string
		var prerequisites []string

		err := rows.Scan(
			&code,
			&c.Name,
			&c.Credits,
			&c.Capacity,
			&c.Enrolled,
			&c.Instructor,
			&prerequisites,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}

		c.Code = course.Code(code)
		c.Prerequisites = prerequisites

		courses = append(courses, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return courses, nil
}

// normalizeCode uppercases and trims a course code before it is used as a key.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
