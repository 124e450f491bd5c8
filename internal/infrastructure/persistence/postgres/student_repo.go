package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// StudentRepository implements student.Repository on the students table.
// Rows live as long as the student; the service never deletes them.
type StudentRepository struct {
	conn *Connection
}

func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `nim, full_name, email, program, term_number, ipk, status,
	created_at, updated_at`

// Create inserts a newly registered student. The NIM is the primary key,
// so re-registering surfaces as student.ErrStudentAlreadyExists.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(s.NIM),
		s.FullName,
		string(s.Email),
		s.Program,
		s.TermNumber,
		s.IPK.Float64(),
		string(s.Status),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// FindByID returns the student with the given NIM, or
// student.ErrStudentNotFound.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*student.Student, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE nim = $1`, id)
	return scanStudent(row)
}

// Exists reports whether a student with the given NIM is registered.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM students WHERE nim = $1)", id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return exists, nil
}

func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s                 student.Student
		nim, email, state string
		ipk               float64
	)

	err := row.Scan(
		&nim,
		&s.FullName,
		&email,
		&s.Program,
		&s.TermNumber,
		&ipk,
		&state,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, student.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.NIM = student.NIM(nim)
	s.Email = student.Email(email)
	s.IPK = student.IPK(ipk)
	s.Status = student.Status(state)
	return &s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transcript
// ─────────────────────────────────────────────────────────────────────────────

// TranscriptRepository implements student.TranscriptRepository on the
// append-only completions table.
type TranscriptRepository struct {
	conn *Connection
}

func NewTranscriptRepository(conn *Connection) *TranscriptRepository {
	return &TranscriptRepository{conn: conn}
}

// SaveCompletion records a passed course. The (student, course) pair is
// unique; recording the same pass twice surfaces as
// student.ErrCompletionAlreadyExists.
func (r *TranscriptRepository) SaveCompletion(ctx context.Context, c *student.Completion) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO completions (student_id, course_code, grade, credits, completed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(c.StudentID),
		c.CourseCode,
		c.Grade,
		c.Credits,
		c.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrCompletionAlreadyExists
		}
		if IsForeignKeyViolation(err) {
			return student.ErrStudentNotFound
		}
		return fmt.Errorf("failed to save completion: %w", err)
	}
	return nil
}

// GetTranscript returns every completion of a student in the order the
// passes were recorded.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, studentID string) (student.Transcript, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT student_id, course_code, grade, credits, completed_at
		FROM completions
		WHERE student_id = $1
		ORDER BY completed_at ASC, id ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	defer rows.Close()

	var transcript student.Transcript
	for rows.Next() {
		var (
			c   student.Completion
			sid string
		)
		if err := rows.Scan(&sid, &c.CourseCode, &c.Grade, &c.Credits, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		c.StudentID = student.NIM(sid)
		transcript = append(transcript, &c)
	}
	return transcript, rows.Err()
}

// HasCompleted reports whether the student has passed the course. The
// code is normalized the way the catalog stores it.
func (r *TranscriptRepository) HasCompleted(ctx context.Context, studentID, courseCode string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM completions WHERE student_id = $1 AND course_code = $2)",
		studentID,
		strings.ToUpper(strings.TrimSpace(courseCode)),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}
	return exists, nil
}
