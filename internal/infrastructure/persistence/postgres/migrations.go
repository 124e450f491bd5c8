package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students table
-- Version: 001

-- Mahasiswa aktif dan riwayat statusnya. NIM adalah kunci alami.
CREATE TABLE IF NOT EXISTS students (
    nim VARCHAR(12) PRIMARY KEY,
    full_name VARCHAR(150) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    program VARCHAR(100) NOT NULL,
    term_number INTEGER NOT NULL DEFAULT 1,
    ipk DECIMAL(3,2) NOT NULL DEFAULT 0.00,
    status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Constraints for data integrity
    CONSTRAINT valid_nim CHECK (nim ~ '^[0-9]{8,12}$'),
    CONSTRAINT valid_status CHECK (status IN ('ACTIVE', 'SUSPENDED', 'LEAVE', 'GRADUATED')),
    CONSTRAINT valid_term CHECK (term_number >= 1 AND term_number <= 14),
    CONSTRAINT valid_ipk CHECK (ipk >= 0.00 AND ipk <= 4.00)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_students_status ON students(status);
CREATE INDEX IF NOT EXISTS idx_students_program ON students(program);
CREATE INDEX IF NOT EXISTS idx_students_email ON students(email);

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_students_updated_at ON students;
CREATE TRIGGER update_students_updated_at
    BEFORE UPDATE ON students
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_students_updated_at ON students;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE COURSES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create courses table
-- Version: 002

-- Penawaran mata kuliah semester berjalan. Kode mata kuliah adalah kunci.
CREATE TABLE IF NOT EXISTS courses (
    code VARCHAR(10) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    credits INTEGER NOT NULL,
    capacity INTEGER NOT NULL,
    enrolled INTEGER NOT NULL DEFAULT 0,
    instructor VARCHAR(150) NOT NULL,
    prerequisites TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_code CHECK (code ~ '^[A-Z]{2,6}[0-9]{3,4}$'),
    CONSTRAINT valid_credits CHECK (credits >= 1 AND credits <= 6),
    CONSTRAINT valid_capacity CHECK (capacity >= 0),
    -- Jumlah terdaftar tidak pernah negatif dan tidak melampaui kapasitas
    CONSTRAINT valid_enrolled CHECK (enrolled >= 0 AND enrolled <= capacity)
);

CREATE INDEX IF NOT EXISTS idx_courses_name ON courses(name);

-- Partial index untuk pencarian kelas yang masih terbuka
CREATE INDEX IF NOT EXISTS idx_courses_open ON courses(code) WHERE enrolled < capacity;

DROP TRIGGER IF EXISTS update_courses_updated_at ON courses;
CREATE TRIGGER update_courses_updated_at
    BEFORE UPDATE ON courses
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration002Down = `
DROP TRIGGER IF EXISTS update_courses_updated_at ON courses;
DROP TABLE IF EXISTS courses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ENROLLMENT LOG
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create enrollment log table
-- Version: 003

-- Jejak audit append-only untuk setiap perubahan kursi yang berhasil.
CREATE TABLE IF NOT EXISTS enrollment_log (
    id BIGSERIAL PRIMARY KEY,
    action VARCHAR(10) NOT NULL,
    student_id VARCHAR(12) NOT NULL REFERENCES students(nim) ON DELETE CASCADE,
    course_code VARCHAR(10) NOT NULL REFERENCES courses(code) ON DELETE CASCADE,
    seats_after INTEGER NOT NULL,
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_action CHECK (action IN ('ENROLLED', 'DROPPED')),
    CONSTRAINT valid_seats_after CHECK (seats_after >= 0)
);

CREATE INDEX IF NOT EXISTS idx_enrollment_log_student ON enrollment_log(student_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_enrollment_log_course ON enrollment_log(course_code, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_enrollment_log_occurred ON enrollment_log(occurred_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS enrollment_log;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE COMPLETIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create completions table
-- Version: 004

-- Transkrip: mata kuliah yang sudah diselesaikan dengan nilai lulus.
-- Menjadi dasar pemeriksaan prasyarat saat pendaftaran.
CREATE TABLE IF NOT EXISTS completions (
    id SERIAL PRIMARY KEY,
    student_id VARCHAR(12) NOT NULL REFERENCES students(nim) ON DELETE CASCADE,
    course_code VARCHAR(10) NOT NULL,
    grade VARCHAR(2) NOT NULL,
    credits INTEGER NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(student_id, course_code),
    CONSTRAINT valid_grade CHECK (grade IN ('A', 'AB', 'B', 'BC', 'C', 'D', 'E')),
    CONSTRAINT valid_completion_credits CHECK (credits >= 1 AND credits <= 6)
);

CREATE INDEX IF NOT EXISTS idx_completions_student ON completions(student_id);
CREATE INDEX IF NOT EXISTS idx_completions_course ON completions(course_code);
`

const migration004Down = `
DROP TABLE IF EXISTS completions;
`

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// allMigrations lists every schema migration. New migrations are appended
// here with the next version number; the migrator applies them in order.
func allMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_students", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_courses", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_enrollment_log", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_completions", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}
