package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('ADMIN', 'INSTRUCTOR', 'STUDENT')),
	password_hash TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: COURSES AND LESSONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS courses (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL CHECK (status IN ('WAIT', 'STARTED', 'STOP', 'FINISHED')),
	start_date DATE NOT NULL,
	started BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_courses_status ON courses(status);
CREATE INDEX IF NOT EXISTS idx_courses_start_date ON courses(start_date) WHERE NOT started;

CREATE TABLE IF NOT EXISTS lessons (
	id UUID PRIMARY KEY,
	course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	position INTEGER NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	UNIQUE (course_id, position)
);

CREATE INDEX IF NOT EXISTS idx_lessons_course ON lessons(course_id);
`

const migration002Down = `
DROP TABLE IF EXISTS lessons;
DROP TABLE IF EXISTS courses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS enrollments (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	role TEXT NOT NULL CHECK (role IN ('ADMIN', 'INSTRUCTOR', 'STUDENT')),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user ON enrollments(user_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_course_role ON enrollments(course_id, role);
`

const migration003Down = `
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: GRADING
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS homeworks (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
	course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	file_ref TEXT NOT NULL DEFAULT '',
	mark INTEGER CHECK (mark IS NULL OR (mark >= 0 AND mark <= 100)),
	submitted_at TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, lesson_id)
);

CREATE INDEX IF NOT EXISTS idx_homeworks_user_course ON homeworks(user_id, course_id);
CREATE INDEX IF NOT EXISTS idx_homeworks_course ON homeworks(course_id);

CREATE TABLE IF NOT EXISTS course_marks (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	passed BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_course_marks_course ON course_marks(course_id);
`

const migration004Down = `
DROP TABLE IF EXISTS course_marks;
DROP TABLE IF EXISTS homeworks;
`
