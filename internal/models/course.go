package models

import "time"

// Course represents a course/grade group students belong to.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject represents an academic subject.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseSubject binds a subject to a course; teaching loads and documents
// reference the pair rather than the two rows separately.
type CourseSubject struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseSubjectDetail enriches the pair with display names.
type CourseSubjectDetail struct {
	CourseSubject
	CourseName  string `db:"course_name" json:"course_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}
