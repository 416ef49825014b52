package models

import "time"

// TeachingLoad binds a docente to a course-subject pair for one period
// with a weekly-hours quantity ("carga horaria").
type TeachingLoad struct {
	ID              string    `db:"id" json:"id"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	CourseSubjectID string    `db:"course_subject_id" json:"course_subject_id"`
	PeriodID        string    `db:"period_id" json:"period_id"`
	WeeklyHours     int       `db:"weekly_hours" json:"weekly_hours"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// TeachingLoadDetail enriches loads with descriptive fields.
type TeachingLoadDetail struct {
	TeachingLoad
	CourseName  string  `db:"course_name" json:"course_name"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	PeriodName  string  `db:"period_name" json:"period_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
