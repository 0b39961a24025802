package models

import "time"

// MentorStudentLink records a student's selection of a mentor and whether the
// mentor approved it. The approval workflow itself lives outside this service;
// messaging only cares about the approved flag.
type MentorStudentLink struct {
	MentorID  string    `db:"mentor_id" json:"mentor_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Approved  bool      `db:"approved" json:"approved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
