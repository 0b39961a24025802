package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"mentor-chat-service/internal/models"
)

var ErrLinkNotFound = errors.New("mentor-student link not found")

// LinkRepository abstracts the mentor-student approval relation.
type LinkRepository interface {
	Approved(ctx context.Context, mentorID, studentID string) (bool, error)
	GetForStudent(ctx context.Context, studentID string) (models.MentorStudentLink, error)
	ListForMentor(ctx context.Context, mentorID string) ([]models.MentorStudentLink, error)
	Approve(ctx context.Context, mentorID, studentID string) error
}

// LinkRepo is a sqlx implementation of LinkRepository.
type LinkRepo struct {
	db *sqlx.DB
}

// NewLinkRepo constructs a LinkRepo.
func NewLinkRepo(db *sqlx.DB) *LinkRepo {
	return &LinkRepo{db: db}
}

// Approved reports whether an approved link exists for the pair. A missing
// link is not an error, just false.
func (r *LinkRepo) Approved(ctx context.Context, mentorID, studentID string) (bool, error) {
	var approved bool
	err := r.db.GetContext(ctx, &approved, `SELECT approved FROM mentor_student_links
        WHERE mentor_id=$1 AND student_id=$2 LIMIT 1`, mentorID, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return approved, err
}

// GetForStudent returns the student's mentor link, approved or not.
func (r *LinkRepo) GetForStudent(ctx context.Context, studentID string) (models.MentorStudentLink, error) {
	var link models.MentorStudentLink
	err := r.db.GetContext(ctx, &link, `SELECT mentor_id, student_id, approved, created_at
        FROM mentor_student_links WHERE student_id=$1 LIMIT 1`, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MentorStudentLink{}, ErrLinkNotFound
	}
	return link, err
}

// ListForMentor returns the students who selected this mentor, oldest first.
func (r *LinkRepo) ListForMentor(ctx context.Context, mentorID string) ([]models.MentorStudentLink, error) {
	var links []models.MentorStudentLink
	err := r.db.SelectContext(ctx, &links, `SELECT mentor_id, student_id, approved, created_at
        FROM mentor_student_links WHERE mentor_id=$1 ORDER BY created_at ASC`, mentorID)
	return links, err
}

// Approve marks the pair's link as approved.
func (r *LinkRepo) Approve(ctx context.Context, mentorID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE mentor_student_links SET approved = TRUE
        WHERE mentor_id=$1 AND student_id=$2`, mentorID, studentID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrLinkNotFound
	}
	return nil
}
