package applications

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Get returns an application by ID.
func (r *PGRepo) Get(ctx context.Context, id int64) (Application, error) {
	const query = `
SELECT id, user_id, company_name, job_title, job_requirements, job_description, created_at
FROM applications
WHERE id = $1`
	var app Application
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&app.ID,
		&app.UserID,
		&app.CompanyName,
		&app.JobTitle,
		&app.JobRequirements,
		&app.JobDescription,
		&app.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	return app, nil
}

// Profile returns a user's profile.
func (r *PGRepo) Profile(ctx context.Context, userID string) (Profile, error) {
	const query = `
SELECT user_id, name, email, phone, location, experience, skills, education
FROM profiles
WHERE user_id = $1`
	var p Profile
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Location,
		&p.Experience,
		&p.Skills,
		&p.Education,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

var _ Repo = (*PGRepo)(nil)
