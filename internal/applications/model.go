package applications

import (
	"time"

	"jobdocs-backend/internal/llm"
)

// Application is a job application owned by a user.
type Application struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"userId"`
	CompanyName     string    `json:"companyName"`
	JobTitle        string    `json:"jobTitle"`
	JobRequirements string    `json:"jobRequirements"`
	JobDescription  string    `json:"jobDescription"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Profile is the candidate information used in document prompts.
type Profile struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
	Experience string `json:"experience"`
	Skills     string `json:"skills"`
	Education  string `json:"education"`
}

// JobData converts the application into prompt input.
func (a Application) JobData() llm.JobData {
	return llm.JobData{
		Title:        a.JobTitle,
		Company:      a.CompanyName,
		Requirements: a.JobRequirements,
		Description:  a.JobDescription,
	}
}

// ProfileData converts the profile into prompt input.
func (p Profile) ProfileData() llm.ProfileData {
	return llm.ProfileData{
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Location:   p.Location,
		Experience: p.Experience,
		Skills:     p.Skills,
		Education:  p.Education,
	}
}
