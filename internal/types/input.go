package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// UserInput is the target of one analysis session.
type UserInput struct {
	CompanyName    string `json:"company_name" validate:"required"`
	JobRole        string `json:"job_role" validate:"required"`
	JobDescription string `json:"job_description,omitempty"`
	ResumeContent  string `json:"resume_content,omitempty"`
}

// Normalize returns a copy with surrounding whitespace removed from the required fields.
func (in UserInput) Normalize() UserInput {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.JobRole = strings.TrimSpace(in.JobRole)
	return in
}

// Validate validates the UserInput using the validator.
func (in UserInput) Validate() error {
	validate := validator.New()
	n := in.Normalize()
	return validate.Struct(&n)
}

// Ready reports whether an analysis can be started for this input.
func (in UserInput) Ready() bool {
	return in.Validate() == nil
}
