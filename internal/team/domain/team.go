package domain

import (
	"errors"
	"strings"
	"time"
)

// AdministratorsTeam is the team created with every organisation. Its members administer the organisation.
const AdministratorsTeam = "Administrators"

// Team groups users within one organisation. Name is unique per organisation.
type Team struct {
	ID        string
	OrgID     string
	Name      string
	CreatedAt time.Time
}

// Member links a user to a team.
type Member struct {
	TeamID    string
	UserID    string
	CreatedAt time.Time
}

// ErrNameTaken is returned when the organisation already has a team with the same name.
var ErrNameTaken = errors.New("a team with the same name already exists")

// Validate trims and validates the team name.
func (t *Team) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.New("team name is required")
	}
	if len(t.Name) > 128 {
		return errors.New("team name must be at most 128 characters")
	}
	if t.OrgID == "" {
		return errors.New("organisation is required")
	}
	return nil
}

// IsAdministrators reports whether t is the organisation's administrators team.
func (t *Team) IsAdministrators() bool {
	return t != nil && t.Name == AdministratorsTeam
}
