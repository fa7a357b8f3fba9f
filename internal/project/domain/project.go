package domain

import (
	"errors"
	"strings"
	"time"

	"titan/internal/platform/slugs"
)

// Role is the permission an ACL entry grants to a team's members on a project.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ACLEntry grants the members of TeamID the given Role on a project.
type ACLEntry struct {
	TeamID string
	Role   Role
}

// Project belongs to one organisation. Slug is unique within the organisation.
type Project struct {
	ID        string
	OrgID     string
	Name      string
	Slug      string
	ACL       []ACLEntry
	CreatedAt time.Time
}

// ErrSlugTaken is returned when the organisation already has a project with the slug.
var ErrSlugTaken = errors.New("a project with the same short code already exists")

// Validate trims and validates the project for persistence.
func (p *Project) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.OrgID == "" {
		return errors.New("organisation is required")
	}
	for _, e := range p.ACL {
		if e.Role != RoleAdmin && e.Role != RoleMember {
			return errors.New("acl role must be admin or member")
		}
	}
	return slugs.ValidateProject(p.Slug)
}

// TeamIDs returns the ids of every team with an ACL entry, in ACL order.
func (p *Project) TeamIDs() []string {
	ids := make([]string, 0, len(p.ACL))
	for _, e := range p.ACL {
		ids = append(ids, e.TeamID)
	}
	return ids
}

// AdminTeamID returns the team of the first admin ACL entry, or "" when the project has none.
func (p *Project) AdminTeamID() string {
	for _, e := range p.ACL {
		if e.Role == RoleAdmin {
			return e.TeamID
		}
	}
	return ""
}

// GrantsAny reports whether any ACL entry names one of teamIDs.
func (p *Project) GrantsAny(teamIDs map[string]bool) bool {
	for _, e := range p.ACL {
		if teamIDs[e.TeamID] {
			return true
		}
	}
	return false
}
