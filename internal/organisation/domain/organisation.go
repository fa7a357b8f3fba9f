package domain

import (
	"errors"
	"strings"
	"time"

	"titan/internal/platform/slugs"
)

// Organisation is the top-level container of teams and projects. Slug is globally unique.
type Organisation struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// ErrSlugTaken is returned when another organisation already uses the slug.
var ErrSlugTaken = errors.New("an organisation with the same short code already exists")

// Validate validates the organisation for persistence. Returns an error describing the first validation failure.
func (o *Organisation) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return errors.New("name is required")
	}
	return slugs.ValidateOrganisation(o.Slug)
}
