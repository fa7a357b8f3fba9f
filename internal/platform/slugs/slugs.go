// Package slugs validates and suggests the URL-safe short codes of organisations and projects.
package slugs

import (
	"errors"

	"github.com/gosimple/slug"
)

// MaxLength bounds slugs so they stay readable in URLs.
const MaxLength = 64

var (
	// ErrInvalid is returned for a slug that is empty or not lowercase letters, digits, dashes and underscores.
	ErrInvalid = errors.New("slug may only contain lowercase letters, digits, dashes and underscores")
	// ErrReserved is returned for a slug that would shadow a top-level route.
	ErrReserved = errors.New("slug is reserved")
)

// reserved organisation slugs collide with fixed top-level paths.
var reserved = map[string]bool{
	"login":            true,
	"logout":           true,
	"register":         true,
	"healthz":          true,
	"metrics":          true,
	"invitation":       true,
	"comment":          true,
	"static":           true,
	"my-organisations": true,
	"getting-started":  true,
}

// reservedProject slugs collide with fixed paths under an organisation.
var reservedProject = map[string]bool{
	"projects":   true,
	"invitation": true,
	"remove":     true,
}

// Suggest derives a slug from a display name.
func Suggest(name string) string {
	s := slug.Make(name)
	if len(s) > MaxLength {
		s = s[:MaxLength]
	}
	return s
}

// ValidateOrganisation checks an organisation slug.
func ValidateOrganisation(s string) error {
	if err := validate(s); err != nil {
		return err
	}
	if reserved[s] {
		return ErrReserved
	}
	return nil
}

// ValidateProject checks a project slug.
func ValidateProject(s string) error {
	if err := validate(s); err != nil {
		return err
	}
	if reservedProject[s] {
		return ErrReserved
	}
	return nil
}

func validate(s string) error {
	if s == "" || len(s) > MaxLength {
		return ErrInvalid
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ErrInvalid
		}
	}
	return nil
}
