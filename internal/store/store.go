// Package store bundles the repositories of every entity behind one value and
// selects the Postgres or in-memory backend.
package store

import (
	"database/sql"

	auditrepo "titan/internal/audit/repository"
	identityrepo "titan/internal/identity/repository"
	orgrepo "titan/internal/organisation/repository"
	"titan/internal/platform/rbac"
	projectrepo "titan/internal/project/repository"
	sessionrepo "titan/internal/session/repository"
	taskrepo "titan/internal/task/repository"
	tasklistrepo "titan/internal/tasklist/repository"
	teamrepo "titan/internal/team/repository"
	userrepo "titan/internal/user/repository"
	"titan/internal/visibility"
)

// Store holds one repository per entity.
type Store struct {
	Users         userrepo.Repository
	Identities    identityrepo.Repository
	Sessions      sessionrepo.Repository
	Organisations orgrepo.Repository
	Teams         teamrepo.Repository
	Projects      projectrepo.Repository
	TaskLists     tasklistrepo.Repository
	Tasks         taskrepo.Repository
	Audit         auditrepo.Repository
}

// NewPostgres returns a Store whose repositories share conn.
func NewPostgres(conn *sql.DB) *Store {
	return &Store{
		Users:         userrepo.NewPostgresRepository(conn),
		Identities:    identityrepo.NewPostgresRepository(conn),
		Sessions:      sessionrepo.NewPostgresRepository(conn),
		Organisations: orgrepo.NewPostgresRepository(conn),
		Teams:         teamrepo.NewPostgresRepository(conn),
		Projects:      projectrepo.NewPostgresRepository(conn),
		TaskLists:     tasklistrepo.NewPostgresRepository(conn),
		Tasks:         taskrepo.NewPostgresRepository(conn),
		Audit:         auditrepo.NewPostgresRepository(conn),
	}
}

// NewMemory returns a Store kept in process memory. Data is lost on exit.
func NewMemory() *Store {
	return &Store{
		Users:         userrepo.NewMemoryRepository(),
		Identities:    identityrepo.NewMemoryRepository(),
		Sessions:      sessionrepo.NewMemoryRepository(),
		Organisations: orgrepo.NewMemoryRepository(),
		Teams:         teamrepo.NewMemoryRepository(),
		Projects:      projectrepo.NewMemoryRepository(),
		TaskLists:     tasklistrepo.NewMemoryRepository(),
		Tasks:         taskrepo.NewMemoryRepository(),
		Audit:         auditrepo.NewMemoryRepository(),
	}
}

// Visibility returns the lookups used by the visibility filters.
func (s *Store) Visibility() visibility.Repos {
	return visibility.Repos{
		Organisations: s.Organisations,
		Teams:         s.Teams,
		Projects:      s.Projects,
		TaskLists:     s.TaskLists,
		Tasks:         s.Tasks,
	}
}

// Access returns the lookups used by the access checks.
func (s *Store) Access() rbac.Repos {
	return rbac.Repos{
		Visibility:    s.Visibility(),
		Organisations: s.Organisations,
		Teams:         s.Teams,
		Projects:      s.Projects,
		TaskLists:     s.TaskLists,
		Tasks:         s.Tasks,
	}
}
