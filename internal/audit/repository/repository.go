package repository

import (
	"context"

	"titan/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	// ListByOrg returns the most recent audit logs of orgID, newest first.
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.AuditLog, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
