// Package store persists verification types and submissions for the
// authority service.
package store

import (
	"context"

	"storefront/internal/kyc/models"
)

// Store is the persistence surface the verification service works against.
// Implementations return sentinel.ErrNotFound for missing rows and
// sentinel.ErrConflict when a write would give an owner two submissions
// holding the same variant.
type Store interface {
	ListTypes(ctx context.Context) (models.Catalog, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Submission, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	ActiveForVariant(ctx context.Context, owner, variant string) ([]models.Submission, error)
	Save(ctx context.Context, sub *models.Submission) error
	Delete(ctx context.Context, id string) error
}
