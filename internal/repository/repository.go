package repository

import (
	"context"

	"medexam/intake-portal/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound = RepositoryError("not found")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// SubmissionRepository stores the portal's bookkeeping rows for confirmed
// submissions. The authoritative application record lives upstream.
type SubmissionRepository interface {
	Create(ctx context.Context, record *domain.SubmissionRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SubmissionRecord, error)
	GetByExamOccurrence(ctx context.Context, examOccurrenceID string) ([]domain.SubmissionRecord, error)
}
