package waitlist

import (
	"context"

	"github.com/akeren/clothiq-api/internal/models"
	apperrors "github.com/akeren/clothiq-api/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

type WaitlistRepository interface {
	// CreateEntry inserts a new entry. A duplicate email yields a CONFLICT AppError.
	CreateEntry(ctx context.Context, email string) (*models.WaitlistEntry, error)
	CountEntries(ctx context.Context) (int64, error)
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

var errDuplicateEmail = apperrors.NewConflictError("waitlist entry with this email already exists", nil)

// CreateEntry relies on ON CONFLICT DO NOTHING, so concurrent submissions of
// one email resolve in the database without surfacing a driver error.
func (wr *waitlistRepository) CreateEntry(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	entry := &models.WaitlistEntry{Email: email}

	result := wr.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(entry)

	switch {
	case result.Error != nil && apperrors.IsDuplicateKeyError(result.Error):
		return nil, apperrors.NewConflictError(errDuplicateEmail.Message, result.Error)
	case result.Error != nil:
		return nil, apperrors.NewDatabaseError("unable to create waitlist entry", result.Error)
	case result.RowsAffected == 0:
		return nil, errDuplicateEmail
	}

	return entry, nil
}

func (wr *waitlistRepository) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	if err := wr.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&count).Error; err != nil {
		return 0, apperrors.NewDatabaseError("unable to count waitlist entries", err)
	}
	return count, nil
}
