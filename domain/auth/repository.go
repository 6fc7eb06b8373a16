package auth

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/clothiq-api/internal/models"
	apperrors "github.com/akeren/clothiq-api/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=auth

type AuthRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	// ConsumePasswordReset marks the reset used and stores the new hash in a
	// single transaction. An unknown, used or expired token yields NOT_FOUND.
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error)
}

type authRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) AuthRepository {
	return &authRepository{db: db}
}

func (ar *authRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ar.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err) {
			return nil, apperrors.NewConflictError("an account with this email already exists", err)
		}
		return nil, apperrors.NewDatabaseError("unable to create user", err)
	}
	return user, nil
}

func (ar *authRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return ar.findUser(ctx, "email = ?", email)
}

func (ar *authRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return ar.findUser(ctx, "id = ?", id)
}

func (ar *authRepository) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := ar.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("user not found", err)
		}
		return nil, apperrors.NewDatabaseError("unable to load user", err)
	}
	return &user, nil
}

func (ar *authRepository) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	if err := ar.db.WithContext(ctx).Create(reset).Error; err != nil {
		return apperrors.NewDatabaseError("unable to create password reset", err)
	}
	return nil
}

func (ar *authRepository) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	var user models.User

	err := ar.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reset models.PasswordReset
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", tokenHash).
			First(&reset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFoundError("reset token is invalid or has expired", err)
			}
			return apperrors.NewDatabaseError("unable to load password reset", err)
		}

		if !reset.IsUsable(now) {
			return apperrors.NewNotFoundError("reset token is invalid or has expired", nil)
		}

		// The used_at guard makes a concurrent second redemption update nothing.
		result := tx.Model(&models.PasswordReset{}).
			Where("id = ? AND used_at IS NULL", reset.ID).
			Update("used_at", now)
		if result.Error != nil {
			return apperrors.NewDatabaseError("unable to update password reset", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFoundError("reset token is invalid or has expired", nil)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", reset.UserID).
			Updates(map[string]any{"password_hash": passwordHash, "updated_at": now}).Error; err != nil {
			return apperrors.NewDatabaseError("unable to update password", err)
		}

		if err := tx.Where("id = ?", reset.UserID).First(&user).Error; err != nil {
			return apperrors.NewDatabaseError("unable to load user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
