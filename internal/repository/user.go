// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"spaapi/internal/models"
	"spaapi/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const usersTable = "users"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	LatestByEmail(ctx context.Context, email string) (*models.User, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger(usersTable)}
}

// Create inserts user. A duplicate email yields a CONFLICT AppError; any other
// failure yields INTERNAL_ERROR. Both wrap the driver error.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	span, ctx := observability.NewSpan(ctx, "users.create",
		attribute.String("db.operation", "insert"),
		attribute.String("db.table", usersTable),
	)
	defer span.End()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		span.SetError(err)
		r.log.LogError(ctx, err, "create")
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User", err)
		}
		return models.NewInternalError(err)
	}

	observability.RecordsCreated.WithLabelValues(usersTable).Inc()
	r.log.LogCreate(ctx, map[string]any{"id": user.ID, "email": user.Email})
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// LatestByEmail returns the most recently inserted user with email. Unlike
// GetByEmail a miss is an error with code NOT_FOUND.
func (r *userRepository) LatestByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).Order("id DESC").Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", "email", email)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL unique violation SQLSTATE 23505
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
