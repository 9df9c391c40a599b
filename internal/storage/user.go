package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/project-aiko/internal/types"
)

type userModel struct {
	ID        int
	Username  string
	CreatedAt time.Time
}

func (userModel) TableName() string {
	return "users"
}

// UserRepo accesses users data.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo returns a UserRepo.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetOrCreate returns the user with the given username, creating it on
// first sight.
func (r *UserRepo) GetOrCreate(ctx context.Context, username string) (*types.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&model).Error
	if err == nil {
		return userFromModel(model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	model = userModel{Username: username}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return userFromModel(model), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int) (*types.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return userFromModel(model), nil
}

func userFromModel(model userModel) *types.User {
	return &types.User{
		ID:        model.ID,
		Username:  model.Username,
		CreatedAt: model.CreatedAt,
	}
}
