package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/rfi-processor-be/repository"
	"github.com/tieubaoca/rfi-processor-be/types"
)

type UserService interface {
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	UpdateUser(ctx context.Context, id string, user *types.User) error
	DeleteUser(ctx context.Context, id string) error
	PaginateUser(ctx context.Context, page int64, limit int64) ([]*types.User, int64, error)
}

type userService struct {
	repo repository.UserRepo
}

func NewUserService(repo repository.UserRepo) UserService {
	return &userService{
		repo: repo,
	}
}

func (s *userService) CreateUser(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = types.USER_ROLE_USER
	}
	user.CreatedAt = time.Now().Unix()
	user.UpdatedAt = time.Now().Unix()

	return s.repo.CreateUser(ctx, user)
}

func (s *userService) GetUser(ctx context.Context, id string) (*types.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.repo.GetUserByUsername(ctx, username)
}

func (s *userService) UpdateUser(ctx context.Context, id string, user *types.User) error {
	dbUser, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Username != "" {
		dbUser.Username = user.Username
	}
	if user.Password != "" {
		dbUser.Password = user.Password
	}
	if user.FullName != "" {
		dbUser.FullName = user.FullName
	}
	if user.Role != "" {
		dbUser.Role = user.Role
	}
	dbUser.UpdatedAt = time.Now().Unix()

	return s.repo.UpdateUser(ctx, id, dbUser)
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	return s.repo.DeleteUser(ctx, id)
}

func (s *userService) PaginateUser(ctx context.Context, page int64, limit int64) ([]*types.User, int64, error) {
	return s.repo.PaginateUser(ctx, page, limit)
}
