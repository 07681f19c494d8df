package service

import (
	"context"
	"errors"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/domain/user"
)

type AdminUserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, limit, offset int) ([]user.User, error)
	UpdateProfile(ctx context.Context, id string, name, role *string) (user.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// AdminUserService backs the admin-only user management endpoints.
type AdminUserService struct {
	users AdminUserStore

	storeTimeout time.Duration
}

func NewAdminUserService(users AdminUserStore) *AdminUserService {
	return &AdminUserService{users: users, storeTimeout: 3 * time.Second}
}

func (s *AdminUserService) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	out, err := s.users.List(cctx, limit, offset)

	if err != nil {
		return nil, storeErr(err)
	}

	for i := range out {
		out[i].PasswordHash = ""
	}
	return out, nil
}

func (s *AdminUserService) Get(ctx context.Context, id string) (user.User, error) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, storeErr(err)
	}

	u.PasswordHash = ""
	return u, nil
}

func (s *AdminUserService) Update(ctx context.Context, id string, name, role *string) (user.User, error) {
	if role != nil && !user.ValidRole(*role) {
		return user.User{}, ErrInvalidInput
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.UpdateProfile(cctx, id, name, role)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, storeErr(err)
	}

	u.PasswordHash = ""
	return u, nil
}

func (s *AdminUserService) SetActive(ctx context.Context, id string, active bool) error {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.users.SetActive(cctx, id, active)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}

		return storeErr(err)
	}
	return nil
}
