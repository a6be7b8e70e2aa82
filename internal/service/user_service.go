package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/auth"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial profile patch.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateUserRequest) (*models.User, error) {
	if req.IsEmpty() {
		return nil, models.ErrEmptyForm
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		if user.FirstName = normalize(*req.FirstName); user.FirstName == "" {
			return nil, models.ErrMissingFields
		}
	}
	if req.LastName != nil {
		if user.LastName = normalize(*req.LastName); user.LastName == "" {
			return nil, models.ErrMissingFields
		}
	}
	if req.Email != nil {
		email := normalize(*req.Email)
		if email == "" {
			return nil, models.ErrMissingFields
		}
		if email != user.Email {
			existing, err := s.users.GetByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, models.ErrEmailTaken
			case err != nil && !errors.Is(err, models.ErrUserNotFound):
				return nil, err
			}
		}
		user.Email = email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns one page of the user directory.
func (s *UserService) ListUsers(ctx context.Context, page models.PageRequest) (models.Page[models.User], error) {
	page = page.Normalize()
	users, err := s.users.List(ctx, page)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	return models.NewPage(users, page.Limit, func(u models.User) uuid.UUID { return u.ID }), nil
}
