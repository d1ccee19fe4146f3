package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"couponme/api/internal/apperr"
	"couponme/api/internal/models"
	"couponme/api/internal/repository"
)

type UserService struct {
	users UserStore
	log   zerolog.Logger
}

func NewUserService(users UserStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// NullableString distinguishes an absent JSON field from an explicit null.
type NullableString struct {
	Set   bool
	Null  bool
	Value string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

type UpdateUserInput struct {
	Name             *string          `json:"name" validate:"omitempty,min=2,max=100"`
	Role             *models.UserRole `json:"role"`
	MembershipExpiry NullableString   `json:"membershipExpiry" validate:"-"`
}

func (s *UserService) List(ctx context.Context, actor *models.User, role string) ([]models.UserWithStats, error) {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return nil, err
	}

	var filter *models.UserRole
	if role = strings.ToUpper(strings.TrimSpace(role)); role != "" {
		r := models.UserRole(role)
		if !r.Valid() {
			return nil, fieldError("role", "oneof")
		}
		filter = &r
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *UserService) Update(ctx context.Context, actor *models.User, id string, input UpdateUserInput) (models.User, error) {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return models.User{}, err
	}

	input.Name = trimPtr(input.Name)
	if err := validateStruct(input); err != nil {
		return models.User{}, err
	}

	patch := models.UserPatch{Name: input.Name}
	if input.Role != nil {
		role := models.UserRole(strings.ToUpper(string(*input.Role)))
		if !role.Valid() {
			return models.User{}, fieldError("role", "oneof")
		}
		patch.Role = &role
	}
	if input.MembershipExpiry.Set {
		if input.MembershipExpiry.Null || strings.TrimSpace(input.MembershipExpiry.Value) == "" {
			patch.ClearMembership = true
		} else {
			expiry, err := parseTimestamp("membershipExpiry", input.MembershipExpiry.Value)
			if err != nil {
				return models.User{}, err
			}
			patch.MembershipExpiry = &expiry
		}
	}

	user, err := s.users.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.NotFound(apperr.MsgUserNotFound)
		}
		return models.User{}, apperr.Internal(err)
	}

	s.log.Info().Str("user_id", id).Str("admin_id", actor.ID).Msg("user updated")
	return user, nil
}

// Delete removes the account together with its coupons and sessions.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound(apperr.MsgUserNotFound)
		}
		return apperr.Internal(err)
	}
	s.log.Info().Str("user_id", id).Str("admin_id", actor.ID).Msg("user deleted")
	return nil
}
