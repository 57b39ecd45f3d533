// Package accounts provides the minimal user persistence surface the engine
// consumes at its identity seam: registration, profile edits, and lookups.
// Authentication itself is an external concern.
package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

// UserRepository is the persistence surface the accounts service needs.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// RegisterInput carries a new account.
type RegisterInput struct {
	Email       string
	Name        string
	Role        models.Role
	Interests   []models.Category
	CompanyName string
	Age         *int
	Gender      string
}

// ProfileUpdate carries the editable profile fields. Nil pointers leave the
// field unchanged; credits, tier, and completed counters are settlement-owned
// and cannot be edited here.
type ProfileUpdate struct {
	Name        *string
	Interests   *[]models.Category
	CompanyName *string
	Age         *int
	Gender      *string
}

// Service manages user accounts.
type Service struct {
	userRepo UserRepository
	catalog  *catalog.Registry
	log      *logger.Logger
}

// NewService creates a new accounts service.
func NewService(userRepo *repository.UserRepository, reg *catalog.Registry, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, catalog: reg, log: log}
}

// NewServiceWithInterfaces creates an accounts service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, reg *catalog.Registry, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, catalog: reg, log: log}
}

// Register creates a new account. Testers start at BRONZE with zero credits.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, models.NewValidationError("email", "must not be empty")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.NewValidationError("name", "must not be empty")
	}
	if in.Role != models.RoleCreator && in.Role != models.RoleTester {
		return nil, models.NewValidationError("role", "must be CREATOR or TESTER")
	}
	if err := s.checkInterests(in.Interests); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:     uuid.NewString(),
		Email:  email,
		Name:   strings.TrimSpace(in.Name),
		Role:   in.Role,
		Age:    in.Age,
		Gender: in.Gender,
	}
	switch in.Role {
	case models.RoleTester:
		user.Tier = models.TierBronze
		user.Interests = in.Interests
	case models.RoleCreator:
		user.CompanyName = in.CompanyName
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("Registered user")
	return user, nil
}

// Get returns a user by ID.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// UpdateProfile applies a partial profile edit.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, models.NewValidationError("name", "must not be empty")
		}
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Interests != nil {
		if !user.IsTester() {
			return nil, models.NewValidationError("interests", "only testers declare interests")
		}
		if err := s.checkInterests(*update.Interests); err != nil {
			return nil, err
		}
		user.Interests = *update.Interests
	}
	if update.CompanyName != nil {
		user.CompanyName = *update.CompanyName
	}
	if update.Age != nil {
		user.Age = update.Age
	}
	if update.Gender != nil {
		user.Gender = *update.Gender
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) checkInterests(interests []models.Category) error {
	for _, c := range interests {
		if !s.catalog.Known(c) {
			return models.NewValidationError("interests", "unknown category %q", c)
		}
	}
	return nil
}
