// Package campaign handles the creator side of the marketplace: creating
// test campaigns and reading back their raw results.
package campaign

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

// UserRepository is the user lookup surface the campaign service needs.
type UserRepository interface {
	GetByID(id string) (*models.User, error)
}

// TestRepository is the persistence surface the campaign service needs.
type TestRepository interface {
	Create(test *models.Test) error
	GetByID(id string) (*models.Test, error)
	ListByCreator(creatorID string) ([]models.Test, error)
}

// ResultRepository is the result listing surface the campaign service needs.
type ResultRepository interface {
	ListByTest(testID string) ([]models.TestResult, error)
}

// CreateInput carries a new campaign. The caller confirms payment capture
// before invoking; campaigns start ACTIVE.
type CreateInput struct {
	CreatorID      string
	Category       models.Category
	Title          string
	ProductURL     string
	Description    string
	Instructions   string
	PackageSize    int
	TargetAudience models.TargetAudience
}

// Service manages test campaigns.
type Service struct {
	userRepo   UserRepository
	testRepo   TestRepository
	resultRepo ResultRepository
	catalog    *catalog.Registry
	log        *logger.Logger
}

// NewService creates a new campaign service.
func NewService(
	userRepo *repository.UserRepository,
	testRepo *repository.TestRepository,
	resultRepo *repository.ResultRepository,
	reg *catalog.Registry,
	log *logger.Logger,
) *Service {
	return &Service{userRepo: userRepo, testRepo: testRepo, resultRepo: resultRepo, catalog: reg, log: log}
}

// NewServiceWithInterfaces creates a campaign service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	testRepo TestRepository,
	resultRepo ResultRepository,
	reg *catalog.Registry,
	log *logger.Logger,
) *Service {
	return &Service{userRepo: userRepo, testRepo: testRepo, resultRepo: resultRepo, catalog: reg, log: log}
}

// CreateTest validates and stores a new campaign. The price comes from the
// pricing package matching the requested size.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) CreateTest(ctx context.Context, in CreateInput) (*models.Test, error) {
	creator, err := s.userRepo.GetByID(in.CreatorID)
	if err != nil {
		return nil, err
	}
	if creator.Role != models.RoleCreator {
		return nil, models.NewValidationError("creator_id", "user %s is not a creator", in.CreatorID)
	}
	if !s.catalog.Known(in.Category) {
		return nil, models.NewValidationError("category", "unknown category %q", in.Category)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("title", "must not be empty")
	}
	if _, err := url.ParseRequestURI(in.ProductURL); err != nil {
		return nil, models.NewValidationError("product_url", "must be a valid URL")
	}
	pkg, ok := s.catalog.PackageFor(in.PackageSize)
	if !ok {
		return nil, models.NewValidationError("package_size", "no pricing package for size %d", in.PackageSize)
	}
	if in.TargetAudience.MinAge != nil && in.TargetAudience.MaxAge != nil &&
		*in.TargetAudience.MinAge > *in.TargetAudience.MaxAge {
		return nil, models.NewValidationError("target_audience", "min_age exceeds max_age")
	}

	test := &models.Test{
		ID:             uuid.NewString(),
		CreatorID:      in.CreatorID,
		Category:       in.Category,
		Title:          strings.TrimSpace(in.Title),
		ProductURL:     in.ProductURL,
		Description:    in.Description,
		Instructions:   in.Instructions,
		Status:         models.TestStatusActive,
		PackageSize:    pkg.Size,
		Price:          pkg.Price,
		TargetAudience: in.TargetAudience,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.testRepo.Create(test); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("test_id", test.ID).
		Str("creator_id", test.CreatorID).
		Str("category", string(test.Category)).
		Int("package_size", test.PackageSize).
		Msg("Created test campaign")
	return test, nil
}

// GetTest returns a campaign by ID.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) GetTest(ctx context.Context, id string) (*models.Test, error) {
	return s.testRepo.GetByID(id)
}

// ListForCreator returns a creator's campaigns, newest first.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) ListForCreator(ctx context.Context, creatorID string) ([]models.Test, error) {
	return s.testRepo.ListByCreator(creatorID)
}

// ResultsForTest returns the raw results of a campaign, restricted to its
// owning creator.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) ResultsForTest(ctx context.Context, testID, creatorID string) ([]models.TestResult, error) {
	test, err := s.testRepo.GetByID(testID)
	if err != nil {
		return nil, err
	}
	if test.CreatorID != creatorID {
		return nil, models.ErrNotFound
	}
	return s.resultRepo.ListByTest(testID)
}
