// Package matcher computes which test campaigns a tester may take.
package matcher

import (
	"context"
	"fmt"

	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

// UserRepository is the user lookup surface the matcher needs.
type UserRepository interface {
	GetByID(id string) (*models.User, error)
}

// TestRepository is the campaign listing surface the matcher needs.
type TestRepository interface {
	ListActive() ([]models.Test, error)
}

// ResultRepository is the completed-work surface the matcher needs.
type ResultRepository interface {
	CompletedTestIDs(testerID string) (map[string]bool, error)
}

// Service computes tester eligibility. Read-only; a result committed between
// listing and the tester acting on it is handled by settlement's idempotent
// duplicate rejection.
type Service struct {
	userRepo   UserRepository
	testRepo   TestRepository
	resultRepo ResultRepository
	log        *logger.Logger
}

// NewService creates a new matcher service.
func NewService(
	userRepo *repository.UserRepository,
	testRepo *repository.TestRepository,
	resultRepo *repository.ResultRepository,
	log *logger.Logger,
) *Service {
	return &Service{userRepo: userRepo, testRepo: testRepo, resultRepo: resultRepo, log: log}
}

// NewServiceWithInterfaces creates a matcher with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	testRepo TestRepository,
	resultRepo ResultRepository,
	log *logger.Logger,
) *Service {
	return &Service{userRepo: userRepo, testRepo: testRepo, resultRepo: resultRepo, log: log}
}

// AvailableTests returns the campaigns the tester may take: active, in one of
// the tester's declared interest categories, passing any audience filter, and
// not already completed by the tester. A tester with no declared interests
// gets an empty list; interests are opt-in. Ordering is newest first with ID
// tiebreaker, deterministic for a fixed snapshot.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) AvailableTests(ctx context.Context, testerID string) ([]models.Test, error) {
	tester, err := s.userRepo.GetByID(testerID)
	if err != nil {
		return nil, err
	}
	if !tester.IsTester() {
		return nil, models.NewValidationError("tester_id", "user %s is not a tester", testerID)
	}
	if len(tester.Interests) == 0 {
		return []models.Test{}, nil
	}

	active, err := s.testRepo.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list active tests: %w", err)
	}

	done, err := s.resultRepo.CompletedTestIDs(testerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed tests: %w", err)
	}

	eligible := make([]models.Test, 0, len(active))
	for _, test := range active {
		if !tester.InterestedIn(test.Category) {
			continue
		}
		if done[test.ID] {
			continue
		}
		if !test.TargetAudience.Matches(tester) {
			continue
		}
		eligible = append(eligible, test)
	}

	s.log.Debug().
		Str("tester_id", testerID).
		Int("active", len(active)).
		Int("eligible", len(eligible)).
		Msg("Computed available tests")

	return eligible, nil
}
