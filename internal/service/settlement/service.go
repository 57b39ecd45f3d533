// Package settlement commits a tester's completed submission as one atomic
// transaction: the result record, the test's progress counters, and the
// tester's credit and tier ledger all move together or not at all.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/config"
	"github.com/Ananya-Vajpayee/Launchlens/internal/metrics"
	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/quality"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

// maxAttempts bounds retries on transient contention. Validation and
// duplicate failures are never retried.
const maxAttempts = 3

// SummaryInvalidator drops cached summaries after a settlement commits.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, testID string, completedCount int)
}

// Input carries one submission to settle. The caller-supplied tester identity
// is trusted; authentication is an upstream concern.
type Input struct {
	TestID     string
	TesterID   string
	TesterName string
	Ratings    models.Ratings
	Feedback   string
}

// Service settles submissions.
type Service struct {
	db          *repository.DB
	testRepo    *repository.TestRepository
	userRepo    *repository.UserRepository
	resultRepo  *repository.ResultRepository
	catalog     *catalog.Registry
	scorer      quality.Scorer
	invalidator SummaryInvalidator
	rewards     config.RewardsConfig
	log         *logger.Logger
}

// NewService creates a new settlement service. invalidator may be nil when no
// summary cache is configured.
func NewService(
	db *repository.DB,
	testRepo *repository.TestRepository,
	userRepo *repository.UserRepository,
	resultRepo *repository.ResultRepository,
	reg *catalog.Registry,
	scorer quality.Scorer,
	invalidator SummaryInvalidator,
	rewards config.RewardsConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		db:          db,
		testRepo:    testRepo,
		userRepo:    userRepo,
		resultRepo:  resultRepo,
		catalog:     reg,
		scorer:      scorer,
		invalidator: invalidator,
		rewards:     rewards,
		log:         log,
	}
}

// Settle validates and commits one submission. Preconditions, first failure
// wins: the test exists and is ACTIVE; no result exists yet for the
// (test, tester) pair; the ratings match the category schema. On success
// exactly one result exists and the test and tester state reflect exactly
// this settlement; on any failure nothing is mutated.
func (s *Service) Settle(ctx context.Context, in Input) (*models.TestResult, error) {
	start := time.Now()

	var (
		outcome *outcomeState
		err     error
	)
	for attempt := 1; ; attempt++ {
		outcome, err = s.settleOnce(ctx, in)
		if err == nil || !errors.Is(err, models.ErrTransientConflict) || attempt == maxAttempts {
			break
		}
		metrics.RecordSettlementRetry()
		s.log.Warn().
			Str("test_id", in.TestID).
			Str("tester_id", in.TesterID).
			Int("attempt", attempt).
			Msg("Transient conflict during settlement, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}

	metrics.ObserveSettleDuration(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordSettlement(categoryLabel(outcome), failureLabel(err))
		return nil, err
	}

	s.recordSuccess(ctx, in, outcome)
	return outcome.result, nil
}

// outcomeState carries what a committed settlement needs to report afterward.
type outcomeState struct {
	result            *models.TestResult
	category          models.Category
	completedBefore   int
	campaignCompleted bool
	promotedTo        models.Tier
	promoted          bool
}

func (s *Service) settleOnce(ctx context.Context, in Input) (*outcomeState, error) {
	out := &outcomeState{}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Precondition 1: the test exists and is ACTIVE. The row lock
		// serializes counter increments for the same test.
		test, err := s.testRepo.GetForUpdate(tx, in.TestID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrTestNotAvailable
			}
			return err
		}
		out.category = test.Category
		out.completedBefore = test.CompletedCount
		if !test.Open() {
			return models.ErrTestNotAvailable
		}

		// Precondition 2: no result exists yet for the pair. The check is
		// advisory; the unique index below makes check-then-act indivisible
		// even against a settlement racing in another transaction.
		exists, err := s.resultRepo.ExistsInTx(tx, in.TestID, in.TesterID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateSubmission
		}

		// Precondition 3: the ratings match the category schema.
		if err := s.catalog.ValidateRatings(test.Category, in.Ratings); err != nil {
			return err
		}

		tester, err := s.userRepo.GetForUpdate(tx, in.TesterID)
		if err != nil {
			return err
		}
		if !tester.IsTester() {
			return models.NewValidationError("tester_id", "user %s is not a tester", in.TesterID)
		}

		score := s.scorer.Score(s.catalog.CriteriaFor(test.Category), in.Ratings, in.Feedback)

		result := &models.TestResult{
			ID:           uuid.NewString(),
			TestID:       in.TestID,
			TesterID:     in.TesterID,
			TesterName:   in.TesterName,
			Ratings:      in.Ratings,
			Feedback:     in.Feedback,
			QualityScore: score,
			SubmittedAt:  time.Now().UTC(),
		}
		if err := s.resultRepo.CreateInTx(tx, result); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrDuplicateSubmission
			}
			return fmt.Errorf("failed to insert result: %w", err)
		}

		test.CompletedCount++
		// Every completion also counts as an applicant; there is no separate
		// started-but-abandoned state in this funnel.
		if test.ApplicantCount < test.CompletedCount {
			test.ApplicantCount = test.CompletedCount
		}
		if test.CompletedCount == test.PackageSize {
			test.Status = models.TestStatusCompleted
			out.campaignCompleted = true
		}
		if err := tx.Save(test).Error; err != nil {
			return fmt.Errorf("failed to update test counters: %w", err)
		}

		tester.Credits += s.rewards.CreditsPerTest
		tester.CompletedTests++
		if next := s.tierFor(tester.CompletedTests); next.AtLeast(tester.Tier) && next != tester.Tier {
			tester.Tier = next
			out.promoted = true
			out.promotedTo = next
		}
		if err := tx.Save(tester).Error; err != nil {
			return fmt.Errorf("failed to update tester ledger: %w", err)
		}

		out.result = result
		return nil
	})

	if txErr != nil {
		if isTransient(txErr) {
			return out, fmt.Errorf("%w: %v", models.ErrTransientConflict, txErr)
		}
		return out, txErr
	}
	return out, nil
}

// tierFor maps a completed-test count to the tier it earns.
func (s *Service) tierFor(completed int) models.Tier {
	switch {
	case completed >= s.rewards.GoldThreshold:
		return models.TierGold
	case completed >= s.rewards.SilverThreshold:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

func (s *Service) recordSuccess(ctx context.Context, in Input, out *outcomeState) {
	metrics.RecordSettlement(string(out.category), "settled")
	metrics.ObserveQualityScore(out.result.QualityScore)
	metrics.RecordCreditsAwarded(s.rewards.CreditsPerTest)
	if out.campaignCompleted {
		metrics.RecordTestCompleted(string(out.category))
	}
	if out.promoted {
		metrics.RecordTierPromotion(string(out.promotedTo))
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, in.TestID, out.completedBefore)
	}

	s.log.Info().
		Str("test_id", in.TestID).
		Str("tester_id", in.TesterID).
		Int("quality_score", out.result.QualityScore).
		Bool("campaign_completed", out.campaignCompleted).
		Msg("Settled submission")
}

// isTransient reports whether err is concurrency contention worth retrying:
// a serialization failure or deadlock on Postgres, or a busy database on
// SQLite in tests.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

func categoryLabel(out *outcomeState) string {
	if out == nil || out.category == "" {
		return "unknown"
	}
	return string(out.category)
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, models.ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, models.ErrTestNotAvailable):
		return "not_available"
	case errors.Is(err, models.ErrTransientConflict):
		return "conflict"
	case models.IsValidation(err):
		return "validation_failed"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
