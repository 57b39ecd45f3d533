// Package summary computes per-criterion dashboard statistics over the
// committed results of a test.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/Ananya-Vajpayee/Launchlens/internal/cache"
	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/metrics"
	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

// TestRepository is the campaign lookup surface the summary service needs.
type TestRepository interface {
	GetByID(id string) (*models.Test, error)
}

// ResultRepository is the result listing surface the summary service needs.
type ResultRepository interface {
	ListByTest(testID string) ([]models.TestResult, error)
}

// CriterionSummary is one aggregated statistic. HasData is false when no
// results exist yet; Mean and YesPercent are only meaningful when it is true.
type CriterionSummary struct {
	Label      string                `json:"label"`
	Kind       catalog.CriterionKind `json:"kind"`
	HasData    bool                  `json:"has_data"`
	Mean       float64               `json:"mean,omitempty"`
	YesPercent int                   `json:"yes_percent,omitempty"`
	Responses  int                   `json:"responses"`
}

// TestSummary is the aggregated dashboard view of one test, criteria in the
// category's declared order.
type TestSummary struct {
	TestID         string             `json:"test_id"`
	Category       models.Category    `json:"category"`
	CompletedCount int                `json:"completed_count"`
	PackageSize    int                `json:"package_size"`
	Criteria       []CriterionSummary `json:"criteria"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// Service recomputes summaries on demand, with an optional cache keyed by
// (testID, completedCount) so entries self-invalidate as settlements land.
type Service struct {
	testRepo   TestRepository
	resultRepo ResultRepository
	catalog    *catalog.Registry
	cache      cache.Cache
	cacheTTL   time.Duration
	log        *logger.Logger
}

// NewService creates a new summary service. c may be nil to disable caching.
func NewService(
	testRepo *repository.TestRepository,
	resultRepo *repository.ResultRepository,
	reg *catalog.Registry,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{testRepo: testRepo, resultRepo: resultRepo, catalog: reg, cache: c, cacheTTL: cacheTTL, log: log}
}

// NewServiceWithInterfaces creates a summary service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	testRepo TestRepository,
	resultRepo ResultRepository,
	reg *catalog.Registry,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{testRepo: testRepo, resultRepo: resultRepo, catalog: reg, cache: c, cacheTTL: cacheTTL, log: log}
}

// Summarize returns per-criterion statistics for a test. Rating criteria get
// the arithmetic mean rounded to one decimal; boolean criteria get the
// percentage of true answers rounded to the nearest whole number. Zero
// results yield HasData=false for every criterion, never a division by zero.
// Cache failures degrade to a recompute, never to an error.
func (s *Service) Summarize(ctx context.Context, testID string) (*TestSummary, error) {
	test, err := s.testRepo.GetByID(testID)
	if err != nil {
		return nil, err
	}

	key := cacheKey(test.ID, test.CompletedCount)
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	results, err := s.resultRepo.ListByTest(testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	summary := s.compute(test, results)
	s.toCache(ctx, key, summary)
	return summary, nil
}

// Invalidate drops the cached summary for a pre-settlement completed count.
// Called by settlement after a commit; the new count misses naturally.
func (s *Service) Invalidate(ctx context.Context, testID string, completedCount int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(testID, completedCount)); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID).Msg("Failed to invalidate summary cache")
	}
}

func (s *Service) compute(test *models.Test, results []models.TestResult) *TestSummary {
	criteria := s.catalog.CriteriaFor(test.Category)
	out := &TestSummary{
		TestID:         test.ID,
		Category:       test.Category,
		CompletedCount: test.CompletedCount,
		PackageSize:    test.PackageSize,
		Criteria:       make([]CriterionSummary, 0, len(criteria)),
		GeneratedAt:    time.Now().UTC(),
	}

	for _, c := range criteria {
		cs := CriterionSummary{Label: c.Label, Kind: c.Kind}
		switch c.Kind {
		case catalog.KindRating:
			values := make([]float64, 0, len(results))
			for _, r := range results {
				if a, ok := r.Ratings[c.Label]; ok && a.Kind == models.AnswerRating {
					values = append(values, float64(a.Rating))
				}
			}
			cs.Responses = len(values)
			if len(values) > 0 {
				mean, err := stats.Mean(values)
				if err == nil {
					cs.HasData = true
					cs.Mean = math.Round(mean*10) / 10
				}
			}
		case catalog.KindBoolean:
			var yes, total int
			for _, r := range results {
				if a, ok := r.Ratings[c.Label]; ok && a.Kind == models.AnswerBoolean {
					total++
					if a.Yes {
						yes++
					}
				}
			}
			cs.Responses = total
			if total > 0 {
				cs.HasData = true
				cs.YesPercent = int(math.Round(float64(yes) / float64(total) * 100))
			}
		}
		out.Criteria = append(out.Criteria, cs)
	}

	return out
}

func (s *Service) fromCache(ctx context.Context, key string) *TestSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Summary cache read failed")
		return nil
	}
	if raw == "" {
		metrics.RecordSummaryCacheLookup("miss")
		return nil
	}
	var summary TestSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Summary cache entry is corrupt")
		return nil
	}
	metrics.RecordSummaryCacheLookup("hit")
	return &summary
}

func (s *Service) toCache(ctx context.Context, key string, summary *TestSummary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Summary cache write failed")
	}
}

func cacheKey(testID string, completedCount int) string {
	return fmt.Sprintf("summary:%s:%d", testID, completedCount)
}
