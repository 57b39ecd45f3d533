// Package scheduler periodically refreshes marketplace gauges so dashboards
// and alerts see current campaign and tester counts.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/config"
	prommetrics "github.com/Ananya-Vajpayee/Launchlens/internal/metrics"
	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

// TestRepository is the campaign counting surface the refresher needs.
type TestRepository interface {
	CountActiveByCategory() (map[models.Category]int64, error)
}

// UserRepository is the tester counting surface the refresher needs.
type UserRepository interface {
	CountTesters() (int64, error)
}

// Service runs the periodic stats refresh.
type Service struct {
	cfg      config.SchedulerConfig
	testRepo TestRepository
	userRepo UserRepository
	catalog  *catalog.Registry
	log      *logger.Logger
	cron     *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg config.SchedulerConfig,
	testRepo *repository.TestRepository,
	userRepo *repository.UserRepository,
	reg *catalog.Registry,
	log *logger.Logger,
) *Service {
	return &Service{cfg: cfg, testRepo: testRepo, userRepo: userRepo, catalog: reg, log: log}
}

// NewServiceWithInterfaces creates a scheduler with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg config.SchedulerConfig,
	testRepo TestRepository,
	userRepo UserRepository,
	reg *catalog.Registry,
	log *logger.Logger,
) *Service {
	return &Service{cfg: cfg, testRepo: testRepo, userRepo: userRepo, catalog: reg, log: log}
}

// Start registers and starts the refresh job.
func (s *Service) Start() error {
	if !s.cfg.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.Refresh); err != nil {
		return fmt.Errorf("failed to register stats refresh job: %w", err)
	}
	s.cron.Start()

	s.log.Info().Str("schedule", s.cfg.Schedule).Msg("Stats refresher started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Refresh recomputes the marketplace gauges once.
func (s *Service) Refresh() {
	counts, err := s.testRepo.CountActiveByCategory()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to count active tests")
	} else {
		// Publish zeroes for idle categories so gauges reset after the last
		// campaign in a category completes.
		for _, category := range s.catalog.Categories() {
			prommetrics.SetActiveTests(string(category), counts[category])
		}
	}

	testers, err := s.userRepo.CountTesters()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to count testers")
		return
	}
	prommetrics.SetRegisteredTesters(testers)

	s.log.Debug().Int64("testers", testers).Msg("Refreshed marketplace stats")
}
