package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/config"
	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/quality"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

var testRewards = config.RewardsConfig{CreditsPerTest: 25, SilverThreshold: 20, GoldThreshold: 50}

// recordingInvalidator captures cache invalidations issued by settlements.
type recordingInvalidator struct {
	mu    sync.Mutex
	calls []int
}

func (r *recordingInvalidator) Invalidate(_ context.Context, _ string, completedCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, completedCount)
}

type fixture struct {
	db          *repository.DB
	svc         *Service
	invalidator *recordingInvalidator
}

// setupFixture builds a settlement service over an in-memory SQLite database.
// The pool is capped at one connection so concurrent transactions queue
// instead of tripping SQLite's whole-database lock.
func setupFixture(t *testing.T) *fixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &repository.DB{DB: gdb}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	inv := &recordingInvalidator{}
	svc := NewService(
		db,
		repository.NewTestRepository(db),
		repository.NewUserRepository(db),
		repository.NewResultRepository(db),
		catalog.Default(),
		quality.NewHeuristic(),
		inv,
		testRewards,
		logger.NewNop(),
	)
	return &fixture{db: db, svc: svc, invalidator: inv}
}

func (f *fixture) seedTester(t *testing.T, id string, completedTests int, tier models.Tier) {
	t.Helper()
	user := &models.User{
		ID:             id,
		Email:          id + "@example.com",
		Name:           "Tester " + id,
		Role:           models.RoleTester,
		Tier:           tier,
		Credits:        100,
		CompletedTests: completedTests,
		Interests:      models.CategoryList{models.CategorySaaS},
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed tester: %v", err)
	}
}

func (f *fixture) seedTest(t *testing.T, id string, status models.TestStatus, packageSize, applicants, completed int) {
	t.Helper()
	test := &models.Test{
		ID:             id,
		CreatorID:      "creator-1",
		Category:       models.CategorySaaS,
		Title:          "Landing Page Conversion Test",
		ProductURL:     "https://example.com/saas",
		Status:         status,
		PackageSize:    packageSize,
		Price:          79,
		ApplicantCount: applicants,
		CompletedCount: completed,
	}
	if err := f.db.Create(test).Error; err != nil {
		t.Fatalf("Failed to seed test: %v", err)
	}
}

func (f *fixture) getTest(t *testing.T, id string) *models.Test {
	t.Helper()
	var test models.Test
	if err := f.db.First(&test, "id = ?", id).Error; err != nil {
		t.Fatalf("Failed to reload test: %v", err)
	}
	return &test
}

func (f *fixture) getUser(t *testing.T, id string) *models.User {
	t.Helper()
	var user models.User
	if err := f.db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	return &user
}

func (f *fixture) countResults(t *testing.T, testID, testerID string) int64 {
	t.Helper()
	var count int64
	err := f.db.Model(&models.TestResult{}).
		Where("test_id = ? AND tester_id = ?", testID, testerID).
		Count(&count).Error
	if err != nil {
		t.Fatalf("Failed to count results: %v", err)
	}
	return count
}

func saasInput(testID, testerID string) Input {
	return Input{
		TestID:     testID,
		TesterID:   testerID,
		TesterName: "Bob Tester",
		Ratings: models.Ratings{
			"Value Proposition Clarity":    models.RatingAnswer(8),
			"Call-to-Action Effectiveness": models.RatingAnswer(7),
			"Trust & Credibility":          models.RatingAnswer(9),
			"Pricing Clarity":              models.RatingAnswer(6),
			"Would you sign up?":           models.BoolAnswer(true),
		},
		Feedback: "The pricing table is a bit confusing on mobile, but otherwise looks great.",
	}
}

func TestSettle_Success(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "tester-1", 3, models.TierBronze)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 4, 2)

	result, err := f.svc.Settle(context.Background(), saasInput("test-1", "tester-1"))
	if err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}

	if result.ID == "" || result.SubmittedAt.IsZero() {
		t.Error("Expected generated ID and timestamp on result")
	}
	if result.QualityScore < quality.MinScore || result.QualityScore > quality.MaxScore {
		t.Errorf("Quality score %d out of bounds", result.QualityScore)
	}

	test := f.getTest(t, "test-1")
	if test.CompletedCount != 3 {
		t.Errorf("Expected completedCount 3, got %d", test.CompletedCount)
	}
	if test.ApplicantCount != 4 {
		t.Errorf("Expected applicantCount to stay 4, got %d", test.ApplicantCount)
	}
	if test.Status != models.TestStatusActive {
		t.Errorf("Expected test to stay ACTIVE, got %s", test.Status)
	}

	tester := f.getUser(t, "tester-1")
	if tester.Credits != 125 {
		t.Errorf("Expected credits 125, got %d", tester.Credits)
	}
	if tester.CompletedTests != 4 {
		t.Errorf("Expected completedTests 4, got %d", tester.CompletedTests)
	}
	if tester.Tier != models.TierBronze {
		t.Errorf("Expected tier to stay BRONZE, got %s", tester.Tier)
	}

	if len(f.invalidator.calls) != 1 || f.invalidator.calls[0] != 2 {
		t.Errorf("Expected one invalidation with pre-settlement count 2, got %v", f.invalidator.calls)
	}
}

func TestSettle_ApplicantCountKeepsUp(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "tester-1", 0, models.TierBronze)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 2, 2)

	if _, err := f.svc.Settle(context.Background(), saasInput("test-1", "tester-1")); err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}

	test := f.getTest(t, "test-1")
	if test.ApplicantCount != 3 || test.CompletedCount != 3 {
		t.Errorf("Expected applicant/completed 3/3, got %d/%d", test.ApplicantCount, test.CompletedCount)
	}
}

func TestSettle_DuplicateRejectedIdempotently(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "tester-1", 0, models.TierBronze)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 0, 0)

	in := saasInput("test-1", "tester-1")
	if _, err := f.svc.Settle(context.Background(), in); err != nil {
		t.Fatalf("First Settle() failed: %v", err)
	}

	_, err := f.svc.Settle(context.Background(), in)
	if !errors.Is(err, models.ErrDuplicateSubmission) {
		t.Fatalf("Expected ErrDuplicateSubmission, got %v", err)
	}

	// No double effects.
	if got := f.countResults(t, "test-1", "tester-1"); got != 1 {
		t.Errorf("Expected exactly 1 result, got %d", got)
	}
	if test := f.getTest(t, "test-1"); test.CompletedCount != 1 {
		t.Errorf("Expected completedCount 1, got %d", test.CompletedCount)
	}
	if tester := f.getUser(t, "tester-1"); tester.Credits != 125 {
		t.Errorf("Expected single credit award, got %d credits", tester.Credits)
	}
}

func TestSettle_TestNotAvailable(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "tester-1", 0, models.TierBronze)
	f.seedTest(t, "test-done", models.TestStatusCompleted, 10, 10, 10)
	f.seedTest(t, "test-draft", models.TestStatusDraft, 10, 0, 0)

	for _, testID := range []string{"test-done", "test-draft", "test-missing"} {
		_, err := f.svc.Settle(context.Background(), saasInput(testID, "tester-1"))
		if !errors.Is(err, models.ErrTestNotAvailable) {
			t.Errorf("%s: expected ErrTestNotAvailable, got %v", testID, err)
		}
	}
}

func TestSettle_ValidationFailuresLeaveNoTrace(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "tester-1", 0, models.TierBronze)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 0, 0)

	invalid := []func(Input) Input{
		func(in Input) Input { in.Ratings["Pricing Clarity"] = models.RatingAnswer(0); return in },
		func(in Input) Input { in.Ratings["Pricing Clarity"] = models.RatingAnswer(11); return in },
		func(in Input) Input { delete(in.Ratings, "Trust & Credibility"); return in },
		func(in Input) Input { in.Ratings["Would you sign up?"] = models.RatingAnswer(7); return in },
	}

	for i, mutate := range invalid {
		_, err := f.svc.Settle(context.Background(), mutate(saasInput("test-1", "tester-1")))
		if !models.IsValidation(err) {
			t.Errorf("case %d: expected ValidationError, got %v", i, err)
		}
	}

	if got := f.countResults(t, "test-1", "tester-1"); got != 0 {
		t.Errorf("Expected no results after failed validations, got %d", got)
	}
	if test := f.getTest(t, "test-1"); test.CompletedCount != 0 {
		t.Errorf("Expected counters untouched, got completedCount %d", test.CompletedCount)
	}
	if tester := f.getUser(t, "tester-1"); tester.Credits != 100 || tester.CompletedTests != 0 {
		t.Errorf("Expected ledger untouched, got credits %d completed %d", tester.Credits, tester.CompletedTests)
	}
}

func TestSettle_CompletesCampaignAtPackageSize(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "tester-1", 0, models.TierBronze)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 9, 9)

	if _, err := f.svc.Settle(context.Background(), saasInput("test-1", "tester-1")); err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}

	test := f.getTest(t, "test-1")
	if test.Status != models.TestStatusCompleted {
		t.Errorf("Expected COMPLETED at package size, got %s", test.Status)
	}
	if test.CompletedCount != 10 {
		t.Errorf("Expected completedCount 10, got %d", test.CompletedCount)
	}

	// A completed campaign accepts nothing further.
	f.seedTester(t, "tester-2", 0, models.TierBronze)
	_, err := f.svc.Settle(context.Background(), saasInput("test-1", "tester-2"))
	if !errors.Is(err, models.ErrTestNotAvailable) {
		t.Errorf("Expected ErrTestNotAvailable after completion, got %v", err)
	}
}

func TestSettle_TierPromotion(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "almost-silver", 19, models.TierBronze)
	f.seedTester(t, "almost-gold", 49, models.TierSilver)
	f.seedTest(t, "test-1", models.TestStatusActive, 50, 0, 0)
	f.seedTest(t, "test-2", models.TestStatusActive, 50, 0, 0)

	if _, err := f.svc.Settle(context.Background(), saasInput("test-1", "almost-silver")); err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}
	if tier := f.getUser(t, "almost-silver").Tier; tier != models.TierSilver {
		t.Errorf("Expected promotion to SILVER at 20 completions, got %s", tier)
	}

	if _, err := f.svc.Settle(context.Background(), saasInput("test-2", "almost-gold")); err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}
	if tier := f.getUser(t, "almost-gold").Tier; tier != models.TierGold {
		t.Errorf("Expected promotion to GOLD at 50 completions, got %s", tier)
	}
}

func TestSettle_TierNeverRegresses(t *testing.T) {
	f := setupFixture(t)
	// A tester granted GOLD out of band keeps it regardless of threshold math.
	f.seedTester(t, "legacy-gold", 1, models.TierGold)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 0, 0)

	if _, err := f.svc.Settle(context.Background(), saasInput("test-1", "legacy-gold")); err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}
	if tier := f.getUser(t, "legacy-gold").Tier; tier != models.TierGold {
		t.Errorf("Expected GOLD to be kept, got %s", tier)
	}
}

func TestSettle_RejectsNonTester(t *testing.T) {
	f := setupFixture(t)
	creator := &models.User{ID: "creator-1", Email: "alice@example.com", Name: "Alice", Role: models.RoleCreator}
	if err := f.db.Create(creator).Error; err != nil {
		t.Fatalf("Failed to seed creator: %v", err)
	}
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 0, 0)

	_, err := f.svc.Settle(context.Background(), saasInput("test-1", "creator-1"))
	if !models.IsValidation(err) {
		t.Errorf("Expected ValidationError for creator submission, got %v", err)
	}
}

func TestSettle_UnknownTester(t *testing.T) {
	f := setupFixture(t)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 0, 0)

	_, err := f.svc.Settle(context.Background(), saasInput("test-1", "ghost"))
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSettle_ConcurrentSamePair(t *testing.T) {
	f := setupFixture(t)
	f.seedTester(t, "tester-1", 0, models.TierBronze)
	f.seedTest(t, "test-1", models.TestStatusActive, 10, 0, 0)

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Settle(context.Background(), saasInput("test-1", "tester-1"))
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, models.ErrDuplicateSubmission):
			duplicates++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if successes != 1 || duplicates != attempts-1 {
		t.Errorf("Expected 1 success and %d duplicates, got %d and %d", attempts-1, successes, duplicates)
	}

	if got := f.countResults(t, "test-1", "tester-1"); got != 1 {
		t.Errorf("Expected exactly 1 result, got %d", got)
	}
	if tester := f.getUser(t, "tester-1"); tester.Credits != 125 {
		t.Errorf("Expected single credit award, got %d credits", tester.Credits)
	}
}

func TestSettle_ConcurrentDistinctTesters(t *testing.T) {
	f := setupFixture(t)
	f.seedTest(t, "test-1", models.TestStatusActive, 50, 0, 0)

	const testers = 8
	ids := make([]string, testers)
	for i := range ids {
		ids[i] = string(rune('a'+i)) + "-tester"
		f.seedTester(t, ids[i], 0, models.TierBronze)
	}

	var wg sync.WaitGroup
	errs := make([]error, testers)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.svc.Settle(context.Background(), saasInput("test-1", id))
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Settle() for %s failed: %v", ids[i], err)
		}
	}
	if test := f.getTest(t, "test-1"); test.CompletedCount != testers {
		t.Errorf("Expected completedCount %d, got %d", testers, test.CompletedCount)
	}
}
