package repository

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	db := &DB{gdb}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	return db
}

func seedResult(t *testing.T, db *DB, id, testID, testerID string, submittedAt time.Time) {
	t.Helper()

	result := &models.TestResult{
		ID:         id,
		TestID:     testID,
		TesterID:   testerID,
		TesterName: "Bob Tester",
		Ratings: models.Ratings{
			"Fun Factor": models.RatingAnswer(8),
		},
		QualityScore: 75,
		SubmittedAt:  submittedAt,
	}
	if err := db.Create(result).Error; err != nil {
		t.Fatalf("Failed to seed result: %v", err)
	}
}

func TestResultRepository_UniquePairEnforced(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	seedResult(t, db, "r1", "t1", "u1", time.Now())

	dup := &models.TestResult{
		ID:          "r2",
		TestID:      "t1",
		TesterID:    "u1",
		TesterName:  "Bob Tester",
		Ratings:     models.Ratings{"Fun Factor": models.RatingAnswer(5)},
		SubmittedAt: time.Now(),
	}
	err := repo.CreateInTx(db.DB, dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("Expected duplicated key error, got %v", err)
	}

	// A different tester on the same test is fine.
	seedResult(t, db, "r3", "t1", "u2", time.Now())
}

func TestResultRepository_ExistsInTx(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	seedResult(t, db, "r1", "t1", "u1", time.Now())

	exists, err := repo.ExistsInTx(db.DB, "t1", "u1")
	if err != nil {
		t.Fatalf("ExistsInTx() failed: %v", err)
	}
	if !exists {
		t.Error("Expected result to exist for (t1, u1)")
	}

	exists, err = repo.ExistsInTx(db.DB, "t1", "u2")
	if err != nil {
		t.Fatalf("ExistsInTx() failed: %v", err)
	}
	if exists {
		t.Error("Expected no result for (t1, u2)")
	}
}

func TestResultRepository_ListByTestOrdered(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedResult(t, db, "r2", "t1", "u2", base.Add(time.Hour))
	seedResult(t, db, "r1", "t1", "u1", base)
	seedResult(t, db, "r9", "t2", "u1", base)

	results, err := repo.ListByTest("t1")
	if err != nil {
		t.Fatalf("ListByTest() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ID != "r1" || results[1].ID != "r2" {
		t.Errorf("Expected oldest-first ordering, got %s then %s", results[0].ID, results[1].ID)
	}
}

func TestResultRepository_CompletedTestIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	seedResult(t, db, "r1", "t1", "u1", time.Now())
	seedResult(t, db, "r2", "t2", "u1", time.Now())
	seedResult(t, db, "r3", "t3", "u2", time.Now())

	ids, err := repo.CompletedTestIDs("u1")
	if err != nil {
		t.Fatalf("CompletedTestIDs() failed: %v", err)
	}
	if len(ids) != 2 || !ids["t1"] || !ids["t2"] {
		t.Errorf("Expected {t1, t2}, got %v", ids)
	}
}

func TestTestRepository_ListActiveOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTestRepository(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		id        string
		status    models.TestStatus
		createdAt time.Time
	}{
		{"t-old", models.TestStatusActive, base},
		{"t-new", models.TestStatusActive, base.Add(time.Hour)},
		{"t-done", models.TestStatusCompleted, base.Add(2 * time.Hour)},
	} {
		test := &models.Test{
			ID:          tc.id,
			CreatorID:   "c1",
			Category:    models.CategorySaaS,
			Title:       "Campaign " + tc.id,
			ProductURL:  "https://example.com",
			Status:      tc.status,
			PackageSize: 10,
			Price:       79,
			CreatedAt:   tc.createdAt,
		}
		if err := repo.Create(test); err != nil {
			t.Fatalf("Failed to seed test: %v", err)
		}
	}

	active, err := repo.ListActive()
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("Expected 2 active tests, got %d", len(active))
	}
	if active[0].ID != "t-new" || active[1].ID != "t-old" {
		t.Errorf("Expected newest first, got %s then %s", active[0].ID, active[1].ID)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{ID: "u1", Email: "bob@example.com", Name: "Bob", Role: models.RoleTester, Tier: models.TierBronze}
	if err := repo.Create(user); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	dup := &models.User{ID: "u2", Email: "bob@example.com", Name: "Bobby", Role: models.RoleTester, Tier: models.TierBronze}
	if err := repo.Create(dup); !models.IsValidation(err) {
		t.Errorf("Expected ValidationError for duplicate email, got %v", err)
	}
}
