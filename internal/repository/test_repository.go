package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
)

// TestRepository handles test campaign database operations.
type TestRepository struct {
	db *DB
}

// NewTestRepository creates a new test repository.
func NewTestRepository(db *DB) *TestRepository {
	return &TestRepository{db: db}
}

// Create creates a new test campaign.
func (r *TestRepository) Create(test *models.Test) error {
	if err := r.db.Create(test).Error; err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}
	return nil
}

// GetByID retrieves a test by ID.
func (r *TestRepository) GetByID(id string) (*models.Test, error) {
	var test models.Test
	if err := r.db.First(&test, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get test %s: %w", id, err)
	}
	return &test, nil
}

// ListActive lists all active tests, newest first with ID as tiebreaker so
// pagination stays stable for a fixed snapshot.
func (r *TestRepository) ListActive() ([]models.Test, error) {
	var tests []models.Test
	err := r.db.Where("status = ?", models.TestStatusActive).
		Order("created_at DESC").
		Order("id ASC").
		Find(&tests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active tests: %w", err)
	}
	return tests, nil
}

// ListByCreator lists a creator's tests, newest first.
func (r *TestRepository) ListByCreator(creatorID string) ([]models.Test, error) {
	var tests []models.Test
	err := r.db.Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&tests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tests for creator %s: %w", creatorID, err)
	}
	return tests, nil
}

// CountActiveByCategory counts active tests per category, for the stats
// refresher gauges.
func (r *TestRepository) CountActiveByCategory() (map[models.Category]int64, error) {
	var rows []struct {
		Category models.Category
		Count    int64
	}
	err := r.db.Model(&models.Test{}).
		Select("category, count(*) as count").
		Where("status = ?", models.TestStatusActive).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active tests: %w", err)
	}
	counts := make(map[models.Category]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}

// GetForUpdate retrieves a test inside tx with a row lock, serializing
// concurrent counter increments for the same test.
func (r *TestRepository) GetForUpdate(tx *gorm.DB, id string) (*models.Test, error) {
	var test models.Test
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&test, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock test %s: %w", id, err)
	}
	return &test, nil
}
