package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
)

// ResultRepository handles test result database operations. Results are
// insert-only; there is no update or delete path.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// CreateInTx inserts a result inside tx. A unique-violation on the
// (test_id, tester_id) index surfaces as gorm.ErrDuplicatedKey for the
// settlement service to map.
func (r *ResultRepository) CreateInTx(tx *gorm.DB, result *models.TestResult) error {
	return tx.Create(result).Error
}

// ExistsInTx reports inside tx whether a result exists for the pair.
func (r *ResultRepository) ExistsInTx(tx *gorm.DB, testID, testerID string) (bool, error) {
	var count int64
	err := tx.Model(&models.TestResult{}).
		Where("test_id = ? AND tester_id = ?", testID, testerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check result existence: %w", err)
	}
	return count > 0, nil
}

// ListByTest lists all results for a test, oldest first.
func (r *ResultRepository) ListByTest(testID string) ([]models.TestResult, error) {
	var results []models.TestResult
	err := r.db.Where("test_id = ?", testID).
		Order("submitted_at ASC").
		Order("id ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list results for test %s: %w", testID, err)
	}
	return results, nil
}

// CompletedTestIDs returns the set of test IDs the tester has already
// completed. Used by the matcher's exclusion rule.
func (r *ResultRepository) CompletedTestIDs(testerID string) (map[string]bool, error) {
	var ids []string
	err := r.db.Model(&models.TestResult{}).
		Where("tester_id = ?", testerID).
		Pluck("test_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tests for tester %s: %w", testerID, err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
