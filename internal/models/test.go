package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category is a product niche. The catalog package maps each category to its
// fixed criterion list.
type Category string

// Category constants.
const (
	CategorySaaS           Category = "SAAS"
	CategoryMobileApp      Category = "MOBILE_APP"
	CategoryGame           Category = "GAME"
	CategoryDigitalProduct Category = "DIGITAL_PRODUCT"
	CategoryEcommerce      Category = "ECOMMERCE"
)

// CategoryList stores a tester's interest set as a comma-joined text column.
type CategoryList []Category

// Value implements driver.Valuer.
func (l CategoryList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	parts := make([]string, len(l))
	for i, c := range l {
		parts[i] = string(c)
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner.
func (l *CategoryList) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CategoryList", value)
	}
	if raw == "" {
		*l = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make(CategoryList, 0, len(parts))
	for _, p := range parts {
		out = append(out, Category(p))
	}
	*l = out
	return nil
}

// TestStatus is the campaign state machine: DRAFT -> ACTIVE -> COMPLETED.
// COMPLETED is terminal.
type TestStatus string

// TestStatus constants.
const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusActive    TestStatus = "ACTIVE"
	TestStatusCompleted TestStatus = "COMPLETED"
)

// TargetAudience is an optional demographic filter on a test.
type TargetAudience struct {
	MinAge *int   `json:"min_age,omitempty"`
	MaxAge *int   `json:"max_age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// Value implements driver.Valuer, storing the filter as JSON.
func (a TargetAudience) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *TargetAudience) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = TargetAudience{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into TargetAudience", value)
	}
}

// IsZero reports whether no filter is set.
func (a TargetAudience) IsZero() bool {
	return a.MinAge == nil && a.MaxAge == nil && a.Gender == ""
}

// Matches reports whether a tester's demographics satisfy the filter.
// Unset filter fields match anything; unset tester fields match everything
// except an explicit age bound.
func (a TargetAudience) Matches(u *User) bool {
	if a.MinAge != nil && (u.Age == nil || *u.Age < *a.MinAge) {
		return false
	}
	if a.MaxAge != nil && (u.Age == nil || *u.Age > *a.MaxAge) {
		return false
	}
	if a.Gender != "" && u.Gender != "" && !strings.EqualFold(a.Gender, u.Gender) {
		return false
	}
	return true
}

// Test is a usability test campaign commissioned by a creator.
type Test struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	CreatorID    string     `gorm:"not null;index;size:36" json:"creator_id"`
	Category     Category   `gorm:"not null;size:30;index" json:"category"`
	Title        string     `gorm:"not null;size:255" json:"title"`
	ProductURL   string     `gorm:"not null;type:text" json:"product_url"`
	Description  string     `gorm:"type:text" json:"description"`
	Instructions string     `gorm:"type:text" json:"instructions"`
	Status       TestStatus `gorm:"not null;size:20;index" json:"status"`

	PackageSize    int            `gorm:"not null" json:"package_size"`
	Price          int            `gorm:"not null" json:"price"` // cents-free whole dollars, as sold
	TargetAudience TargetAudience `gorm:"type:text" json:"target_audience"`

	ApplicantCount int `gorm:"not null;default:0" json:"applicant_count"`
	CompletedCount int `gorm:"not null;default:0" json:"completed_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Test model.
func (Test) TableName() string {
	return "tests"
}

// Open reports whether the test still accepts submissions.
func (t *Test) Open() bool {
	return t.Status == TestStatusActive
}
