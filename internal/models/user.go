// Package models defines domain models for the Launchlens fulfillment engine.
package models

import (
	"time"
)

// Role identifies which side of the marketplace a user is on.
type Role string

// Role constants.
const (
	RoleCreator Role = "CREATOR"
	RoleTester  Role = "TESTER"
)

// Tier is a tester's reward tier. Tiers only ever advance.
type Tier string

// Tier constants, ordered from lowest to highest.
const (
	TierBronze Tier = "BRONZE"
	TierSilver Tier = "SILVER"
	TierGold   Tier = "GOLD"
)

// rank maps tiers to a comparable order so promotions never regress.
func (t Tier) rank() int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether t ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}

// User represents a creator or tester account.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Role      Role      `gorm:"not null;size:20" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Tester-only fields.
	Tier           Tier         `gorm:"size:20" json:"tier,omitempty"`
	Credits        int          `gorm:"default:0" json:"credits"`
	CompletedTests int          `gorm:"default:0" json:"completed_tests"`
	Interests      CategoryList `gorm:"type:text" json:"interests,omitempty"`

	// Optional demographics, used by audience targeting.
	Age    *int   `json:"age,omitempty"`
	Gender string `gorm:"size:20" json:"gender,omitempty"`

	// Creator-only fields.
	CompanyName string `gorm:"size:255" json:"company_name,omitempty"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// IsTester reports whether the user is on the tester side of the marketplace.
func (u *User) IsTester() bool {
	return u.Role == RoleTester
}

// InterestedIn reports whether the tester has opted in to a category.
func (u *User) InterestedIn(category Category) bool {
	for _, c := range u.Interests {
		if c == category {
			return true
		}
	}
	return false
}
