package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnswerKind distinguishes the two criterion response shapes.
type AnswerKind string

// AnswerKind constants.
const (
	AnswerRating  AnswerKind = "rating"
	AnswerBoolean AnswerKind = "boolean"
)

// Answer is a tagged per-criterion response: either an integer rating or a
// yes/no answer. On the wire it is a bare JSON number or boolean, matching
// the shape the dashboard consumes.
type Answer struct {
	Kind   AnswerKind
	Rating int
	Yes    bool
}

// RatingAnswer builds a rating-kind answer.
func RatingAnswer(v int) Answer {
	return Answer{Kind: AnswerRating, Rating: v}
}

// BoolAnswer builds a boolean-kind answer.
func BoolAnswer(v bool) Answer {
	return Answer{Kind: AnswerBoolean, Yes: v}
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Kind == AnswerBoolean {
		return json.Marshal(a.Yes)
	}
	return json.Marshal(a.Rating)
}

// UnmarshalJSON implements json.Unmarshaler. Only integral numbers and
// booleans are accepted; anything else is a malformed answer.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*a = BoolAnswer(val)
		return nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return fmt.Errorf("rating answer must be an integer, got %s", val)
		}
		*a = RatingAnswer(int(n))
		return nil
	default:
		return fmt.Errorf("answer must be an integer or boolean, got %T", v)
	}
}

// Ratings maps criterion labels to answers. Stored as a JSON text column.
type Ratings map[string]Answer

// Value implements driver.Valuer.
func (r Ratings) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *Ratings) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into Ratings", value)
	}
}

// TestResult is one tester's completed submission for one test. At most one
// result may ever exist per (test_id, tester_id) pair; the composite unique
// index is the database-side enforcement of that invariant. Results are
// immutable once written.
type TestResult struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	TestID       string    `gorm:"not null;size:36;uniqueIndex:idx_results_test_tester" json:"test_id"`
	TesterID     string    `gorm:"not null;size:36;uniqueIndex:idx_results_test_tester" json:"tester_id"`
	TesterName   string    `gorm:"not null;size:255" json:"tester_name"`
	Ratings      Ratings   `gorm:"not null;type:text" json:"ratings"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	QualityScore int       `gorm:"not null" json:"quality_score"`
	SubmittedAt  time.Time `gorm:"not null" json:"submitted_at"`
}

// TableName specifies the table name for TestResult model.
func (TestResult) TableName() string {
	return "test_results"
}
