package models

import (
	"encoding/json"
	"testing"
)

func TestAnswerUnmarshal(t *testing.T) {
	var ratings Ratings
	raw := `{"Fun Factor": 8, "Would you buy this?": true}`
	if err := json.Unmarshal([]byte(raw), &ratings); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if a := ratings["Fun Factor"]; a.Kind != AnswerRating || a.Rating != 8 {
		t.Errorf("Expected rating 8, got %+v", a)
	}
	if a := ratings["Would you buy this?"]; a.Kind != AnswerBoolean || !a.Yes {
		t.Errorf("Expected boolean true, got %+v", a)
	}
}

func TestAnswerUnmarshal_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"fractional": `{"Fun Factor": 7.5}`,
		"string":     `{"Fun Factor": "eight"}`,
		"object":     `{"Fun Factor": {"value": 8}}`,
	} {
		var ratings Ratings
		if err := json.Unmarshal([]byte(raw), &ratings); err == nil {
			t.Errorf("Expected %s answer to be rejected", name)
		}
	}
}

func TestAnswerMarshal_RoundTrip(t *testing.T) {
	ratings := Ratings{"A": RatingAnswer(9), "B": BoolAnswer(false)}
	raw, err := json.Marshal(ratings)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Ratings
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back["A"] != RatingAnswer(9) || back["B"] != BoolAnswer(false) {
		t.Errorf("Round trip mismatch: %+v", back)
	}
}

func TestTargetAudienceMatches(t *testing.T) {
	age := func(n int) *int { return &n }

	tester := &User{Role: RoleTester, Age: age(30), Gender: "female"}

	cases := []struct {
		name     string
		audience TargetAudience
		want     bool
	}{
		{"empty filter", TargetAudience{}, true},
		{"in range", TargetAudience{MinAge: age(18), MaxAge: age(40)}, true},
		{"too young", TargetAudience{MinAge: age(35)}, false},
		{"too old", TargetAudience{MaxAge: age(25)}, false},
		{"gender match", TargetAudience{Gender: "Female"}, true},
		{"gender mismatch", TargetAudience{Gender: "male"}, false},
	}
	for _, tc := range cases {
		if got := tc.audience.Matches(tester); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	// Age bound with no tester age cannot match; gender filter alone can.
	anonymous := &User{Role: RoleTester}
	if (TargetAudience{MinAge: age(18)}).Matches(anonymous) {
		t.Error("Expected age-bounded filter to exclude tester without age")
	}
	if !(TargetAudience{Gender: "male"}).Matches(anonymous) {
		t.Error("Expected gender filter to pass tester without declared gender")
	}
}

func TestTierAtLeast(t *testing.T) {
	if !TierGold.AtLeast(TierSilver) || !TierSilver.AtLeast(TierBronze) {
		t.Error("Expected tier ordering GOLD > SILVER > BRONZE")
	}
	if TierBronze.AtLeast(TierSilver) {
		t.Error("Expected BRONZE below SILVER")
	}
}
