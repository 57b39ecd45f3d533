// Package quality assigns quality scores to settled submissions. The scoring
// policy is pluggable; settlement takes any Scorer.
package quality

import (
	"strings"

	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/models"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// Scorer assigns a score in [MinScore, MaxScore] to a submission. Must be
// deterministic for a given input.
type Scorer interface {
	Score(criteria []catalog.Criterion, ratings models.Ratings, feedback string) int
}

// Heuristic is the default scoring policy: answer completeness earns up to
// completenessWeight points, narrative feedback earns up to feedbackWeight
// points in length bands. Word count, not byte count, so multi-byte text is
// not penalized.
type Heuristic struct{}

const (
	completenessWeight = 60
	feedbackWeight     = 40
)

// NewHeuristic creates the default scorer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Score implements Scorer.
func (h *Heuristic) Score(criteria []catalog.Criterion, ratings models.Ratings, feedback string) int {
	score := h.completenessScore(criteria, ratings) + feedbackScore(feedback)
	if score > MaxScore {
		score = MaxScore
	}
	if score < MinScore {
		score = MinScore
	}
	return score
}

func (h *Heuristic) completenessScore(criteria []catalog.Criterion, ratings models.Ratings) int {
	if len(criteria) == 0 {
		return 0
	}
	answered := 0
	for _, c := range criteria {
		answer, ok := ratings[c.Label]
		if !ok {
			continue
		}
		switch c.Kind {
		case catalog.KindRating:
			if answer.Kind == models.AnswerRating &&
				answer.Rating >= catalog.MinRating && answer.Rating <= catalog.MaxRating {
				answered++
			}
		case catalog.KindBoolean:
			if answer.Kind == models.AnswerBoolean {
				answered++
			}
		}
	}
	return completenessWeight * answered / len(criteria)
}

func feedbackScore(feedback string) int {
	words := len(strings.Fields(feedback))
	switch {
	case words == 0:
		return 0
	case words < 10:
		return 10
	case words < 30:
		return 25
	default:
		return feedbackWeight
	}
}
