package entity

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Sentiment labels produced by binary sentiment models
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
)

// ProbabilityTolerance bounds how far class probabilities may drift from summing to 1
const ProbabilityTolerance = 1e-4

// Errors returned when a model emits an unusable distribution
var (
	ErrNoScores        = errors.New("model returned no class scores")
	ErrScoreOutOfRange = errors.New("class score outside [0,1]")
	ErrScoresNotNormed = errors.New("class scores do not sum to 1")
	ErrDuplicateLabel  = errors.New("duplicate class label")
)

// ClassScore is the probability the model assigns to one class
type ClassScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Prediction is the outcome of running one text through the model
type Prediction struct {
	Text   string       `json:"text"`
	Label  string       `json:"label"`
	Score  float64      `json:"score"`
	Scores []ClassScore `json:"scores"`
}

// NewPrediction picks the most probable class out of scores.
// Ties keep the first class in model order.
func NewPrediction(text string, scores []ClassScore) (*Prediction, error) {
	if len(scores) == 0 {
		return nil, ErrNoScores
	}

	seen := make(map[string]struct{}, len(scores))
	sum := 0.0
	for _, s := range scores {
		if math.IsNaN(s.Score) || s.Score < 0 || s.Score > 1 {
			return nil, fmt.Errorf("%w: %s=%v", ErrScoreOutOfRange, s.Label, s.Score)
		}
		if _, dup := seen[s.Label]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, s.Label)
		}
		seen[s.Label] = struct{}{}
		sum += s.Score
	}
	if math.Abs(sum-1) > ProbabilityTolerance {
		return nil, fmt.Errorf("%w: got %.6f", ErrScoresNotNormed, sum)
	}

	best := lo.MaxBy(scores, func(a, b ClassScore) bool {
		return a.Score > b.Score
	})

	return &Prediction{
		Text:   text,
		Label:  best.Label,
		Score:  best.Score,
		Scores: append([]ClassScore(nil), scores...),
	}, nil
}

// ScoreFor returns the probability of label, or 0 if the model has no such class
func (p *Prediction) ScoreFor(label string) float64 {
	s, ok := lo.Find(p.Scores, func(s ClassScore) bool {
		return s.Label == label
	})
	if !ok {
		return 0
	}
	return s.Score
}

// IsBinarySentiment reports whether the model is a POSITIVE/NEGATIVE classifier
func (p *Prediction) IsBinarySentiment() bool {
	return len(p.Scores) == 2 &&
		lo.ContainsBy(p.Scores, func(s ClassScore) bool { return s.Label == SentimentPositive }) &&
		lo.ContainsBy(p.Scores, func(s ClassScore) bool { return s.Label == SentimentNegative })
}

// Round4 rounds a probability to four decimals, the precision exposed over the wire
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
