package model

import (
	"context"
	"math"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
	"github.com/ressKim-io/sentiment-api/internal/domain/service"
)

// LexiconPipeline scores text with a lexicon artifact. It is never mutated
// after construction, so a single instance is safe for concurrent use.
type LexiconPipeline struct {
	artifact    *Artifact
	tokenizer   *Tokenizer
	negators    map[string]struct{}
	scopeBreaks map[string]struct{}
}

var _ service.Pipeline = (*LexiconPipeline)(nil)

// NewLexiconPipeline builds a pipeline over a validated artifact
func NewLexiconPipeline(a *Artifact) *LexiconPipeline {
	return &LexiconPipeline{
		artifact:    a,
		tokenizer:   NewTokenizer(a.Lowercase, a.MaxLength),
		negators:    toSet(a.Negators),
		scopeBreaks: toSet(a.ScopeBreaks),
	}
}

// Predict tokenizes text, accumulates class logits and applies softmax
func (p *LexiconPipeline) Predict(ctx context.Context, text string) ([]entity.ClassScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logits := p.Logits(p.tokenizer.Tokenize(text))
	probs := softmax(logits)

	scores := make([]entity.ClassScore, len(probs))
	for i, prob := range probs {
		scores[i] = entity.ClassScore{Label: p.artifact.Labels[i], Score: prob}
	}
	return scores, nil
}

// Logits returns the raw class scores for tokens
func (p *LexiconPipeline) Logits(tokens []string) []float64 {
	a := p.artifact
	logits := append([]float64(nil), a.Bias...)

	negated := 0
	boost := 1.0
	for _, tok := range tokens {
		if _, ok := p.scopeBreaks[tok]; ok {
			negated = 0
			boost = 1
			continue
		}
		if _, ok := p.negators[tok]; ok {
			negated = a.NegationScope
			continue
		}
		if f, ok := a.Intensifiers[tok]; ok {
			boost *= f
			continue
		}

		if w, ok := a.Vocab[tok]; ok {
			m := boost
			if negated > 0 {
				m *= -a.NegationFactor
			}
			for i := range logits {
				logits[i] += m * w[i]
			}
		}
		boost = 1
		if negated > 0 {
			negated--
		}
	}
	return logits
}

// softmax subtracts the max logit for numerical stability
func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, l)
	}

	out := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
