package signals

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// UnavailableConfidence caps the confidence of a signal whose inputs
// could not be fetched
const UnavailableConfidence = 0.1

// Set holds the evaluators in canonical order
type Set struct {
	evaluators []contracts.SignalEvaluator
}

// NewSet creates the standard six-signal set
func NewSet() *Set {
	return &Set{
		evaluators: []contracts.SignalEvaluator{
			NewLineValue(),
			NewTrend(),
			NewUsage(),
			NewMatchup(),
			NewEnvironment(),
			NewCorrelation(),
		},
	}
}

// Evaluators returns the evaluators in evaluation order
func (s *Set) Evaluators() []contracts.SignalEvaluator {
	return s.evaluators
}

// EvaluateAll runs every evaluator against the context. A panicking
// evaluator yields a neutral result.
func (s *Set) EvaluateAll(pc models.PropContext) []models.SignalResult {
	results := make([]models.SignalResult, 0, len(s.evaluators))
	for _, ev := range s.evaluators {
		r := evaluateSafe(ev, pc)
		if pc.IsUnavailable(ev.Type()) {
			r.Confidence = math.Min(r.Confidence, UnavailableConfidence)
			r.Evidence += " (data unavailable)"
		}
		results = append(results, r)
	}
	return results
}

func evaluateSafe(ev contracts.SignalEvaluator, pc models.PropContext) (r models.SignalResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r = models.NewSignalResult(ev.Type(), 0, 0, fmt.Sprintf("evaluator error: %v", rec))
		}
	}()
	return ev.Evaluate(pc)
}

func neutral(t models.SignalType, evidence string) models.SignalResult {
	return models.NewSignalResult(t, 0, 0, evidence)
}

func sign(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// variancePenalty lowers confidence for noisy stat series
func variancePenalty(pc models.PropContext, mean float64) float64 {
	if pc.StatStdDev <= 0 || mean <= 0 {
		return 0
	}
	cv := pc.StatStdDev / mean
	switch {
	case cv > 0.5:
		return 0.10
	case cv > 0.35:
		return 0.05
	}
	return 0
}

func leaning(strength float64) string {
	switch {
	case strength > 0.05:
		return "OVER"
	case strength < -0.05:
		return "UNDER"
	}
	return "neutral"
}
