// Package reputation computes the final Bayesian-shrunk reputation
// score and verdict for a deployer from its aggregated scan evidence.
//
// Grounded directly on internal/heuristics/privacy_score.go's
// clamp(base + sum-of-weighted-signals) shape: the same per-component
// breakdown struct idiom, the same narrative-string accumulation.
package reputation

import (
	"math"

	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	bayesPseudoCount = 5.0
	bayesPriorRate   = 0.5
	burnerDeduction  = 8.0
)

// Inputs is every signal the engine needs. Risk fields are
// aggregates over the deployer's scanned tokens (e.g. the fraction
// with an active mint authority), computed by the caller.
type Inputs struct {
	DeathRate               float64
	RugRate                 float64
	TokenCount              int
	VerifiedCount           int
	UnverifiedCount         int
	AvgLifespanDays         float64
	ClusterSize             int
	MintAuthorityActiveFrac float64
	FreezeAuthorityActiveFrac float64
	TopHolderPctMax         float64
	BundleDetectedAny       bool
	DeployerHoldingsPctMax  float64
	DeployVelocityPerDay    float64
	DeployerIsBurner        bool
}

// Score computes the Bayesian shrinkage rate, every score component,
// risk deductions, the clamped final score, verdict, and narrative.
func Score(in Inputs) models.Reputation {
	bayesRate := (in.DeathRate*float64(in.VerifiedCount) + bayesPriorRate*bayesPseudoCount) / (float64(in.VerifiedCount) + bayesPseudoCount)

	deathComponent := (1 - bayesRate) * 40
	tokenCountComponent := tokenCountScore(in.TokenCount, in.RugRate)
	lifespanComponent := math.Min(20, in.AvgLifespanDays*0.5)
	clusterComponent := math.Max(0, 20-math.Min(20, float64(in.ClusterSize)*2))

	deductions, narrative := riskDeductions(in)

	raw := deathComponent + tokenCountComponent + lifespanComponent + clusterComponent + deductions
	score := int(math.Round(clamp(raw, 0, 100)))

	verdict := verdictFor(score, bayesRate, in.TokenCount, in.VerifiedCount)
	if in.VerifiedCount < 3 && score > 59 {
		score = 59
	}

	return models.Reputation{
		Score:   score,
		Verdict: verdict,
		Breakdown: models.ScoreBreakdown{
			DeathComponent:      deathComponent,
			TokenCountComponent: tokenCountComponent,
			LifespanComponent:   lifespanComponent,
			ClusterComponent:    clusterComponent,
			RiskDeductions:      deductions,
			BayesRate:           bayesRate,
			Narrative:           narrative,
		},
	}
}

func tokenCountScore(tokenCount int, rugRate float64) float64 {
	base := math.Max(0, 20*(1-math.Log10(math.Max(1, float64(tokenCount)))/3))
	lost := 20 - base
	scale := math.Min(1, rugRate/0.5)
	return 20 - lost*scale
}

func riskDeductions(in Inputs) (float64, []string) {
	var deductions float64
	var narrative []string

	if in.MintAuthorityActiveFrac > 0 {
		deductions -= 10
		narrative = append(narrative, "mint authority active")
	}
	if in.FreezeAuthorityActiveFrac > 0 {
		deductions -= 5
		narrative = append(narrative, "freeze authority active")
	}

	switch {
	case in.TopHolderPctMax > 80:
		deductions -= 5
		narrative = append(narrative, "top holder concentration above 80%")
	case in.TopHolderPctMax > 60:
		deductions -= 3
		narrative = append(narrative, "top holder concentration above 60%")
	case in.TopHolderPctMax > 40:
		deductions -= 2
		narrative = append(narrative, "top holder concentration above 40%")
	}

	if in.BundleDetectedAny {
		deductions -= 5
		narrative = append(narrative, "bundled launch detected")
	}

	switch {
	case in.DeployerHoldingsPctMax > 50:
		deductions -= 10
		narrative = append(narrative, "deployer holdings above 50%")
	case in.DeployerHoldingsPctMax > 30:
		deductions -= 5
		narrative = append(narrative, "deployer holdings above 30%")
	case in.DeployerHoldingsPctMax > 10:
		deductions -= 3
		narrative = append(narrative, "deployer holdings above 10%")
	}

	switch {
	case in.DeployVelocityPerDay > 5:
		deductions -= 10
		narrative = append(narrative, "deploy velocity above 5/day")
	case in.DeployVelocityPerDay > 2:
		deductions -= 5
		narrative = append(narrative, "deploy velocity above 2/day")
	case in.DeployVelocityPerDay > 1:
		deductions -= 3
		narrative = append(narrative, "deploy velocity above 1/day")
	}

	if in.DeployerIsBurner {
		deductions -= burnerDeduction
		narrative = append(narrative, "deployer wallet is a short-lived burner")
	}

	return deductions, narrative
}

func verdictFor(score int, bayesRate float64, tokenCount, verifiedCount int) models.Verdict {
	switch {
	case verifiedCount < 3:
		return models.VerdictSuspicious
	case bayesRate > 0.8 && tokenCount >= 3:
		return models.VerdictSerialRugger
	case score < 30:
		return models.VerdictSerialRugger
	case score < 60:
		return models.VerdictSuspicious
	default:
		return models.VerdictClean
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
