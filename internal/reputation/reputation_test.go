package reputation

import (
	"testing"

	"github.com/Jpatching/daybreakscan/pkg/models"
)

func TestScoreCleanDeployer(t *testing.T) {
	rep := Score(Inputs{
		DeathRate:       0.1,
		RugRate:         0.0,
		TokenCount:      5,
		VerifiedCount:   5,
		AvgLifespanDays: 60,
		ClusterSize:     0,
	})
	if rep.Verdict != models.VerdictClean {
		t.Fatalf("expected CLEAN, got %s (score %d)", rep.Verdict, rep.Score)
	}
}

func TestScoreLowVerifiedCountCapsAndSuspicious(t *testing.T) {
	rep := Score(Inputs{
		DeathRate:       0.0,
		RugRate:         0.0,
		TokenCount:      1,
		VerifiedCount:   1,
		AvgLifespanDays: 100,
	})
	if rep.Verdict != models.VerdictSuspicious {
		t.Fatalf("expected SUSPICIOUS, got %s", rep.Verdict)
	}
	if rep.Score > 59 {
		t.Fatalf("expected score capped at 59, got %d", rep.Score)
	}
}

func TestScoreHighBayesAndTokenCountIsSerialRugger(t *testing.T) {
	rep := Score(Inputs{
		DeathRate:     1.0,
		RugRate:       1.0,
		TokenCount:    10,
		VerifiedCount: 10,
	})
	if rep.Verdict != models.VerdictSerialRugger {
		t.Fatalf("expected SERIAL_RUGGER, got %s (score %d, bayes %.2f)", rep.Verdict, rep.Score, rep.Breakdown.BayesRate)
	}
}

func TestScoreDeductionsAppearInNarrative(t *testing.T) {
	rep := Score(Inputs{
		DeathRate:               0.1,
		VerifiedCount:           5,
		TokenCount:              3,
		MintAuthorityActiveFrac: 1.0,
		DeployerIsBurner:        true,
	})
	if rep.Breakdown.RiskDeductions >= 0 {
		t.Fatalf("expected negative deductions, got %.2f", rep.Breakdown.RiskDeductions)
	}
	found := false
	for _, n := range rep.Breakdown.Narrative {
		if n == "deployer wallet is a short-lived burner" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected burner narrative entry, got %+v", rep.Breakdown.Narrative)
	}
}

func TestScoreClampsToZeroAndHundred(t *testing.T) {
	rep := Score(Inputs{
		DeathRate:               1,
		VerifiedCount:           100,
		TokenCount:              1,
		MintAuthorityActiveFrac: 1,
		FreezeAuthorityActiveFrac: 1,
		TopHolderPctMax:         90,
		BundleDetectedAny:       true,
		DeployerHoldingsPctMax:  90,
		DeployVelocityPerDay:    10,
		DeployerIsBurner:        true,
	})
	if rep.Score < 0 || rep.Score > 100 {
		t.Fatalf("expected score in [0,100], got %d", rep.Score)
	}
}
