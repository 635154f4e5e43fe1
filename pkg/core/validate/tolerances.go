package validate

import (
	"fmt"
	"os"

	hjson "github.com/hjson/hjson-go/v4"

	"armbudget/pkg/models"
)

// =============================================================================
// TOLERANCE PROFILES
// =============================================================================

// Profile bounds acceptable deviation for one report family. Absolute is
// in thousand dram and applies to monetary comparisons; Fractional
// applies to execution ratios.
type Profile struct {
	Absolute   float64 `json:"absolute"`
	Fractional float64 `json:"fractional"`
}

// Tolerances carries one profile per report family. Budget law and MTEP
// amounts are enacted figures and must reconcile exactly; spending
// reports accumulate rounding from treasury postings.
type Tolerances struct {
	BudgetLaw Profile `json:"budget_law"`
	Spending  Profile `json:"spending"`
	MTEP      Profile `json:"mtep"`
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		BudgetLaw: Profile{Absolute: 0, Fractional: 1e-3},
		Spending:  Profile{Absolute: 5.0, Fractional: 1e-3},
		MTEP:      Profile{Absolute: 0, Fractional: 1e-3},
	}
}

func (t Tolerances) For(rt models.ReportType) Profile {
	switch rt.Family() {
	case models.FamilyLaw:
		return t.BudgetLaw
	case models.FamilyMTEP:
		return t.MTEP
	default:
		return t.Spending
	}
}

// LoadTolerances reads an analyst-maintained Hjson profile file. Hjson
// because these files carry comments explaining why a year was loosened.
// A missing file yields the defaults.
func LoadTolerances(path string) (Tolerances, error) {
	tol := DefaultTolerances()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tol, nil
		}
		return tol, fmt.Errorf("read tolerances %s: %w", path, err)
	}
	if err := hjson.Unmarshal(data, &tol); err != nil {
		return tol, fmt.Errorf("parse tolerances %s: %w", path, err)
	}
	return tol, nil
}
