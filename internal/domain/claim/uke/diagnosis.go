package uke

import (
	"context"
	"errors"
	"fmt"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
)

// UncodedDiagnosis is the regulator code for a free-text diagnosis name.
const UncodedDiagnosis = "0000999"

type DiagnosisLookup interface {
	FindDiagnosisByCode(ctx context.Context, code string) (*reference.Diagnosis, error)
	FindDiagnosisByName(ctx context.Context, name string) (*reference.Diagnosis, error)
}

// resolveDiagnosis looks the diagnosis up by code, then by name. When neither
// matches it returns the uncoded sentinel with ok false.
func resolveDiagnosis(ctx context.Context, lookup DiagnosisLookup, d Diagnosis) (code, name string, ok bool, err error) {
	if lookup != nil && d.Code != "" {
		m, err := lookup.FindDiagnosisByCode(ctx, d.Code)
		if err == nil {
			return m.Code, m.Name, true, nil
		}
		if !errors.Is(err, reference.ErrNotFound) {
			return "", "", false, fmt.Errorf("diagnosis lookup %s: %w", d.Code, err)
		}
	}
	if lookup != nil && d.Name != "" {
		m, err := lookup.FindDiagnosisByName(ctx, d.Name)
		if err == nil {
			return m.Code, m.Name, true, nil
		}
		if !errors.Is(err, reference.ErrNotFound) {
			return "", "", false, fmt.Errorf("diagnosis lookup %s: %w", d.Name, err)
		}
	}
	return UncodedDiagnosis, d.Name, false, nil
}
