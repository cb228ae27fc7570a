package ffi

import "testing"

func TestMarginCalculationFreeCollateralClampsAtZero(t *testing.T) {
	t.Parallel()
	m := MarginCalculation{TotalCollateral: 100, MarginRequirement: 150}
	if got := m.FreeCollateral(); got != 0 {
		t.Errorf("FreeCollateral = %d, want 0", got)
	}
}

func TestMarginCalculationFreeCollateralSubtracts(t *testing.T) {
	t.Parallel()
	m := MarginCalculation{TotalCollateral: 1000, MarginRequirement: 400}
	if got := m.FreeCollateral(); got != 600 {
		t.Errorf("FreeCollateral = %d, want 600", got)
	}
}
