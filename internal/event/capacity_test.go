package event

import "testing"

func intPtr(v int) *int { return &v }

func TestComputeCapacity_Unlimited(t *testing.T) {
	info := ComputeCapacity(nil, 42)

	if !info.Unlimited {
		t.Error("expected unlimited")
	}
	if info.SpotsRemaining != nil {
		t.Error("spots remaining should be nil for unlimited events")
	}
	if info.CapacityText != "42 Teilnehmer" {
		t.Errorf("CapacityText = %q", info.CapacityText)
	}
	if info.SpotsText != "Unbegrenzte Plätze" {
		t.Errorf("SpotsText = %q", info.SpotsText)
	}
	if info.WarningText != "" {
		t.Errorf("WarningText = %q, want empty", info.WarningText)
	}
}

func TestComputeCapacity_PlentyOfSpots(t *testing.T) {
	info := ComputeCapacity(intPtr(100), 42)

	if info.Unlimited || info.Full || info.AlmostFull {
		t.Error("expected normal capacity state")
	}
	if info.SpotsRemaining == nil || *info.SpotsRemaining != 58 {
		t.Errorf("SpotsRemaining = %v, want 58", info.SpotsRemaining)
	}
	if info.CapacityText != "42 / 100 Teilnehmer" {
		t.Errorf("CapacityText = %q", info.CapacityText)
	}
	if info.SpotsText != "Noch 58 Plätze verfügbar" {
		t.Errorf("SpotsText = %q", info.SpotsText)
	}
	if info.WarningText != "" {
		t.Errorf("WarningText = %q, want empty", info.WarningText)
	}
}

func TestComputeCapacity_AlmostFull(t *testing.T) {
	info := ComputeCapacity(intPtr(100), 85)

	if !info.AlmostFull {
		t.Error("expected almost-full state at 15 remaining")
	}
	if info.WarningText != "Nur noch 15 Plätze!" {
		t.Errorf("WarningText = %q", info.WarningText)
	}
}

func TestComputeCapacity_Full(t *testing.T) {
	for _, registrations := range []int{100, 105} {
		info := ComputeCapacity(intPtr(100), registrations)

		if !info.Full {
			t.Errorf("registrations=%d: expected full", registrations)
		}
		if info.WarningText != "Ausgebucht" {
			t.Errorf("WarningText = %q", info.WarningText)
		}
		if info.SpotsText != "" {
			t.Errorf("SpotsText = %q, want empty when full", info.SpotsText)
		}
	}
}

func TestComputeCapacity_ThresholdBoundary(t *testing.T) {
	// 残り21は通常、残り20で警告
	if info := ComputeCapacity(intPtr(100), 79); info.AlmostFull {
		t.Error("21 remaining should not be almost full")
	}
	if info := ComputeCapacity(intPtr(100), 80); !info.AlmostFull {
		t.Error("20 remaining should be almost full")
	}
}
