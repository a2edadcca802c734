package models

import "testing"

func TestParseCents(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Cents
		wantErr  bool
	}{
		{"whole and fraction", "12.34", 1234, false},
		{"whole only", "12", 1200, false},
		{"single fraction digit", "0.5", 50, false},
		{"excess precision truncates", "1.999", 199, false},
		{"empty is zero", "", 0, false},
		{"negative", "-3.25", -325, false},
		{"leading dot", ".75", 75, false},
		{"garbage", "twelve", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCents(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCents(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCents(%q) error: %v", tt.raw, err)
			}
			if got != tt.expected {
				t.Errorf("ParseCents(%q) = %d, want %d", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestCents_String(t *testing.T) {
	tests := []struct {
		amount   Cents
		expected string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-325, "-3.25"},
		{100000, "1000.00"},
	}

	for _, tt := range tests {
		if got := tt.amount.String(); got != tt.expected {
			t.Errorf("Cents(%d).String() = %q, want %q", tt.amount, got, tt.expected)
		}
	}
}
