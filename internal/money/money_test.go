package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		num, den string
		want     string
	}{
		{"half", "50", "100", "0.5"},
		{"capped", "150", "100", "1"},
		{"zero_denominator", "10", "0", "0"},
		{"negative_denominator", "10", "-5", "0"},
		{"exact_eighty_percent", "160000", "200000", "0.8"},
		{"just_below_one_truncates", "99999.99", "100000", "0.999999"},
		{"just_below_eighty_percent_truncates", "79999.99", "100000", "0.799999"},
		{"negative_numerator", "-10", "100", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(d(tt.num), d(tt.den))
			if !got.Equal(d(tt.want)) {
				t.Errorf("Ratio(%s, %s) = %s, want %s", tt.num, tt.den, got, tt.want)
			}
		})
	}
}

func TestNonNegative(t *testing.T) {
	if got := NonNegative(d("-3.50")); !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
	if got := NonNegative(d("3.50")); !got.Equal(d("3.5")) {
		t.Errorf("expected 3.5, got %s", got)
	}
}

func TestRepeatedAdditionIsExact(t *testing.T) {
	total := Zero
	for i := 0; i < 1000; i++ {
		total = total.Add(d("0.10"))
	}
	if !total.Equal(d("100")) {
		t.Errorf("expected exactly 100, got %s", total)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12.34", "12.34", false},
		{"12,34", "12.34", false},
		{" 150000 ", "150000", false},
		{"-20", "-20", false},
		{"1.234", "", true},
		{"abc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(d("100"), d("100.50"), d("0.5")) {
		t.Error("expected 0.50 difference to be within 0.5 tolerance")
	}
	if WithinTolerance(d("100"), d("100.51"), d("0.5")) {
		t.Error("expected 0.51 difference to be outside 0.5 tolerance")
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); !got.IsZero() {
		t.Errorf("expected zero for no values, got %s", got)
	}
	if got := Sum(d("10.25"), d("-0.25"), d("5")); !got.Equal(d("15")) {
		t.Errorf("expected 15, got %s", got)
	}
}
