package period

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		startDay int
		want     string
	}{
		{"before_start_day_uses_previous_month", date(2024, 5, 10), 26, "2024-04"},
		{"after_start_day_uses_current_month", date(2024, 5, 27), 26, "2024-05"},
		{"on_start_day_uses_current_month", date(2024, 5, 26), 26, "2024-05"},
		{"january_rolls_back_a_year", date(2024, 1, 3), 15, "2023-12"},
		{"start_day_one_is_calendar_month", date(2024, 7, 1), 1, "2024-07"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Current(tt.now, tt.startDay).String(); got != tt.want {
				t.Errorf("Current(%s, %d) = %s, want %s", tt.now.Format("2006-01-02"), tt.startDay, got, tt.want)
			}
		})
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		startDay  int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"start_day_26", "2024-05", 26, date(2024, 4, 27), date(2024, 5, 26)},
		{"start_day_1", "2024-05", 1, date(2024, 4, 2), date(2024, 5, 1)},
		{"january_crosses_year", "2024-01", 10, date(2023, 12, 11), date(2024, 1, 10)},
		{"february_overflow", "2023-03", 28, date(2023, 3, 1), date(2023, 3, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.label)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			start, end := Range(p, tt.startDay)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %s, want %s", start.Format("2006-01-02"), tt.wantStart.Format("2006-01-02"))
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %s, want %s", end.Format("2006-01-02"), tt.wantEnd.Format("2006-01-02"))
			}
		})
	}
}

func TestPrevNext(t *testing.T) {
	if got := New(2024, time.January).Prev().String(); got != "2023-12" {
		t.Errorf("Prev of 2024-01 = %s, want 2023-12", got)
	}
	if got := New(2024, time.June).Prev().String(); got != "2024-05" {
		t.Errorf("Prev of 2024-06 = %s, want 2024-05", got)
	}
	if got := New(2023, time.December).Next().String(); got != "2024-01" {
		t.Errorf("Next of 2023-12 = %s, want 2024-01", got)
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("2024-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Year != 2024 || p.Month != time.May {
		t.Errorf("got %+v", p)
	}
	if !p.FirstDay().Equal(date(2024, 5, 1)) {
		t.Errorf("FirstDay = %s", p.FirstDay())
	}

	for _, bad := range []string{"2024-13", "2024/05", "May 2024", ""} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestValidStartDay(t *testing.T) {
	for _, d := range []int{1, 15, 28} {
		if !ValidStartDay(d) {
			t.Errorf("expected %d to be valid", d)
		}
	}
	for _, d := range []int{0, 29, 31, -1} {
		if ValidStartDay(d) {
			t.Errorf("expected %d to be invalid", d)
		}
	}
}
