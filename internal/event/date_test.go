package event

import (
	"errors"
	"testing"
	"time"
)

func mustNormalizer(t *testing.T, zone string) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(zone)
	if err != nil {
		t.Fatalf("NewNormalizer(%q) error: %v", zone, err)
	}
	return n
}

func TestParseDate(t *testing.T) {
	n := mustNormalizer(t, "America/New_York")

	tests := []struct {
		name       string
		text       string
		wantYear   int
		wantMonth  time.Month
		wantDay    int
		wantHour   int
		wantMinute int
	}{
		{"long month", "January 5, 2023", 2023, time.January, 5, 0, 0},
		{"short month", "Jan 5, 2023", 2023, time.January, 5, 0, 0},
		{"weekday prefix", "Thursday, March 2, 2023", 2023, time.March, 2, 0, 0},
		{"combined date and time", "Thursday, March 2, 2023 11:40am", 2023, time.March, 2, 11, 40},
		{"combined with dotted meridiem", "March 2, 2023 3:45 p.m.", 2023, time.March, 2, 15, 45},
		{"iso", "2023-09-14", 2023, time.September, 14, 0, 0},
		{"slashes", "9/14/2023", 2023, time.September, 14, 0, 0},
		{"extra whitespace", "  January   5,\n 2023 ", 2023, time.January, 5, 0, 0},
		{"weekday without comma", "Thursday January 5, 2023", 2023, time.January, 5, 0, 0},
		{"four letter abbreviation", "Sept 12, 2023", 2023, time.September, 12, 0, 0},
		{"dotted abbreviation", "Sept. 12, 2023", 2023, time.September, 12, 0, 0},
		{"short weekday, slashes and dash", "Thu, 01/05/2023 - 4:15pm", 2023, time.January, 5, 16, 15},
		{"day first", "5 January 2023", 2023, time.January, 5, 0, 0},
		{"date, comma, time", "Tuesday, January 10, 2023, 3:30 pm", 2023, time.January, 10, 15, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.ParseDate(tt.text)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.text, err)
			}
			if got.Year() != tt.wantYear || got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseDate(%q) date = %v, want %d-%02d-%02d", tt.text, got, tt.wantYear, tt.wantMonth, tt.wantDay)
			}
			if got.Hour() != tt.wantHour || got.Minute() != tt.wantMinute {
				t.Errorf("ParseDate(%q) clock = %02d:%02d, want %02d:%02d", tt.text, got.Hour(), got.Minute(), tt.wantHour, tt.wantMinute)
			}
			if got.Location().String() != "America/New_York" {
				t.Errorf("ParseDate(%q) location = %s, want America/New_York", tt.text, got.Location())
			}
		})
	}
}

func TestParseDate_AttachesZoneWithoutConverting(t *testing.T) {
	for _, zone := range []string{"America/Los_Angeles", "America/New_York"} {
		n := mustNormalizer(t, zone)
		got, err := n.ParseDate("July 4, 2024 10:00 AM")
		if err != nil {
			t.Fatalf("ParseDate error: %v", err)
		}
		if got.Hour() != 10 {
			t.Errorf("%s: hour = %d, want 10 (wall clock kept)", zone, got.Hour())
		}
		if got.Format("2006-01-02") != "2024-07-04" {
			t.Errorf("%s: date = %s, want 2024-07-04", zone, got.Format("2006-01-02"))
		}
		want, _ := time.LoadLocation(zone)
		_, gotOffset := got.Zone()
		_, wantOffset := time.Date(2024, 7, 4, 10, 0, 0, 0, want).Zone()
		if gotOffset != wantOffset {
			t.Errorf("%s: offset = %d, want %d", zone, gotOffset, wantOffset)
		}
	}
}

func TestParseDate_StripTimeRange(t *testing.T) {
	n := mustNormalizer(t, "America/Los_Angeles")
	n.StripTimeRange = true

	got, err := n.ParseDate("Tuesday, January 10, 2023, 3:30-4:20 pm")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if got.Hour() != 15 || got.Minute() != 30 {
		t.Errorf("clock = %02d:%02d, want 15:30", got.Hour(), got.Minute())
	}
	if got.Day() != 10 {
		t.Errorf("day = %d, want 10", got.Day())
	}
}

func TestParseDate_Errors(t *testing.T) {
	n := mustNormalizer(t, "America/New_York")
	for _, text := range []string{"", "   ", "not a date at all", "TBA"} {
		if _, err := n.ParseDate(text); !errors.Is(err, ErrParse) {
			t.Errorf("ParseDate(%q) error = %v, want ErrParse", text, err)
		}
	}
}

func TestParseStamp(t *testing.T) {
	n := mustNormalizer(t, "America/Los_Angeles")
	got, err := n.ParseStamp("2009-10-05T17:32:10Z")
	if err != nil {
		t.Fatalf("ParseStamp error: %v", err)
	}
	if got.Hour() != 17 || got.Minute() != 32 || got.Second() != 10 {
		t.Errorf("stamp clock = %s, want 17:32:10", got.Format("15:04:05"))
	}
	if got.Location().String() != "America/Los_Angeles" {
		t.Errorf("stamp location = %s", got.Location())
	}

	if _, err := n.ParseStamp("2009-10-05 17:32"); !errors.Is(err, ErrParse) {
		t.Errorf("ParseStamp(bad) error = %v, want ErrParse", err)
	}
}

func TestClock(t *testing.T) {
	tests := []struct {
		hour, minute string
		midnightFix  bool
		wantHour     int
		wantMinute   int
	}{
		{"12", "00pm", false, 12, 0},
		{"9", "30am", false, 9, 30},
		{"11", "45pm", false, 23, 45},
		{"1", "05PM", false, 13, 5},
		{" 3", "30 pm", false, 15, 30},
		{"14", "00", false, 14, 0},
		{"12", "15am", false, 12, 15},
		{"12", "15am", true, 0, 15},
		{"12", "00pm", true, 12, 0},
	}

	for _, tt := range tests {
		n := &Normalizer{MidnightFix: tt.midnightFix}
		h, m, err := n.Clock(tt.hour, tt.minute)
		if err != nil {
			t.Errorf("Clock(%q, %q) error: %v", tt.hour, tt.minute, err)
			continue
		}
		if h != tt.wantHour || m != tt.wantMinute {
			t.Errorf("Clock(%q, %q, fix=%v) = %d, %d, want %d, %d", tt.hour, tt.minute, tt.midnightFix, h, m, tt.wantHour, tt.wantMinute)
		}
	}
}

func TestClock_Errors(t *testing.T) {
	n := &Normalizer{}
	tests := [][2]string{
		{"x", "00pm"},
		{"3", "xxpm"},
		{"13", "00pm"},
		{"3", "75"},
	}
	for _, tt := range tests {
		if _, _, err := n.Clock(tt[0], tt[1]); !errors.Is(err, ErrParse) {
			t.Errorf("Clock(%q, %q) error = %v, want ErrParse", tt[0], tt[1], err)
		}
	}
}

func TestParseClock(t *testing.T) {
	n := &Normalizer{}

	h, m, err := n.ParseClock("  4:00 pm ")
	if err != nil {
		t.Fatalf("ParseClock error: %v", err)
	}
	if h != 16 || m != 0 {
		t.Errorf("ParseClock = %d:%02d, want 16:00", h, m)
	}

	for _, bad := range []string{"4pm", "4:00:00", ""} {
		if _, _, err := n.ParseClock(bad); !errors.Is(err, ErrParse) {
			t.Errorf("ParseClock(%q) error = %v, want ErrParse", bad, err)
		}
	}
}

func TestWithClock(t *testing.T) {
	loc, _ := time.LoadLocation("America/Los_Angeles")
	date := time.Date(2023, time.January, 10, 0, 0, 0, 0, loc)

	got := WithClock(date, 15, 30)
	want := time.Date(2023, time.January, 10, 15, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("WithClock = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("WithClock changed location to %s", got.Location())
	}
}

func TestNewNormalizer_BadZone(t *testing.T) {
	if _, err := NewNormalizer("Mars/Olympus_Mons"); !errors.Is(err, ErrConfig) {
		t.Errorf("NewNormalizer(bad) error = %v, want ErrConfig", err)
	}
}
