package connector

import "testing"

func TestParsePeriodLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"2024-Q1", "2024-01-01"},
		{"2024-Q2", "2024-04-01"},
		{"2024-Q3", "2024-07-01"},
		{"2024-Q4", "2024-10-01"},
		{"2024-03", "2024-03-01"},
		{"2024-12", "2024-12-01"},
		{"2024", "2024-01-01"},
		{"2024-03-15", "2024-03-15"},
		{"2024-Q9", "2024-Q9"},
	}
	for _, tc := range cases {
		if got := parsePeriodLabel(tc.in); got != tc.want {
			t.Errorf("parsePeriodLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseEstatPeriod(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"202411M00", "2024-11-01"},
		{"202401M00", "2024-01-01"},
		{"20241Q00", "2024-01-01"},
		{"20243Q00", "2024-07-01"},
		{"2024CY00", "2024-01-01"},
		{"2024FY00", "2024-04-01"},
		{"20240000", "2024-01-01"},
		{"2024", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := parseEstatPeriod(tc.in); got != tc.want {
			t.Errorf("parseEstatPeriod(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
