package transform

import (
	"testing"
	"unicode/utf8"

	"pulseboard/internal/domain"
)

func TestASCIISparklineShape(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := []rune(ASCIISparkline(values, 10))

	if len(got) != 10 {
		t.Fatalf("expected 10 glyphs, got %d", len(got))
	}
	if got[0] != blockRamp[0] {
		t.Fatalf("lowest value must render the lowest ramp level, got %q", got[0])
	}
	if got[len(got)-1] != blockRamp[8] {
		t.Fatalf("highest value must render the full block, got %q", got[len(got)-1])
	}
}

func TestASCIISparklineConstant(t *testing.T) {
	t.Parallel()

	got := ASCIISparkline([]float64{5, 5, 5, 5, 5}, 10)
	want := "▄▄▄▄▄"
	if got != want {
		t.Fatalf("constant series: got %q, want %q", got, want)
	}
}

func TestASCIISparklineEmpty(t *testing.T) {
	t.Parallel()

	if got := ASCIISparkline(nil, 10); got != "" {
		t.Fatalf("empty input must render empty, got %q", got)
	}
}

func TestASCIISparklineDownsamples(t *testing.T) {
	t.Parallel()

	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i)
	}
	got := ASCIISparkline(values, 10)
	if n := utf8.RuneCountInString(got); n != 10 {
		t.Fatalf("expected 10 glyphs after downsampling, got %d (%q)", n, got)
	}
}

func TestBrailleSparkline(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	got := BrailleSparkline(values, 4)
	if n := utf8.RuneCountInString(got); n != 4 {
		t.Fatalf("expected 4 glyphs, got %d (%q)", n, got)
	}
	for _, r := range got {
		if r < brailleBase || r > brailleBase+0xFF {
			t.Fatalf("glyph %q outside the braille block", r)
		}
	}
}

func TestBrailleSparklineFlat(t *testing.T) {
	t.Parallel()

	got := []rune(BrailleSparkline([]float64{3, 3, 3}, 4))
	if len(got) != 4 {
		t.Fatalf("flat series must fill the full width, got %d glyphs", len(got))
	}
	mid := rune(brailleBase + brailleLeft[2] + brailleRight[2])
	for _, r := range got {
		if r != mid {
			t.Fatalf("flat series must render at mid height, got %q", r)
		}
	}
}

func TestBrailleSparklineEmpty(t *testing.T) {
	t.Parallel()

	if got := BrailleSparkline(nil, 4); got != "" {
		t.Fatalf("empty input must render empty, got %q", got)
	}
}

func TestBrailleSparklinePadsShortInput(t *testing.T) {
	t.Parallel()

	// 3 points for width 4 (8 slots); the last value repeats.
	got := BrailleSparkline([]float64{1, 2, 3}, 4)
	if n := utf8.RuneCountInString(got); n != 4 {
		t.Fatalf("expected 4 glyphs, got %d (%q)", n, got)
	}
}

func TestSparklineValues(t *testing.T) {
	t.Parallel()

	obs := []domain.Observation{
		makeObservation("test", "2024-03-01", 3),
		makeObservation("test", "2024-02-01", 2),
		makeObservation("test", "2024-01-01", 1),
	}

	got := SparklineValues(obs, 2)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("expected oldest-first [2 3], got %v", got)
	}

	got = SparklineValues(obs, 10)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("n beyond length must return all values oldest-first, got %v", got)
	}
}
