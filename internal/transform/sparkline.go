package transform

import (
	"strings"

	"pulseboard/internal/domain"
)

var blockRamp = []rune(" ▁▂▃▄▅▆▇█")

// SparklineValues truncates a date-descending observation sequence to
// the most recent n points and returns the bare values oldest-first,
// ready for rendering.
func SparklineValues(observations []domain.Observation, n int) []float64 {
	if n > len(observations) {
		n = len(observations)
	}
	values := make([]float64, 0, n)
	for i := n - 1; i >= 0; i-- {
		values = append(values, observations[i].Value)
	}
	return values
}

// ASCIISparkline maps a value sequence onto the 9-level block ramp by
// linear min-max normalization. A constant sequence maps entirely to
// the midpoint glyph; sequences longer than width are downsampled by
// fixed-stride index selection.
func ASCIISparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	minVal, maxVal := minMax(values)

	if maxVal == minVal {
		n := len(values)
		if n > width {
			n = width
		}
		return strings.Repeat(string(blockRamp[4]), n)
	}

	values = downsample(values, width)

	var b strings.Builder
	for _, v := range values {
		normalized := (v - minVal) / (maxVal - minVal)
		b.WriteRune(blockRamp[int(normalized*8)])
	}
	return b.String()
}

// Braille column heights, bottom-up, for 0-4 lit dots. Each braille
// rune packs two data points, doubling horizontal resolution over the
// block ramp.
var (
	brailleLeft  = [5]rune{0, 64, 64 + 4, 64 + 4 + 2, 64 + 4 + 2 + 1}
	brailleRight = [5]rune{0, 128, 128 + 32, 128 + 32 + 16, 128 + 32 + 16 + 8}
)

const brailleBase = 0x2800

// BrailleSparkline renders two data points per glyph with five height
// levels per column. A flat sequence renders at mid height; input is
// stride-downsampled or padded with its last value to exactly width*2
// points.
func BrailleSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	minVal, maxVal := minMax(values)

	if maxVal == minVal {
		mid := brailleBase + brailleLeft[2] + brailleRight[2]
		return strings.Repeat(string(mid), width)
	}

	target := width * 2
	if len(values) > target {
		values = downsample(values, target)
	}
	for len(values) < target {
		values = append(values, values[len(values)-1])
	}

	level := func(v float64) int {
		return int((v - minVal) / (maxVal - minVal) * 4)
	}

	var b strings.Builder
	for i := 0; i < len(values); i += 2 {
		left := level(values[i])
		right := left
		if i+1 < len(values) {
			right = level(values[i+1])
		}
		b.WriteRune(brailleBase + brailleLeft[left] + brailleRight[right])
	}
	return b.String()
}

func minMax(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// downsample selects width values by fixed stride; it never averages.
func downsample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	step := float64(len(values)) / float64(width)
	out := make([]float64, 0, width)
	for i := 0; i < width; i++ {
		out = append(out, values[int(float64(i)*step)])
	}
	return out
}
