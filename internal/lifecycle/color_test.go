package lifecycle

import (
	"regexp"
	"strconv"
	"testing"
)

func TestPastelColor(t *testing.T) {
	format := regexp.MustCompile(`^#[0-9a-f]{6}$`)

	for i := 0; i < 100; i++ {
		color := pastelColor()

		if !format.MatchString(color) {
			t.Fatalf("pastelColor() = %q, want #rrggbb with lowercase hex", color)
		}

		for ch := 0; ch < 3; ch++ {
			v, err := strconv.ParseInt(color[1+ch*2:3+ch*2], 16, 32)
			if err != nil {
				t.Fatalf("Failed to parse channel %d of %q: %v", ch, color, err)
			}
			if v < pastelMin || v > pastelMax {
				t.Errorf("Channel %d of %q = %d, want in [%d, %d]", ch, color, v, pastelMin, pastelMax)
			}
		}
	}
}
