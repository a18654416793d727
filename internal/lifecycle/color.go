package lifecycle

import (
	"fmt"
	"math/rand/v2"
)

// Pastel channel range. Each RGB component is drawn independently and
// uniformly from [pastelMin, pastelMax].
const (
	pastelMin = 200
	pastelMax = 225
)

// pastelColor generates a random pastel display color as a "#rrggbb" hex
// string. Every new circle gets one.
func pastelColor() string {
	span := pastelMax - pastelMin + 1
	r := rand.IntN(span) + pastelMin
	g := rand.IntN(span) + pastelMin
	b := rand.IntN(span) + pastelMin
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
