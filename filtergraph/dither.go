package filtergraph

// Dither is the paletteuse dithering algorithm.
type Dither string

const (
	DitherSierra Dither = "sierra2_4a"
	DitherBayer  Dither = "bayer"
	DitherNone   Dither = "none"
)

// Quality thresholds; both comparisons are strict.
const (
	sierraAbove = 85
	bayerAbove  = 60
)

// DitherFor selects the dithering algorithm for a quality value.
func DitherFor(quality int) Dither {
	switch {
	case quality > sierraAbove:
		return DitherSierra
	case quality > bayerAbove:
		return DitherBayer
	default:
		return DitherNone
	}
}
