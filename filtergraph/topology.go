package filtergraph

import (
	"fmt"

	"wifski/models"
)

// Flag names the ffmpeg option that carries a filter expression.
type Flag string

const (
	FlagSimple  Flag = "-vf"
	FlagComplex Flag = "-filter_complex"
)

// Graph is a filter expression together with the option it is passed under.
type Graph struct {
	Flag Flag
	Expr string
}

// Args renders the graph as two command line arguments.
func (g Graph) Args() []string {
	return []string{string(g.Flag), g.Expr}
}

const (
	paletteGen = "palettegen=stats_mode=full"
	// input 0 is the source media, input 1 the palette image
	sourceLabel  = "[0:v]"
	paletteLabel = "[1:v]"
)

// BounceFragment applies the base chain once to the source stream, splits the
// result, reverses one copy and concatenates forward then reversed.
func BounceFragment(base Chain) string {
	return sourceLabel + base.String() + ",split[a][b];[b]reverse[r];[a][r]concat=n=2:v=1:a=0"
}

// PaletteGraph builds the pass 1 expression. Palette statistics cover the
// whole output, including the reversed half in bounce mode.
func PaletteGraph(loop models.LoopMode, base Chain) Graph {
	switch loop.Kind() {
	case models.LoopBounce:
		return Graph{Flag: FlagComplex, Expr: BounceFragment(base) + "," + paletteGen}
	case models.LoopForever, models.LoopCount:
		return Graph{Flag: FlagSimple, Expr: base.String() + "," + paletteGen}
	default:
		panic(fmt.Sprintf("filtergraph: unhandled loop kind %d", loop.Kind()))
	}
}

// EncodeGraph builds the pass 2 expression, quantizing the processed stream
// against the palette from pass 1.
func EncodeGraph(loop models.LoopMode, base Chain, dither Dither) Graph {
	paletteUse := "[v];[v]" + paletteLabel + "paletteuse=dither=" + string(dither)
	switch loop.Kind() {
	case models.LoopBounce:
		return Graph{Flag: FlagComplex, Expr: BounceFragment(base) + paletteUse}
	case models.LoopForever, models.LoopCount:
		return Graph{Flag: FlagComplex, Expr: sourceLabel + base.String() + paletteUse}
	default:
		panic(fmt.Sprintf("filtergraph: unhandled loop kind %d", loop.Kind()))
	}
}

// LoopArgs returns the GIF repeat argument. Bounce relies on the reversed
// segment instead of a repeat count and emits nothing.
func LoopArgs(loop models.LoopMode) []string {
	switch loop.Kind() {
	case models.LoopForever:
		return []string{"-loop", "0"}
	case models.LoopCount:
		n, _ := loop.Count()
		return []string{"-loop", fmt.Sprint(n)}
	case models.LoopBounce:
		return nil
	default:
		panic(fmt.Sprintf("filtergraph: unhandled loop kind %d", loop.Kind()))
	}
}
