package encoder

import (
	"fmt"

	"wifski/filtergraph"
	"wifski/logger"
	"wifski/models"
)

// preamble starts every invocation: no banner, never read the terminal.
var preamble = []string{"-hide_banner", "-nostdin"}

// Job is one two-pass conversion. It owns the palette and output artifact
// paths and derives both command lines from a single base chain.
type Job struct {
	ID          string
	InputPath   string
	PalettePath string
	OutputPath  string
	Options     models.ConversionOptions
	Chain       filtergraph.Chain
	Dither      filtergraph.Dither

	state State
}

// NewJob derives the filter chain and dither token for opts.
func NewJob(id, inputPath, palettePath, outputPath string, opts models.ConversionOptions) *Job {
	return &Job{
		ID:          id,
		InputPath:   inputPath,
		PalettePath: palettePath,
		OutputPath:  outputPath,
		Options:     opts,
		Chain:       filtergraph.Build(opts),
		Dither:      filtergraph.DitherFor(opts.Quality),
		state:       StateIdle,
	}
}

// State returns the current pipeline state.
func (j *Job) State() State {
	return j.state
}

// PaletteArgs is the pass 1 argument list. It reads only the source media.
func (j *Job) PaletteArgs() []string {
	graph := filtergraph.PaletteGraph(j.Options.Loop, j.Chain)

	args := append([]string{}, preamble...)
	args = append(args, "-i", j.InputPath)
	args = append(args, graph.Args()...)
	return append(args, "-y", j.PalettePath)
}

// EncodeArgs is the pass 2 argument list. Input 0 is the source media and
// input 1 the palette written by pass 1.
func (j *Job) EncodeArgs() []string {
	graph := filtergraph.EncodeGraph(j.Options.Loop, j.Chain, j.Dither)

	args := append([]string{}, preamble...)
	args = append(args, "-i", j.InputPath, "-i", j.PalettePath)
	args = append(args, graph.Args()...)
	args = append(args, filtergraph.LoopArgs(j.Options.Loop)...)
	return append(args, "-y", j.OutputPath)
}

func (j *Job) transition(to State) error {
	if !canTransition(j.state, to) {
		return fmt.Errorf("job %s: %s -> %s: %w", j.ID, j.state, to, ErrInvalidTransition)
	}
	logger.Debugf("job %s: %s -> %s", j.ID, j.state, to)
	j.state = to
	return nil
}
