package filtergraph

import (
	"fmt"
	"strconv"
	"strings"

	"wifski/models"
)

// Chain is the base filter chain for one conversion. It is built once and
// read-only afterwards.
type Chain struct {
	stages  []string
	trimmed bool
}

// Build derives the base chain from normalized options. Stage order is
// fixed: optional trim, fps, scale, then setpts. Timestamps are reset after
// a trim before the speed division is applied.
func Build(opts models.ConversionOptions) Chain {
	stages := make([]string, 0, 4)

	trim := trimStage(opts.StartTime, opts.EndTime)
	if trim != "" {
		stages = append(stages, trim)
	}
	stages = append(stages,
		"fps="+strconv.Itoa(opts.FPS),
		ScaleExpr(opts.Resize),
		setptsStage(opts.Speed, trim != ""),
	)
	return Chain{stages: stages, trimmed: trim != ""}
}

// String joins the stages into the comma separated chain ffmpeg expects.
func (c Chain) String() string {
	return strings.Join(c.stages, ",")
}

// Stages returns a copy of the individual stage tokens.
func (c Chain) Stages() []string {
	return append([]string(nil), c.stages...)
}

// Trimmed reports whether the chain starts with a trim stage.
func (c Chain) Trimmed() bool {
	return c.trimmed
}

// trimStage quotes each present bound so colons inside timestamps survive
// option parsing.
func trimStage(start, end string) string {
	var parts []string
	if start != "" {
		parts = append(parts, fmt.Sprintf("start='%s'", start))
	}
	if end != "" {
		parts = append(parts, fmt.Sprintf("end='%s'", end))
	}
	if len(parts) == 0 {
		return ""
	}
	return "trim=" + strings.Join(parts, ":")
}

func setptsStage(speed float64, trimmed bool) string {
	s := FormatSpeed(speed)
	if trimmed {
		return "setpts=(PTS-STARTPTS)/" + s
	}
	return "setpts=PTS/" + s
}

// FormatSpeed renders a speed with the shortest exact decimal form, so 2.0
// becomes "2" and 0.5 stays "0.5".
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 32)
}

// ScaleExpr maps a resize percentage onto its scale filter.
func ScaleExpr(r models.Resize) string {
	switch r {
	case models.Resize100:
		return "scale=iw:ih"
	case models.Resize50:
		return "scale=iw*0.5:ih*0.5"
	case models.Resize25:
		return "scale=iw*0.25:ih*0.25"
	default:
		return "scale=iw*0.75:ih*0.75"
	}
}
