package models

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"wifski/logger"
)

// Defaults and bounds applied to user supplied conversion preferences.
const (
	DefaultSpeed   = 1.0
	DefaultFPS     = 8
	DefaultQuality = 75

	MinSpeed = 0.5
	MaxSpeed = 5.0
	MinFPS   = 3
	MaxFPS   = 10
)

// Resize is the output scale as a percentage of the source dimensions.
type Resize int

const (
	Resize100 Resize = 100
	Resize75  Resize = 75
	Resize50  Resize = 50
	Resize25  Resize = 25
)

// ParseResize is total: unrecognised values select 75%.
func ParseResize(value string) Resize {
	switch value {
	case "100":
		return Resize100
	case "50":
		return Resize50
	case "25":
		return Resize25
	default:
		return Resize75
	}
}

// Valid reports whether r is one of the supported percentages.
func (r Resize) Valid() bool {
	switch r {
	case Resize100, Resize75, Resize50, Resize25:
		return true
	}
	return false
}

// ConversionOptions holds the preferences for one conversion request. Values
// are built once by ParseForm (or Normalized) and never mutated afterwards.
type ConversionOptions struct {
	Resize    Resize   `json:"resize"`
	Speed     float64  `json:"speed"`
	FPS       int      `json:"fps"`
	Quality   int      `json:"quality"`
	Loop      LoopMode `json:"loop"`
	StartTime string   `json:"start_time,omitempty"`
	EndTime   string   `json:"end_time,omitempty"`
}

// DefaultOptions returns the options used when a request sets no fields.
func DefaultOptions() ConversionOptions {
	return ConversionOptions{
		Resize:  Resize75,
		Speed:   DefaultSpeed,
		FPS:     DefaultFPS,
		Quality: DefaultQuality,
		Loop:    Forever(),
	}
}

// ParseForm builds options from raw form values. It never fails: unknown
// keys are ignored, unparseable numbers fall back to their defaults, and
// speed and fps are clamped once all fields have been read.
func ParseForm(fields map[string]string) ConversionOptions {
	opts := DefaultOptions()
	for name, value := range fields {
		switch name {
		case "resize":
			opts.Resize = ParseResize(value)
		case "speed":
			opts.Speed = parseSpeed(value)
		case "fps":
			opts.FPS = parseUint8(value, DefaultFPS)
		case "quality":
			opts.Quality = parseUint8(value, DefaultQuality)
		case "loop":
			opts.Loop = ParseLoopMode(value)
		case "start_time":
			opts.StartTime = timestampField(name, value)
		case "end_time":
			opts.EndTime = timestampField(name, value)
		}
	}
	return opts.Normalized()
}

// Normalized returns a copy with speed and fps clamped into range and an
// unsupported resize replaced by the default. Quality is left untouched.
func (o ConversionOptions) Normalized() ConversionOptions {
	o.Speed = ClampSpeed(o.Speed)
	o.FPS = ClampFPS(o.FPS)
	if !o.Resize.Valid() {
		o.Resize = Resize75
	}
	return o
}

// Trimmed reports whether a start or end timestamp is set.
func (o ConversionOptions) Trimmed() bool {
	return o.StartTime != "" || o.EndTime != ""
}

// ClampSpeed bounds a playback speed multiplier to [MinSpeed, MaxSpeed].
func ClampSpeed(speed float64) float64 {
	if math.IsNaN(speed) {
		return DefaultSpeed
	}
	return math.Min(math.Max(speed, MinSpeed), MaxSpeed)
}

// ClampFPS bounds a frame rate to [MinFPS, MaxFPS].
func ClampFPS(fps int) int {
	return min(max(fps, MinFPS), MaxFPS)
}

func parseSpeed(value string) float64 {
	speed, err := strconv.ParseFloat(value, 32)
	// Out of range literals come back as ±Inf and are clamped like any other value.
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(speed) {
		return DefaultSpeed
	}
	return speed
}

// parseUint8 mirrors the byte-sized fields clients have always sent: anything
// negative or above 255 counts as unparseable. One leading '+' is accepted.
func parseUint8(value string, fallback int) int {
	n, err := strconv.ParseUint(strings.TrimPrefix(value, "+"), 10, 8)
	if err != nil {
		return fallback
	}
	return int(n)
}

// graphMetachars would let a timestamp escape its quoted trim argument.
const graphMetachars = `'\;,[]`

// SafeTimestamp reports whether a timestamp token can be embedded in a
// quoted filter argument without changing the graph structure.
func SafeTimestamp(value string) bool {
	return !strings.ContainsAny(value, graphMetachars)
}

func timestampField(name, value string) string {
	if !SafeTimestamp(value) {
		logger.Warnf("Ignoring %s %q: contains filter graph metacharacters", name, value)
		return ""
	}
	return value
}
