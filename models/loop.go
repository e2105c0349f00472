package models

import "strconv"

// LoopKind tags the variant held by a LoopMode.
type LoopKind int

const (
	LoopForever LoopKind = iota
	LoopBounce
	LoopCount
)

// LoopMode is a closed sum type: Forever, Bounce, or Count(n).
// The zero value is Forever.
type LoopMode struct {
	kind  LoopKind
	count int16
}

// Forever loops the GIF indefinitely.
func Forever() LoopMode { return LoopMode{kind: LoopForever} }

// Bounce plays the clip forward then in reverse.
func Bounce() LoopMode { return LoopMode{kind: LoopBounce} }

// Count repeats the GIF n times. n is not range checked; zero and negative
// values are handed to ffmpeg as-is.
func Count(n int16) LoopMode { return LoopMode{kind: LoopCount, count: n} }

// Kind reports which variant the mode holds.
func (l LoopMode) Kind() LoopKind { return l.kind }

// Count returns the repeat count and true for Count(n) modes.
func (l LoopMode) Count() (int16, bool) {
	if l.kind != LoopCount {
		return 0, false
	}
	return l.count, true
}

// ParseLoopMode maps a form value onto a LoopMode. Anything that is neither a
// keyword nor a signed 16-bit integer falls back to Forever.
func ParseLoopMode(value string) LoopMode {
	switch value {
	case "forever":
		return Forever()
	case "bounce":
		return Bounce()
	}
	n, err := strconv.ParseInt(value, 10, 16)
	if err != nil {
		return Forever()
	}
	return Count(int16(n))
}

func (l LoopMode) String() string {
	switch l.kind {
	case LoopBounce:
		return "bounce"
	case LoopCount:
		return "count(" + strconv.Itoa(int(l.count)) + ")"
	default:
		return "forever"
	}
}

// MarshalText renders the mode in the same vocabulary ParseLoopMode accepts.
func (l LoopMode) MarshalText() ([]byte, error) {
	if n, ok := l.Count(); ok {
		return []byte(strconv.Itoa(int(n))), nil
	}
	return []byte(l.String()), nil
}

// UnmarshalText accepts the output of MarshalText.
func (l *LoopMode) UnmarshalText(text []byte) error {
	*l = ParseLoopMode(string(text))
	return nil
}
