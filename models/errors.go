package models

import "errors"

// Failure kinds surfaced by a conversion request.
var (
	ErrInputMissing            = errors.New("input missing")
	ErrPaletteGenerationFailed = errors.New("palette generation failed")
	ErrEncodeFailed            = errors.New("encode failed")
	ErrArtifactReadFailed      = errors.New("artifact read failed")
	ErrArtifactCleanupFailed   = errors.New("artifact cleanup failed")
)

var kindNames = []struct {
	err  error
	name string
}{
	{ErrInputMissing, "InputMissing"},
	{ErrPaletteGenerationFailed, "PaletteGenerationFailed"},
	{ErrEncodeFailed, "EncodeFailed"},
	{ErrArtifactReadFailed, "ArtifactReadFailed"},
	{ErrArtifactCleanupFailed, "ArtifactCleanupFailed"},
	{ErrSourceFetchFailed, "SourceFetchFailed"},
}

// KindOf names the failure kind wrapped by err, or "Internal" when err does
// not wrap one of the known kinds.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// ErrSourceFetchFailed reports that a remote source reference was valid but
// its media could not be downloaded.
var ErrSourceFetchFailed = errors.New("source fetch failed")
