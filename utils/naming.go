package utils

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NewRequestID returns a fresh identifier for one conversion.
func NewRequestID() string {
	return uuid.NewString()
}

// SanitizeFilename reduces name to a single path element made of letters,
// digits, dot, dash and underscore. Anything else becomes an underscore.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return "_"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "_"
	}
	return out
}

const (
	inputInfix    = "-input."
	paletteSuffix = "-palette.png"
	outputSuffix  = ".gif"
)

// Artifacts are the scratch paths owned by one conversion.
type Artifacts struct {
	Input   string
	Palette string
	Output  string
}

// ArtifactPaths names the input, palette and output files for id under dir.
// inputExt keeps the upload's extension so ffmpeg can use it as a probing
// hint.
func ArtifactPaths(dir, id, inputExt string) Artifacts {
	id = SanitizeFilename(id)
	ext := SanitizeFilename(strings.TrimPrefix(inputExt, "."))
	if ext == "_" || ext == "" || len(ext) > 8 {
		ext = "bin"
	}
	return Artifacts{
		Input:   filepath.Join(dir, id+inputInfix+ext),
		Palette: filepath.Join(dir, id+paletteSuffix),
		Output:  filepath.Join(dir, id+outputSuffix),
	}
}

// IsArtifactName reports whether a file name has the shape ArtifactPaths
// gives a request id from NewRequestID. Other files sharing the scratch dir
// never match.
func IsArtifactName(name string) bool {
	var id string
	switch {
	case strings.HasSuffix(name, paletteSuffix):
		id = strings.TrimSuffix(name, paletteSuffix)
	case strings.HasSuffix(name, outputSuffix):
		id = strings.TrimSuffix(name, outputSuffix)
	default:
		i := strings.LastIndex(name, inputInfix)
		if i < 0 {
			return false
		}
		id = name[:i]
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
