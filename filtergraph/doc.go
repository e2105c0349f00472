// Package filtergraph synthesizes the ffmpeg filter expressions used by the
// two GIF passes.
//
// A conversion has one base chain (trim, fps, scale, setpts) derived from the
// request options. Both passes embed that same text: the palette pass ends in
// palettegen, the encode pass feeds the processed stream and the palette into
// paletteuse. Bounce mode wraps the base chain in a split/reverse/concat
// fragment, and the base chain is always applied once before the split so the
// forward and reversed halves receive identical processing.
package filtergraph
