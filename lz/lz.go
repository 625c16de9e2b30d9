/*
Package lz implements the LZ77 variant understood by the Game Boy Advance BIOS
decompression routines.

A stream starts with a four byte header; a type byte of 0x10 followed by the
decompressed length as a 24-bit little-endian value. The body is a sequence of
flag bytes, each followed by up to eight tokens. Each flag bit, starting with
the most significant, marks the matching token as either a literal byte (0)
or a two byte back-reference (1) that copies between 3 and 18 bytes from up to
4096 bytes earlier in the output.
*/
package lz

import "errors"

const (
	typeTag         = 0x10
	headerSize      = 4
	tokensPerFlag   = 8
	minMatch        = 3
	maxMatch        = minMatch + 0x0f
	windowSize      = 0x1000
	minDisplacement = 2 // displacement 1 is unsafe when decompressing to VRAM
	maxLength       = 1<<24 - 1
)

var (
	// ErrCorruptData is returned when a compressed stream is malformed.
	ErrCorruptData = errors.New("lz: corrupt data")

	errTooLarge = errors.New("lz: input larger than 16 MiB")
)
