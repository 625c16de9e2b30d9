package romgfx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var formatPattern = regexp.MustCompile(`^(lz|uc)([sptm])([48])(?:x(\d+)x(\d+))?(?::(\d+))?(?:\+(\d+))?(?:\|(.+))?$`)

var kindCodes = map[string]Kind{
	"s": KindSprite,
	"p": KindPalette,
	"t": KindTileset,
	"m": KindTilemap,
}

// ParseFormat parses an anchor format string such as "lzs4x2x2",
// "ucp4:2+1|palette" or "lzm4x30x20|tiles". The leading "lz" or "uc" selects
// compressed or raw data, followed by the kind ('s'prite, 'p'alette,
// 't'ileset or tile'm'ap), the bit depth, the size in tiles for sprites and
// tilemaps, the page count of raw runs after ':', the initial blank palette
// pages after '+' and a hint after '|'.
func ParseFormat(s string) (Kind, bool, Format, error) {
	var f Format

	m := formatPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false, f, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	compressed := m[1] == "lz"
	kind := kindCodes[m[2]]
	f.BitsPerPixel, _ = strconv.Atoi(m[3])
	f.Hint = m[8]

	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}

	switch kind {
	case KindSprite, KindTilemap:
		if m[4] == "" {
			return 0, false, f, fmt.Errorf("%w: %q needs a size", ErrInvalidFormat, s)
		}
		f.TileWidth, f.TileHeight = atoi(m[4]), atoi(m[5])
	default:
		if m[4] != "" {
			return 0, false, f, fmt.Errorf("%w: %q cannot have a size", ErrInvalidFormat, s)
		}
	}

	if m[6] != "" {
		if compressed || kind == KindTilemap {
			return 0, false, f, fmt.Errorf("%w: %q cannot declare pages", ErrInvalidFormat, s)
		}
		f.Pages = atoi(m[6])
	}

	if m[7] != "" {
		if kind != KindPalette {
			return 0, false, f, fmt.Errorf("%w: %q cannot have blank pages", ErrInvalidFormat, s)
		}
		f.InitialBlankPages = atoi(m[7])
	}

	return kind, compressed, f, nil
}

// FormatString returns the anchor format string describing the run, the
// inverse of ParseFormat.
func (r *Run) FormatString() string {
	var b strings.Builder
	if r.Compressed {
		b.WriteString("lz")
	} else {
		b.WriteString("uc")
	}
	for code, kind := range kindCodes {
		if kind == r.Kind {
			b.WriteString(code)
		}
	}
	b.WriteString(strconv.Itoa(r.Format.BitsPerPixel))
	if r.Kind == KindSprite || r.Kind == KindTilemap {
		fmt.Fprintf(&b, "x%dx%d", r.Format.TileWidth, r.Format.TileHeight)
	}
	if !r.Compressed && r.Kind != KindTilemap && r.Format.Pages > 1 {
		fmt.Fprintf(&b, ":%d", r.Format.Pages)
	}
	if r.Kind == KindPalette && r.Format.InitialBlankPages > 0 {
		fmt.Fprintf(&b, "+%d", r.Format.InitialBlankPages)
	}
	if r.Format.Hint != "" {
		b.WriteString("|" + r.Format.Hint)
	}
	return b.String()
}
