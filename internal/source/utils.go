package source

import (
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// tabStop is the display width a tab advances to a multiple of.
const tabStop = 4

// normalizeCRLF replaces every \r\n with \n, leaving lone \r untouched.
// Returns the new slice and whether any replacement happened.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false

	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i += 2
			changed = true
		} else {
			out = append(out, content[i])
			i++
		}
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) < 3 {
		return content, false
	}

	if content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}

	return content, false
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content))
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i))
		}
	}
	return out
}

// lineStart returns the byte offset of the first byte of the line
// containing off, and the 0-based line number.
func lineStart(lineIdx []uint32, off uint32) (uint32, uint32) {
	if len(lineIdx) == 0 {
		return 0, 0
	}

	// Binary search: largest lineIdx[i] <= off-1 marks the previous newline.
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if hi < 0 {
		return 0, 0
	}
	return lineIdx[hi] + 1, uint32(hi + 1)
}

// toLineCol resolves a byte offset to a 1-based line and display column.
// The column honors tab stops (multiples of tabStop) and East Asian wide
// runes, so diagnostics point at the right terminal cell.
func toLineCol(content []byte, lineIdx []uint32, off uint32) LineCol {
	if off > uint32(len(content)) {
		off = uint32(len(content))
	}
	start, line := lineStart(lineIdx, off)

	col := uint32(1)
	for i := start; i < off; {
		r, size := utf8.DecodeRune(content[i:])
		if r == '\t' {
			// Advance to the next tab stop. Columns are 1-based, so the
			// zero-based cell index is col-1.
			col = ((col-1)/tabStop+1)*tabStop + 1
		} else {
			col += uint32(runewidth.RuneWidth(r))
		}
		i += uint32(size)
	}
	return LineCol{Line: line + 1, Col: col}
}

func normalizePath(p string) string {
	// One canonical form for cross-platform diffs.
	return filepath.ToSlash(filepath.Clean(p))
}
