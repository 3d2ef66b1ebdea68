package source

import (
	"crypto/sha256"
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileSet manages a collection of source files and resolves byte
// offsets to human-readable positions.
type FileSet struct {
	files []File
	index map[string]FileID // path -> most recent id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores a file from normalized bytes, computes LineIdx and Hash, and
// returns a new FileID. A new FileID is created even when the path was
// added before; the index always points at the latest version.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)
	normalizedPath := normalizePath(path)

	lenFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		LineIdx: lineIdx,
		Hash:    hash,
		Flags:   flags,
	})
	fs.index[normalizedPath] = id
	return id
}

// AddVirtual stores an in-memory file (tests, stdin) after BOM/CRLF
// normalization.
func (fs *FileSet) AddVirtual(path string, content []byte) FileID {
	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileVirtual
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fs.Add(path, content, flags)
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fs.Add(path, content, flags), nil
}

// Get returns the file for id, or nil when id is unknown.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// ByPath returns the latest file added under path.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	id, ok := fs.index[normalizePath(path)]
	if !ok {
		return nil, false
	}
	return &fs.files[id], true
}

// Len returns the number of files in the set.
func (fs *FileSet) Len() int {
	return len(fs.files)
}

// Position resolves a byte offset in file id to a line/column pair.
func (fs *FileSet) Position(id FileID, off uint32) LineCol {
	f := fs.Get(id)
	if f == nil {
		return LineCol{Line: 1, Col: 1}
	}
	return toLineCol(f.Content, f.LineIdx, off)
}

// PositionSpan resolves the start of a span.
func (fs *FileSet) PositionSpan(sp Span) LineCol {
	return fs.Position(sp.File, sp.Start)
}
