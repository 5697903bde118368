package model

import (
	"path"
	"strings"
)

// Upload is a sequence file received from a user
type Upload struct {
	Name    string
	Content []byte
}

// Deliverable is a packaged job result offered for download
type Deliverable struct {
	Filename string
	Content  []byte
	MIMEType string
}

// BaseName strips any directory part a client might send with a file name,
// both slash and backslash separated.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

// StripExt removes the last extension. A name starting with a dot and
// having no other dot is returned unchanged, so ".fasta" stays ".fasta".
func StripExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name
	}
	return name[:i]
}
