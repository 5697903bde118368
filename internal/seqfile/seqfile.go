// Package seqfile summarizes uploaded sequence files. The summary is
// informative only, the files are handed to BLAST+ unchanged.
package seqfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

var ErrNotFASTA = errors.New("not a FASTA file")

// Extensions accepted for upload
var Extensions = []string{".fasta", ".seq"}

// AllowedExt reports whether name has one of the accepted extensions
func AllowedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

type Summary struct {
	Records  int `json:"records"`
	Residues int `json:"residues"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d sequences, %d bp", s.Records, s.Residues)
}

// Summarize counts the records and residues of a FASTA file
func Summarize(r io.Reader) (Summary, error) {
	br := bufio.NewReader(r)
	if err := sniff(br); err != nil {
		return Summary{}, err
	}

	var ret Summary
	reader := fasta.NewReader(br, linear.NewSeq("", nil, alphabet.DNA))
	for {
		s, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Summary{}, fmt.Errorf("reading FASTA record %d: %w", ret.Records+1, err)
		}
		ret.Records++
		ret.Residues += s.Len()
	}
	return ret, nil
}

// sniff requires the first non blank byte to be a FASTA header marker
func sniff(br *bufio.Reader) error {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return ErrNotFASTA
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			if b[0] != '>' {
				return ErrNotFASTA
			}
			return nil
		}
		_, _ = br.ReadByte()
	}
}
