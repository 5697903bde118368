package blast

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/blastweb/internal/model"
)

// columns of the default -outfmt 6 line, zero based
const (
	colPident   = 2
	colMismatch = 4
	colGapOpen  = 5
)

// ParseTabular splits an -outfmt 6 report into fields. Blank lines are
// skipped and trailing whitespace of each line is dropped.
func ParseTabular(r io.Reader) ([][]string, error) {
	var ret [][]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ret = append(ret, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tabular output: %w", err)
	}
	return ret, nil
}

// Identity returns the percent identity column as written by blastn
func Identity(fields []string) (string, error) {
	if len(fields) <= colPident {
		return "", fmt.Errorf("%w: %d columns", model.ErrMalformedHit, len(fields))
	}
	return fields[colPident], nil
}

// MismatchSum returns mismatches plus gap openings of a hit
func MismatchSum(fields []string) (float64, error) {
	if len(fields) <= colGapOpen {
		return 0, fmt.Errorf("%w: %d columns", model.ErrMalformedHit, len(fields))
	}
	mismatch, err := strconv.ParseFloat(fields[colMismatch], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: mismatch %q", model.ErrMalformedHit, fields[colMismatch])
	}
	gaps, err := strconv.ParseFloat(fields[colGapOpen], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: gap opens %q", model.ErrMalformedHit, fields[colGapOpen])
	}
	return mismatch + gaps, nil
}

// FormatFloat renders f the way the reports always did: integral values
// keep one decimal place (5.0), others use the shortest representation.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
