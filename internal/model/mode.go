package model

import (
	"fmt"
)

// Mode selects what a job delivers.
type Mode string

const (
	// ModeTabular zips one brief tabular (outfmt 6) file per pair
	ModeTabular Mode = "tabular"
	// ModePairwise zips one detailed pairwise (outfmt 1) file per pair
	ModePairwise Mode = "pairwise"
	// ModeIdentity aggregates the percent identity column into a CSV table
	ModeIdentity Mode = "identity"
	// ModeMismatch aggregates mismatches + gap opens into a CSV table
	ModeMismatch Mode = "mismatch"
)

var modeLabels = map[Mode]string{
	ModeTabular:  "Per-pair output, brief (format 6), txt",
	ModePairwise: "Per-pair output, detailed (format 1), txt",
	ModeIdentity: "Table, match ratio (format 6 column 3), csv",
	ModeMismatch: "Table, mismatches (format 6 columns 5+6), csv",
}

// Modes returns all the modes in the order they're offered to users
func Modes() []Mode {
	return []Mode{ModeTabular, ModePairwise, ModeIdentity, ModeMismatch}
}

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := modeLabels[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

func (m Mode) Label() string {
	return modeLabels[m]
}

// Aggregate is true for modes producing a single CSV table
func (m Mode) Aggregate() bool {
	return m == ModeIdentity || m == ModeMismatch
}
