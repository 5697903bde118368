// Package pathmap translates host paths into the form understood by the
// environment the BLAST+ binaries run in.
package pathmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CZERTAINLY/blastweb/internal/model"
)

var ErrForeignDrive = errors.New("path is not on drive C:")

type Translator interface {
	// Translate returns the path as seen by the binaries
	Translate(path string) string
	// Check reports paths Translate can't map
	Check(path string) error
}

// Identity leaves paths unchanged
type Identity struct{}

func (Identity) Translate(path string) string { return path }
func (Identity) Check(string) error           { return nil }

// WSL maps Windows paths on drive C: to the /mnt/c mount of a WSL
// distribution. Paths which are already POSIX pass through untouched.
type WSL struct{}

func (WSL) Translate(path string) string {
	path = strings.Replace(path, `C:\`, "/mnt/c/", 1)
	return strings.ReplaceAll(path, `\`, "/")
}

func (WSL) Check(path string) error {
	if len(path) >= 2 && path[1] == ':' && !strings.EqualFold(path[:2], "C:") {
		return fmt.Errorf("%w: %s", ErrForeignDrive, path)
	}
	return nil
}

// ForInstallation returns the translator matching the way installation runs
func ForInstallation(inst model.Installation) Translator {
	if inst.Compat() {
		return WSL{}
	}
	return Identity{}
}
