package blast

import (
	"strings"
)

const UnknownVersion = "Unknown"

// ParseVersion extracts the version from the output of blastn -version,
// whose first line reads "blastn: 2.16.0+".
func ParseVersion(out string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	_, version, ok := strings.Cut(first, ":")
	if !ok {
		return UnknownVersion
	}
	return strings.TrimSpace(version)
}
