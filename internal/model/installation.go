package model

import (
	"slices"
	"strings"
)

// PlatformWSL is the platform of installations reached through the Windows
// Subsystem for Linux launcher
const PlatformWSL = "Windows-WSL2"

// Installation describes one usable BLAST+ installation found on the host.
// Prefix is prepended to every invocation, e.g. ["wsl"] for a Linux
// installation reached from a Windows host.
type Installation struct {
	Platform string   `json:"platform"`
	Prefix   []string `json:"command_prefix"`
	Version  string   `json:"version"`
}

// Label is the human readable name used in selections, e.g. Linux-bash-v2.16.0+
func (i Installation) Label() string {
	return i.Platform + "-v" + i.Version
}

// Prefixed reports whether commands run behind a launcher, e.g. wsl or
// docker exec <container>.
func (i Installation) Prefixed() bool {
	return len(i.Prefix) > 0
}

// Compat reports whether commands run behind the WSL launcher and therefore
// need their Windows path arguments translated. Other launchers see the
// host paths as they are.
func (i Installation) Compat() bool {
	return i.Platform == PlatformWSL && i.Prefixed()
}

func (i Installation) Clone() Installation {
	i.Prefix = slices.Clone(i.Prefix)
	return i
}

func (i Installation) String() string {
	if !i.Prefixed() {
		return i.Label()
	}
	return i.Label() + " (" + strings.Join(i.Prefix, " ") + ")"
}
