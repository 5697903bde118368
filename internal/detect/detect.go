// Package detect finds the BLAST+ installations usable from this host.
package detect

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/CZERTAINLY/blastweb/internal/blast"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/proc"
)

const (
	PlatformPowershell = "Windows-Powershell"
	PlatformWSL        = model.PlatformWSL
	DefaultLauncher    = "wsl"
)

// Outcome of a single probe
type Outcome string

const (
	Found    Outcome = "found"
	NotFound Outcome = "not_found"
)

// Probe is one way of invoking blastn
type Probe struct {
	Platform string
	Prefix   []string
}

// ProbeResult is either Found with the detected version or NotFound with
// the reason.
type ProbeResult struct {
	Probe   Probe   `json:"-"`
	Outcome Outcome `json:"outcome"`
	Version string  `json:"version,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

func (r ProbeResult) Installation() model.Installation {
	return model.Installation{
		Platform: r.Probe.Platform,
		Prefix:   append([]string(nil), r.Probe.Prefix...),
		Version:  r.Version,
	}
}

type Detector struct {
	exec     proc.Executor
	goos     string
	binary   string
	launcher string
}

func New(exec proc.Executor) Detector {
	return Detector{
		exec:     exec,
		goos:     runtime.GOOS,
		binary:   blast.DefaultBlastN,
		launcher: DefaultLauncher,
	}
}

func (d Detector) WithGOOS(goos string) Detector {
	d.goos = goos
	return d
}

func (d Detector) WithBinary(blastn string) Detector {
	if blastn != "" {
		d.binary = blastn
	}
	return d
}

func (d Detector) WithLauncher(launcher string) Detector {
	if launcher != "" {
		d.launcher = launcher
	}
	return d
}

// Probes returns the probes for the detector's operating system in the
// order they are tried.
func (d Detector) Probes() []Probe {
	if d.goos == "windows" {
		return []Probe{
			{Platform: PlatformPowershell},
			{Platform: PlatformWSL, Prefix: []string{d.launcher}},
		}
	}
	return []Probe{
		{Platform: capitalize(d.goos) + "-bash"},
	}
}

// Results runs every probe. A failing probe is never an error, it is
// reported as NotFound.
func (d Detector) Results(ctx context.Context) []ProbeResult {
	probes := d.Probes()
	ret := make([]ProbeResult, 0, len(probes))
	for _, p := range probes {
		ret = append(ret, d.probe(ctx, p))
	}
	return ret
}

// Detect returns installations of all the successful probes in probe order
func (d Detector) Detect(ctx context.Context) []model.Installation {
	var ret []model.Installation
	for _, r := range d.Results(ctx) {
		if r.Outcome == Found {
			ret = append(ret, r.Installation())
		}
	}
	slog.DebugContext(ctx, "detection finished", "installations", len(ret))
	return ret
}

func (d Detector) probe(ctx context.Context, p Probe) ProbeResult {
	suite := blast.New(d.exec, model.Installation{Platform: p.Platform, Prefix: p.Prefix}).
		WithBinaries("", d.binary)
	version, err := suite.Version(ctx)
	if err != nil {
		slog.DebugContext(ctx, "probe failed", "platform", p.Platform, "error", err)
		return ProbeResult{Probe: p, Outcome: NotFound, Reason: err.Error()}
	}
	slog.DebugContext(ctx, "probe succeeded", "platform", p.Platform, "version", version)
	return ProbeResult{Probe: p, Outcome: Found, Version: version}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
