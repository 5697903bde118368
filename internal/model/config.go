package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

// Config is the blastweb configuration file. Defaults come from config.cue.
type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Server  Server  `json:"server" yaml:"server"`
	Blast   Blast   `json:"blast" yaml:"blast"`
	Janitor Janitor `json:"janitor" yaml:"janitor"`
	Service Service `json:"service" yaml:"service"`
}

// Server configures the web UI.
type Server struct {
	Listen      string `json:"listen" yaml:"listen"`
	MaxUploadMB int    `json:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTL  string `json:"session_ttl" yaml:"session_ttl"` // e.g. 12h, 1d6h
}

// Blast configures how the BLAST+ binaries are invoked.
type Blast struct {
	MakeBlastDB string `json:"makeblastdb" yaml:"makeblastdb"`
	BlastN      string `json:"blastn" yaml:"blastn"`
	Launcher    string `json:"launcher" yaml:"launcher"`                   // compatibility layer launcher, e.g. wsl
	Threads     int    `json:"threads" yaml:"threads"`                     // 0 => number of logical CPUs
	Timeout     string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // per invocation, empty => none
	TempDir     string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`
}

// Janitor removes idle sessions and job directories left behind by a crash.
type Janitor struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Schedule string `json:"schedule" yaml:"schedule"` // cron expression or @every <go duration>
	MaxAge   string `json:"max_age" yaml:"max_age"`
}

// Service holds process wide settings.
type Service struct {
	Verbose bool   `json:"verbose" yaml:"verbose"`
	Log     string `json:"log" yaml:"log"` // "stderr"|"stdout"|"discard"|path
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),
		cue.Concrete(true),
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}
	return out, nil
}

// DefaultConfig returns a configuration with all the schema defaults applied.
func DefaultConfig(_ context.Context) Config {
	cfg, err := LoadConfig(strings.NewReader("version: 0\n"))
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

var durationRx = regexp.MustCompile(`^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

// ErrDuration is returned for durations not matching the 1d2h3m4s format
var ErrDuration = errors.New("invalid duration")

// ParseDuration parses the configuration duration format: ordered day, hour,
// minute and second segments like 1d, 6h30m or 90s. An empty string is zero.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	m := durationRx.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrDuration, s)
	}
	units := [...]time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, seg := range m[1:] {
		if seg == "" {
			continue
		}
		n, err := strconv.ParseInt(seg[:len(seg)-1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrDuration, s, err)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}
