package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// CueErrorDetail is a single configuration problem in a form suitable for logs
type CueErrorDetail struct {
	Path    string // blast.threads
	Code    string // unknown_field | missing_required | conflicting_values | invalid_value | validation_error
	Message string
	Line    int
	Column  int
}

func (c CueErrorDetail) Attr(name string) slog.Attr {
	return slog.GroupAttrs(
		name,
		slog.String("code", c.Code),
		slog.String("path", c.Path),
		slog.String("message", c.Message),
		slog.Int("line", c.Line),
		slog.Int("column", c.Column),
	)
}

func (c CueErrorDetail) String() string {
	if c.Line == 0 {
		return fmt.Sprintf("%s: %s", c.Path, c.Message)
	}
	return fmt.Sprintf("%s (line %d, column %d): %s", c.Path, c.Line, c.Column, c.Message)
}

var (
	reIncomplete = regexp.MustCompile(`(?i)incomplete value`)
	reNotAllowed = regexp.MustCompile(`(?i)not allowed|unknown field`)
	reConflict   = regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible`)
	reInvalid    = regexp.MustCompile(`(?i)invalid value|out of bound|does not match`)
)

// CueErrDetails converts an error returned by LoadConfig to one entry per
// distinct problem. Errors not coming from CUE yield a single entry.
func CueErrDetails(err error) []CueErrorDetail {
	if err == nil {
		return nil
	}

	seen := make(map[string]struct{})

	var out []CueErrorDetail
	for _, e := range cueerrors.Errors(err) {
		raw, args := e.Msg()
		path := configPath(e.Path())
		d := CueErrorDetail{
			Path:    path,
			Code:    classify(raw),
			Message: fmt.Sprintf(raw, args...),
		}
		for _, p := range cueerrors.Positions(e) {
			if p.Filename() == "" {
				continue
			}
			d.Line, d.Column = p.Line(), p.Column()
			break
		}
		key := fmt.Sprintf("%s:%d:%d", d.Path, d.Line, d.Column)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		out = append(out, CueErrorDetail{Code: "validation_error", Message: err.Error()})
	}
	return out
}

func classify(raw string) string {
	switch {
	case reNotAllowed.MatchString(raw):
		return "unknown_field"
	case reIncomplete.MatchString(raw):
		return "missing_required"
	case reConflict.MatchString(raw):
		return "conflicting_values"
	case reInvalid.MatchString(raw):
		return "invalid_value"
	default:
		return "validation_error"
	}
}

// configPath drops the leading #Config definition
func configPath(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}
