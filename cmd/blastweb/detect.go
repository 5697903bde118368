package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/CZERTAINLY/blastweb/internal/bom"
	"github.com/CZERTAINLY/blastweb/internal/detect"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/web"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/spf13/cobra"
)

const (
	formatText      = "text"
	formatJSON      = "json"
	formatCycloneDX = "cyclonedx"
)

var (
	flagDetectAll    bool
	flagDetectFormat string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "detect prints the BLAST+ installations usable from this host",
	RunE:  doDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&flagDetectAll, "all", false, "print every probe with its outcome")
	detectCmd.Flags().StringVar(&flagDetectFormat, "format", formatText, "output format: text, json or cyclonedx")
}

type probeView struct {
	Index    int      `json:"index"`
	Platform string   `json:"platform"`
	Prefix   []string `json:"prefix,omitempty"`
	Label    string   `json:"label,omitempty"`
	detect.ProbeResult
}

func doDetect(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	results := newDetector().Results(ctx)

	var views []probeView
	var installs []model.Installation
	for _, r := range results {
		if r.Outcome != detect.Found && !flagDetectAll {
			continue
		}
		v := probeView{
			Index:       -1,
			Platform:    r.Probe.Platform,
			Prefix:      r.Probe.Prefix,
			ProbeResult: r,
		}
		if r.Outcome == detect.Found {
			inst := r.Installation()
			v.Index = len(installs)
			v.Label = inst.Label()
			installs = append(installs, inst)
		}
		views = append(views, v)
	}

	out := cmd.OutOrStdout()
	switch flagDetectFormat {
	case formatText:
		return detectText(out, views)
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case formatCycloneDX:
		var buf bytes.Buffer
		if err := bom.NewBuilder().AppendInstallations(installs...).AsJSON(&buf); err != nil {
			return fmt.Errorf("encoding inventory: %w", err)
		}
		validator, err := bom.NewValidator(cdx.SpecVersion1_6)
		if err != nil {
			return err
		}
		if err := validator.ValidateBytes(ctx, buf.Bytes()); err != nil {
			return err
		}
		_, err = buf.WriteTo(out)
		return err
	default:
		return fmt.Errorf("unknown format %q, expected one of %s, %s, %s", flagDetectFormat, formatText, formatJSON, formatCycloneDX)
	}
}

func detectText(out io.Writer, views []probeView) error {
	if len(views) == 0 {
		_, err := fmt.Fprintf(out, "no BLAST+ installation found, download it from %s\n", web.DownloadURL)
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INDEX\tPLATFORM\tVERSION\tOUTCOME\tREASON")
	for _, v := range views {
		idx := "-"
		if v.Index >= 0 {
			idx = fmt.Sprint(v.Index)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", idx, v.Platform, v.Version, v.Outcome, v.Reason)
	}
	return tw.Flush()
}
