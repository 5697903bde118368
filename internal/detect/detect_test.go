package detect_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/CZERTAINLY/blastweb/internal/blast/blasttest"
	"github.com/CZERTAINLY/blastweb/internal/detect"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/proc"
	"github.com/stretchr/testify/require"
)

// fakeExec answers -version probes, keyed by the launched program
type fakeExec struct {
	outputs map[string]string
	calls   []proc.Command
}

func (f *fakeExec) Run(_ context.Context, cmd proc.Command) proc.Result {
	f.calls = append(f.calls, cmd)
	out, ok := f.outputs[cmd.Path]
	if !ok {
		return proc.Result{Path: cmd.Path, Err: errors.New("executable file not found")}
	}
	return proc.Result{Path: cmd.Path, Args: cmd.Args, Stdout: bytes.NewBufferString(out)}
}

func TestDetector(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		goos     string
		outputs  map[string]string
		then     []model.Installation
	}{
		{
			scenario: "windows both",
			goos:     "windows",
			outputs: map[string]string{
				"blastn": "blastn: 2.16.0+\n",
				"wsl":    "blastn: 2.12.0+\n",
			},
			then: []model.Installation{
				{Platform: "Windows-Powershell", Version: "2.16.0+"},
				{Platform: "Windows-WSL2", Prefix: []string{"wsl"}, Version: "2.12.0+"},
			},
		},
		{
			scenario: "windows wsl only",
			goos:     "windows",
			outputs: map[string]string{
				"wsl": "blastn: 2.12.0+\n",
			},
			then: []model.Installation{
				{Platform: "Windows-WSL2", Prefix: []string{"wsl"}, Version: "2.12.0+"},
			},
		},
		{
			scenario: "windows native only",
			goos:     "windows",
			outputs: map[string]string{
				"blastn": "blastn: 2.16.0+\n",
			},
			then: []model.Installation{
				{Platform: "Windows-Powershell", Version: "2.16.0+"},
			},
		},
		{
			scenario: "linux",
			goos:     "linux",
			outputs: map[string]string{
				"blastn": "blastn: 2.16.0+\n",
				"wsl":    "blastn: 2.12.0+\n",
			},
			then: []model.Installation{
				{Platform: "Linux-bash", Version: "2.16.0+"},
			},
		},
		{
			scenario: "darwin unparseable version",
			goos:     "darwin",
			outputs: map[string]string{
				"blastn": "BLAST\n",
			},
			then: []model.Installation{
				{Platform: "Darwin-bash", Version: "Unknown"},
			},
		},
		{
			scenario: "nothing",
			goos:     "linux",
			outputs:  map[string]string{},
			then:     nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			exec := &fakeExec{outputs: tc.outputs}
			got := detect.New(exec).WithGOOS(tc.goos).Detect(t.Context())
			require.Equal(t, tc.then, got)
			if tc.goos != "windows" {
				for _, c := range exec.calls {
					require.NotEqual(t, "wsl", c.Path)
				}
			}
		})
	}
}

func TestDetector_Results(t *testing.T) {
	t.Parallel()
	exec := &fakeExec{outputs: map[string]string{"blastn": "blastn: 2.16.0+\n"}}
	results := detect.New(exec).WithGOOS("windows").WithLauncher("wsl.exe").Results(t.Context())
	require.Len(t, results, 2)
	require.Equal(t, detect.Found, results[0].Outcome)
	require.Equal(t, "2.16.0+", results[0].Version)
	require.Equal(t, detect.NotFound, results[1].Outcome)
	require.Equal(t, []string{"wsl.exe"}, results[1].Probe.Prefix)
	require.Contains(t, results[1].Reason, "executable file not found")

	require.Equal(t, "wsl.exe", exec.calls[1].Path)
	require.Equal(t, []string{"blastn", "-version"}, exec.calls[1].Args)
}

func TestDetector_Fake(t *testing.T) {
	t.Parallel()
	bin := blasttest.Install(t)
	installs := detect.New(proc.NewRunner()).
		WithGOOS("windows").
		WithBinary(bin.BlastN).
		WithLauncher(bin.WSL).
		Detect(t.Context())
	require.Len(t, installs, 2)
	require.Equal(t, "Windows-Powershell-v2.16.0+", installs[0].Label())
	require.Equal(t, "Windows-WSL2-v2.16.0+", installs[1].Label())
	require.True(t, installs[1].Compat())
}
