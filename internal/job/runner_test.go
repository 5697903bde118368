package job_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	"github.com/CZERTAINLY/blastweb/internal/blast/blasttest"
	"github.com/CZERTAINLY/blastweb/internal/job"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/proc"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

var native = model.Installation{Platform: "Linux-bash", Version: "2.16.0+"}

// recording runs commands and remembers them
type recording struct {
	proc.Executor
	cmds []proc.Command
}

func (r *recording) Run(ctx context.Context, cmd proc.Command) proc.Result {
	r.cmds = append(r.cmds, cmd)
	return r.Executor.Run(ctx, cmd)
}

func newRunner(t *testing.T, threads int) (job.Runner, *recording, string) {
	t.Helper()
	bin := blasttest.Install(t)
	tmp := t.TempDir()
	cfg := job.DefaultConfig()
	cfg.Threads = threads
	cfg.TempDir = tmp
	cfg.MakeBlastDB = bin.MakeBlastDB
	cfg.BlastN = bin.BlastN
	rec := &recording{Executor: proc.NewRunner()}
	return job.NewRunner(cfg, rec), rec, tmp
}

func upload(name string) model.Upload {
	return model.Upload{Name: name, Content: blasttest.FASTA(name)}
}

func uploads(names ...string) []model.Upload {
	ret := make([]model.Upload, len(names))
	for i, n := range names {
		ret[i] = upload(n)
	}
	return ret
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "job directory must be removed")
}

func readCSV(t *testing.T, d model.Deliverable) [][]string {
	t.Helper()
	require.Equal(t, job.CSVName, d.Filename)
	require.Equal(t, job.CSVMIME, d.MIMEType)
	require.True(t, bytes.HasSuffix(d.Content, []byte("\r\n")))
	records, err := csv.NewReader(bytes.NewReader(d.Content)).ReadAll()
	require.NoError(t, err)
	return records
}

func readZip(t *testing.T, d model.Deliverable) map[string]string {
	t.Helper()
	require.Equal(t, job.ZipName, d.Filename)
	require.Equal(t, job.ZipMIME, d.MIMEType)
	zr, err := zip.NewReader(bytes.NewReader(d.Content), int64(len(d.Content)))
	require.NoError(t, err)
	ret := make(map[string]string, len(zr.File))
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		ret[f.Name] = string(b)
		names = append(names, f.Name)
	}
	require.Len(t, names, len(ret), "duplicate entries")
	return ret
}

// running remembers if the job directory was reported as running while
// the commands executed
type running struct {
	proc.Executor
	tmp  string
	dirs map[string]bool
}

func (r *running) Run(ctx context.Context, cmd proc.Command) proc.Result {
	matches, _ := filepath.Glob(filepath.Join(r.tmp, job.TempPattern))
	for _, dir := range matches {
		r.dirs[dir] = job.Running(dir)
	}
	return r.Executor.Run(ctx, cmd)
}

func TestRunner_Running(t *testing.T) {
	t.Parallel()
	bin := blasttest.Install(t)
	tmp := t.TempDir()
	cfg := job.DefaultConfig()
	cfg.TempDir = tmp
	cfg.MakeBlastDB = bin.MakeBlastDB
	cfg.BlastN = bin.BlastN
	exec := &running{Executor: proc.NewRunner(), tmp: tmp, dirs: map[string]bool{}}

	_, err := job.NewRunner(cfg, exec).Run(t.Context(), job.Request{
		Queries:      uploads("q1.fasta"),
		Databases:    uploads("genome.fasta"),
		Mode:         model.ModeTabular,
		Installation: native,
	})
	require.NoError(t, err)
	require.Len(t, exec.dirs, 1)
	for dir, ok := range exec.dirs {
		require.True(t, ok, dir)
		require.False(t, job.Running(dir), dir)
	}
	requireEmptyDir(t, tmp)
}

func TestRunner_Identity(t *testing.T) {
	t.Parallel()
	runner, _, tmp := newRunner(t, 2)

	out, err := runner.Run(t.Context(), job.Request{
		Queries:      uploads("q1.fasta", "q2.seq"),
		Databases:    append(uploads("ref1.fasta", "ref2.fasta"), upload("empty.fasta")),
		Mode:         model.ModeIdentity,
		Installation: native,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	records := readCSV(t, out[0])
	require.Equal(t, [][]string{
		{"query file", "ref1", "ref2", "empty"},
		{"q1.fasta", "98.500, 100.000", "98.500, 100.000", "-"},
		{"q2.seq", "98.500, 100.000", "98.500, 100.000", "-"},
	}, records)
	requireEmptyDir(t, tmp)
}

func TestRunner_Mismatch(t *testing.T) {
	t.Parallel()
	runner, rec, tmp := newRunner(t, 0)

	out, err := runner.Run(t.Context(), job.Request{
		Queries:      uploads("q1.fasta"),
		Databases:    uploads("ref.fasta"),
		Mode:         model.ModeMismatch,
		Installation: native,
	})
	require.NoError(t, err)
	records := readCSV(t, out[0])
	require.Equal(t, [][]string{
		{"query file", "ref"},
		{"q1.fasta", "4.0, 0.0"},
	}, records)

	// aggregate modes always search with -outfmt 6
	search := rec.cmds[len(rec.cmds)-1]
	i := slices.Index(search.Args, "-outfmt")
	require.Equal(t, "6", search.Args[i+1])
	i = slices.Index(search.Args, "-num_threads")
	require.Equal(t, strconv.Itoa(job.CPUCount()), search.Args[i+1])
	requireEmptyDir(t, tmp)
}

func TestRunner_Zip(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		mode   model.Mode
		outfmt string
	}{
		{model.ModeTabular, "6"},
		{model.ModePairwise, "1"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.mode), func(t *testing.T) {
			t.Parallel()
			runner, _, tmp := newRunner(t, 3)
			out, err := runner.Run(t.Context(), job.Request{
				Queries:      uploads("q1.fasta", "q2.fasta"),
				Databases:    uploads("ref1.fasta", "ref2.seq"),
				Mode:         tc.mode,
				Installation: native,
			})
			require.NoError(t, err)
			require.Len(t, out, 1)
			entries := readZip(t, out[0])
			require.Len(t, entries, 4)
			for _, name := range []string{
				"q1.fasta_ref1.txt",
				"q1.fasta_ref2.txt",
				"q2.fasta_ref1.txt",
				"q2.fasta_ref2.txt",
			} {
				require.Contains(t, entries, name)
			}
			if tc.outfmt == "1" {
				require.Contains(t, entries["q2.fasta_ref1.txt"], "Query= q2.fasta")
				require.Contains(t, entries["q2.fasta_ref1.txt"], "Threads: 3")
			} else {
				require.Contains(t, entries["q2.fasta_ref1.txt"], "q2.fasta\tref1\t98.500")
			}
			requireEmptyDir(t, tmp)
		})
	}
}

func TestRunner_Duplicates(t *testing.T) {
	t.Parallel()
	runner, rec, _ := newRunner(t, 1)

	out, err := runner.Run(t.Context(), job.Request{
		Queries:      uploads("q1.fasta", "q1.fasta", "dir/q2.fasta"),
		Databases:    uploads("ref.fasta", "other.fasta", `C:\data\ref.seq`),
		Mode:         model.ModeIdentity,
		Installation: native,
	})
	require.NoError(t, err)
	records := readCSV(t, out[0])
	require.Equal(t, []string{"query file", "ref", "other"}, records[0])
	require.Len(t, records, 3)
	require.Equal(t, "q1.fasta", records[1][0])
	require.Equal(t, "q2.fasta", records[2][0])

	var makedb []proc.Command
	for _, c := range rec.cmds {
		if slices.Contains(c.Args, "-dbtype") {
			makedb = append(makedb, c)
		}
	}
	require.Len(t, makedb, 2)
	// the later ref.seq replaced ref.fasta
	require.Contains(t, makedb[0].Args[1], "ref.seq")
}

func TestRunner_Fail(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    job.Request
		then     error
		contains string
	}{
		{
			scenario: "no queries",
			given:    job.Request{Databases: uploads("ref.fasta"), Mode: model.ModeTabular},
			then:     model.ErrNoQueries,
		},
		{
			scenario: "no databases",
			given:    job.Request{Queries: uploads("q.fasta"), Mode: model.ModeTabular},
			then:     model.ErrNoDatabases,
		},
		{
			scenario: "unknown mode",
			given:    job.Request{Queries: uploads("q.fasta"), Databases: uploads("ref.fasta"), Mode: "blastp"},
			then:     model.ErrUnknownMode,
		},
		{
			scenario: "invalid name",
			given:    job.Request{Queries: uploads(".."), Databases: uploads("ref.fasta"), Mode: model.ModeTabular},
			then:     model.ErrUploadName,
		},
		{
			scenario: "makeblastdb fails",
			given:    job.Request{Queries: uploads("q.fasta"), Databases: uploads("ref.fasta", "broken.fasta"), Mode: model.ModeTabular},
			contains: "Not a valid FASTA file",
		},
		{
			scenario: "blastn fails",
			given:    job.Request{Queries: uploads("q.fasta"), Databases: uploads("fail.fasta"), Mode: model.ModePairwise},
			contains: "search failed",
		},
		{
			scenario: "malformed report",
			given:    job.Request{Queries: uploads("q.fasta"), Databases: uploads("malformed.fasta"), Mode: model.ModeMismatch},
			then:     model.ErrMalformedHit,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			runner, _, tmp := newRunner(t, 1)
			tc.given.Installation = native
			out, err := runner.Run(t.Context(), tc.given)
			require.Error(t, err)
			require.Nil(t, out)
			if tc.then != nil {
				require.ErrorIs(t, err, tc.then)
			}
			if tc.contains != "" {
				require.ErrorContains(t, err, tc.contains)
			}
			requireEmptyDir(t, tmp)
		})
	}
}

func TestRunner_Launcher(t *testing.T) {
	t.Parallel()
	runner, rec, _ := newRunner(t, 1)
	bin := blasttest.Install(t)

	inst := model.Installation{Platform: "Windows-WSL2", Prefix: []string{bin.WSL}, Version: "2.16.0+"}
	out, err := runner.Run(t.Context(), job.Request{
		Queries:      uploads("q.fasta"),
		Databases:    uploads("ref.fasta"),
		Mode:         model.ModeTabular,
		Installation: inst,
	})
	require.NoError(t, err)
	require.Len(t, readZip(t, out[0]), 1)
	require.NotEmpty(t, rec.cmds)
	for _, c := range rec.cmds {
		require.Equal(t, bin.WSL, c.Path)
	}
}

func TestConfigFromModel(t *testing.T) {
	t.Parallel()
	cfg, err := job.ConfigFromModel(model.Blast{
		MakeBlastDB: "/opt/makeblastdb",
		Threads:     4,
		Timeout:     "1h30m",
	})
	require.NoError(t, err)
	require.Equal(t, "/opt/makeblastdb", cfg.MakeBlastDB)
	require.Equal(t, "blastn", cfg.BlastN)
	require.Equal(t, "nucl", cfg.DBType)
	require.Equal(t, 4, cfg.Threads)
	require.Equal(t, "1h30m0s", cfg.Timeout.String())
	require.Equal(t, 4, job.NewRunner(cfg, nil).Threads())

	_, err = job.ConfigFromModel(model.Blast{Timeout: "soon"})
	require.ErrorIs(t, err, model.ErrDuration)
}
