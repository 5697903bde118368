// Package blasttest installs fake BLAST+ binaries for tests. They are shell
// scripts following the command line contract of makeblastdb and blastn:
//
//   - makeblastdb fails for input files with "broken" in their name
//   - blastn fails for databases with "fail" in their name, writes an
//     empty report for "empty" and a truncated hit line for "malformed"
//   - otherwise blastn writes two -outfmt 6 hits per pair: 98.500 percent
//     identity with 3 mismatches and 1 gap opening, 100.000 with none
package blasttest

import (
	"embed"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:embed scripts/*
var scripts embed.FS

// Bin holds absolute paths of the installed fakes
type Bin struct {
	Dir         string
	MakeBlastDB string
	BlastN      string
	// WSL is a launcher which runs its arguments, standing in for wsl.exe
	WSL string
}

// Install writes the fake binaries into a temporary directory. The test is
// skipped if there is no sh to run them.
func Install(t testing.TB) Bin {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}

	dir := t.TempDir()
	entries, err := scripts.ReadDir("scripts")
	require.NoError(t, err)
	for _, e := range entries {
		b, err := scripts.ReadFile("scripts/" + e.Name())
		require.NoError(t, err)
		err = os.WriteFile(filepath.Join(dir, e.Name()), b, 0o755)
		require.NoError(t, err)
	}

	return Bin{
		Dir:         dir,
		MakeBlastDB: filepath.Join(dir, "makeblastdb"),
		BlastN:      filepath.Join(dir, "blastn"),
		WSL:         filepath.Join(dir, "wsl"),
	}
}

// FASTA returns a minimal single record FASTA file
func FASTA(name string) []byte {
	return []byte(">" + name + "\nACGTACGTTGCAACGTACGTTGCA\nACGTAC\n")
}
