// Package blast drives the command line contract of the NCBI BLAST+ suite:
// makeblastdb, blastn -version and blastn itself.
package blast

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/CZERTAINLY/blastweb/internal/log"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/pathmap"
	"github.com/CZERTAINLY/blastweb/internal/proc"
)

const (
	// FormatTabular is -outfmt 6, one tab separated line per hit
	FormatTabular = "6"
	// FormatPairwise is -outfmt 1, query-anchored alignments with identities
	FormatPairwise = "1"

	DefaultMakeBlastDB = "makeblastdb"
	DefaultBlastN      = "blastn"
	DBTypeNucl         = "nucl"
)

// Suite invokes the BLAST+ binaries of a single installation
type Suite struct {
	exec        proc.Executor
	inst        model.Installation
	makeblastdb string
	blastn      string
	dbtype      string
	timeout     time.Duration
	translator  pathmap.Translator
}

func New(exec proc.Executor, inst model.Installation) Suite {
	return Suite{
		exec:        exec,
		inst:        inst.Clone(),
		makeblastdb: DefaultMakeBlastDB,
		blastn:      DefaultBlastN,
		dbtype:      DBTypeNucl,
		translator:  pathmap.ForInstallation(inst),
	}
}

// WithBinaries overrides the names or paths of makeblastdb and blastn,
// an empty value keeps the current one.
func (s Suite) WithBinaries(makeblastdb, blastn string) Suite {
	if makeblastdb != "" {
		s.makeblastdb = makeblastdb
	}
	if blastn != "" {
		s.blastn = blastn
	}
	return s
}

// WithTimeout limits every single invocation, zero means no limit
func (s Suite) WithTimeout(d time.Duration) Suite {
	s.timeout = d
	return s
}

func (s Suite) WithTranslator(t pathmap.Translator) Suite {
	s.translator = t
	return s
}

func (s Suite) WithDBType(dbtype string) Suite {
	if dbtype != "" {
		s.dbtype = dbtype
	}
	return s
}

func (s Suite) Installation() model.Installation {
	return s.inst.Clone()
}

// Version runs blastn -version and returns the parsed version
func (s Suite) Version(ctx context.Context) (string, error) {
	res := s.run(ctx, s.blastn, "-version")
	if res.Err != nil {
		return "", fmt.Errorf("running %s -version: %w", s.blastn, res.Err)
	}
	return ParseVersion(res.Stdout.String()), nil
}

// MakeDB builds a database from the FASTA file in, out is the database path
// without any extension.
func (s Suite) MakeDB(ctx context.Context, in, out string) error {
	paths, err := s.paths(in, out)
	if err != nil {
		return err
	}
	ctx = log.ContextAttrs(ctx, slog.String("database", out))
	res := s.run(ctx, s.makeblastdb,
		"-in", paths[0],
		"-dbtype", s.dbtype,
		"-out", paths[1],
	)
	if res.Err != nil {
		return fmt.Errorf("building database %s: %w", out, res.Err)
	}
	slog.DebugContext(ctx, "database built", "took", res.Stopped.Sub(res.Started))
	return nil
}

type SearchArgs struct {
	Query   string
	DB      string
	Out     string
	Threads int
	Format  string
}

// Search aligns Query against DB and writes the report into Out
func (s Suite) Search(ctx context.Context, args SearchArgs) error {
	paths, err := s.paths(args.Query, args.DB, args.Out)
	if err != nil {
		return err
	}
	threads := args.Threads
	if threads < 1 {
		threads = 1
	}
	format := args.Format
	if format == "" {
		format = FormatTabular
	}
	ctx = log.ContextAttrs(ctx,
		slog.GroupAttrs(
			"search",
			slog.String("query", args.Query),
			slog.String("db", args.DB),
			slog.String("outfmt", format),
		),
	)
	res := s.run(ctx, s.blastn,
		"-query", paths[0],
		"-db", paths[1],
		"-num_threads", strconv.Itoa(threads),
		"-outfmt", format,
		"-out", paths[2],
	)
	if res.Err != nil {
		return fmt.Errorf("searching %s in %s: %w", args.Query, args.DB, res.Err)
	}
	slog.DebugContext(ctx, "search finished", "took", res.Stopped.Sub(res.Started))
	return nil
}

func (s Suite) paths(native ...string) ([]string, error) {
	ret := make([]string, len(native))
	for i, p := range native {
		if err := s.translator.Check(p); err != nil {
			return nil, err
		}
		ret[i] = s.translator.Translate(p)
	}
	return ret, nil
}

func (s Suite) run(ctx context.Context, binary string, args ...string) proc.Result {
	cmd := proc.Command{Timeout: s.timeout}
	if s.inst.Prefixed() {
		cmd.Path = s.inst.Prefix[0]
		cmd.Args = append(append(cmd.Args, s.inst.Prefix[1:]...), binary)
	} else {
		cmd.Path = binary
	}
	cmd.Args = append(cmd.Args, args...)
	return s.exec.Run(ctx, cmd)
}
