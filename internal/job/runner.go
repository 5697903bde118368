// Package job runs one BLAST job: it builds a database from every uploaded
// database file, searches every query in every database and packages the
// reports into a single deliverable.
//
// A job owns a fresh temporary directory which is removed on every exit
// path, so nothing but the returned deliverables survives a job.
package job

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/CZERTAINLY/blastweb/internal/blast"
	"github.com/CZERTAINLY/blastweb/internal/log"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/proc"

	"github.com/google/uuid"
)

// TempPattern is the pattern of job directories, see os.MkdirTemp
const TempPattern = "blastweb-*"

const (
	ZipName  = "blast_outputs.zip"
	ZipMIME  = "application/zip"
	CSVName  = "blast_output_table.csv"
	CSVMIME  = "text/csv"
	CSVFirst = "query file"
	NoHits   = "-"
	CellSep  = ", "
)

const (
	queryDir = "query"
	dbDir    = "db"
	outDir   = "out"
)

type Config struct {
	Threads     int // 0 means the number of logical CPUs
	TempDir     string
	Timeout     time.Duration // per BLAST invocation
	MakeBlastDB string
	BlastN      string
	DBType      string
	Formats     map[model.Mode]string // -outfmt code of raw modes
}

func DefaultConfig() Config {
	return Config{
		MakeBlastDB: blast.DefaultMakeBlastDB,
		BlastN:      blast.DefaultBlastN,
		DBType:      blast.DBTypeNucl,
		Formats: map[model.Mode]string{
			model.ModeTabular:  blast.FormatTabular,
			model.ModePairwise: blast.FormatPairwise,
		},
	}
}

// ConfigFromModel converts the blast section of the configuration file
func ConfigFromModel(cfg model.Blast) (Config, error) {
	timeout, err := model.ParseDuration(cfg.Timeout)
	if err != nil {
		return Config{}, fmt.Errorf("parsing blast.timeout: %w", err)
	}
	ret := DefaultConfig()
	ret.Threads = cfg.Threads
	ret.TempDir = cfg.TempDir
	ret.Timeout = timeout
	if cfg.MakeBlastDB != "" {
		ret.MakeBlastDB = cfg.MakeBlastDB
	}
	if cfg.BlastN != "" {
		ret.BlastN = cfg.BlastN
	}
	return ret, nil
}

// CPUCount returns the number of logical CPUs, at least 1
func CPUCount() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

type Request struct {
	Queries      []model.Upload
	Databases    []model.Upload
	Mode         model.Mode
	Installation model.Installation
}

type Runner struct {
	cfg  Config
	exec proc.Executor
}

func NewRunner(cfg Config, exec proc.Executor) Runner {
	return Runner{cfg: cfg, exec: exec}
}

// Threads is the value passed to blastn -num_threads
func (r Runner) Threads() int {
	if r.cfg.Threads > 0 {
		return r.cfg.Threads
	}
	return CPUCount()
}

// Run executes the job. On error no deliverable is returned.
func (r Runner) Run(ctx context.Context, req Request) ([]model.Deliverable, error) {
	if _, err := model.ParseMode(string(req.Mode)); err != nil {
		return nil, err
	}
	queries, err := distinct(req.Queries, model.BaseName)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, model.ErrNoQueries
	}
	databases, err := distinct(req.Databases, dbName)
	if err != nil {
		return nil, err
	}
	if len(databases) == 0 {
		return nil, model.ErrNoDatabases
	}

	ctx = log.ContextAttrs(ctx,
		slog.String("job", uuid.NewString()),
		slog.String("mode", string(req.Mode)),
		slog.String("installation", req.Installation.Label()),
	)
	start := time.Now()
	slog.InfoContext(ctx, "job started", "queries", len(queries), "databases", len(databases), "threads", r.Threads())

	dir, err := os.MkdirTemp(r.cfg.TempDir, TempPattern)
	if err != nil {
		return nil, fmt.Errorf("creating job directory: %w", err)
	}
	untrack := track(dir)
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.WarnContext(ctx, "removing job directory", "dir", dir, "error", err)
		}
		untrack()
	}()

	w, err := newWorkdir(dir)
	if err != nil {
		return nil, err
	}
	defer w.close()

	suite := blast.New(r.exec, req.Installation).
		WithBinaries(r.cfg.MakeBlastDB, r.cfg.BlastN).
		WithDBType(r.cfg.DBType).
		WithTimeout(r.cfg.Timeout)

	dbNames := make([]string, 0, len(databases))
	for _, db := range databases {
		name := dbName(db.Name)
		in, err := w.write(dbDir, model.BaseName(db.Name), db.Content)
		if err != nil {
			return nil, err
		}
		if err := suite.MakeDB(ctx, in, w.native(dbDir, name)); err != nil {
			return nil, err
		}
		dbNames = append(dbNames, name)
	}

	format := blast.FormatTabular
	if !req.Mode.Aggregate() {
		format = r.format(req.Mode)
	}

	var outputs []output
	var rows [][]string
	for _, q := range queries {
		qname := model.BaseName(q.Name)
		qpath, err := w.write(queryDir, qname, q.Content)
		if err != nil {
			return nil, err
		}
		row := []string{qname}
		for _, db := range dbNames {
			name := qname + "_" + db + ".txt"
			err := suite.Search(ctx, blast.SearchArgs{
				Query:   qpath,
				DB:      w.native(dbDir, db),
				Out:     w.native(outDir, name),
				Threads: r.Threads(),
				Format:  format,
			})
			if err != nil {
				return nil, err
			}
			content, err := w.root.ReadFile(filepath.Join(outDir, name))
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			if !req.Mode.Aggregate() {
				outputs = append(outputs, output{name: name, content: content})
				continue
			}
			cell, err := extract(req.Mode, content)
			if err != nil {
				return nil, fmt.Errorf("processing %s: %w", name, err)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	var ret model.Deliverable
	if req.Mode.Aggregate() {
		header := append([]string{CSVFirst}, dbNames...)
		content, err := tableCSV(header, rows)
		if err != nil {
			return nil, err
		}
		ret = model.Deliverable{Filename: CSVName, Content: content, MIMEType: CSVMIME}
	} else {
		content, err := zipOutputs(outputs)
		if err != nil {
			return nil, err
		}
		ret = model.Deliverable{Filename: ZipName, Content: content, MIMEType: ZipMIME}
	}

	slog.InfoContext(ctx, "job finished",
		"took", time.Since(start).String(),
		"deliverable", ret.Filename,
		"size", len(ret.Content),
	)
	return []model.Deliverable{ret}, nil
}

func (r Runner) format(mode model.Mode) string {
	if f, ok := r.cfg.Formats[mode]; ok && f != "" {
		return f
	}
	return DefaultConfig().Formats[mode]
}

func dbName(name string) string {
	return model.StripExt(model.BaseName(name))
}

// distinct deduplicates uploads by key. A later upload replaces an earlier
// one with the same key but takes over its position.
func distinct(uploads []model.Upload, key func(string) string) ([]model.Upload, error) {
	idx := make(map[string]int, len(uploads))
	var ret []model.Upload
	for _, u := range uploads {
		k := key(u.Name)
		if k == "" {
			return nil, fmt.Errorf("%w: %q", model.ErrUploadName, u.Name)
		}
		if i, ok := idx[k]; ok {
			ret[i] = u
			continue
		}
		idx[k] = len(ret)
		ret = append(ret, u)
	}
	return ret, nil
}

// extract turns a tabular report into a table cell
func extract(mode model.Mode, report []byte) (string, error) {
	hits, err := blast.ParseTabular(bytes.NewReader(report))
	if err != nil {
		return "", err
	}
	values := make([]string, 0, len(hits))
	for _, fields := range hits {
		switch mode {
		case model.ModeIdentity:
			v, err := blast.Identity(fields)
			if err != nil {
				return "", err
			}
			values = append(values, v)
		case model.ModeMismatch:
			v, err := blast.MismatchSum(fields)
			if err != nil {
				return "", err
			}
			values = append(values, blast.FormatFloat(v))
		default:
			return "", fmt.Errorf("%w: %s", model.ErrUnknownMode, mode)
		}
	}
	if len(values) == 0 {
		return NoHits, nil
	}
	return strings.Join(values, CellSep), nil
}

// workdir confines all the job files into its directory
type workdir struct {
	dir  string
	root *os.Root
}

func newWorkdir(dir string) (workdir, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return workdir{}, fmt.Errorf("opening job directory: %w", err)
	}
	for _, sub := range []string{queryDir, dbDir, outDir} {
		if err := root.Mkdir(sub, 0o755); err != nil {
			_ = root.Close()
			return workdir{}, fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}
	return workdir{dir: dir, root: root}, nil
}

// write stores an upload and returns its native path
func (w workdir) write(sub, name string, content []byte) (string, error) {
	if err := w.root.WriteFile(filepath.Join(sub, name), content, 0o644); err != nil {
		return "", fmt.Errorf("saving upload %s: %w", name, err)
	}
	return w.native(sub, name), nil
}

func (w workdir) native(sub, name string) string {
	return filepath.Join(w.dir, sub, name)
}

func (w workdir) close() {
	_ = w.root.Close()
}

