// Package web is the browser interface: an upload form, a run action and
// downloads of the packaged results. State lives in per-browser sessions
// identified by a cookie.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/CZERTAINLY/blastweb/internal/job"
	"github.com/CZERTAINLY/blastweb/internal/log"
	"github.com/CZERTAINLY/blastweb/internal/model"
	"github.com/CZERTAINLY/blastweb/internal/seqfile"
)

const (
	CookieName  = "blastweb_session"
	DownloadURL = "https://ftp.ncbi.nlm.nih.gov/blast/executables/blast+/LATEST/"

	// memory used for multipart parsing, the rest goes to temporary files
	maxMemory = 32 << 20
)

//go:embed templates/*.html
var templates embed.FS

type Detector interface {
	Detect(ctx context.Context) []model.Installation
}

type JobRunner interface {
	Run(ctx context.Context, req job.Request) ([]model.Deliverable, error)
	Threads() int
}

type Server struct {
	store     *Store
	detector  Detector
	runner    JobRunner
	maxUpload int64
	tmpl      *template.Template
	mux       *http.ServeMux
}

// New returns the HTTP handler of the web interface. maxUploadMB limits the
// size of a run request.
func New(store *Store, detector Detector, runner JobRunner, maxUploadMB int) (*Server, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	s := &Server{
		store:     store,
		detector:  detector,
		runner:    runner,
		maxUpload: int64(maxUploadMB) << 20,
		tmpl:      tmpl,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.withSession(s.index))
	s.mux.HandleFunc("POST /installation", s.withSession(s.installation))
	s.mux.HandleFunc("POST /detect", s.withSession(s.detect))
	s.mux.HandleFunc("POST /run", s.withSession(s.run))
	s.mux.HandleFunc("GET /download/{name}", s.withSession(s.download))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *Session)

// withSession finds the session of a request or starts a new one
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sess *Session
		if c, err := r.Cookie(CookieName); err == nil {
			sess, _ = s.store.Get(c.Value)
		}
		if sess == nil {
			sess = s.store.New()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := log.ContextAttrs(r.Context(), slog.String("session", sess.ID))
		slog.DebugContext(ctx, "request", "method", r.Method, "path", r.URL.Path)
		h(w, r.WithContext(ctx), sess)
	}
}

type option struct {
	Index    int
	Label    string
	Selected bool
}

type modeOption struct {
	Value string
	Label string
}

type uploadSummary struct {
	Role    string
	Name    string
	Summary string
}

type page struct {
	Error         string
	DownloadURL   string
	Installations []option
	Selected      int
	Modes         []modeOption
	Threads       int
	Uploads       []uploadSummary
	Deliverables  []model.Deliverable
}

func (s *Server) page(ctx context.Context, sess *Session) page {
	view := sess.View()
	if !view.Detected {
		sess.SetInstallations(s.detector.Detect(ctx))
		view = sess.View()
	}
	p := page{
		DownloadURL:  DownloadURL,
		Selected:     view.Selected,
		Deliverables: view.Deliverables,
	}
	for i, inst := range view.Installations {
		p.Installations = append(p.Installations, option{
			Index:    i,
			Label:    inst.Label(),
			Selected: i == view.Selected,
		})
	}
	for _, m := range model.Modes() {
		p.Modes = append(p.Modes, modeOption{Value: string(m), Label: m.Label()})
	}
	return p
}

func (s *Server) render(ctx context.Context, w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", p); err != nil {
		slog.ErrorContext(ctx, "rendering page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, sess *Session, status int, msg string) {
	p := s.page(ctx, sess)
	p.Error = msg
	s.render(ctx, w, status, p)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.render(r.Context(), w, http.StatusOK, s.page(r.Context(), sess))
}

func (s *Server) installation(w http.ResponseWriter, r *http.Request, sess *Session) {
	idx, err := strconv.Atoi(r.FormValue("installation"))
	if err != nil || !sess.Select(idx) {
		s.fail(r.Context(), w, sess, http.StatusBadRequest, "Unknown installation")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request, sess *Session) {
	sess.SetInstallations(s.detector.Detect(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, sess *Session) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(ctx, w, sess, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d MB", s.maxUpload>>20))
			return
		}
		s.fail(ctx, w, sess, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	// the choice indexes the detected installations
	if !sess.View().Detected {
		sess.SetInstallations(s.detector.Detect(ctx))
	}
	if v := r.FormValue("installation"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil || !sess.Select(idx) {
			s.fail(ctx, w, sess, http.StatusBadRequest, "Unknown installation")
			return
		}
	}
	inst, err := sess.Installation()
	if err != nil {
		s.fail(ctx, w, sess, http.StatusBadRequest, err.Error())
		return
	}

	queries, err := readUploads(r.MultipartForm.File["queries"])
	if err != nil {
		s.fail(ctx, w, sess, http.StatusBadRequest, err.Error())
		return
	}
	databases, err := readUploads(r.MultipartForm.File["databases"])
	if err != nil {
		s.fail(ctx, w, sess, http.StatusBadRequest, err.Error())
		return
	}
	modeValue := r.FormValue("mode")
	switch {
	case len(queries) == 0:
		s.fail(ctx, w, sess, http.StatusBadRequest, "Select at least one query sequence file")
		return
	case len(databases) == 0:
		s.fail(ctx, w, sess, http.StatusBadRequest, "Select at least one database sequence file")
		return
	case modeValue == "":
		s.fail(ctx, w, sess, http.StatusBadRequest, "Select an output format")
		return
	}
	mode, err := model.ParseMode(modeValue)
	if err != nil {
		s.fail(ctx, w, sess, http.StatusBadRequest, err.Error())
		return
	}

	if err := sess.start(); err != nil {
		s.fail(ctx, w, sess, http.StatusConflict, "A job of this session is already running")
		return
	}
	deliverables, err := s.runner.Run(ctx, job.Request{
		Queries:      queries,
		Databases:    databases,
		Mode:         mode,
		Installation: inst,
	})
	sess.finish(deliverables)

	p := s.page(ctx, sess)
	p.Threads = s.runner.Threads()
	p.Uploads = append(summaries("query", queries), summaries("database", databases)...)
	if err != nil {
		slog.ErrorContext(ctx, "job failed", "error", err)
		p.Error = "Analysis failed: " + err.Error()
		s.render(ctx, w, http.StatusInternalServerError, p)
		return
	}
	s.render(ctx, w, http.StatusOK, p)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request, sess *Session) {
	name := r.PathValue("name")
	d, ok := sess.Deliverable(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", d.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Content)))
	_, _ = w.Write(d.Content)
}

func readUploads(headers []*multipart.FileHeader) ([]model.Upload, error) {
	ret := make([]model.Upload, 0, len(headers))
	for _, fh := range headers {
		if !seqfile.AllowedExt(fh.Filename) {
			return nil, fmt.Errorf("unsupported file %q: only .fasta and .seq are accepted", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
		}
		b, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
		}
		ret = append(ret, model.Upload{Name: fh.Filename, Content: b})
	}
	return ret, nil
}

func summaries(role string, uploads []model.Upload) []uploadSummary {
	ret := make([]uploadSummary, 0, len(uploads))
	for _, u := range uploads {
		summary := "not FASTA"
		if s, err := seqfile.Summarize(bytes.NewReader(u.Content)); err == nil {
			summary = s.String()
		}
		ret = append(ret, uploadSummary{Role: role, Name: model.BaseName(u.Name), Summary: summary})
	}
	return ret
}
