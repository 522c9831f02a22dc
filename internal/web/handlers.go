package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thywilljoshua/notescan/internal/convert"
	"github.com/thywilljoshua/notescan/internal/outline"
	"github.com/thywilljoshua/notescan/internal/populate"
)

const multipartMemory = 32 << 20

type indexPage struct {
	Formats      []populate.Format
	MaxUploadMB  int64
	ServerHasKey bool
}

type sessionPage struct {
	Session   Session
	Blueprint string
	Preview   template.HTML
	Formats   []populate.Format
	Message   string
}

type errorPage struct {
	Status  int
	Title   string
	Message string
	Back    string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index", indexPage{
		Formats:      populate.Formats,
		MaxUploadMB:  s.opts.MaxUploadBytes >> 20,
		ServerHasKey: s.opts.AI.Configured(),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.fail(w, r, "/", formError(err, s.opts.MaxUploadBytes))
		return
	}
	pdf, name, err := readUpload(r, "pdf")
	if err != nil {
		s.fail(w, r, "/", err)
		return
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		s.fail(w, r, "/", badRequest("%s is not a PDF file", name))
		return
	}

	format := populate.Slides
	if v := r.FormValue("format"); v != "" {
		if format, err = populate.ParseFormat(v); err != nil {
			s.fail(w, r, "/", badRequest("%v", err))
			return
		}
	}

	var tmpl *uploadedTemplate
	if len(r.MultipartForm.File["template"]) > 0 {
		t, err := readTemplate(r)
		if err == nil {
			err = t.check(placeholderOutline)
		}
		if err != nil {
			s.fail(w, r, "/", err)
			return
		}
		tmpl = &t
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	rs, tr, err := s.model(r.Context(), apiKey)
	if err != nil {
		s.fail(w, r, "/", err)
		return
	}
	ext, err := s.opts.NewExtractor(s.opts.Extract, tr)
	if err != nil {
		s.fail(w, r, "/", err)
		return
	}
	res, err := convert.Run(r.Context(), pdf, convert.Config{Extractor: ext, Restructurer: rs})
	if err != nil {
		s.fail(w, r, "/", err)
		return
	}

	sess := Session{Filename: name, APIKey: apiKey, Format: format, Result: res, Outline: res.Outline}
	if tmpl != nil {
		if err := tmpl.check(res.Outline); err != nil {
			s.fail(w, r, "/", err)
			return
		}
		sess.Templates = map[populate.Format]Template{tmpl.format: tmpl.Template}
	}
	id := s.store.Create(sess)
	slog.Info("Session created.", "session", id, "file", name, "sections", len(res.Outline.Sections),
		"source", res.Source, "heuristic", res.Heuristic)
	http.Redirect(w, r, "/sessions/"+id, http.StatusSeeOther)
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		s.fail(w, r, "/", errSessionNotFound)
		return
	}
	s.renderSession(w, r, http.StatusOK, sess, r.URL.Query().Get("msg"))
}

func (s *Server) renderSession(w http.ResponseWriter, r *http.Request, status int, sess Session, msg string) {
	blueprint, err := sess.Outline.MarshalBlueprint()
	if err != nil {
		s.fail(w, r, "/", err)
		return
	}
	preview, err := s.renderPreview(sess.Outline)
	if err != nil {
		s.fail(w, r, "/", err)
		return
	}
	s.render(w, r, status, "session", sessionPage{
		Session:   sess,
		Blueprint: string(blueprint),
		Preview:   preview,
		Formats:   populate.Formats,
		Message:   msg,
	})
}

func (s *Server) updateOutline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/sessions/" + id
	o, err := outline.Parse([]byte(r.FormValue("outline")))
	if err == nil {
		err = o.Validate()
	}
	if err != nil {
		var invalid *outline.InvalidOutlineError
		if !errors.As(err, &invalid) {
			err = badRequest("outline is not valid blueprint JSON: %v", err)
		}
		s.fail(w, r, back, err)
		return
	}
	if err := s.store.Update(id, func(sess *Session) error {
		sess.Outline = o
		return nil
	}); err != nil {
		s.fail(w, r, "/", err)
		return
	}
	slog.Info("Outline edited.", "session", id, "sections", len(o.Sections))
	http.Redirect(w, r, back+"?msg="+url.QueryEscape("Outline saved."), http.StatusSeeOther)
}

func (s *Server) revise(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/sessions/" + id
	sess, ok := s.store.Get(id)
	if !ok {
		s.fail(w, r, "/", errSessionNotFound)
		return
	}
	rs, _, err := s.model(r.Context(), sess.APIKey)
	if err != nil {
		s.fail(w, r, back, err)
		return
	}
	o, err := convert.Revise(r.Context(), rs, sess.Outline, r.FormValue("instruction"))
	if err != nil {
		s.fail(w, r, back, err)
		return
	}
	if err := s.store.Update(id, func(sess *Session) error {
		sess.Outline = o
		return nil
	}); err != nil {
		s.fail(w, r, "/", err)
		return
	}
	http.Redirect(w, r, back+"?msg="+url.QueryEscape("Outline revised."), http.StatusSeeOther)
}

func (s *Server) uploadTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/sessions/" + id
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.fail(w, r, back, formError(err, s.opts.MaxUploadBytes))
		return
	}
	sess, ok := s.store.Get(id)
	if !ok {
		s.fail(w, r, "/", errSessionNotFound)
		return
	}
	t, err := readTemplate(r)
	if err != nil {
		s.fail(w, r, back, err)
		return
	}
	if err := t.check(sess.Outline); err != nil {
		s.fail(w, r, back, err)
		return
	}
	if err := s.store.Update(id, func(sess *Session) error {
		sess.Templates[t.format] = t.Template
		return nil
	}); err != nil {
		s.fail(w, r, "/", err)
		return
	}
	slog.Info("Template uploaded.", "session", id, "format", t.format, "file", t.Name)
	http.Redirect(w, r, back+"?msg="+url.QueryEscape(fmt.Sprintf("Template %s will be used for %s output.", t.Name, t.format)), http.StatusSeeOther)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/sessions/" + id
	sess, ok := s.store.Get(id)
	if !ok {
		s.fail(w, r, "/", errSessionNotFound)
		return
	}
	f, err := populate.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, back, err)
		return
	}
	data, err := populate.Populate(sess.Outline, f, populate.Options{Template: sess.Templates[f].Data})
	if err != nil {
		s.fail(w, r, back, err)
		return
	}
	name := convert.Slug(sess.Outline.Title(), "outline") + f.Extension()
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Warn("Download interrupted.", "session", id, "error", err)
		return
	}
	slog.Info("Artifact generated.", "session", id, "format", f, "bytes", len(data))
}

// placeholderOutline stands in for the real outline when a template is
// checked before the PDF has been read.
var placeholderOutline = outline.Outline{Sections: []outline.Section{
	{Title: "Title", Bullets: []outline.Bullet{{Text: "Point"}, {Text: "Detail", Level: 1}}},
}}

type uploadedTemplate struct {
	Template
	format populate.Format
}

// check fails with the populator's error when the template cannot hold o.
func (t uploadedTemplate) check(o outline.Outline) error {
	_, err := populate.Populate(o, t.format, populate.Options{Template: t.Data})
	return err
}

// readTemplate reads the "template" file. Its format follows the extension.
func readTemplate(r *http.Request) (uploadedTemplate, error) {
	data, name, err := readUpload(r, "template")
	if err != nil {
		return uploadedTemplate{}, err
	}
	f, err := populate.ParseFormat(filepath.Ext(name))
	if err != nil || f == populate.PDF {
		return uploadedTemplate{}, badRequest("%s: templates must be .pptx, .docx or .md files", name)
	}
	return uploadedTemplate{Template: Template{Name: name, Data: data}, format: f}, nil
}

func readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", badRequest("choose a file to upload (%s)", field)
	}
	if err != nil {
		return nil, "", badRequest("read %s upload: %v", field, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read %s upload: %w", field, err)
	}
	if len(data) == 0 {
		return nil, "", badRequest("%s is empty", header.Filename)
	}
	return data, filepath.Base(header.Filename), nil
}

func formError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("upload larger than %d MB: %w", limit>>20, err)
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		return badRequest("upload larger than %d MB", limit>>20)
	}
	return badRequest("invalid upload form: %v", err)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, back string, err error) {
	status := statusFor(err)
	slog.Error("Request failed.", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	s.render(w, r, status, "error", errorPage{
		Status:  status,
		Title:   http.StatusText(status),
		Message: err.Error(),
		Back:    back,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Render page.", "page", name, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
