package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyset-cli/internal/loader"
	"github.com/KaramelBytes/tidyset-cli/internal/preview"
	"github.com/KaramelBytes/tidyset-cli/internal/report"
	"github.com/KaramelBytes/tidyset-cli/internal/session"
)

// SessionHeader optionally pins a request to the session it was opened
// with. Requests without it act on the current session.
const SessionHeader = "X-Session-ID"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, HealthResponse{
		Status:  "ok",
		Version: Version,
		Session: s.store.Active(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close() //nolint:errcheck
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	sess, err := s.store.Open(header.Filename, data, loader.Options{})
	if err != nil {
		s.fail(w, err)
		return
	}
	// Original and the baseline are fixed after load, so they can be
	// projected outside the store lock.
	s.respond(w, UploadResponse{
		SessionID:      sess.ID,
		FileName:       sess.FileName,
		Stats:          sess.Before,
		MissingInfo:    sess.MissingInfo,
		OutliersInfo:   sess.OutlierInfo,
		Preview:        preview.Build(sess.Original, s.cfg.PreviewRows),
		Visualizations: preview.Aggregates(sess.Original, s.cfg.ScatterPoints),
		OutlierIndices: nonNil(preview.OutlierCoordinates(sess.Original, sess.Detector(), s.cfg.PreviewRows)),
	})
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	var req cleaning.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	cfg, unknown := req.Config()
	if len(unknown) > 0 {
		s.logger.Warn("unrecognized cleaning options fell back to none", zap.Strings("options", unknown))
	}

	var resp CleanResponse
	err := s.store.Do(r.Header.Get(SessionHeader), func(sess *session.Session) error {
		res, err := sess.Clean(cfg)
		if err != nil {
			return err
		}
		resp = CleanResponse{
			Summary:         res.Summary,
			StatsBefore:     res.Before,
			StatsAfter:      res.After,
			Preview:         preview.Build(sess.Cleaned, s.cfg.PreviewRows),
			OriginalPreview: preview.Build(res.Previous, s.cfg.PreviewRows),
			Visualizations:  preview.Aggregates(sess.Cleaned, s.cfg.ScatterPoints),
			Ignored:         unknown,
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "md" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported report format %q", format))
		return
	}

	var (
		buf  bytes.Buffer
		name string
	)
	err := s.store.Do(r.Header.Get(SessionHeader), func(sess *session.Session) error {
		after := sess.Before
		if sess.After != nil {
			after = *sess.After
		}
		m := report.Build(sess.Before, after, sess.Log.Entries(), sess.Current())
		m.FileName = sess.FileName
		m.WithMissing(sess.MissingInfo)
		name = "cleaning_report." + format
		if format == "md" {
			return report.WriteMarkdown(&buf, m)
		}
		return report.RenderHTML(&buf, m)
	})
	if errors.Is(err, session.ErrNoData) {
		writeError(w, http.StatusBadRequest, "No data for report")
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	ctype := "text/html; charset=utf-8"
	if format == "md" {
		ctype = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.store.Reset()
	s.respond(w, MessageResponse{Message: "Session reset"})
}

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var le *loader.LoadError
	switch {
	case errors.As(err, &le):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNoData):
		writeError(w, http.StatusBadRequest, "No data loaded")
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// respond writes a 200 JSON body and logs values that cannot be encoded.
func (s *Server) respond(w http.ResponseWriter, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

// writeJSON encodes v before writing the header so an unencodable value
// turns into a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n')) //nolint:errcheck
	return err
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg}) //nolint:errcheck
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
