package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/ingest"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/schemasource"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/statparse"
)

// defaultBodyLimit applies when no input limit is configured.
const defaultBodyLimit = 1 << 20

type apiHandler struct {
	ingest  *ingest.Service
	schemas *schemasource.Registry
	store   records.Storage
	config  *config.Config
	logger  *slog.Logger
}

// ParseRequest is the JSON form of a parse request. Plain-text bodies are
// treated as Text.
type ParseRequest struct {
	Text    string `json:"text"`
	Source  string `json:"source,omitempty"`
	Persist *bool  `json:"persist,omitempty"`
}

// ParseResponse is returned by POST /v1/parse.
type ParseResponse struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	Name          string           `json:"name,omitempty"`
	SchemaVersion string           `json:"schema_version"`
	DurationMS    float64          `json:"duration_ms"`
	Stored        bool             `json:"stored"`
	Result        statparse.Result `json:"result,omitempty"`
	Code          string           `json:"code,omitempty"`
	Error         string           `json:"error,omitempty"`
	Missing       []string         `json:"missing,omitempty"`
	BadValues     []BadValue       `json:"bad_values,omitempty"`
}

// BadValue is one rejected field value.
type BadValue struct {
	Field    string `json:"field"`
	Path     string `json:"path,omitempty"`
	Value    string `json:"value"`
	Expected string `json:"expected"`
}

func (h *apiHandler) handleParse(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeParseRequest(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	out, err := h.ingest.Ingest(r.Context(), req)
	switch {
	case errors.Is(err, ingest.ErrNoSchema):
		writeError(w, r, http.StatusServiceUnavailable, codeUnavailable, err.Error())
		return
	case errors.Is(err, ingest.ErrInputTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, err.Error())
		return
	case out == nil:
		h.logger.ErrorContext(r.Context(), "ingest failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, codeInternal, "ingest failed")
		return
	}

	resp := ParseResponse{
		ID:            out.ID,
		Status:        out.Status,
		Name:          out.Name,
		SchemaVersion: out.SchemaVersion,
		DurationMS:    float64(out.Duration.Microseconds()) / 1000,
		Stored:        out.Stored,
		Result:        out.Result,
	}
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Code = codeParseFailed
	resp.Error = err.Error()
	var missing *statparse.MissingContentError
	if errors.As(err, &missing) {
		for _, m := range missing.Missing {
			resp.Missing = append(resp.Missing, m.String())
		}
	}
	for _, bad := range ingest.BadValues(err) {
		resp.BadValues = append(resp.BadValues, BadValue{
			Field:    bad.Field,
			Path:     bad.Path,
			Value:    bad.Value,
			Expected: bad.Pattern,
		})
	}

	status := http.StatusUnprocessableEntity
	if out.Status == records.StatusError {
		// Cancellation or timeout rather than a problem with the text.
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *apiHandler) decodeParseRequest(w http.ResponseWriter, r *http.Request) (ingest.Request, error) {
	limit := int64(defaultBodyLimit)
	if max := h.config.Parser.MaxInputBytes; max > 0 {
		// JSON escaping can double the size of the text.
		limit = 2*max + 1024
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return ingest.Request{}, err
	}

	req := ingest.Request{Source: "http", Persist: h.config.Records.Enabled}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var pr ParseRequest
		if err := json.Unmarshal(body, &pr); err != nil {
			return ingest.Request{}, fmt.Errorf("invalid JSON body: %w", err)
		}
		req.Text = pr.Text
		if pr.Source != "" {
			req.Source = pr.Source
		}
		if pr.Persist != nil {
			req.Persist = *pr.Persist && h.config.Records.Enabled
		}
	} else {
		req.Text = string(body)
	}

	if strings.TrimSpace(req.Text) == "" {
		return ingest.Request{}, fmt.Errorf("statblock text is required")
	}
	return req, nil
}

func (h *apiHandler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, records.ErrRecordNotFound) {
		writeError(w, r, http.StatusNotFound, codeNotFound, fmt.Sprintf("record %s not found", id))
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get record", "id", id, "error", err)
		writeError(w, r, http.StatusInternalServerError, codeInternal, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RecordList is returned by GET /v1/records.
type RecordList struct {
	Records []*records.Record `json:"records"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

func (h *apiHandler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromURL(r)
	if err == nil {
		err = records.ValidateQuery(q, h.config.Records.Query.MaxLimit)
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	records.ApplyQueryDefaults(q, h.config.Records.Query.DefaultLimit)

	list, err := h.store.Query(r.Context(), q)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to query records", "error", err)
		writeError(w, r, http.StatusInternalServerError, codeInternal, "failed to query records")
		return
	}
	total, err := h.store.Count(r.Context(), q)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to count records", "error", err)
		writeError(w, r, http.StatusInternalServerError, codeInternal, "failed to count records")
		return
	}

	writeJSON(w, http.StatusOK, RecordList{Records: list, Total: total, Limit: q.Limit, Offset: q.Offset})
}

// queryFromURL reads record filters from query parameters. Times are
// RFC 3339.
func queryFromURL(r *http.Request) (*records.Query, error) {
	v := r.URL.Query()
	q := &records.Query{
		Status:        v.Get("status"),
		Name:          v.Get("name"),
		Source:        v.Get("source"),
		SchemaVersion: v.Get("schema_version"),
		SortOrder:     v.Get("sort"),
	}

	var err error
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid limit: %s", s)
		}
	}
	if s := v.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid offset: %s", s)
		}
	}
	if s := v.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid since: %s", s)
		}
		q.StartTime = &t
	}
	if s := v.Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid until: %s", s)
		}
		q.EndTime = &t
	}
	return q, nil
}

// SchemaInfo is returned by GET /v1/schema.
type SchemaInfo struct {
	Version  string      `json:"version"`
	Source   string      `json:"source"`
	Revision string      `json:"revision"`
	LoadedAt time.Time   `json:"loaded_at"`
	Root     string      `json:"root"`
	Fields   []FieldInfo `json:"fields"`
}

// FieldInfo summarizes one schema field.
type FieldInfo struct {
	Path      string `json:"path"`
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	MinOccurs int    `json:"min_occurs"`
	MaxOccurs int    `json:"max_occurs"`
}

func (h *apiHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	snap := h.schemas.Current()
	if snap == nil {
		writeError(w, r, http.StatusServiceUnavailable, codeUnavailable, "no schema loaded")
		return
	}

	info := SchemaInfo{
		Version:  snap.Version(),
		Source:   snap.Source,
		Revision: snap.Revision,
		LoadedAt: snap.LoadedAt,
		Root:     snap.Schema.Root.Name,
	}
	snap.Schema.Root.Walk(func(path []string, f *fieldspec.Field) {
		fi := FieldInfo{
			Path:      strings.Join(path, "."),
			Type:      string(f.Type),
			MinOccurs: f.MinOccurs,
			MaxOccurs: f.MaxOccurs,
		}
		if !f.Bare && !f.IsContent() {
			fi.Token = f.Token()
		}
		info.Fields = append(info.Fields, fi)
	})

	writeJSON(w, http.StatusOK, info)
}
