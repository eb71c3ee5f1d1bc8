// Package airtabletest provides an in-memory Airtable server for tests.
package airtabletest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/linkupcampus/linkup/internal/airtable"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	BaseID = "appTEST"
	Token  = "patTEST"
)

// formulas the fake understands: {F} = 'v' and LOWER({F}) = 'v'
var formulaRe = regexp.MustCompile(`^(LOWER\()?\{([^}]+)\}\)?\s*=\s*'((?:[^'\\]|\\.)*)'$`)

// Server is an httptest server speaking a subset of the Airtable REST API.
type Server struct {
	*httptest.Server

	// PageSize caps list pages when the request does not set one.
	PageSize int

	mu       sync.Mutex
	tables   map[string][]*airtable.Record
	seq      int
	calls    map[string]int
	failures map[string]int
}

// NewServer starts a fake with the given tables. It is closed on test cleanup.
func NewServer(t testing.TB, tables ...string) *Server {
	s := &Server{
		PageSize: airtable.MaxPageSize,
		tables:   make(map[string][]*airtable.Record),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
	for _, name := range tables {
		s.tables[name] = nil
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the value for airtable.Config.BaseURL.
func (s *Server) BaseURL() string {
	return s.URL + "/v0"
}

// Config returns a client config pointing at the fake.
func (s *Server) Config() airtable.Config {
	return airtable.Config{
		BaseURL:   s.BaseURL(),
		BaseID:    BaseID,
		Token:     Token,
		RateLimit: 1000,
		Timeout:   5 * time.Second,
	}
}

// Seed inserts a record and returns its id.
func (s *Server) Seed(table string, fields map[string]interface{}) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(table, normalize(fields)).ID
}

// Record returns a copy of a stored record.
func (s *Server) Record(table, id string) (airtable.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tables[table] {
		if rec.ID == id {
			return copyRecord(rec), true
		}
	}
	return airtable.Record{}, false
}

// Records returns copies of all records of a table in insertion order.
func (s *Server) Records(table string) []airtable.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]airtable.Record, 0, len(s.tables[table]))
	for _, rec := range s.tables[table] {
		out = append(out, copyRecord(rec))
	}
	return out
}

// Calls returns how many requests with method were served.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// FailWith makes every request with method answer status until cleared
// with status 0.
func (s *Server) FailWith(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method)
		return
	}
	s.failures[method] = status
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.Method]++

	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}
	if status, ok := s.failures[r.Method]; ok {
		writeError(w, status, "SERVER_ERROR", "injected failure")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.EscapedPath(), "/"), "/")
	if len(parts) < 3 || parts[0] != "v0" || parts[1] != BaseID {
		writeCode(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	table, _ := url.PathUnescape(parts[2])
	if _, ok := s.tables[table]; !ok {
		writeError(w, http.StatusNotFound, "TABLE_NOT_FOUND", fmt.Sprintf("Could not find table %s", table))
		return
	}
	id := ""
	if len(parts) > 3 {
		id, _ = url.PathUnescape(parts[3])
	}

	switch {
	case r.Method == http.MethodGet && id == "":
		s.list(w, r, table)
	case r.Method == http.MethodGet:
		if rec := s.find(table, id); rec != nil {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		writeCode(w, http.StatusNotFound, "NOT_FOUND")
	case r.Method == http.MethodPost && id == "":
		fields, ok := readFields(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.insert(table, fields))
	case r.Method == http.MethodPatch && id != "":
		rec := s.find(table, id)
		if rec == nil {
			writeCode(w, http.StatusNotFound, "NOT_FOUND")
			return
		}
		fields, ok := readFields(w, r)
		if !ok {
			return
		}
		for k, v := range fields {
			if v == nil {
				delete(rec.Fields, k)
				continue
			}
			rec.Fields[k] = v
		}
		writeJSON(w, http.StatusOK, rec)
	case r.Method == http.MethodDelete && id != "":
		recs := s.tables[table]
		for i, rec := range recs {
			if rec.ID == id {
				s.tables[table] = append(recs[:i:i], recs[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
				return
			}
		}
		writeCode(w, http.StatusNotFound, "NOT_FOUND")
	default:
		writeCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, table string) {
	q := r.URL.Query()
	match, err := compileFormula(q.Get("filterByFormula"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_FILTER_BY_FORMULA", err.Error())
		return
	}

	var matched []*airtable.Record
	for _, rec := range s.tables[table] {
		if match(rec) {
			matched = append(matched, rec)
		}
	}
	if n, _ := strconv.Atoi(q.Get("maxRecords")); n > 0 && len(matched) > n {
		matched = matched[:n]
	}

	pageSize := s.PageSize
	if n, _ := strconv.Atoi(q.Get("pageSize")); n > 0 && n < pageSize {
		pageSize = n
	}
	start, _ := strconv.Atoi(q.Get("offset"))
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := matched[start:end]
	if fields := q["fields[]"]; len(fields) > 0 {
		projected := make([]*airtable.Record, len(page))
		for i, rec := range page {
			cp := &airtable.Record{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: map[string]interface{}{}}
			for _, f := range fields {
				if v, ok := rec.Fields[f]; ok {
					cp.Fields[f] = v
				}
			}
			projected[i] = cp
		}
		page = projected
	}
	resp := map[string]interface{}{"records": page}
	if end < len(matched) {
		resp["offset"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) find(table, id string) *airtable.Record {
	for _, rec := range s.tables[table] {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (s *Server) insert(table string, fields map[string]interface{}) *airtable.Record {
	s.seq++
	if fields == nil {
		fields = map[string]interface{}{}
	}
	rec := &airtable.Record{
		ID:          fmt.Sprintf("rec%014d", s.seq),
		CreatedTime: time.Now().UTC().Add(time.Duration(s.seq) * time.Millisecond).Format("2006-01-02T15:04:05.000Z"),
		Fields:      fields,
	}
	s.tables[table] = append(s.tables[table], rec)
	return rec
}

func compileFormula(formula string) (func(*airtable.Record) bool, error) {
	if formula == "" {
		return func(*airtable.Record) bool { return true }, nil
	}
	m := formulaRe.FindStringSubmatch(strings.TrimSpace(formula))
	if m == nil {
		return nil, fmt.Errorf("unsupported formula %q", formula)
	}
	fold, field := m[1] != "", m[2]
	want := strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(m[3])
	return func(rec *airtable.Record) bool {
		got := fmt.Sprint(rec.Fields[field])
		if rec.Fields[field] == nil {
			got = ""
		}
		if fold {
			got = strings.ToLower(got)
		}
		return got == want
	}, nil
}

func readFields(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST_UNKNOWN", err.Error())
		return nil, false
	}
	var payload struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return nil, false
	}
	return payload.Fields, true
}

func normalize(fields map[string]interface{}) map[string]interface{} {
	data, _ := json.Marshal(fields)
	out := map[string]interface{}{}
	_ = json.Unmarshal(data, &out)
	return out
}

func copyRecord(rec *airtable.Record) airtable.Record {
	cp := *rec
	cp.Fields = make(map[string]interface{}, len(rec.Fields))
	for k, v := range rec.Fields {
		cp.Fields[k] = v
	}
	return cp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]interface{}{"error": code})
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": map[string]string{"type": typ, "message": msg}})
}
