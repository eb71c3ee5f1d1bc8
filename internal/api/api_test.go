package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/linkupcampus/linkup/config"
	"github.com/linkupcampus/linkup/internal/airtable/airtabletest"
	"github.com/linkupcampus/linkup/internal/app"
	"github.com/linkupcampus/linkup/internal/webserver"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	servicesTable = "Talent"
	usersTable    = "User table"
)

type envelope struct {
	Data    jsoniter.RawMessage `json:"data"`
	Meta    *Meta               `json:"meta"`
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Details jsoniter.RawMessage `json:"details"`
}

type testEnv struct {
	t        *testing.T
	airtable *airtabletest.Server
	cloud    *httptest.Server
	uploads  atomic.Int32
	app      *app.Application
	server   *webserver.WebServer
}

func newTestEnv(t *testing.T, mutate ...func(*config.AppConfig)) *testEnv {
	t.Helper()
	Init()
	e := &testEnv{t: t, airtable: airtabletest.NewServer(t, servicesTable, usersTable)}
	e.cloud = httptest.NewServer(http.HandlerFunc(e.handleUpload))
	t.Cleanup(e.cloud.Close)

	cfg := *config.DefaultAppConfig
	cfg.Airtable.BaseURL = e.airtable.BaseURL()
	cfg.Airtable.BaseID = airtabletest.BaseID
	cfg.Airtable.Token = airtabletest.Token
	cfg.Airtable.RateLimit = 1000
	cfg.Web.Secret = "test-secret"
	cfg.Cloudinary.BaseURL = e.cloud.URL
	cfg.Cloudinary.CloudName = "demo"
	cfg.Cloudinary.APIKey = "key"
	cfg.Cloudinary.APISecret = "secret"
	cfg.Cloudinary.MaxUploadSize = "1KiB"
	cfg.Cloudinary.MaxImages = 3
	cfg.Job.WorkerPool = 4
	for _, m := range mutate {
		m(&cfg)
	}

	e.app = app.NewApplication(&cfg)
	require.NoError(t, e.app.InitServices())
	t.Cleanup(e.app.Release)
	e.server = webserver.NewWebServer(e.app)
	return e
}

// handleUpload is a minimal Cloudinary upload endpoint.
func (e *testEnv) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/demo/auto/upload" {
		http.NotFound(w, r)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, _ := io.ReadAll(file)
	n := e.uploads.Add(1)
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"secure_url":"https://res.cloudinary.com/demo/%s","public_id":"%s/%d","bytes":%d}`,
		hdr.Filename, r.FormValue("folder"), n, len(data))
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(e.t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

type upload struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func (e *testEnv) upload(path string, files ...upload) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(e.t, err)
		_, err = part.Write(f.data)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return e.serve(req)
}

// signup registers a user and returns its session token.
func (e *testEnv) signup(name, email, userType string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/auth/signup", map[string]interface{}{
		"name": name, "email": email, "password": "secret123", "userType": userType,
	}, "")
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess session
	decodeData(e.t, rec, &sess)
	require.NotEmpty(e.t, sess.Token)
	return sess.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) *Meta {
	t.Helper()
	env := decode(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
	return env.Meta
}
