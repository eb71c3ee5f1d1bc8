package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudinary struct {
	*httptest.Server
	uploads atomic.Int32
	fail    atomic.Bool
}

func newFakeCloudinary(t *testing.T) *fakeCloudinary {
	t.Helper()
	f := &fakeCloudinary{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/auto/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		params := map[string]string{
			"folder":    r.FormValue("folder"),
			"timestamp": r.FormValue("timestamp"),
		}
		if r.FormValue("api_key") != "key" || r.FormValue("signature") != Sign(params, "secret") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
			return
		}
		if f.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		n := f.uploads.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"secure_url":"https://res.cloudinary.com/demo/%s","public_id":"%s/%d","bytes":%d,"format":"png"}`,
			hdr.Filename, params["folder"], n, len(data))
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestUploader(base string) *Uploader {
	u := NewUploader(Config{
		BaseURL:   base,
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		MaxSize:   1024,
		Timeout:   5 * time.Second,
	})
	u.now = func() time.Time { return time.Unix(1760000000, 0) }
	return u
}

func TestSign(t *testing.T) {
	// sha1("folder=linkup-marketplace&timestamp=1760000000secret")
	sig := Sign(map[string]string{"timestamp": "1760000000", "folder": "linkup-marketplace", "empty": ""}, "secret")
	assert.Len(t, sig, 40)
	assert.Equal(t, sig, Sign(map[string]string{"folder": "linkup-marketplace", "timestamp": "1760000000"}, "secret"))
	assert.NotEqual(t, sig, Sign(map[string]string{"folder": "other", "timestamp": "1760000000"}, "secret"))
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage("image/png", 10, 100))
	assert.NoError(t, ValidateImage("IMAGE/JPEG", 100, 100))
	for _, tc := range []struct {
		ct   string
		size int64
	}{{"application/pdf", 10}, {"", 10}, {"image/png", 0}, {"image/png", 101}} {
		err := ValidateImage(tc.ct, tc.size, 100)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), "%s %d", tc.ct, tc.size)
	}
}

func TestUpload(t *testing.T) {
	fake := newFakeCloudinary(t)
	u := newTestUploader(fake.URL)

	res, err := u.Upload(context.Background(), "a.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/a.png", res.URL)
	assert.Equal(t, "linkup-marketplace/1", res.PublicID)
	assert.Equal(t, int64(9), res.Bytes)
}

func TestUpload_Errors(t *testing.T) {
	fake := newFakeCloudinary(t)

	u := newTestUploader(fake.URL)
	_, err := u.Upload(context.Background(), "big.png", strings.NewReader(strings.Repeat("x", 2048)))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	fake.fail.Store(true)
	_, err = u.Upload(context.Background(), "a.png", strings.NewReader("x"))
	assert.Equal(t, domain.KindDependency, domain.KindOf(err))
	assert.Contains(t, err.Error(), "boom")

	bad := newTestUploader(fake.URL)
	bad.cfg.APISecret = "wrong"
	_, err = bad.Upload(context.Background(), "a.png", strings.NewReader("x"))
	assert.Contains(t, err.Error(), "Invalid Signature")

	unconfigured := NewUploader(Config{})
	assert.False(t, unconfigured.Configured())
	_, err = unconfigured.Upload(context.Background(), "a.png", strings.NewReader("x"))
	assert.Equal(t, domain.KindDependency, domain.KindOf(err))
}

func testFiles(names ...string) []File {
	files := make([]File, len(names))
	for i, name := range names {
		content := "data-" + name
		files[i] = File{
			Filename:    name,
			ContentType: "image/png",
			Size:        int64(len(content)),
			Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
		}
	}
	return files
}

func TestUploadBatch(t *testing.T) {
	fake := newFakeCloudinary(t)
	u := newTestUploader(fake.URL)
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	results, err := u.UploadBatch(context.Background(), pool, testFiles("a.png", "b.png", "c.png"), 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "https://res.cloudinary.com/demo/a.png", results[0].URL)
	assert.Equal(t, "https://res.cloudinary.com/demo/c.png", results[2].URL)
	assert.EqualValues(t, 3, fake.uploads.Load())
}

func TestUploadBatch_Rejects(t *testing.T) {
	fake := newFakeCloudinary(t)
	u := newTestUploader(fake.URL)
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	_, err = u.UploadBatch(context.Background(), pool, nil, 5)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = u.UploadBatch(context.Background(), pool, testFiles("1", "2", "3"), 2)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	files := testFiles("a.png", "doc.pdf")
	files[1].ContentType = "application/pdf"
	_, err = u.UploadBatch(context.Background(), pool, files, 5)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Zero(t, fake.uploads.Load())

	fake.fail.Store(true)
	_, err = u.UploadBatch(context.Background(), pool, testFiles("a.png", "b.png"), 5)
	assert.Equal(t, domain.KindDependency, domain.KindOf(err))
}
