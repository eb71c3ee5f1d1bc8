// Package media uploads listing images to Cloudinary.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	bytesize "github.com/labstack/gommon/bytes"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL = "https://api.cloudinary.com/v1_1"
	DefaultFolder  = "linkup-marketplace"
	DefaultMaxSize = 5 * bytesize.MiB
)

type Config struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	MaxSize   int64
	Timeout   time.Duration

	HTTPClient *http.Client
}

// Result is the part of the Cloudinary upload response the API returns.
type Result struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Format   string `json:"format,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	PublicID  string `json:"public_id"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int64  `json:"bytes"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Uploader performs signed uploads.
type Uploader struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func NewUploader(cfg Config) *Uploader {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Uploader{cfg: cfg, client: client, now: time.Now}
}

// Configured reports whether all credentials are present.
func (u *Uploader) Configured() bool {
	return u.cfg.CloudName != "" && u.cfg.APIKey != "" && u.cfg.APISecret != ""
}

func (u *Uploader) MaxSize() int64 {
	return u.cfg.MaxSize
}

// ValidateImage checks the declared content type and size of an upload.
func ValidateImage(contentType string, size, maxSize int64) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return domain.ErrValidation("only image files are allowed")
	}
	if size <= 0 {
		return domain.ErrValidation("file is empty")
	}
	if size > maxSize {
		return domain.ErrValidation("file exceeds the %s limit", bytesize.Format(maxSize))
	}
	return nil
}

// Sign computes the Cloudinary signature of params: the sorted k=v pairs
// joined by '&' with the secret appended, sha1 hex encoded.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// Upload sends one file to Cloudinary.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	if !u.Configured() {
		return nil, domain.ErrDependency(errors.New("cloudinary credentials missing"), "image storage is not configured")
	}

	params := map[string]string{
		"folder":    u.cfg.Folder,
		"timestamp": strconv.FormatInt(u.now().Unix(), 10),
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "create multipart file")
	}
	n, err := io.Copy(part, io.LimitReader(r, u.cfg.MaxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	if n > u.cfg.MaxSize {
		return nil, domain.ErrValidation("file exceeds the %s limit", bytesize.Format(u.cfg.MaxSize))
	}
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	_ = w.WriteField("api_key", u.cfg.APIKey)
	_ = w.WriteField("signature", Sign(params, u.cfg.APISecret))
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart body")
	}

	endpoint := u.cfg.BaseURL + "/" + u.cfg.CloudName + "/auto/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "create upload request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("cloudinary").Inc()
		metrics.Uploads.WithLabelValues("failed").Inc()
		return nil, domain.ErrDependency(err, "image upload failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		return nil, domain.ErrDependency(err, "image upload failed")
	}
	var out uploadResponse
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode != http.StatusOK || decodeErr != nil {
		metrics.UpstreamErrors.WithLabelValues("cloudinary").Inc()
		metrics.Uploads.WithLabelValues("failed").Inc()
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, domain.ErrDependency(errors.Errorf("cloudinary: %d %s", resp.StatusCode, msg), "image upload failed")
	}

	url := out.SecureURL
	if url == "" {
		url = out.URL
	}
	metrics.Uploads.WithLabelValues("ok").Inc()
	zap.L().Info("image uploaded", zap.String("public_id", out.PublicID), zap.Int64("bytes", out.Bytes))
	return &Result{
		URL:      url,
		PublicID: out.PublicID,
		Format:   out.Format,
		Width:    out.Width,
		Height:   out.Height,
		Bytes:    out.Bytes,
	}, nil
}
