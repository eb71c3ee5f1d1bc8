package api

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/internal/media"
	"github.com/linkupcampus/linkup/internal/webserver"
	"github.com/spf13/cast"
)

// registerUploadRoutes registers image upload routes
func registerUploadRoutes() {
	webserver.ApiPOST("/upload-image", uploadImage)
	webserver.ApiPOST("/upload-images", uploadImages)
}

func mediaFile(fh *multipart.FileHeader) media.File {
	return media.File{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func uploadImage(c echo.Context) error {
	uploader := GetAppContext(c).Uploader()
	if !uploader.Configured() {
		return fail(c, http.StatusServiceUnavailable, "UPLOAD_UNAVAILABLE", "Image uploads are not configured", nil)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "NO_FILE", "No file provided", nil)
	}
	f := mediaFile(fh)
	if err := media.ValidateImage(f.ContentType, f.Size, uploader.MaxSize()); err != nil {
		return failErr(c, err)
	}

	src, err := f.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILE", "Unable to read uploaded file", nil)
	}
	defer src.Close()

	result, err := uploader.Upload(c.Request().Context(), f.Filename, src)
	if err != nil {
		return failErr(c, err)
	}
	publish(c, domain.ActionImageUpload, result.PublicID, f.Filename)
	return ok(c, result)
}

func uploadImages(c echo.Context) error {
	appCtx := GetAppContext(c)
	uploader := appCtx.Uploader()
	if !uploader.Configured() {
		return fail(c, http.StatusServiceUnavailable, "UPLOAD_UNAVAILABLE", "Image uploads are not configured", nil)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart form", nil)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return fail(c, http.StatusBadRequest, "NO_FILE", "No file provided", nil)
	}
	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, mediaFile(fh))
	}

	results, err := uploader.UploadBatch(c.Request().Context(), appCtx.Pool(), files, appCtx.Config().Cloudinary.MaxImages)
	if err != nil {
		return failErr(c, err)
	}
	for _, r := range results {
		publish(c, domain.ActionImageUpload, r.PublicID, "batch of "+cast.ToString(len(results)))
	}
	return ok(c, results)
}
