package media

import (
	"context"
	"io"
	"sync"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/pkg/errors"
)

// Submitter runs tasks, e.g. an ants pool.
type Submitter interface {
	Submit(task func()) error
}

// File is one part of a multipart batch.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadBatch validates every file, then uploads them concurrently on pool.
// Results keep the input order. Any failure fails the whole batch.
func (u *Uploader) UploadBatch(ctx context.Context, pool Submitter, files []File, maxFiles int) ([]Result, error) {
	if len(files) == 0 {
		return nil, domain.ErrValidation("no files provided")
	}
	if maxFiles > 0 && len(files) > maxFiles {
		return nil, domain.ErrValidation("at most %d images are allowed", maxFiles)
	}
	for _, f := range files {
		if err := ValidateImage(f.ContentType, f.Size, u.cfg.MaxSize); err != nil {
			return nil, errors.WithMessage(err, f.Filename)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(files))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := range files {
		i, f := i, files[i]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			rc, err := f.Open()
			if err != nil {
				fail(errors.Wrapf(err, "open %s", f.Filename))
				return
			}
			defer rc.Close()
			res, err := u.Upload(ctx, f.Filename, rc)
			if err != nil {
				fail(err)
				return
			}
			results[i] = *res
		})
		if err != nil {
			wg.Done()
			fail(domain.ErrDependency(err, "upload workers are busy"))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
