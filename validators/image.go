package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoImage              = errors.New("no image provided")
	ErrImageTooLarge        = errors.New("image too large")
	ErrImageTypeUnsupported = errors.New("unsupported image type")
)

// ImageValidator checks an uploaded image against the size limit and the
// allowed types. The type is sniffed from the content, the client supplied
// Content-Type is ignored. On success the opened file is returned rewound
// together with the detected type, the caller has to close it
func ImageValidator(fh *multipart.FileHeader, allowed []string, maxSize int64) (int, multipart.File, *mimetype.MIME, error) {
	if fh == nil || fh.Size == 0 {
		return http.StatusBadRequest, nil, nil, ErrNoImage
	}

	if fh.Size > maxSize {
		return http.StatusRequestEntityTooLarge, nil, nil, ErrImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, nil, err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, nil, err
	}

	if !mimetype.EqualsAny(mime.String(), allowed...) {
		f.Close()
		return http.StatusBadRequest, nil, nil, ErrImageTypeUnsupported
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, nil, err
	}

	return 0, f, mime, nil
}
