/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates the logic for parsing JSON and multipart form data and maps every failure
to an errs.CustomError so handlers can respond directly.
*/
package req

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"livechat/internal/pkg/errs"
)

const (
	// MaxFormMemory is the amount of memory ParseMultipartForm may use before spilling to disk.
	MaxFormMemory int64 = 32 << 20 // 32 MB

	// MaxRequestFileSize caps the whole request body, files included.
	MaxRequestFileSize int64 = 20 << 20 // 20 MB

	// MaxImageSize caps a single uploaded image.
	MaxImageSize int64 = 5 << 20 // 5 MB
)

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart sets up and parses Multipart Form or URL-encoded form data from the HTTP request.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	err := r.ParseMultipartForm(MaxFormMemory)

	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}

		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}

// ReadFiles reads every file uploaded under field into memory. It requires between 1 and
// maxCount files, each no larger than MaxImageSize. SetupMultipart must have run first.
func ReadFiles(r *http.Request, field string, maxCount int) ([][]byte, *errs.CustomError) {
	if r.MultipartForm == nil {
		return nil, errs.NewError(errs.ErrFormParseFailed)
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 || len(headers) > maxCount {
		return nil, errs.NewError(errs.ErrAttachmentCountInvalid, maxCount)
	}

	files := make([][]byte, 0, len(headers))
	for _, header := range headers {
		if header.Size > MaxImageSize {
			return nil, errs.NewError(errs.ErrFileSizeTooLarge)
		}

		f, err := header.Open()
		if err != nil {
			return nil, errs.NewError(errs.ErrFormParseFailed)
		}

		data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
		f.Close()
		if err != nil {
			return nil, errs.NewError(errs.ErrFormParseFailed)
		}
		if int64(len(data)) > MaxImageSize {
			return nil, errs.NewError(errs.ErrFileSizeTooLarge)
		}

		files = append(files, data)
	}

	return files, nil
}
