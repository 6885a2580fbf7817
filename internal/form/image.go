package form

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxImageSize is the largest accepted image, in bytes.
const MaxImageSize = 1 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// EncodeImage validates an uploaded image and returns it as a data URL.
func EncodeImage(contentType string, data []byte) (string, error) {
	contentType = normalizeType(contentType)
	if !allowedImageTypes[contentType] {
		return "", &ValidationError{Field: "image", Message: "Only JPG or PNG images allowed"}
	}
	if len(data) > MaxImageSize {
		return "", &ValidationError{Field: "image", Message: "Image size must be less than 1MB"}
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(url string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, &ValidationError{Field: "image", Message: "image must be a data URL"}
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, &ValidationError{Field: "image", Message: "image must be a data URL"}
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, &ValidationError{Field: "image", Message: "image must be base64 encoded"}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, &ValidationError{Field: "image", Message: "image is not valid base64"}
	}
	return mediaType, data, nil
}

// ReadImage reads at most one byte past MaxImageSize from r so oversized
// uploads are rejected without buffering them whole. An empty contentType is
// sniffed from the data.
func ReadImage(r io.Reader, contentType string) (string, []byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("read image: %w", err)
	}
	if normalizeType(contentType) == "" || normalizeType(contentType) == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return normalizeType(contentType), data, nil
}

func normalizeType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
