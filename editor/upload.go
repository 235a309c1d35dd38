package editor

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes = 5 * 1024 * 1024

// DetectImage sniffs data and returns its MIME type, or ErrInvalidInput when it
// is not an image.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 || len(data) > MaxUploadBytes {
		return "", ErrInvalidInput
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrInvalidInput
	}
	return mt.String(), nil
}

// ImageFromUpload turns raw upload bytes into an embeddable data URI.
func ImageFromUpload(data []byte) (string, error) {
	mime, err := DetectImage(data)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ParseDataURI splits a base64 data URI into its MIME type and payload.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidInput
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidInput
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, ErrInvalidInput
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidInput
	}
	return mime, data, nil
}
