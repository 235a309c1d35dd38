package uploads

import (
	"context"
	"errors"
	"io"
	"net/http"

	"garment-studio/editor"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// ImageStore persists validated upload bytes and returns a public URL.
type ImageStore interface {
	Put(ctx context.Context, data []byte, segments ...string) (string, error)
}

type UploadResponse struct {
	URL string `json:"url"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": message})
}

// HandleUpload accepts a multipart "file" field. Images go to the blob store
// when one is configured and come back as a data URI otherwise.
func HandleUpload(images ImageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, editor.MaxUploadBytes+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			logrus.WithField("error", err).Warn("Upload without file")
			respondError(w, r, http.StatusBadRequest, "Missing file")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, editor.MaxUploadBytes+1))
		if err != nil {
			logrus.WithField("error", err).Error("Failed to read upload")
			respondError(w, r, http.StatusBadRequest, "Invalid upload")
			return
		}

		log := logrus.WithFields(logrus.Fields{"filename": header.Filename, "size": len(data)})

		var url string
		if images != nil {
			url, err = images.Put(r.Context(), data, "uploads")
		} else {
			url, err = editor.ImageFromUpload(data)
		}
		if errors.Is(err, editor.ErrInvalidInput) {
			log.Warn("Rejected non-image upload")
			respondError(w, r, http.StatusBadRequest, "Please upload an image file")
			return
		}
		if err != nil {
			log.WithError(err).Error("Failed to store upload")
			respondError(w, r, http.StatusInternalServerError, "Failed to store upload")
			return
		}

		log.Info("Image uploaded")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, UploadResponse{URL: url})
	}
}
