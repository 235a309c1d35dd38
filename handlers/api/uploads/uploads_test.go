package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"garment-studio/editor"
)

type mockImageStore struct {
	puts int
	err  error
}

func (m *mockImageStore) Put(ctx context.Context, data []byte, segments ...string) (string, error) {
	if _, err := editor.DetectImage(data); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	m.puts++
	return fmt.Sprintf("https://cdn.test/%s/%d.png", strings.Join(segments, "/"), m.puts), nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload_DataURIFallback(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleUpload(nil)(rec, multipartRequest(t, "file", "logo.png", pngBytes(t)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "data:image/png;base64,") {
		t.Errorf("expected png data URI, got %q", resp.URL)
	}
}

func TestHandleUpload_BlobStore(t *testing.T) {
	store := &mockImageStore{}
	rec := httptest.NewRecorder()
	HandleUpload(store)(rec, multipartRequest(t, "file", "logo.png", pngBytes(t)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "https://cdn.test/uploads/1.png") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandleUpload_NonImage(t *testing.T) {
	for _, store := range []ImageStore{nil, &mockImageStore{}} {
		rec := httptest.NewRecorder()
		HandleUpload(store)(rec, multipartRequest(t, "file", "notes.txt", []byte("just some text")))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Please upload an image file") {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	}
}

func TestHandleUpload_MissingFile(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleUpload(nil)(rec, multipartRequest(t, "other", "logo.png", pngBytes(t)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleUpload_StoreError(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleUpload(&mockImageStore{err: fmt.Errorf("minio down")})(rec, multipartRequest(t, "file", "logo.png", pngBytes(t)))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}
