package minio

import (
	"context"
	"testing"

	"garment-studio/config"
)

func TestNewImageStore_NotConfigured(t *testing.T) {
	store, err := NewImageStore(context.Background(), &config.Config{MinioEndpoint: "localhost:9000"})
	if err != nil {
		t.Fatalf("NewImageStore() error = %v", err)
	}
	if store != nil {
		t.Error("NewImageStore() should return nil without credentials")
	}
}

func TestNilStore(t *testing.T) {
	var store *ImageStore
	ctx := context.Background()

	if _, err := store.Put(ctx, []byte("x")); err == nil {
		t.Error("Put() on nil store should fail")
	}
	if _, err := store.Fetch(ctx, "http://x/y"); err == nil {
		t.Error("Fetch() on nil store should fail")
	}
	if err := store.Remove(ctx, "http://x/y"); err != nil {
		t.Errorf("Remove() on nil store = %v", err)
	}
}

func TestPublicBase(t *testing.T) {
	tests := []struct {
		publicURL, endpoint string
		ssl                 bool
		want                string
	}{
		{"", "minio:9000", false, "http://minio:9000"},
		{"", "minio:9000", true, "https://minio:9000"},
		{"https://cdn.example.com/", "minio:9000", false, "https://cdn.example.com"},
	}
	for _, tt := range tests {
		if got := publicBase(tt.publicURL, tt.endpoint, tt.ssl); got != tt.want {
			t.Errorf("publicBase(%q, %q, %v) = %q, want %q", tt.publicURL, tt.endpoint, tt.ssl, got, tt.want)
		}
	}
}

func TestObjectName(t *testing.T) {
	got := objectName([]string{"/uploads/", "", "..", "user-1"}, "a.png")
	if got != "uploads/user-1/a.png" {
		t.Errorf("objectName() = %q", got)
	}
}

func TestObjectNameFromURL(t *testing.T) {
	s := &ImageStore{bucket: "designs", publicURL: "https://cdn.example.com"}

	url := s.buildPublicURL("previews/u1/x.png")
	if url != "https://cdn.example.com/designs/previews/u1/x.png" {
		t.Fatalf("buildPublicURL() = %q", url)
	}

	name, ok := s.objectNameFromURL(url)
	if !ok || name != "previews/u1/x.png" {
		t.Errorf("objectNameFromURL(%q) = %q, %v", url, name, ok)
	}

	for _, raw := range []string{
		"https://other.example.com/designs/x.png",
		"https://cdn.example.com/other-bucket/x.png",
		"data:image/png;base64,AAAA",
		"",
	} {
		if _, ok := s.objectNameFromURL(raw); ok {
			t.Errorf("objectNameFromURL(%q) should not match", raw)
		}
	}
}
