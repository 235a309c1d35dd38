package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"garment-studio/config"
	"garment-studio/editor"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// ImageStore keeps uploaded images and preview rasters in a MinIO/S3 bucket.
type ImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewImageStore connects to MinIO and makes sure the bucket exists. It returns
// nil, nil when MinIO is not configured.
func NewImageStore(ctx context.Context, cfg *config.Config) (*ImageStore, error) {
	if !cfg.MinioConfigured() {
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": cfg.MinioEndpoint,
		"bucket":   cfg.MinioBucket,
	}).Info("Use image storage")

	return &ImageStore{
		client:    client,
		bucket:    cfg.MinioBucket,
		publicURL: publicBase(cfg.MinioPublicURL, cfg.MinioEndpoint, cfg.MinioUseSSL),
	}, nil
}

func publicBase(publicURL, endpoint string, useSSL bool) string {
	publicURL = strings.TrimSpace(publicURL)
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}
	return strings.TrimSuffix(publicURL, "/")
}

// Put validates data as an image and stores it under
// <segments...>/<uuid><ext>, returning its public URL.
func (s *ImageStore) Put(ctx context.Context, data []byte, segments ...string) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("image storage not configured")
	}
	contentType, err := editor.DetectImage(data)
	if err != nil {
		return "", err
	}

	name := objectName(segments, uuid.NewString()+mimetype.Detect(data).Extension())

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err = s.client.PutObject(uploadCtx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=604800",
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	logrus.WithFields(logrus.Fields{"object": name, "size": len(data)}).Info("Image stored")
	return s.buildPublicURL(name), nil
}

// PutDataURI stores the payload of a base64 image data URI.
func (s *ImageStore) PutDataURI(ctx context.Context, uri string, segments ...string) (string, error) {
	_, data, err := editor.ParseDataURI(uri)
	if err != nil {
		return "", err
	}
	return s.Put(ctx, data, segments...)
}

// Fetch reads back an object addressed by its public URL.
func (s *ImageStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("image storage not configured")
	}
	name, ok := s.objectNameFromURL(ref)
	if !ok {
		return nil, fmt.Errorf("%q is not in bucket %s", ref, s.bucket)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, editor.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// Remove deletes the object behind a public URL. Unknown URLs are ignored.
func (s *ImageStore) Remove(ctx context.Context, ref string) error {
	if s == nil || s.client == nil {
		return nil
	}
	name, ok := s.objectNameFromURL(ref)
	if !ok {
		return nil
	}
	removeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.RemoveObject(removeCtx, s.bucket, name, minio.RemoveObjectOptions{})
}

func objectName(segments []string, file string) string {
	parts := make([]string, 0, len(segments)+1)
	for _, segment := range segments {
		trimmed := strings.Trim(segment, "/")
		if trimmed != "" && trimmed != "." && trimmed != ".." {
			parts = append(parts, trimmed)
		}
	}
	parts = append(parts, file)
	return path.Join(parts...)
}

func (s *ImageStore) buildPublicURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, strings.TrimPrefix(objectName, "/"))
}

func (s *ImageStore) objectNameFromURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	prefix := s.publicURL + "/" + s.bucket + "/"
	if strings.HasPrefix(trimmed, prefix) {
		candidate := strings.TrimPrefix(trimmed, prefix)
		return candidate, candidate != ""
	}

	target, err := url.Parse(trimmed)
	if err != nil || target.Host == "" {
		return "", false
	}
	base, err := url.Parse(s.publicURL)
	if err != nil || base.Host != target.Host {
		return "", false
	}
	candidate, ok := strings.CutPrefix(strings.TrimPrefix(target.Path, "/"), s.bucket+"/")
	return candidate, ok && candidate != ""
}
