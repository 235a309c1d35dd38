package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"garment-studio/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// objectAPI is the part of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type designStore struct {
	s3Client objectAPI
	bucket   string
}

// NewDesignStore stores each design as a JSON object at <user>/<id>.json.
func NewDesignStore(bucketName string) core.DesignStore {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		logrus.WithError(err).Fatal("unable to load SDK config")
	}
	return newDesignStore(s3.NewFromConfig(cfg), bucketName)
}

func newDesignStore(client objectAPI, bucket string) *designStore {
	return &designStore{s3Client: client, bucket: bucket}
}

func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || path.Base(s) != s {
		return fmt.Errorf("%q must be a plain name", s)
	}
	return nil
}

func (s *designStore) designKey(userID, id string) (string, error) {
	if err := checkSegment(userID); err != nil {
		return "", fmt.Errorf("invalid user id: %w", err)
	}
	if err := checkSegment(id); err != nil {
		return "", fmt.Errorf("design id %v: %w", err, core.ErrDesignNotFound)
	}
	return path.Join(userID, id+".json"), nil
}

func (s *designStore) List(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	if err := checkSegment(userID); err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	log := logrus.WithField("user_id", userID)

	designs := []*core.SavedDesign{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(userID + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list designs for user %s: %v", userID, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			design, err := s.read(ctx, key)
			if err != nil {
				log.WithError(err).Warnf("Failed to read design object %s, skipping", key)
				continue
			}
			design.UserID = userID
			design.FrontDesign = nil
			design.BackDesign = nil
			designs = append(designs, design)
		}
	}

	sort.Slice(designs, func(i, j int) bool {
		if designs[i].CreatedAt.Equal(designs[j].CreatedAt) {
			return designs[i].ID > designs[j].ID
		}
		return designs[i].CreatedAt.After(designs[j].CreatedAt)
	})

	log.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *designStore) Get(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	key, err := s.designKey(userID, id)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	design, err := s.read(ctx, key)
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Warn("Design not found for user")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrDesignNotFound)
		}
		log.WithError(err).Error("Failed to retrieve design")
		return nil, fmt.Errorf("failed to get design %s: %v", id, err)
	}
	design.UserID = userID

	log.Info("Design retrieved successfully")
	return design, nil
}

func (s *designStore) Create(ctx context.Context, design *core.SavedDesign) (string, error) {
	id := ulid.Make().String()
	key, err := s.designKey(design.UserID, id)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	design.ID = id
	design.CreatedAt = now
	design.UpdatedAt = now

	data, err := json.Marshal(design)
	if err != nil {
		return "", fmt.Errorf("failed to marshal design: %v", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save design %s: %v", id, err)
	}

	logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": id}).Info("Design created successfully")
	return id, nil
}

func (s *designStore) Delete(ctx context.Context, userID, id string) error {
	key, err := s.designKey(userID, id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	// DeleteObject succeeds for missing keys, so check first.
	_, err = s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			log.Warn("Design not found for deletion")
			return fmt.Errorf("design %s: %w", id, core.ErrDesignNotFound)
		}
		return fmt.Errorf("failed to check design %s: %v", id, err)
	}

	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete design %s: %v", id, err)
	}

	log.Info("Design deleted successfully")
	return nil
}

func (s *designStore) read(ctx context.Context, key string) (*core.SavedDesign, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read design data: %v", err)
	}

	var design core.SavedDesign
	if err := json.Unmarshal(data, &design); err != nil {
		return nil, fmt.Errorf("failed to unmarshal design data: %v", err)
	}
	return &design, nil
}
