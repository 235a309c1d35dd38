package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"garment-studio/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type designStore struct {
	basePath string
}

// NewDesignStore keeps one JSON file per design under basePath/<user>/<id>.json.
func NewDesignStore(basePath string) core.DesignStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		logrus.WithError(err).Fatal("failed to create base directory")
	}
	return &designStore{basePath: basePath}
}

func (s *designStore) userPath(userID string) (string, error) {
	if err := checkSegment(userID); err != nil {
		return "", fmt.Errorf("invalid user id: %w", err)
	}
	return filepath.Join(s.basePath, userID), nil
}

func (s *designStore) designPath(userID, id string) (string, error) {
	userPath, err := s.userPath(userID)
	if err != nil {
		return "", err
	}
	if err := checkSegment(id); err != nil {
		return "", fmt.Errorf("design id %v: %w", err, core.ErrDesignNotFound)
	}

	filePath := filepath.Join(userPath, id+".json")
	absUserPath, err := filepath.Abs(userPath)
	if err != nil {
		return "", err
	}
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absFilePath, absUserPath+string(filepath.Separator)) {
		return "", fmt.Errorf("design %s outside user directory: %w", id, core.ErrDesignNotFound)
	}
	return absFilePath, nil
}

// checkSegment rejects anything that is not a single path element.
func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || filepath.Base(s) != s || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%q is not a valid name", s)
	}
	return nil
}

func (s *designStore) List(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	userPath, err := s.userPath(userID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "path": userPath})

	files, err := os.ReadDir(userPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("User directory does not exist, returning empty list")
			return []*core.SavedDesign{}, nil
		}
		log.WithError(err).Error("Failed to read user directory")
		return nil, err
	}

	designs := make([]*core.SavedDesign, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		design, err := readDesign(filepath.Join(userPath, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read design file %s, skipping", file.Name())
			continue
		}
		design.UserID = userID
		design.FrontDesign = nil
		design.BackDesign = nil
		designs = append(designs, design)
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
	filePath, err := s.designPath(userID, id)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id, "path": filePath})

	design, err := readDesign(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Design file not found")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrDesignNotFound)
		}
		log.WithError(err).Error("Failed to read design file")
		return nil, err
	}

	design.UserID = userID
	log.Info("Design retrieved successfully")
	return design, nil
}

func (s *designStore) Create(ctx context.Context, design *core.SavedDesign) (string, error) {
	userPath, err := s.userPath(design.UserID)
	if err != nil {
		return "", err
	}

	id := ulid.Make().String()
	filePath, err := s.designPath(design.UserID, id)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": id, "path": filePath})

	if err := os.MkdirAll(userPath, 0755); err != nil {
		log.WithError(err).Error("Failed to create user directory")
		return "", err
	}

	now := time.Now().UTC()
	design.ID = id
	design.CreatedAt = now
	design.UpdatedAt = now

	// UserID is not part of the JSON form, the directory carries it.
	data, err := json.Marshal(design)
	if err != nil {
		log.WithError(err).Error("Failed to marshal design")
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write design file")
		return "", err
	}

	log.Info("Design created successfully")
	return id, nil
}

func (s *designStore) Delete(ctx context.Context, userID, id string) error {
	filePath, err := s.designPath(userID, id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id, "path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Design file not found for deletion")
			return fmt.Errorf("design %s: %w", id, core.ErrDesignNotFound)
		}
		log.WithError(err).Error("Failed to delete design file")
		return err
	}

	log.Info("Design deleted successfully")
	return nil
}

func readDesign(filePath string) (*core.SavedDesign, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var design core.SavedDesign
	if err := json.Unmarshal(data, &design); err != nil {
		return nil, fmt.Errorf("failed to unmarshal design: %w", err)
	}
	return &design, nil
}
