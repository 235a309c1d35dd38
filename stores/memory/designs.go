package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"garment-studio/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type designStore struct {
	mu sync.RWMutex
	// designs is keyed by user id, then design id.
	designs map[string]map[string]core.SavedDesign
}

func NewDesignStore() core.DesignStore {
	return &designStore{
		designs: make(map[string]map[string]core.SavedDesign),
	}
}

func (s *designStore) List(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userDesigns := s.designs[userID]
	designs := make([]*core.SavedDesign, 0, len(userDesigns))
	for _, design := range userDesigns {
		listed := design
		listed.FrontDesign = nil
		listed.BackDesign = nil
		designs = append(designs, &listed)
	}
	sortNewestFirst(designs)

	logrus.WithField("user_id", userID).Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *designStore) Get(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	s.mu.RLock()
	design, ok := s.designs[userID][id]
	s.mu.RUnlock()

	if !ok {
		log.Warn("Design not found for user")
		return nil, fmt.Errorf("design %s for user %s: %w", id, userID, core.ErrDesignNotFound)
	}

	log.Info("Design retrieved successfully")
	return cloneDesign(design), nil
}

func (s *designStore) Create(ctx context.Context, design *core.SavedDesign) (string, error) {
	if design.UserID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}

	id := ulid.Make().String()
	now := time.Now().UTC()
	design.ID = id
	design.CreatedAt = now
	design.UpdatedAt = now

	s.mu.Lock()
	userDesigns, ok := s.designs[design.UserID]
	if !ok {
		userDesigns = make(map[string]core.SavedDesign)
		s.designs[design.UserID] = userDesigns
	}
	userDesigns[id] = *cloneDesign(*design)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"user_id":   design.UserID,
		"design_id": id,
		"front":     len(design.FrontDesign),
		"back":      len(design.BackDesign),
	}).Info("Design created successfully")
	return id, nil
}

func (s *designStore) Delete(ctx context.Context, userID, id string) error {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.designs[userID][id]; !ok {
		log.Warn("Design not found for deletion")
		return fmt.Errorf("design %s for user %s: %w", id, userID, core.ErrDesignNotFound)
	}
	delete(s.designs[userID], id)
	log.Info("Design deleted successfully")
	return nil
}

func cloneDesign(d core.SavedDesign) *core.SavedDesign {
	d.FrontDesign = append([]core.DesignElement(nil), d.FrontDesign...)
	d.BackDesign = append([]core.DesignElement(nil), d.BackDesign...)
	return &d
}

func sortNewestFirst(designs []*core.SavedDesign) {
	sort.Slice(designs, func(i, j int) bool {
		if designs[i].CreatedAt.Equal(designs[j].CreatedAt) {
			return designs[i].ID > designs[j].ID
		}
		return designs[i].CreatedAt.After(designs[j].CreatedAt)
	})
}
