package websocket

import (
	"context"
	"errors"
	"sync"

	"garment-studio/core"
	"garment-studio/handlers/api/designs"
	"garment-studio/handlers/auth"
)

var ErrUnauthenticated = errors.New("login required to save designs")

// storeService serves an editor session's save and base-product calls straight
// from the design store, as the shopper the session is logged in as.
type storeService struct {
	store    core.DesignStore
	previews designs.PreviewStore
	canvas   designs.Canvas
	product  core.BaseProduct
	secret   string

	mu     sync.RWMutex
	claims *auth.AppClaims
}

func (s *storeService) GetBaseProduct(ctx context.Context) (*core.BaseProduct, error) {
	if s.product.ID == "" {
		return nil, errors.New("base product not configured")
	}
	product := s.product
	return &product, nil
}

func (s *storeService) CreateDesign(ctx context.Context, req core.CreateDesignRequest) (string, error) {
	user := s.userID()
	if user == "" {
		return "", ErrUnauthenticated
	}
	design, err := designs.Create(ctx, s.store, s.previews, s.canvas, user, req)
	if err != nil {
		return "", err
	}
	return design.ID, nil
}

// authenticate validates token and binds the session to its subject. An empty
// token keeps the current identity.
func (s *storeService) authenticate(token string) error {
	if token == "" {
		return nil
	}
	claims, err := auth.ParseJWT(token, s.secret)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.claims = claims
	s.mu.Unlock()
	return nil
}

func (s *storeService) userID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.UserID()
}

// Authenticated reports whether the session has a valid login.
func (s *storeService) Authenticated() bool {
	return s.userID() != ""
}
