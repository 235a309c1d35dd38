package designs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"garment-studio/core"
	"garment-studio/editor"
	"garment-studio/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 4 * editor.MaxUploadBytes

// ErrValidation marks a create-design payload the service refuses to store.
var ErrValidation = errors.New("invalid design")

type (
	// Canvas is the print area of one shirt side. Elements must start inside it
	// and may grow to core.MaxElementScale canvases per axis. A zero Canvas
	// skips the bounds checks.
	Canvas struct {
		Width  float64
		Height float64
	}

	// PreviewStore moves preview data URIs to blob storage. A nil PreviewStore
	// keeps previews inline.
	PreviewStore interface {
		PutDataURI(ctx context.Context, uri string, segments ...string) (string, error)
		Remove(ctx context.Context, ref string) error
	}

	DesignResponse struct {
		Design *core.SavedDesign `json:"design"`
	}

	ListResponse struct {
		Designs []*core.SavedDesign `json:"designs"`
	}
)

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": message})
}

func userID(r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.UserID(), true
}

// Validate checks every element of a create-design payload and fills in the
// default name and shirt style.
func Validate(req *core.CreateDesignRequest, canvas Canvas) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = editor.DefaultDesignName
	}
	if req.ShirtStyle == "" {
		req.ShirtStyle = core.StyleHalfSleeve
	}
	if !req.ShirtStyle.Valid() {
		return fmt.Errorf("%w: unknown shirt style %q", ErrValidation, req.ShirtStyle)
	}
	if err := validateSide(core.SideFront, "frontDesign", req.FrontDesign, canvas); err != nil {
		return err
	}
	return validateSide(core.SideBack, "backDesign", req.BackDesign, canvas)
}

// positionSlack absorbs float rounding in positions clamped against the right
// or bottom edge.
const positionSlack = 1e-6

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func validateSide(side core.Side, field string, elements []core.DesignElement, canvas Canvas) error {
	seen := make(map[string]struct{}, len(elements))
	for i, el := range elements {
		switch {
		case el.ID == "":
			return fmt.Errorf("%w: %s[%d]: missing id", ErrValidation, field, i)
		case !el.Kind.Valid():
			return fmt.Errorf("%w: %s[%d]: unknown type %q", ErrValidation, field, i, el.Kind)
		case el.Side != side:
			return fmt.Errorf("%w: %s[%d]: side %q does not match", ErrValidation, field, i, el.Side)
		case !finite(el.X, el.Y, el.Width, el.Height, el.Rotation):
			return fmt.Errorf("%w: %s[%d]: non-finite geometry", ErrValidation, field, i)
		case el.Width < core.MinElementSize || el.Height < core.MinElementSize:
			return fmt.Errorf("%w: %s[%d]: size below minimum", ErrValidation, field, i)
		case el.Rotation < 0 || el.Rotation >= 360:
			return fmt.Errorf("%w: %s[%d]: rotation %g outside [0, 360)", ErrValidation, field, i, el.Rotation)
		case el.X < 0 || el.Y < 0:
			return fmt.Errorf("%w: %s[%d]: negative position", ErrValidation, field, i)
		}
		if err := canvas.check(el); err != nil {
			return fmt.Errorf("%w: %s[%d]: %v", ErrValidation, field, i, err)
		}
		if _, dup := seen[el.ID]; dup {
			return fmt.Errorf("%w: %s[%d]: duplicate id %q", ErrValidation, field, i, el.ID)
		}
		seen[el.ID] = struct{}{}
	}
	return nil
}

func (c Canvas) check(el core.DesignElement) error {
	if c.Width <= 0 || c.Height <= 0 {
		return nil
	}
	maxW, maxH := c.Width*core.MaxElementScale, c.Height*core.MaxElementScale
	if el.Width > maxW || el.Height > maxH {
		return fmt.Errorf("size %gx%g exceeds %gx%g", el.Width, el.Height, maxW, maxH)
	}
	if el.X > math.Max(0, c.Width-el.Width)+positionSlack || el.Y > math.Max(0, c.Height-el.Height)+positionSlack {
		return fmt.Errorf("position %g,%g is outside the canvas", el.X, el.Y)
	}
	return nil
}

// Create validates req, offloads previews and stores the design for userID.
func Create(ctx context.Context, store core.DesignStore, previews PreviewStore, canvas Canvas, userID string, req core.CreateDesignRequest) (*core.SavedDesign, error) {
	if err := Validate(&req, canvas); err != nil {
		return nil, err
	}

	design := &core.SavedDesign{
		UserID:       userID,
		Name:         req.Name,
		ShirtStyle:   req.ShirtStyle,
		FrontDesign:  nonNil(req.FrontDesign),
		BackDesign:   nonNil(req.BackDesign),
		PreviewFront: offloadPreview(ctx, previews, userID, req.PreviewFront),
		PreviewBack:  offloadPreview(ctx, previews, userID, req.PreviewBack),
	}

	if _, err := store.Create(ctx, design); err != nil {
		return nil, err
	}
	return design, nil
}

func nonNil(elements []core.DesignElement) []core.DesignElement {
	if elements == nil {
		return []core.DesignElement{}
	}
	return elements
}

func offloadPreview(ctx context.Context, previews PreviewStore, userID, preview string) string {
	if previews == nil || !strings.HasPrefix(preview, "data:") {
		return preview
	}
	url, err := previews.PutDataURI(ctx, preview, "previews", userID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("Keeping preview inline")
		return preview
	}
	return url
}

func HandleCreate(store core.DesignStore, previews PreviewStore, canvas Canvas) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(r)
		if !ok {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req core.CreateDesignRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			logrus.WithField("error", err).Error("Failed to decode request")
			respondError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		design, err := Create(r.Context(), store, previews, canvas, user, req)
		if errors.Is(err, ErrValidation) {
			respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			logrus.WithField("error", err).Error("Failed to create design")
			respondError(w, r, http.StatusInternalServerError, "Failed to save design")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, DesignResponse{Design: design})
	}
}

func HandleList(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(r)
		if !ok {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		designs, err := store.List(r.Context(), user)
		if err != nil {
			logrus.WithField("error", err).Error("Failed to list designs")
			respondError(w, r, http.StatusInternalServerError, "Failed to list designs")
			return
		}
		if designs == nil {
			designs = []*core.SavedDesign{}
		}

		render.JSON(w, r, ListResponse{Designs: designs})
	}
}

func HandleGet(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(r)
		if !ok {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		id := chi.URLParam(r, "id")

		design, err := store.Get(r.Context(), user, id)
		if errors.Is(err, core.ErrDesignNotFound) {
			respondError(w, r, http.StatusNotFound, "Design not found")
			return
		}
		if err != nil {
			logrus.WithField("error", err).Error("Failed to get design")
			respondError(w, r, http.StatusInternalServerError, "Failed to get design")
			return
		}

		render.JSON(w, r, DesignResponse{Design: design})
	}
}

func HandleDelete(store core.DesignStore, previews PreviewStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(r)
		if !ok {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		id := chi.URLParam(r, "id")

		design, err := store.Get(r.Context(), user, id)
		if err == nil {
			err = store.Delete(r.Context(), user, id)
		}
		if errors.Is(err, core.ErrDesignNotFound) {
			respondError(w, r, http.StatusNotFound, "Design not found")
			return
		}
		if err != nil {
			logrus.WithField("error", err).Error("Failed to delete design")
			respondError(w, r, http.StatusInternalServerError, "Failed to delete design")
			return
		}

		if previews != nil {
			for _, ref := range []string{design.PreviewFront, design.PreviewBack} {
				if ref == "" {
					continue
				}
				if err := previews.Remove(r.Context(), ref); err != nil {
					logrus.WithFields(logrus.Fields{"design_id": id, "error": err}).Warn("Failed to remove preview")
				}
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
