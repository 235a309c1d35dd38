package core

import (
	"context"
	"errors"
	"time"
)

type (
	// Side is the garment face an element is placed on.
	Side string

	// ElementKind distinguishes text layers from image layers.
	ElementKind string

	// ShirtStyle selects the garment silhouette shown behind both canvases.
	ShirtStyle string

	// DesignElement is a single layer placed on one garment side.
	// Position and size are canvas-local pixels with a top-left origin.
	DesignElement struct {
		ID       string      `json:"id"`
		Kind     ElementKind `json:"type"`
		Content  string      `json:"content"`
		X        float64     `json:"x"`
		Y        float64     `json:"y"`
		Width    float64     `json:"width"`
		Height   float64     `json:"height"`
		Rotation float64     `json:"rotation"`
		Color    string      `json:"color,omitempty"`
		Side     Side        `json:"side"`
	}

	// SavedDesign is a persisted customization owned by a user.
	SavedDesign struct {
		ID           string          `json:"id"`
		UserID       string          `json:"-"`
		Name         string          `json:"name"`
		ShirtStyle   ShirtStyle      `json:"shirtStyle,omitempty"`
		FrontDesign  []DesignElement `json:"frontDesign,omitempty"`
		BackDesign   []DesignElement `json:"backDesign,omitempty"`
		PreviewFront string          `json:"previewFront,omitempty"`
		PreviewBack  string          `json:"previewBack,omitempty"`
		CreatedAt    time.Time       `json:"createdAt"`
		UpdatedAt    time.Time       `json:"updatedAt"`
	}

	// CreateDesignRequest is the create-design payload. Previews are optional data URIs.
	CreateDesignRequest struct {
		Name         string          `json:"name"`
		ShirtStyle   ShirtStyle      `json:"shirtStyle,omitempty"`
		FrontDesign  []DesignElement `json:"frontDesign"`
		BackDesign   []DesignElement `json:"backDesign"`
		PreviewFront string          `json:"previewFront,omitempty"`
		PreviewBack  string          `json:"previewBack,omitempty"`
	}

	// DesignStore persists saved designs. All operations are scoped to a user.
	DesignStore interface {
		// List returns a user's designs without element arrays or previews.
		List(ctx context.Context, userID string) ([]*SavedDesign, error)

		// Get returns one design, ensuring it belongs to the user.
		Get(ctx context.Context, userID, id string) (*SavedDesign, error)

		// Create assigns an id and timestamps and stores the design.
		Create(ctx context.Context, design *SavedDesign) (string, error)

		// Delete removes a design, ensuring it belongs to the user.
		Delete(ctx context.Context, userID, id string) error
	}
)

const (
	SideFront Side = "front"
	SideBack  Side = "back"

	KindText  ElementKind = "text"
	KindImage ElementKind = "image"

	StyleSleeveless ShirtStyle = "sleeveless"
	StyleHalfSleeve ShirtStyle = "half-sleeve"
	StyleFullSleeve ShirtStyle = "full-sleeve"
)

// MinElementSize is the floor applied to both axes on every resize.
const MinElementSize = 30.0

// MaxElementScale caps each element axis at this multiple of the matching canvas axis.
const MaxElementScale = 4.0

// ErrDesignNotFound is returned by stores when a design does not exist for the user.
var ErrDesignNotFound = errors.New("design not found")

// Sides lists both garment faces in render order.
var Sides = []Side{SideFront, SideBack}

func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

func (k ElementKind) Valid() bool {
	return k == KindText || k == KindImage
}

func (s ShirtStyle) Valid() bool {
	switch s {
	case StyleSleeveless, StyleHalfSleeve, StyleFullSleeve:
		return true
	}
	return false
}

// DisplayName is the label shown to shoppers and embedded in cart line names.
func (s ShirtStyle) DisplayName() string {
	switch s {
	case StyleSleeveless:
		return "Sleeveless"
	case StyleHalfSleeve:
		return "Half Sleeve"
	case StyleFullSleeve:
		return "Full Sleeve"
	}
	return string(s)
}

// BackdropPath returns the silhouette image used behind the given side's canvas.
func (s ShirtStyle) BackdropPath(side Side) string {
	return "/assets/shirts/" + string(s) + "-" + string(side) + ".png"
}
