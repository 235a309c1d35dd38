package export

import (
	"context"
	"fmt"
	"sync"

	"garment-studio/core"
	"garment-studio/editor"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SaveState tracks the last save attempt of the current document.
type SaveState int

const (
	Unsaved SaveState = iota
	Saving
	Saved
	SaveFailed
)

func (s SaveState) String() string {
	switch s {
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case SaveFailed:
		return "save-failed"
	}
	return "unsaved"
}

func (s SaveState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Cart line defaults used when the caller leaves an option empty.
const (
	DefaultSize     = "M"
	DefaultColor    = "White"
	DefaultQuantity = 1
)

var (
	ErrCapture        = errors.New("raster capture failed")
	ErrNoBaseProduct  = errors.New("base product not available")
	ErrSaveInProgress = errors.New("save already in progress")
)

type (
	// DesignService is the remote design-storage collaborator.
	DesignService interface {
		GetBaseProduct(ctx context.Context) (*core.BaseProduct, error)
		CreateDesign(ctx context.Context, req core.CreateDesignRequest) (string, error)
	}

	// Session reports whether the current shopper is logged in.
	Session interface {
		Authenticated() bool
	}

	// Cart receives finished cart lines.
	Cart interface {
		Add(product core.CartProduct, size, color string, quantity int)
	}

	// Capturer rasterizes one side's elements into an image data URI.
	Capturer interface {
		RenderDataURI(ctx context.Context, elements []core.DesignElement, selectedID string) (string, error)
	}

	CartOptions struct {
		Size     string
		Color    string
		Quantity int
	}
)

// Adapter turns the editor's document into save payloads and cart lines.
type Adapter struct {
	editor   *editor.Editor
	service  DesignService
	session  Session
	cart     Cart
	capturer Capturer

	mu          sync.Mutex
	state       SaveState
	designID    string
	baseProduct *core.BaseProduct
}

func NewAdapter(ed *editor.Editor, service DesignService, session Session, cart Cart, capturer Capturer) *Adapter {
	return &Adapter{
		editor:   ed,
		service:  service,
		session:  session,
		cart:     cart,
		capturer: capturer,
	}
}

// SerializeSide returns a plain copy of one side's elements in z-order.
func (a *Adapter) SerializeSide(side core.Side) []core.DesignElement {
	elements := a.editor.ElementsForSide(side)
	if elements == nil {
		elements = []core.DesignElement{}
	}
	return elements
}

// Capture renders one side with the selection suspended so no selection
// border ends up in the image. Failures wrap ErrCapture.
func (a *Adapter) Capture(ctx context.Context, side core.Side) (string, error) {
	if a.capturer == nil {
		return "", nil
	}
	restore := a.editor.SuspendSelection()
	defer restore()

	uri, err := a.capturer.RenderDataURI(ctx, a.editor.ElementsForSide(side), a.editor.Selection().ElementID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return uri, nil
}

// CaptureRaster is Capture for the save path: a failed capture yields "" and is
// only logged.
func (a *Adapter) CaptureRaster(ctx context.Context, side core.Side) string {
	uri, err := a.Capture(ctx, side)
	if err != nil {
		logrus.WithField("side", side).WithError(err).Warn("Continuing without preview")
		return ""
	}
	return uri
}

// SaveDesign sends the design to the storage service. The document is never
// modified, whatever the outcome.
func (a *Adapter) SaveDesign(ctx context.Context, name string, front, back []core.DesignElement, previewFront, previewBack string) (string, error) {
	a.mu.Lock()
	if a.state == Saving {
		a.mu.Unlock()
		return "", ErrSaveInProgress
	}
	a.state = Saving
	a.mu.Unlock()

	if front == nil {
		front = []core.DesignElement{}
	}
	if back == nil {
		back = []core.DesignElement{}
	}
	req := core.CreateDesignRequest{
		Name:         name,
		ShirtStyle:   a.editor.Snapshot().ShirtStyle,
		FrontDesign:  front,
		BackDesign:   back,
		PreviewFront: previewFront,
		PreviewBack:  previewBack,
	}

	log := logrus.WithFields(logrus.Fields{
		"name":  name,
		"front": len(front),
		"back":  len(back),
	})

	id, err := a.service.CreateDesign(ctx, req)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = SaveFailed
		log.WithError(err).Error("Failed to save design")
		return "", errors.Wrap(err, "save design")
	}
	a.state = Saved
	a.designID = id
	log.WithField("design_id", id).Info("Design saved")
	return id, nil
}

// Save captures both previews and saves the editor's current document.
func (a *Adapter) Save(ctx context.Context) (string, error) {
	snap := a.editor.Snapshot()
	previewFront := a.CaptureRaster(ctx, core.SideFront)
	previewBack := a.CaptureRaster(ctx, core.SideBack)
	return a.SaveDesign(ctx, snap.Name, snap.Front, snap.Back, previewFront, previewBack)
}

// LoadBaseProduct fetches and caches the SKU custom designs are sold as.
func (a *Adapter) LoadBaseProduct(ctx context.Context) (*core.BaseProduct, error) {
	product, err := a.service.GetBaseProduct(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load base product")
	}
	a.mu.Lock()
	a.baseProduct = product
	a.mu.Unlock()
	return product, nil
}

func (a *Adapter) BaseProduct() *core.BaseProduct {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.baseProduct
}

// AddDesignToCart adds the current design to the cart. Logged-in shoppers get
// the design saved first and referenced from the cart line; anonymous shoppers
// and failed saves produce a line without a design reference.
func (a *Adapter) AddDesignToCart(ctx context.Context, opts CartOptions) (core.CartProduct, error) {
	base := a.BaseProduct()
	if base == nil {
		loaded, err := a.LoadBaseProduct(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Base product not loaded")
			return core.CartProduct{}, ErrNoBaseProduct
		}
		base = loaded
	}

	if opts.Size == "" {
		opts.Size = DefaultSize
	}
	if opts.Color == "" {
		opts.Color = DefaultColor
	}
	if opts.Quantity <= 0 {
		opts.Quantity = DefaultQuantity
	}

	var designID *string
	if a.session != nil && a.session.Authenticated() {
		id, err := a.Save(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Adding design to cart without saving it")
		} else {
			designID = &id
		}
	}

	snap := a.editor.Snapshot()
	product := core.CartProduct{
		ID:             base.ID,
		Name:           fmt.Sprintf("Custom Compression Shirt (%s) - %s", snap.ShirtStyle.DisplayName(), snap.Name),
		Price:          base.Price,
		Image:          base.Image,
		CustomDesignID: designID,
		ShirtStyle:     snap.ShirtStyle,
	}
	a.cart.Add(product, opts.Size, opts.Color, opts.Quantity)

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"design_id":  product.DesignID(),
		"size":       opts.Size,
		"color":      opts.Color,
		"quantity":   opts.Quantity,
	}).Info("Custom design added to cart")
	return product, nil
}

func (a *Adapter) State() SaveState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// DesignID returns the id of the last successful save, or "".
func (a *Adapter) DesignID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.designID
}
