package websocket

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"garment-studio/cart"
	"garment-studio/core"
	"garment-studio/editor"
	"garment-studio/export"
	"garment-studio/handlers/api/designs"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventAddText      = "editor:add-text"
	EventAddImage     = "editor:add-image"
	EventRemove       = "editor:remove"
	EventPointerDown  = "editor:pointer-down"
	EventPointerMove  = "editor:pointer-move"
	EventPointerUp    = "editor:pointer-up"
	EventPointerLeave = "editor:pointer-leave"
	EventToolbar      = "editor:toolbar"
	EventSetStyle     = "editor:set-style"
	EventSetName      = "editor:set-name"
	EventSetSide      = "editor:set-side"
	EventAuth         = "editor:auth"
	EventPreview      = "editor:preview"
	EventSave         = "editor:save"
	EventAddToCart    = "editor:add-to-cart"
	EventCart         = "editor:cart"

	EventState = "editor:state"
)

var handledEvents = []string{
	EventAddText, EventAddImage, EventRemove,
	EventPointerDown, EventPointerMove, EventPointerUp, EventPointerLeave,
	EventToolbar, EventSetStyle, EventSetName, EventSetSide,
	EventAuth, EventPreview, EventSave, EventAddToCart, EventCart,
}

const eventTimeout = 30 * time.Second

type (
	Options struct {
		Store    core.DesignStore
		Previews designs.PreviewStore
		Fetch    export.FetchFunc
		Product  core.BaseProduct
		Secret   string
		Width    int
		Height   int
		Gesture  editor.Gesture
	}

	// Hub owns one headless editor session per connected socket.
	Hub struct {
		opts Options

		mu       sync.RWMutex
		sessions map[string]*session
	}

	session struct {
		id      string
		editor  *editor.Editor
		adapter *export.Adapter
		cart    *cart.Cart
		service *storeService
	}

	// State is what clients receive after every handled event.
	State struct {
		editor.Snapshot
		Backdrop  map[core.Side]string `json:"backdrop"`
		SaveState export.SaveState     `json:"saveState"`
		DesignID  string               `json:"designId,omitempty"`
		LoggedIn  bool                 `json:"loggedIn"`
		CartItems int                  `json:"cartItems"`
		CartTotal float64              `json:"cartTotal"`
	}

	pointerPayload struct {
		Side   core.Side `json:"side"`
		X      float64   `json:"x"`
		Y      float64   `json:"y"`
		Target string    `json:"target"`
	}

	textPayload struct {
		Text  string `json:"text"`
		Color string `json:"color"`
	}

	imagePayload struct {
		URL  string `json:"url"`
		Data string `json:"data"`
	}

	cartPayload struct {
		Token    string `json:"token"`
		Size     string `json:"size"`
		Color    string `json:"color"`
		Quantity int    `json:"quantity"`
	}
)

func NewHub(opts Options) *Hub {
	return &Hub{opts: opts, sessions: make(map[string]*session)}
}

// ActiveSessions returns the number of open editor sessions.
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) open(id string) *session {
	surface := editor.FixedSurface{Width: float64(h.opts.Width), Height: float64(h.opts.Height)}
	ed := editor.New(surface, surface, editor.WithGesture(h.opts.Gesture))

	renderer := export.NewRenderer(h.opts.Width, h.opts.Height)
	renderer.Fetch = h.opts.Fetch

	s := &session{
		id:     id,
		editor: ed,
		cart:   cart.New(),
		service: &storeService{
			store:    h.opts.Store,
			previews: h.opts.Previews,
			canvas:   designs.Canvas{Width: surface.Width, Height: surface.Height},
			product:  h.opts.Product,
			secret:   h.opts.Secret,
		},
	}
	s.adapter = export.NewAdapter(ed, s.service, s.service, s.cart, renderer)

	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()
	return s
}

func (h *Hub) close(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		s.editor.Close()
	}
}

func (h *Hub) SetupSocketIO() *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(2 * editor.MaxUploadBytes)
	opts.SetPath("/socket.io")
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin:      []any{localhostOrigin},
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		id := string(socket.Id())
		s := h.open(id)
		log := logrus.WithField("socket_id", id)
		log.Info("Editor session opened")
		_ = socket.Emit(EventState, s.state())

		for _, event := range handledEvents {
			//nolint:errcheck // Socket.IO event handlers do not return useful errors
			socket.On(event, func(datas ...any) {
				ack, args := splitAck(datas)

				ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
				defer cancel()

				result, err := guard(event, func() (map[string]any, error) {
					return s.handle(ctx, event, args)
				})
				if err != nil {
					log.WithFields(logrus.Fields{"event": event, "error": err}).Debug("Editor event failed")
				}
				if ack != nil {
					ack(err, ackPayload(result, err))
				}
				_ = socket.Emit(EventState, s.state())
			})
		}

		socket.On("disconnect", func(datas ...any) {
			h.close(id)
			log.Info("Editor session closed")
			socket.RemoveAllListeners("")
		})
	})

	return srv
}

// guard runs one event handler and turns a panic into an error so a single
// bad event cannot take down the server.
func guard(event string, fn func() (map[string]any, error)) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{"event": event, "panic": r}).Error("Editor event panicked")
			result, err = nil, fmt.Errorf("%s: internal error", event)
		}
	}()
	return fn()
}

func (s *session) canvas(side core.Side) (*editor.Canvas, error) {
	c := s.editor.Canvas(side)
	if c == nil {
		return nil, fmt.Errorf("%w: unknown side %q", editor.ErrInvalidInput, side)
	}
	return c, nil
}

// handle applies one client event to the session. The returned map is merged
// into the acknowledgement.
func (s *session) handle(ctx context.Context, event string, args []any) (map[string]any, error) {
	switch event {
	case EventAddText:
		var p textPayload
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		if p.Text == "" {
			p.Text = editor.DefaultText
		}
		el, err := s.editor.AddText(p.Text, p.Color)
		if err != nil {
			return nil, err
		}
		return map[string]any{"element": el}, nil

	case EventAddImage:
		var p imagePayload
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		var (
			el  core.DesignElement
			err error
		)
		if strings.HasPrefix(p.Data, "data:") {
			var data []byte
			if _, data, err = editor.ParseDataURI(p.Data); err == nil {
				el, err = s.editor.AddImage(data)
			}
		} else {
			el, err = s.editor.AddImageReference(p.URL)
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"element": el}, nil

	case EventRemove:
		var p struct {
			ID string `json:"id"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		s.editor.RemoveElement(p.ID)
		return nil, nil

	case EventPointerDown, EventPointerMove, EventPointerUp, EventPointerLeave:
		var p pointerPayload
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		c, err := s.canvas(p.Side)
		if err != nil {
			return nil, err
		}
		ev := editor.PointerEvent{X: p.X, Y: p.Y, Target: p.Target}
		switch event {
		case EventPointerDown:
			c.PointerDown(ev)
		case EventPointerMove:
			c.PointerMove(ev)
		case EventPointerUp:
			c.PointerUp(ev)
		default:
			c.PointerLeave()
		}
		return nil, nil

	case EventToolbar:
		var p struct {
			Action editor.Action `json:"action"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		return map[string]any{"applied": s.editor.Apply(p.Action)}, nil

	case EventSetStyle:
		var p struct {
			Style core.ShirtStyle `json:"style"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		return nil, s.editor.SetShirtStyle(p.Style)

	case EventSetName:
		var p struct {
			Name string `json:"name"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		s.editor.SetName(p.Name)
		return nil, nil

	case EventSetSide:
		var p struct {
			Side core.Side `json:"side"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		return nil, s.editor.SetActiveSide(p.Side)

	case EventAuth:
		var p struct {
			Token string `json:"token"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		if p.Token == "" {
			return nil, ErrUnauthenticated
		}
		return nil, s.service.authenticate(p.Token)

	case EventPreview:
		var p struct {
			Side core.Side `json:"side"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		if !p.Side.Valid() {
			return nil, fmt.Errorf("%w: unknown side %q", editor.ErrInvalidInput, p.Side)
		}
		uri, err := s.adapter.Capture(ctx, p.Side)
		if err != nil {
			return nil, err
		}
		return map[string]any{"preview": uri}, nil

	case EventSave:
		var p struct {
			Token string `json:"token"`
		}
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		if err := s.service.authenticate(p.Token); err != nil {
			return nil, err
		}
		if !s.service.Authenticated() {
			return nil, ErrUnauthenticated
		}
		id, err := s.adapter.Save(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"designId": id}, nil

	case EventAddToCart:
		var p cartPayload
		if err := decodePayload(args, &p); err != nil {
			return nil, err
		}
		if err := s.service.authenticate(p.Token); err != nil {
			return nil, err
		}
		product, err := s.adapter.AddDesignToCart(ctx, export.CartOptions{Size: p.Size, Color: p.Color, Quantity: p.Quantity})
		if err != nil {
			return nil, err
		}
		return map[string]any{"product": product, "items": s.cart.Items()}, nil

	case EventCart:
		return map[string]any{"items": s.cart.Items()}, nil
	}
	return nil, errors.New("unknown event " + event)
}

func (s *session) state() State {
	snap := s.editor.Snapshot()
	return State{
		Snapshot: snap,
		Backdrop: map[core.Side]string{
			core.SideFront: snap.ShirtStyle.BackdropPath(core.SideFront),
			core.SideBack:  snap.ShirtStyle.BackdropPath(core.SideBack),
		},
		SaveState: s.adapter.State(),
		DesignID:  s.adapter.DesignID(),
		LoggedIn:  s.service.Authenticated(),
		CartItems: s.cart.TotalItems(),
		CartTotal: s.cart.TotalPrice(),
	}
}
