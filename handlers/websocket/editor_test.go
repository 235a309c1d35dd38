package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"garment-studio/core"
	"garment-studio/editor"
	"garment-studio/export"
	"garment-studio/handlers/auth"
	"garment-studio/stores/memory"
)

const testSecret = "s3cret"

func newTestHub(store core.DesignStore) *Hub {
	return NewHub(Options{
		Store:   store,
		Product: core.BaseProduct{ID: "custom-tshirt", Price: 29.99, Image: "/shirt.png"},
		Secret:  testSecret,
		Width:   320,
		Height:  420,
	})
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := auth.CreateJWT(user, user, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func mustHandle(t *testing.T, s *session, event string, payload any) map[string]any {
	t.Helper()
	result, err := s.handle(context.Background(), event, []any{payload})
	if err != nil {
		t.Fatalf("%s: unexpected error %v", event, err)
	}
	return result
}

func TestHubSessions(t *testing.T) {
	hub := newTestHub(memory.NewDesignStore())

	hub.open("a")
	hub.open("b")
	if hub.ActiveSessions() != 2 {
		t.Errorf("Expected 2 sessions, got %d", hub.ActiveSessions())
	}

	hub.close("a")
	hub.close("missing")
	if hub.ActiveSessions() != 1 {
		t.Errorf("Expected 1 session, got %d", hub.ActiveSessions())
	}
}

func TestSessionDragFlow(t *testing.T) {
	s := newTestHub(memory.NewDesignStore()).open("sock")

	result := mustHandle(t, s, EventAddText, map[string]any{"text": "HELLO"})
	el := result["element"].(core.DesignElement)
	if el.Color != editor.DefaultTextColor || el.Side != core.SideFront {
		t.Fatalf("Unexpected element %+v", el)
	}

	press := map[string]any{"side": "front", "x": el.X + 5, "y": el.Y + 5, "target": el.ID}
	mustHandle(t, s, EventPointerDown, press)
	if s.state().Selection.Mode != editor.ModeDragging {
		t.Fatalf("Expected dragging after pressing the selected element, got %v", s.state().Selection.Mode)
	}

	mustHandle(t, s, EventPointerMove, map[string]any{"side": "front", "x": el.X + 25, "y": el.Y + 15})
	mustHandle(t, s, EventPointerUp, map[string]any{"side": "front"})

	moved, _ := s.editor.Element(el.ID)
	if moved.X != el.X+20 || moved.Y != el.Y+10 {
		t.Errorf("Expected element at (%v,%v), got (%v,%v)", el.X+20, el.Y+10, moved.X, moved.Y)
	}
	if s.state().Selection.Mode != editor.ModeSelected {
		t.Errorf("Expected selected after release, got %v", s.state().Selection.Mode)
	}
}

func TestSessionToolbar(t *testing.T) {
	s := newTestHub(memory.NewDesignStore()).open("sock")

	result := mustHandle(t, s, EventToolbar, map[string]any{"action": "rotate"})
	if result["applied"] != false {
		t.Error("Expected toolbar to be a no-op without selection")
	}

	el := mustHandle(t, s, EventAddText, map[string]any{"text": "HI"})["element"].(core.DesignElement)
	mustHandle(t, s, EventToolbar, map[string]any{"action": "rotate"})
	rotated, _ := s.editor.Element(el.ID)
	if rotated.Rotation != editor.RotateStep {
		t.Errorf("Expected rotation %v, got %v", editor.RotateStep, rotated.Rotation)
	}

	mustHandle(t, s, EventToolbar, map[string]any{"action": "delete"})
	if _, ok := s.editor.Element(el.ID); ok {
		t.Error("Expected element to be deleted")
	}
}

func TestSessionInvalidInput(t *testing.T) {
	s := newTestHub(memory.NewDesignStore()).open("sock")

	tests := []struct {
		event   string
		payload any
	}{
		{EventPointerDown, map[string]any{"side": "left"}},
		{EventSetStyle, map[string]any{"style": "tank"}},
		{EventSetSide, map[string]any{"side": "top"}},
		{EventAddImage, map[string]any{"data": "data:text/plain;base64,aGVsbG8="}},
		{EventAddImage, map[string]any{}},
		{EventPreview, map[string]any{"side": "inside"}},
	}

	for _, tt := range tests {
		_, err := s.handle(context.Background(), tt.event, []any{tt.payload})
		if !errors.Is(err, editor.ErrInvalidInput) {
			t.Errorf("%s %v: expected ErrInvalidInput, got %v", tt.event, tt.payload, err)
		}
	}
	if n := len(s.state().Front) + len(s.state().Back); n != 0 {
		t.Errorf("Expected no elements after rejected input, got %d", n)
	}
}

func TestSessionUnknownEvent(t *testing.T) {
	s := newTestHub(memory.NewDesignStore()).open("sock")

	if _, err := s.handle(context.Background(), "editor:nope", nil); err == nil {
		t.Error("Expected error for unknown event")
	}
}

func TestSessionSaveRequiresLogin(t *testing.T) {
	store := memory.NewDesignStore()
	s := newTestHub(store).open("sock")
	mustHandle(t, s, EventAddText, map[string]any{"text": "HI"})

	_, err := s.handle(context.Background(), EventSave, []any{map[string]any{}})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Expected ErrUnauthenticated, got %v", err)
	}

	_, err = s.handle(context.Background(), EventSave, []any{map[string]any{"token": "garbage"}})
	if err == nil {
		t.Fatal("Expected error for invalid token")
	}

	result := mustHandle(t, s, EventSave, map[string]any{"token": token(t, "user-1")})
	id, _ := result["designId"].(string)
	if id == "" {
		t.Fatal("Expected design id")
	}

	saved, err := store.Get(context.Background(), "user-1", id)
	if err != nil {
		t.Fatalf("Expected saved design, got %v", err)
	}
	if len(saved.FrontDesign) != 1 || len(saved.BackDesign) != 0 {
		t.Errorf("Unexpected saved design %+v", saved)
	}
	if saved.PreviewFront == "" || saved.PreviewBack == "" {
		t.Error("Expected both previews to be captured")
	}
	if s.state().SaveState != export.Saved || s.state().DesignID != id {
		t.Errorf("Unexpected state %+v", s.state())
	}
}

func TestSessionAddToCart(t *testing.T) {
	store := memory.NewDesignStore()
	s := newTestHub(store).open("sock")
	mustHandle(t, s, EventSetName, map[string]any{"name": "Team"})
	mustHandle(t, s, EventSetStyle, map[string]any{"style": "full-sleeve"})

	result := mustHandle(t, s, EventAddToCart, map[string]any{})
	product := result["product"].(core.CartProduct)
	if product.CustomDesignID != nil {
		t.Error("Expected anonymous cart line without design reference")
	}
	if product.Name != "Custom Compression Shirt (Full Sleeve) - Team" {
		t.Errorf("Unexpected product name %q", product.Name)
	}

	mustHandle(t, s, EventAuth, map[string]any{"token": token(t, "user-1")})
	result = mustHandle(t, s, EventAddToCart, map[string]any{"size": "L", "quantity": 2})
	product = result["product"].(core.CartProduct)
	if product.DesignID() == "" {
		t.Fatal("Expected logged-in cart line to reference the saved design")
	}

	state := s.state()
	if state.CartItems != 3 || !state.LoggedIn {
		t.Errorf("Unexpected state %+v", state)
	}
	designs, _ := store.List(context.Background(), "user-1")
	if len(designs) != 1 {
		t.Errorf("Expected 1 saved design, got %d", len(designs))
	}
}

func TestSessionNoBaseProduct(t *testing.T) {
	hub := NewHub(Options{Store: memory.NewDesignStore(), Width: 320, Height: 420})
	s := hub.open("sock")

	_, err := s.handle(context.Background(), EventAddToCart, nil)
	if !errors.Is(err, export.ErrNoBaseProduct) {
		t.Errorf("Expected ErrNoBaseProduct, got %v", err)
	}
}

func TestSessionPreview(t *testing.T) {
	s := newTestHub(memory.NewDesignStore()).open("sock")
	mustHandle(t, s, EventAddText, map[string]any{"text": "HI"})
	before := s.state().Selection

	result := mustHandle(t, s, EventPreview, map[string]any{"side": "front"})
	preview, _ := result["preview"].(string)
	if len(preview) < len("data:image/png;base64,") || preview[:22] != "data:image/png;base64," {
		t.Errorf("Expected png data URI, got %.30q", preview)
	}
	if s.state().Selection != before {
		t.Error("Expected selection restored after preview")
	}
}

func TestSplitAck(t *testing.T) {
	var got map[string]any
	ack, args := splitAck([]any{"payload", func(payload map[string]any) { got = payload }})
	if ack == nil || len(args) != 1 {
		t.Fatalf("Expected ack and one argument, got %v", args)
	}
	ack(nil, ackPayload(map[string]any{"designId": "d1"}, nil))
	if got["status"] != "ok" || got["designId"] != "d1" {
		t.Errorf("Unexpected ack payload %v", got)
	}

	ack, args = splitAck([]any{"payload"})
	if ack != nil || len(args) != 1 {
		t.Error("Expected no ack for plain arguments")
	}

	ack, _ = splitAck(nil)
	if ack != nil {
		t.Error("Expected no ack for empty arguments")
	}
}

func TestSplitAck_ErrorSignatures(t *testing.T) {
	var gotErr error
	var gotPayload map[string]any
	ack, _ := splitAck([]any{func(err error, payload map[string]any) {
		gotErr, gotPayload = err, payload
	}})
	failure := errors.New("boom")
	ack(failure, ackPayload(nil, failure))
	if gotErr != failure || gotPayload["status"] != "error" || gotPayload["error"] != "boom" {
		t.Errorf("Unexpected ack %v %v", gotErr, gotPayload)
	}

	var list []any
	ack, _ = splitAck([]any{func(args []any) { list = args }})
	ack(nil, map[string]any{"status": "ok"})
	if len(list) != 1 {
		t.Errorf("Expected payload wrapped in a slice, got %v", list)
	}
}

func TestDecodePayload(t *testing.T) {
	var p pointerPayload
	if err := decodePayload([]any{`{"side":"back","x":1.5,"y":2}`}, &p); err != nil {
		t.Fatal(err)
	}
	if p.Side != core.SideBack || p.X != 1.5 || p.Y != 2 {
		t.Errorf("Unexpected payload %+v", p)
	}

	if err := decodePayload([]any{"{"}, &p); err == nil {
		t.Error("Expected error for malformed JSON")
	}
	if err := decodePayload(nil, &p); err != nil {
		t.Errorf("Expected empty arguments to decode cleanly, got %v", err)
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	result, err := guard(EventToolbar, func() (map[string]any, error) {
		var m map[string]any
		m["boom"] = true
		return m, nil
	})
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
	if result != nil {
		t.Errorf("expected nil result, got %v", result)
	}

	result, err = guard(EventToolbar, func() (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})
	if err != nil || result["ok"] != true {
		t.Errorf("expected pass-through result, got %v, %v", result, err)
	}
}
