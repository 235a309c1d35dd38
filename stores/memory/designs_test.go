package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"garment-studio/core"
)

func sampleDesign(userID, name string) *core.SavedDesign {
	return &core.SavedDesign{
		UserID:     userID,
		Name:       name,
		ShirtStyle: core.StyleHalfSleeve,
		FrontDesign: []core.DesignElement{
			{ID: "e1", Kind: core.KindText, Content: "HELLO", X: 80, Y: 120, Width: 120, Height: 40, Color: "#000000", Side: core.SideFront},
		},
		BackDesign: []core.DesignElement{
			{ID: "e2", Kind: core.KindImage, Content: "data:image/png;base64,AAAA", X: 80, Y: 120, Width: 80, Height: 80, Side: core.SideBack},
		},
	}
}

func TestNewDesignStore(t *testing.T) {
	store := NewDesignStore()
	if store == nil {
		t.Fatal("NewDesignStore() returned nil")
	}
}

func TestCreate_Success(t *testing.T) {
	store := NewDesignStore()
	ctx := context.Background()

	id, err := store.Create(ctx, sampleDesign("user-1", "Mine"))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// ULIDs are 26 characters
	if len(id) != 26 {
		t.Errorf("Create() returned invalid ID length: got %d, want 26", len(id))
	}
}

func TestCreate_RequiresUser(t *testing.T) {
	store := NewDesignStore()

	if _, err := store.Create(context.Background(), sampleDesign("", "Mine")); err == nil {
		t.Error("Create() should fail without a user id")
	}
}

func TestGet_RoundTrip(t *testing.T) {
	store := NewDesignStore()
	ctx := context.Background()

	id, err := store.Create(ctx, sampleDesign("user-1", "Mine"))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := store.Get(ctx, "user-1", id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.ID != id || got.Name != "Mine" {
		t.Errorf("Get() returned %s/%s, want %s/Mine", got.ID, got.Name, id)
	}
	if len(got.FrontDesign) != 1 || got.FrontDesign[0].Kind != core.KindText {
		t.Errorf("Get() front design mismatch: %+v", got.FrontDesign)
	}
	if len(got.BackDesign) != 1 || got.BackDesign[0].Kind != core.KindImage {
		t.Errorf("Get() back design mismatch: %+v", got.BackDesign)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Get() returned zero timestamps")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	store := NewDesignStore()
	ctx := context.Background()
	id, _ := store.Create(ctx, sampleDesign("user-1", "Mine"))

	first, _ := store.Get(ctx, "user-1", id)
	first.FrontDesign[0].Content = "CHANGED"

	second, _ := store.Get(ctx, "user-1", id)
	if second.FrontDesign[0].Content != "HELLO" {
		t.Error("Get() leaked internal state")
	}
}

func TestGet_OtherUserNotFound(t *testing.T) {
	store := NewDesignStore()
	ctx := context.Background()
	id, _ := store.Create(ctx, sampleDesign("user-1", "Mine"))

	_, err := store.Get(ctx, "user-2", id)
	if !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("Get() for another user: got %v, want ErrDesignNotFound", err)
	}
}

func TestList_OmitsElements(t *testing.T) {
	store := NewDesignStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, sampleDesign("user-1", fmt.Sprintf("design-%d", i))); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}
	store.Create(ctx, sampleDesign("user-2", "other"))

	designs, err := store.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(designs) != 3 {
		t.Fatalf("List() returned %d designs, want 3", len(designs))
	}
	for _, d := range designs {
		if d.FrontDesign != nil || d.BackDesign != nil {
			t.Errorf("List() design %s includes elements", d.ID)
		}
	}
	if designs[0].Name != "design-2" {
		t.Errorf("List() not newest first: got %s", designs[0].Name)
	}
}

func TestList_UnknownUserEmpty(t *testing.T) {
	store := NewDesignStore()

	designs, err := store.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if designs == nil || len(designs) != 0 {
		t.Errorf("List() = %v, want empty slice", designs)
	}
}

func TestDelete(t *testing.T) {
	store := NewDesignStore()
	ctx := context.Background()
	id, _ := store.Create(ctx, sampleDesign("user-1", "Mine"))

	if err := store.Delete(ctx, "user-2", id); !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("Delete() by another user: got %v, want ErrDesignNotFound", err)
	}
	if err := store.Delete(ctx, "user-1", id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, "user-1", id); !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("Get() after delete: got %v, want ErrDesignNotFound", err)
	}
	if err := store.Delete(ctx, "user-1", id); !errors.Is(err, core.ErrDesignNotFound) {
		t.Errorf("second Delete(): got %v, want ErrDesignNotFound", err)
	}
}

func TestConcurrentCreate(t *testing.T) {
	store := NewDesignStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.Create(ctx, sampleDesign("user-1", fmt.Sprintf("d%d", i)))
			if err != nil {
				t.Errorf("Create() failed: %v", err)
				return
			}
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %s", id)
		}
		seen[id] = true
	}

	designs, _ := store.List(ctx, "user-1")
	if len(designs) != 50 {
		t.Errorf("List() returned %d designs, want 50", len(designs))
	}
}
