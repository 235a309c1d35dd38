package products

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"garment-studio/config"
)

func TestHandleGetBaseProduct(t *testing.T) {
	cfg := &config.Config{BaseProductID: "custom-tshirt", BaseProductPrice: 29.99, BaseProductImage: "/shirt.png"}
	handler := HandleGetBaseProduct(BaseProduct(cfg))

	req := httptest.NewRequest(http.MethodGet, "/api/products/custom-tshirt", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp ProductResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Product.ID != "custom-tshirt" || resp.Product.Price != 29.99 || resp.Product.Image != "/shirt.png" {
		t.Errorf("unexpected product %+v", resp.Product)
	}
}
