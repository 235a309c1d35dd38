package products

import (
	"net/http"

	"garment-studio/config"
	"garment-studio/core"

	"github.com/go-chi/render"
)

type ProductResponse struct {
	Product core.BaseProduct `json:"product"`
}

// BaseProduct builds the customizable garment from configuration.
func BaseProduct(cfg *config.Config) core.BaseProduct {
	return core.BaseProduct{
		ID:    cfg.BaseProductID,
		Price: cfg.BaseProductPrice,
		Image: cfg.BaseProductImage,
	}
}

// HandleGetBaseProduct serves the product every custom design is sold as.
func HandleGetBaseProduct(product core.BaseProduct) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, ProductResponse{Product: product})
	}
}
