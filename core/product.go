package core

type (
	// BaseProduct is the priceable SKU underlying every custom design.
	BaseProduct struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
		Image string  `json:"image"`
	}

	// CartProduct is the product half of a cart line. CustomDesignID and
	// ShirtStyle distinguish custom lines from catalog lines.
	CartProduct struct {
		ID             string     `json:"id"`
		Name           string     `json:"name"`
		Price          float64    `json:"price"`
		Image          string     `json:"image"`
		CustomDesignID *string    `json:"customDesignId"`
		ShirtStyle     ShirtStyle `json:"shirtStyle,omitempty"`
	}
)

// DesignID returns the custom design reference or "" for catalog lines.
func (p CartProduct) DesignID() string {
	if p.CustomDesignID == nil {
		return ""
	}
	return *p.CustomDesignID
}
