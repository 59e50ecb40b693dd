package domain

import (
	"math"
	"strings"
	"time"
)

// Product is a cosmetic item sold in the store.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Features  []string  `json:"features"`
	Featured  bool      `json:"featured"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProduct creates a product. Blank feature lines are dropped.
func NewProduct(name string, price float64, features []string, featured bool) *Product {
	return &Product{
		Name:      strings.TrimSpace(name),
		Price:     price,
		Features:  CleanFeatures(features),
		Featured:  featured,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks name, price and features.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "product name is required")
	}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
		return NewValidationError("price", "price must be greater than 0")
	}
	if len(p.Features) == 0 {
		return NewValidationError("features", "at least one feature is required")
	}
	return nil
}

// Matches reports whether needle appears in the product name, ignoring case.
func (p *Product) Matches(needle string) bool {
	return containsFold(p.Name, needle)
}

// CleanFeatures trims every feature and drops empty ones.
func CleanFeatures(features []string) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// DefaultProducts returns the catalogue seeded on first run.
func DefaultProducts() []*Product {
	return []*Product{
		NewProduct("VIP Bronze", 4.99, []string{"Dedicated prefix", "Daily kit", "Priority queue"}, false),
		NewProduct("VIP Silver", 9.99, []string{"Everything in Bronze", "Exclusive particles", "/hat and /nick"}, false),
		NewProduct("VIP Gold", 14.99, []string{"Everything in Silver", "Boosted Lifesteal kit", "Reserved slot"}, true),
		NewProduct("VIP Legend", 24.99, []string{"Everything in Gold", "Custom emotes", "Bonus event rewards"}, false),
	}
}
