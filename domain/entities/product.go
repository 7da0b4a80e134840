package entities

import "errors"

// Product represents an item in the pharmacy catalog. Field names on the wire
// stay in Spanish to match the documents already stored in the `productos`
// collection.
type Product struct {
	ID          string  `json:"id" bson:"_id,omitempty"`
	Name        string  `json:"nombre" bson:"nombre"`
	Description string  `json:"descripcion" bson:"descripcion"`
	Price       float64 `json:"precio" bson:"precio"`
	Category    string  `json:"categoria" bson:"categoria"`
	Stock       int     `json:"stock" bson:"stock"`
	ImageURL    string  `json:"imagenURL,omitempty" bson:"imagenURL,omitempty"`
}

// Validate validates the product data
func (p *Product) Validate() error {
	if p.Name == "" {
		return errors.New("nombre is required")
	}
	if p.Price < 0 {
		return errors.New("precio must not be negative")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}

// InStock reports whether the product can currently be sold.
func (p *Product) InStock() bool {
	return p.Stock > 0
}
