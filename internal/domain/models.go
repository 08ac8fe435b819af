package domain

// Product is the payload exchanged with the product service in the demo flow.
type Product struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
