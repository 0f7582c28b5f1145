package domain

// Product is the authoritative snapshot served to callers. Price is in
// minor currency units.
type Product struct {
	ID            int64  `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	Price         int64  `json:"price" db:"price"`
	StockQuantity int64  `json:"stock_quantity" db:"stock_quantity"`
	Category      string `json:"category" db:"category"`
}
