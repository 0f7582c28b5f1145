package domain

// CartLine is a requested (product, quantity) pair. It is transient
// request input and is never persisted on its own.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}
