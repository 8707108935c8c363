package domain

// Product is the catalog store's view of a sellable item. The settlement
// core only reads price, stock and the owning vendor.
type Product struct {
	ID       string  `json:"id" dynamodbav:"id"`
	Name     string  `json:"name" dynamodbav:"name"`
	Price    float64 `json:"price" dynamodbav:"price"`
	Stock    int     `json:"stock" dynamodbav:"stock"`
	VendorID string  `json:"vendor_id" dynamodbav:"vendor_id"`
}

// Vendor carries the stored commission rate used when a settlement call does
// not override it.
type Vendor struct {
	ID                   string  `json:"id" dynamodbav:"id"`
	CommissionPercentage float64 `json:"commission_percentage" dynamodbav:"commission_percentage"`
}
