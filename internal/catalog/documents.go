package catalog

import (
	"strconv"

	"storefront/internal/models"
)

// productDoc is the raw product document as the remote API serves it.
// Prices arrive as strings and stock_quantity may be null.
type productDoc struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	SKU              string            `json:"sku"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"short_description"`
	Price            string            `json:"price"`
	RegularPrice     string            `json:"regular_price"`
	SalePrice        string            `json:"sale_price"`
	OnSale           bool              `json:"on_sale"`
	Featured         bool              `json:"featured"`
	StockQuantity    *int              `json:"stock_quantity"`
	StockStatus      string            `json:"stock_status"`
	Images           []models.Image    `json:"images"`
	Categories       []models.Category `json:"categories"`
	Tags             []models.Category `json:"tags"`
	Permalink        string            `json:"permalink"`
}

// formatProduct normalizes a raw document into the domain shape
func formatProduct(doc productDoc) models.Product {
	p := models.Product{
		ID:               doc.ID,
		Name:             doc.Name,
		Slug:             doc.Slug,
		SKU:              doc.SKU,
		Description:      doc.Description,
		ShortDescription: doc.ShortDescription,
		Price:            parsePrice(doc.Price),
		RegularPrice:     parsePrice(doc.RegularPrice),
		SalePrice:        parsePrice(doc.SalePrice),
		OnSale:           doc.OnSale,
		Featured:         doc.Featured,
		StockStatus:      doc.StockStatus,
		Images:           doc.Images,
		Categories:       doc.Categories,
		Tags:             doc.Tags,
		Permalink:        doc.Permalink,
	}
	if doc.StockQuantity != nil {
		p.StockQuantity = *doc.StockQuantity
	}
	if p.StockStatus == "" {
		p.StockStatus = models.StockStatusInStock
	}
	if p.Images == nil {
		p.Images = []models.Image{}
	}
	if p.Categories == nil {
		p.Categories = []models.Category{}
	}
	if p.Tags == nil {
		p.Tags = []models.Category{}
	}
	return p
}

func formatProducts(docs []productDoc) []models.Product {
	out := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, formatProduct(doc))
	}
	return out
}

// parsePrice tolerates empty and malformed price strings
func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// OrderPayload is the order document submitted to the remote catalog
type OrderPayload struct {
	PaymentMethod      string         `json:"payment_method"`
	PaymentMethodTitle string         `json:"payment_method_title"`
	SetPaid            bool           `json:"set_paid"`
	Billing            Address        `json:"billing"`
	Shipping           Address        `json:"shipping"`
	LineItems          []LineItem     `json:"line_items"`
	ShippingLines      []ShippingLine `json:"shipping_lines"`
	MetaData           []MetaEntry    `json:"meta_data"`
}

// Address is a billing or shipping block
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LineItem is one order line
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ShippingLine describes the shipping method applied to an order
type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

// MetaEntry is a key/value tag attached to the remote order
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Order is the remote order document returned after creation
type Order struct {
	ID       int64       `json:"id"`
	Status   string      `json:"status"`
	Total    string      `json:"total"`
	Currency string      `json:"currency"`
	MetaData []MetaEntry `json:"meta_data"`
}

// CustomerPayload registers a customer with the remote catalog
type CustomerPayload struct {
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Billing   Address `json:"billing"`
	Shipping  Address `json:"shipping"`
}

// RemoteCustomer is the remote customer document
type RemoteCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
