package models

import "time"

// Product is a catalog product as served by the remote product API.
// The remote system owns and mutates it; this service only reads and
// reshapes it.
type Product struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Slug             string     `json:"slug"`
	SKU              string     `json:"sku"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"short_description"`
	Price            float64    `json:"price"`
	RegularPrice     float64    `json:"regular_price"`
	SalePrice        float64    `json:"sale_price"`
	OnSale           bool       `json:"on_sale"`
	Featured         bool       `json:"featured"`
	StockQuantity    int        `json:"stock_quantity"`
	StockStatus      string     `json:"stock_status"`
	Images           []Image    `json:"images"`
	Categories       []Category `json:"categories"`
	Tags             []Category `json:"tags"`
	Permalink        string     `json:"permalink"`
}

// Stock statuses reported by the remote catalog
const (
	StockStatusInStock    = "instock"
	StockStatusOutOfStock = "outofstock"
	StockStatusBackorder  = "onbackorder"
)

// Image is a product or content image
type Image struct {
	ID   int64  `json:"id,omitempty"`
	Src  string `json:"src"`
	Alt  string `json:"alt"`
	Name string `json:"name,omitempty"`
}

// Category is a catalog category or tag
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CartItem is one line of a session cart. Quantity is always >= 1 in
// storage; setting it to zero removes the line.
type CartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Customer holds the checkout form fields
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Country   string `json:"country"`
}

// OrderConfirmation is returned after a successful submission. OrderID is
// the locally generated reference; RemoteOrderID is assigned by the
// remote catalog.
type OrderConfirmation struct {
	OrderID           string    `json:"orderId"`
	RemoteOrderID     int64     `json:"remoteOrderId"`
	Subtotal          float64   `json:"subtotal"`
	Shipping          float64   `json:"shipping"`
	Total             float64   `json:"total"`
	PaymentMethod     string    `json:"paymentMethod"`
	Status            string    `json:"status"`
	OrderDate         time.Time `json:"orderDate"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

// Content is an article or page from the content database
type Content struct {
	ID            int64             `json:"id" db:"id"`
	Title         string            `json:"title" db:"title"`
	Content       string            `json:"content" db:"content"`
	Excerpt       string            `json:"excerpt" db:"excerpt"`
	Status        string            `json:"status" db:"status"`
	Slug          string            `json:"slug" db:"slug"`
	Type          string            `json:"type" db:"type"`
	PublishedDate time.Time         `json:"published_date" db:"published_date"`
	ModifiedDate  time.Time         `json:"modified_date" db:"modified_date"`
	Author        *Author           `json:"author,omitempty"`
	Categories    []Category        `json:"categories,omitempty"`
	Tags          []Category        `json:"tags,omitempty"`
	Images        []Image           `json:"images,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Author is a content author
type Author struct {
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// MenuItem is one entry of a navigation menu, ordered by menu position
type MenuItem struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Type   string `json:"type"`
	Parent int64  `json:"parent"`
	Order  int    `json:"order"`
}

// SiteInfo is the site identity read from the options table
type SiteInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Home        string `json:"home"`
}

// ContentProduct is a product row assembled from the content database
// (posts/postmeta pivot), distinct from the remote catalog's Product.
type ContentProduct struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Price        float64   `json:"price"`
	RegularPrice float64   `json:"regular_price"`
	SalePrice    float64   `json:"sale_price"`
	SKU          string    `json:"sku"`
	Stock        int       `json:"stock"`
	StockStatus  string    `json:"stock_status"`
	Images       []Image   `json:"images"`
	Category     string    `json:"category"`
}
