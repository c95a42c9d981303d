package woocommerce

import (
	"bytes"
	"net/url"
	"strconv"
)

// flexPrice tolerates the upstream's mixed price encoding: the same
// field arrives as a JSON string, a number, or an empty string.
type flexPrice struct {
	raw string
}

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if bytes.Equal(data, []byte("null")) {
		data = nil
	}
	p.raw = string(data)
	return nil
}

// Float parses the price, returning fallback for empty or malformed values
func (p flexPrice) Float(fallback float64) float64 {
	if p.raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(p.raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// decodeURL reverses percent-encoding the store applies to cyrillic
// names and slugs. Malformed input is returned unchanged.
func decodeURL(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// CategoryRef is a category reference embedded in a product
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// AttributeTerm is a single value of a product attribute
type AttributeTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductAttribute describes a configurable product attribute
type ProductAttribute struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Taxonomy      string          `json:"taxonomy"`
	HasVariations bool            `json:"has_variations"`
	Terms         []AttributeTerm `json:"terms"`
}

// VariationAttribute is an attribute/value pair of a variation
type VariationAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductVariation is a purchasable variation of a variable product
type ProductVariation struct {
	ID         int64                `json:"id"`
	Attributes []VariationAttribute `json:"attributes"`
}

// Product is the storefront projection of an upstream product.
// Prices are plain floats; empty sale/regular prices fall back to the
// current price.
type Product struct {
	ID           int64              `json:"id" msgpack:"id"`
	Name         string             `json:"name" msgpack:"name"`
	Slug         string             `json:"slug" msgpack:"slug"`
	Permalink    string             `json:"permalink" msgpack:"permalink"`
	DateCreated  string             `json:"date_created" msgpack:"date_created"`
	DateModified string             `json:"date_modified" msgpack:"date_modified"`
	Type         string             `json:"type" msgpack:"type"`
	Status       string             `json:"status" msgpack:"status"`
	Price        float64            `json:"price" msgpack:"price"`
	RegularPrice float64            `json:"regular_price" msgpack:"regular_price"`
	SalePrice    float64            `json:"sale_price" msgpack:"sale_price"`
	StockStatus  string             `json:"stock_status" msgpack:"stock_status"`
	Categories   []CategoryRef      `json:"categories" msgpack:"categories"`
	Images       []string           `json:"images" msgpack:"images"`
	Attributes   []ProductAttribute `json:"attributes" msgpack:"attributes"`
	Variations   []ProductVariation `json:"variations" msgpack:"variations"`
}

// CategoryProducts groups products under one category for the catalog view
type CategoryProducts struct {
	CategoryName string    `json:"category_name" msgpack:"category_name"`
	Items        []Product `json:"items" msgpack:"items"`
}

// Category is a simplified product category
type Category struct {
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	ParentID     int64  `json:"parent_id"`
}

// rawProduct is the upstream product shape before projection
type rawProduct struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Permalink    string        `json:"permalink"`
	DateCreated  string        `json:"date_created"`
	DateModified string        `json:"date_modified"`
	Type         string        `json:"type"`
	Status       string        `json:"status"`
	Price        flexPrice     `json:"price"`
	RegularPrice flexPrice     `json:"regular_price"`
	SalePrice    flexPrice     `json:"sale_price"`
	StockStatus  string        `json:"stock_status"`
	Categories   []CategoryRef `json:"categories"`
	Images       []struct {
		Src string `json:"src"`
	} `json:"images"`
	Attributes []ProductAttribute `json:"attributes"`
	Variations []ProductVariation `json:"variations"`
}

func (p *rawProduct) project() Product {
	price := p.Price.Float(0)
	product := Product{
		ID:           p.ID,
		Name:         decodeURL(p.Name),
		Slug:         decodeURL(p.Slug),
		Permalink:    decodeURL(p.Permalink),
		DateCreated:  p.DateCreated,
		DateModified: p.DateModified,
		Type:         p.Type,
		Status:       p.Status,
		Price:        price,
		RegularPrice: p.RegularPrice.Float(price),
		SalePrice:    p.SalePrice.Float(price),
		StockStatus:  p.StockStatus,
		Categories:   make([]CategoryRef, 0, len(p.Categories)),
		Images:       make([]string, 0, len(p.Images)),
		Attributes:   p.Attributes,
		Variations:   p.Variations,
	}
	for _, cat := range p.Categories {
		cat.Name = decodeURL(cat.Name)
		cat.Slug = decodeURL(cat.Slug)
		product.Categories = append(product.Categories, cat)
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, decodeURL(img.Src))
	}
	for i := range product.Attributes {
		product.Attributes[i].Name = decodeURL(product.Attributes[i].Name)
		for j := range product.Attributes[i].Terms {
			product.Attributes[i].Terms[j].Name = decodeURL(product.Attributes[i].Terms[j].Name)
		}
	}
	return product
}

// CartItem is one line of the shopping cart
type CartItem struct {
	Key          string `json:"key" msgpack:"key"`
	ID           int64  `json:"id" msgpack:"id"`
	Name         string `json:"name" msgpack:"name"`
	Quantity     int    `json:"quantity" msgpack:"quantity"`
	Type         string `json:"type" msgpack:"type"`
	SKU          string `json:"sku" msgpack:"sku"`
	Permalink    string `json:"permalink" msgpack:"permalink"`
	Image        string `json:"image" msgpack:"image"`
	Price        string `json:"price" msgpack:"price"`
	RegularPrice string `json:"regular_price" msgpack:"regular_price"`
	SalePrice    string `json:"sale_price" msgpack:"sale_price"`
	LineTotal    string `json:"line_total" msgpack:"line_total"`
}

// CartTotals summarizes the cart price
type CartTotals struct {
	TotalItems     string `json:"total_items" msgpack:"total_items"`
	TotalPrice     string `json:"total_price" msgpack:"total_price"`
	CurrencyCode   string `json:"currency_code" msgpack:"currency_code"`
	CurrencySymbol string `json:"currency_symbol" msgpack:"currency_symbol"`
	CurrencySuffix string `json:"currency_suffix" msgpack:"currency_suffix"`
}

// ShippingRate is one delivery option within a package
type ShippingRate struct {
	RateID   string `json:"rate_id" msgpack:"rate_id"`
	Name     string `json:"name" msgpack:"name"`
	Price    string `json:"price" msgpack:"price"`
	Selected bool   `json:"selected" msgpack:"selected"`
}

// ShippingPackageItem references a cart item inside a shipping package
type ShippingPackageItem struct {
	Key      string `json:"key" msgpack:"key"`
	Name     string `json:"name" msgpack:"name"`
	Quantity int    `json:"quantity" msgpack:"quantity"`
}

// ShippingPackage groups cart items with their available rates
type ShippingPackage struct {
	PackageID     any                   `json:"package_id" msgpack:"package_id"`
	Name          string                `json:"name" msgpack:"name"`
	Items         []ShippingPackageItem `json:"items" msgpack:"items"`
	ShippingRates []ShippingRate        `json:"shipping_rates" msgpack:"shipping_rates"`
}

// Cart is the storefront projection of the upstream cart
type Cart struct {
	Items          []CartItem        `json:"items" msgpack:"items"`
	Totals         CartTotals        `json:"totals" msgpack:"totals"`
	ItemsCount     int               `json:"items_count" msgpack:"items_count"`
	NeedsPayment   bool              `json:"needs_payment" msgpack:"needs_payment"`
	NeedsShipping  bool              `json:"needs_shipping" msgpack:"needs_shipping"`
	ShippingRates  []ShippingPackage `json:"shipping_rates" msgpack:"shipping_rates"`
	PaymentMethods []string          `json:"payment_methods" msgpack:"payment_methods"`
}

// rawCart is the upstream Store API cart shape before projection
type rawCart struct {
	Items []struct {
		Key       string `json:"key"`
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		Type      string `json:"type"`
		SKU       string `json:"sku"`
		Permalink string `json:"permalink"`
		Images    []struct {
			Src string `json:"src"`
		} `json:"images"`
		Prices struct {
			Price        string `json:"price"`
			RegularPrice string `json:"regular_price"`
			SalePrice    string `json:"sale_price"`
		} `json:"prices"`
		Totals struct {
			LineTotal string `json:"line_total"`
		} `json:"totals"`
	} `json:"items"`
	Totals struct {
		TotalItems     string `json:"total_items"`
		TotalPrice     string `json:"total_price"`
		CurrencyCode   string `json:"currency_code"`
		CurrencySymbol string `json:"currency_symbol"`
		CurrencySuffix string `json:"currency_suffix"`
	} `json:"totals"`
	ItemsCount     int               `json:"items_count"`
	NeedsPayment   bool              `json:"needs_payment"`
	NeedsShipping  bool              `json:"needs_shipping"`
	ShippingRates  []ShippingPackage `json:"shipping_rates"`
	PaymentMethods []string          `json:"payment_methods"`
}

func (c *rawCart) project() *Cart {
	cart := &Cart{
		Items: make([]CartItem, 0, len(c.Items)),
		Totals: CartTotals{
			TotalItems:     c.Totals.TotalItems,
			TotalPrice:     c.Totals.TotalPrice,
			CurrencyCode:   c.Totals.CurrencyCode,
			CurrencySymbol: c.Totals.CurrencySymbol,
			CurrencySuffix: c.Totals.CurrencySuffix,
		},
		ItemsCount:     c.ItemsCount,
		NeedsPayment:   c.NeedsPayment,
		NeedsShipping:  c.NeedsShipping,
		ShippingRates:  c.ShippingRates,
		PaymentMethods: c.PaymentMethods,
	}
	if cart.ShippingRates == nil {
		cart.ShippingRates = []ShippingPackage{}
	}
	if cart.PaymentMethods == nil {
		cart.PaymentMethods = []string{}
	}
	for _, item := range c.Items {
		image := ""
		if len(item.Images) > 0 {
			image = decodeURL(item.Images[0].Src)
		}
		cart.Items = append(cart.Items, CartItem{
			Key:          item.Key,
			ID:           item.ID,
			Name:         decodeURL(item.Name),
			Quantity:     item.Quantity,
			Type:         item.Type,
			SKU:          item.SKU,
			Permalink:    decodeURL(item.Permalink),
			Image:        image,
			Price:        item.Prices.Price,
			RegularPrice: item.Prices.RegularPrice,
			SalePrice:    item.Prices.SalePrice,
			LineTotal:    item.Totals.LineTotal,
		})
	}
	return cart
}

// CartMutationResult carries the upstream status of a cart mutation.
// The upstream answers 409 when the cart already holds the requested
// state, which callers treat the same as success.
type CartMutationResult struct {
	Status int   `json:"status"`
	Cart   *Cart `json:"data,omitempty"`
}

// Applied reports whether the mutation left the cart in the requested state
func (r *CartMutationResult) Applied() bool {
	return r.Status == 200 || r.Status == 201 || r.Status == 409
}

// UserProfile is the storefront projection of a customer record
type UserProfile struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
}

// Membership is the storefront projection of a membership plan record
type Membership struct {
	PlanName string `json:"plan_name"`
	Status   string `json:"status"`
	EndDate  string `json:"end_date"`
}

// MembershipQR is a short-lived QR pass for the membership
type MembershipQR struct {
	QRCode    string `json:"qr_code"`
	Timestamp int64  `json:"timestamp"`
	Lifetime  int64  `json:"lifetime"`
}

// OrderLineItem is one purchased line of an order
type OrderLineItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

// Order is the storefront projection of an upstream order
type Order struct {
	ID          int64           `json:"id"`
	Status      string          `json:"status"`
	CustomerID  int64           `json:"customer_id"`
	Currency    string          `json:"currency"`
	Total       string          `json:"total"`
	DateCreated string          `json:"date_created"`
	LineItems   []OrderLineItem `json:"line_items"`
}
