package woo

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Timestamp handles WooCommerce's timezone-less timestamps. The REST API
// reports date_created in the store's local time as "2006-01-02T15:04:05",
// with no offset suffix.
type Timestamp struct {
	time.Time
}

const wooTimeLayout = "2006-01-02T15:04:05"

// UnmarshalJSON parses either the bare WooCommerce layout or RFC3339.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(wooTimeLayout, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes the WooCommerce layout.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(t.Format(wooTimeLayout))
}

// Address is a WooCommerce billing or shipping block.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// FullName joins first and last name, trimming stray whitespace.
func (a Address) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// LineItem is a purchased product line on an order.
type LineItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
}

// ShippingLine is one shipping method charged on an order. method_id is the
// stable plugin identifier ("flat_rate", "bpost_bpack"); method_title is the
// storefront display name.
type ShippingLine struct {
	ID          int64           `json:"id"`
	MethodID    string          `json:"method_id"`
	MethodTitle string          `json:"method_title"`
	Total       decimal.Decimal `json:"total"`
}

// MetaData is an order meta entry. Values are free-form JSON because store
// plugins write whatever they like here.
type MetaData struct {
	ID    int64       `json:"id"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// StringValue returns the value if it is a plain string, else "".
func (m MetaData) StringValue() string {
	s, _ := m.Value.(string)
	return s
}

// Order is a WooCommerce order as returned by the v3 REST API.
// Monetary fields arrive as JSON strings and are held as decimals; float
// arithmetic on money drifts.
type Order struct {
	ID                 int64           `json:"id"`
	Number             string          `json:"number"`
	Status             string          `json:"status"`
	Currency           string          `json:"currency"`
	DateCreated        Timestamp       `json:"date_created"`
	DateModified       Timestamp       `json:"date_modified"`
	Total              decimal.Decimal `json:"total"`
	TotalTax           decimal.Decimal `json:"total_tax"`
	ShippingTotal      decimal.Decimal `json:"shipping_total"`
	DiscountTotal      decimal.Decimal `json:"discount_total"`
	PaymentMethod      string          `json:"payment_method"`
	PaymentMethodTitle string          `json:"payment_method_title"`
	TransactionID      string          `json:"transaction_id"`
	CustomerNote       string          `json:"customer_note"`
	Billing            Address         `json:"billing"`
	Shipping           Address         `json:"shipping"`
	LineItems          []LineItem      `json:"line_items"`
	ShippingLines      []ShippingLine  `json:"shipping_lines"`
	MetaData           []MetaData      `json:"meta_data"`
}

// CustomerName returns the best available customer name: shipping name,
// falling back to billing, falling back to the billing company.
func (o Order) CustomerName() string {
	if name := o.Shipping.FullName(); name != "" {
		return name
	}
	if name := o.Billing.FullName(); name != "" {
		return name
	}
	return strings.TrimSpace(o.Billing.Company)
}

// ItemsSubtotal sums unit price times quantity across line items, before
// shipping, tax and discounts.
func (o Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.LineItems {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// ComputedTotal recomputes the order total from unit prices: the items
// subtotal plus shipping and tax, minus discounts. Stores with custom fee
// plugins can make this differ from the reported Total.
func (o Order) ComputedTotal() decimal.Decimal {
	return o.ItemsSubtotal().Add(o.ShippingTotal).Add(o.TotalTax).Sub(o.DiscountTotal)
}

// labelMetaKeys are the meta keys bpost-style shipping plugins are known to
// write the label download URL under, in lookup order.
var labelMetaKeys = []string{
	"_bpost_label_url",
	"_bpost_shipping_label",
	"bpost_label",
	"_shipping_label_url",
	"_bpost_label_pdf",
	"Bpost_trackingurl",
}

// LabelURL scans order metadata for a shipping label URL. Returns the first
// match and true, or "" and false when no label key is present.
func (o Order) LabelURL() (string, bool) {
	for _, key := range labelMetaKeys {
		for _, meta := range o.MetaData {
			if meta.Key != key {
				continue
			}
			if v := strings.TrimSpace(meta.StringValue()); v != "" {
				return v, true
			}
		}
	}
	return "", false
}
