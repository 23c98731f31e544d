package woo

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/floriandheer/ordermon/config"
)

// Filters decide which fetched orders get processed. The status filter is
// also applied server-side in the fetch query; re-checking here keeps the
// decision correct when a store ignores the query parameter.
type Filters struct {
	statuses        map[string]struct{}
	shippingMethods []string
	paymentMethods  []string
	minTotal        *decimal.Decimal
}

// NewFilters compiles filter configuration. An invalid min_total was already
// rejected by config validation, so it is ignored here.
func NewFilters(cfg config.FiltersConfig) *Filters {
	f := &Filters{
		shippingMethods: lowerAll(cfg.ShippingMethods),
		paymentMethods:  lowerAll(cfg.PaymentMethods),
	}

	if len(cfg.Statuses) > 0 {
		f.statuses = make(map[string]struct{}, len(cfg.Statuses))
		for _, s := range cfg.Statuses {
			f.statuses[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
		}
	}

	if cfg.MinTotal != "" {
		if min, err := decimal.NewFromString(cfg.MinTotal); err == nil {
			f.minTotal = &min
		}
	}

	return f
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// containsAny reports whether value contains any needle, case-insensitively.
// Needles are already lowercased.
func containsAny(value string, needles []string) bool {
	value = strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(value, n) {
			return true
		}
	}
	return false
}

// matchesShipping checks the method ids of the order's shipping lines.
// An order without shipping lines (digital goods, pickup) passes; the
// filter narrows shipped orders, it does not require shipping.
func (f *Filters) matchesShipping(o Order) bool {
	if len(f.shippingMethods) == 0 || len(o.ShippingLines) == 0 {
		return true
	}
	for _, line := range o.ShippingLines {
		if containsAny(line.MethodID, f.shippingMethods) || containsAny(line.MethodTitle, f.shippingMethods) {
			return true
		}
	}
	return false
}

// Matches reports whether the order passes every configured filter.
// Orders that fail a filter are ignored for the cycle, not recorded as
// processed; a later config change can still pick them up.
func (f *Filters) Matches(o Order) bool {
	if f.statuses != nil {
		if _, ok := f.statuses[strings.ToLower(o.Status)]; !ok {
			return false
		}
	}

	if !f.matchesShipping(o) {
		return false
	}

	if len(f.paymentMethods) > 0 && !containsAny(o.PaymentMethod, f.paymentMethods) {
		return false
	}

	if f.minTotal != nil && o.Total.LessThan(*f.minTotal) {
		return false
	}

	return true
}

// Reason explains why an order was rejected, for cycle logging.
// Returns "" when the order matches.
func (f *Filters) Reason(o Order) string {
	if f.statuses != nil {
		if _, ok := f.statuses[strings.ToLower(o.Status)]; !ok {
			return "status " + o.Status + " not in configured statuses"
		}
	}
	if !f.matchesShipping(o) {
		return "shipping method " + o.ShippingLines[0].MethodID + " not in configured methods"
	}
	if len(f.paymentMethods) > 0 && !containsAny(o.PaymentMethod, f.paymentMethods) {
		return "payment method " + o.PaymentMethod + " not in configured methods"
	}
	if f.minTotal != nil && o.Total.LessThan(*f.minTotal) {
		return "total " + o.Total.String() + " below minimum " + f.minTotal.String()
	}
	return ""
}
