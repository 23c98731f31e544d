package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/woo"
)

const detailsSeparator = "============================================================"
const detailsRule = "------------------------------------------------------------"

// DetailsGenerator writes the plain-text order summary packers read from.
// Like the invoice, a failure here is a hard failure for the order.
type DetailsGenerator struct {
	log *zap.SugaredLogger
}

// NewDetailsGenerator builds a details generator.
func NewDetailsGenerator(log *zap.SugaredLogger) *DetailsGenerator {
	if log == nil {
		log = logger.Logger
	}
	return &DetailsGenerator{log: log}
}

// Generate writes Order_Details_{order_number}.txt into folder.
func (g *DetailsGenerator) Generate(order woo.Order, folder string) Result {
	path := filepath.Join(folder, fmt.Sprintf("Order_Details_%s.txt", order.Number))

	if err := os.WriteFile(path, []byte(renderDetails(order)), 0644); err != nil {
		return failed(ArtifactDetails, errors.Wrapf(err, "writing order details %s", path))
	}

	g.log.Infow("Generated order details",
		logger.FieldOrderNumber, order.Number,
		logger.FieldPath, path)
	return generated(ArtifactDetails, path)
}

func renderDetails(order woo.Order) string {
	var b strings.Builder

	fmt.Fprintln(&b, detailsSeparator)
	fmt.Fprintf(&b, "ORDER DETAILS - #%s\n", order.Number)
	fmt.Fprintln(&b, detailsSeparator)
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Order ID:       %d\n", order.ID)
	fmt.Fprintf(&b, "Status:         %s\n", order.Status)
	if !order.DateCreated.IsZero() {
		fmt.Fprintf(&b, "Date:           %s\n", order.DateCreated.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "Payment Method: %s\n", order.PaymentMethodTitle)
	if order.TransactionID != "" {
		fmt.Fprintf(&b, "Transaction ID: %s\n", order.TransactionID)
	}
	fmt.Fprintf(&b, "Total:          %s %s\n", order.Total.StringFixed(2), order.Currency)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, detailsRule)
	fmt.Fprintln(&b, "CUSTOMER")
	fmt.Fprintln(&b, detailsRule)
	writeAddress(&b, order.Billing)
	if order.Billing.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", order.Billing.Email)
	}
	if order.Billing.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", order.Billing.Phone)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, detailsRule)
	fmt.Fprintln(&b, "SHIPPING ADDRESS")
	fmt.Fprintln(&b, detailsRule)
	writeAddress(&b, order.Shipping)
	fmt.Fprintln(&b)

	if len(order.ShippingLines) > 0 {
		fmt.Fprintln(&b, detailsRule)
		fmt.Fprintln(&b, "SHIPPING")
		fmt.Fprintln(&b, detailsRule)
		for _, line := range order.ShippingLines {
			fmt.Fprintf(&b, "Method: %s\n", line.MethodTitle)
			fmt.Fprintf(&b, "Cost:   %s\n", line.Total.StringFixed(2))
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, detailsRule)
	fmt.Fprintln(&b, "ITEMS")
	fmt.Fprintln(&b, detailsRule)
	for _, item := range order.LineItems {
		fmt.Fprintf(&b, "%dx %s", item.Quantity, item.Name)
		if item.SKU != "" {
			fmt.Fprintf(&b, " [%s]", item.SKU)
		}
		fmt.Fprintf(&b, " - %s\n", item.Total.StringFixed(2))
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Shipping: %s\n", order.ShippingTotal.StringFixed(2))
	fmt.Fprintf(&b, "Tax:      %s\n", order.TotalTax.StringFixed(2))
	if order.DiscountTotal.IsPositive() {
		fmt.Fprintf(&b, "Discount: -%s\n", order.DiscountTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "TOTAL:    %s %s\n", order.Total.StringFixed(2), order.Currency)

	if order.CustomerNote != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, detailsRule)
		fmt.Fprintln(&b, "CUSTOMER NOTE")
		fmt.Fprintln(&b, detailsRule)
		fmt.Fprintln(&b, order.CustomerNote)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, detailsSeparator)

	return b.String()
}

func writeAddress(b *strings.Builder, a woo.Address) {
	if name := a.FullName(); name != "" {
		fmt.Fprintln(b, name)
	}
	if a.Company != "" {
		fmt.Fprintln(b, a.Company)
	}
	if a.Address1 != "" {
		fmt.Fprintln(b, a.Address1)
	}
	if a.Address2 != "" {
		fmt.Fprintln(b, a.Address2)
	}
	if a.Postcode != "" || a.City != "" {
		fmt.Fprintf(b, "%s %s\n", a.Postcode, a.City)
	}
	if a.Country != "" {
		fmt.Fprintln(b, a.Country)
	}
}
