package receipts

import (
	"fmt"
	"html"
	"strings"

	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/internal/vat"
)

// Fixed document geometry in logical SVG units. The total height grows
// linearly with the number of line items.
const (
	DocWidth = 800

	headerHeight      = 120
	orderInfoHeight   = 90
	customerHeight    = 110
	tableHeaderHeight = 40
	RowHeight         = 34
	summaryHeight     = 140
	footerHeight      = 60
)

const (
	storeName        = "ZAINA"
	fallbackCustomer = "Guest User"
	fallbackText     = "N/A"
	fallbackColor    = "-"
)

// Height returns the document height for the given item count.
func Height(itemCount int) int {
	return headerHeight + orderInfoHeight + customerHeight + tableHeaderHeight +
		itemCount*RowHeight + summaryHeight + footerHeight
}

// Render produces the itemized tax invoice as an SVG string. It is a pure
// function of the order data: no I/O, and every user-supplied value is
// escaped before interpolation.
func Render(order *orders.Order, orderID string) string {
	if order == nil {
		order = &orders.Order{}
	}

	height := Height(len(order.Items))
	subtotal, vatAmount, total := displayAmounts(order)

	var b strings.Builder
	b.Grow(4096 + len(order.Items)*256)

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="Helvetica, Arial, sans-serif">`,
		DocWidth, height, DocWidth, height)
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>`)

	y := renderHeader(&b)
	y = renderOrderInfo(&b, order, orderID, y)
	y = renderCustomer(&b, order, y)
	y = renderItemTable(&b, order.Items, y)
	y = renderSummary(&b, subtotal, vatAmount, total, y)
	renderFooter(&b, y)

	b.WriteString(`</svg>`)
	return b.String()
}

// displayAmounts prefers the amounts fixed at order creation. Orders written
// by older flows may lack them, so the subtotal is recomputed from line
// items and VAT derived from the fixed rate as a fallback.
func displayAmounts(order *orders.Order) (subtotal, vatAmount, total int64) {
	subtotal = order.SubtotalAmount
	vatAmount = order.VATAmount

	if subtotal == 0 {
		for _, item := range order.Items {
			subtotal += item.UnitPrice * item.Quantity
		}
	}
	if vatAmount == 0 && subtotal > 0 {
		vatAmount = vat.Compute(subtotal).VATAmount
	}

	total = order.TotalAmount
	if total == 0 {
		total = subtotal + vatAmount
	}
	return subtotal, vatAmount, total
}

func renderHeader(b *strings.Builder) int {
	fmt.Fprintf(b, `<rect x="0" y="0" width="%d" height="%d" fill="#1a1a2e"/>`, DocWidth, headerHeight)
	fmt.Fprintf(b, `<text x="40" y="55" font-size="30" font-weight="bold" fill="#ffffff">%s</text>`, storeName)
	fmt.Fprintf(b, `<text x="40" y="85" font-size="14" fill="#c9c9d9">TAX INVOICE</text>`)
	fmt.Fprintf(b, `<text x="%d" y="85" font-size="12" fill="#c9c9d9" text-anchor="end">TRN: %s</text>`,
		DocWidth-40, escape(vat.RegistrationNumber))
	return headerHeight
}

func renderOrderInfo(b *strings.Builder, order *orders.Order, orderID string, y int) int {
	date := fallbackText
	if !order.CreatedAt.IsZero() {
		date = order.CreatedAt.Format("02 Jan 2006")
	}
	method := order.Metadata["paymentMethod"]
	if method == "" {
		method = fallbackText
	}

	fmt.Fprintf(b, `<text x="40" y="%d" font-size="14" font-weight="bold" fill="#1a1a2e">Order %s</text>`,
		y+35, escape(orderID))
	fmt.Fprintf(b, `<text x="40" y="%d" font-size="12" fill="#555555">Date: %s</text>`, y+58, escape(date))
	fmt.Fprintf(b, `<text x="40" y="%d" font-size="12" fill="#555555">Payment method: %s</text>`,
		y+78, escape(method))
	return y + orderInfoHeight
}

func renderCustomer(b *strings.Builder, order *orders.Order, y int) int {
	name := order.CustomerName()
	if name == "" {
		name = fallbackCustomer
	}
	email := order.CustomerEmail()
	if email == "" {
		email = fallbackText
	}

	fmt.Fprintf(b, `<text x="40" y="%d" font-size="12" font-weight="bold" fill="#1a1a2e">BILLED TO</text>`, y+25)
	fmt.Fprintf(b, `<text x="40" y="%d" font-size="12" fill="#333333">%s</text>`, y+45, escape(name))
	fmt.Fprintf(b, `<text x="40" y="%d" font-size="12" fill="#555555">%s</text>`, y+63, escape(email))
	fmt.Fprintf(b, `<text x="40" y="%d" font-size="12" fill="#555555">%s</text>`,
		y+81, escape(shippingLine(order.Shipping)))
	return y + customerHeight
}

func shippingLine(addr *orders.ShippingAddress) string {
	if addr == nil {
		return fallbackText
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Line1, addr.Line2, addr.City, addr.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return fallbackText
	}
	return strings.Join(parts, ", ")
}

func renderItemTable(b *strings.Builder, items []orders.LineItem, y int) int {
	fmt.Fprintf(b, `<rect x="40" y="%d" width="%d" height="%d" fill="#f0f0f5"/>`, y, DocWidth-80, tableHeaderHeight)
	headerBaseline := y + 26
	fmt.Fprintf(b, `<text x="52" y="%d" font-size="11" font-weight="bold" fill="#1a1a2e">ITEM</text>`, headerBaseline)
	fmt.Fprintf(b, `<text x="380" y="%d" font-size="11" font-weight="bold" fill="#1a1a2e">SIZE</text>`, headerBaseline)
	fmt.Fprintf(b, `<text x="450" y="%d" font-size="11" font-weight="bold" fill="#1a1a2e">COLOR</text>`, headerBaseline)
	fmt.Fprintf(b, `<text x="560" y="%d" font-size="11" font-weight="bold" fill="#1a1a2e">QTY</text>`, headerBaseline)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" font-weight="bold" fill="#1a1a2e" text-anchor="end">AMOUNT</text>`,
		DocWidth-52, headerBaseline)
	y += tableHeaderHeight

	for _, item := range items {
		baseline := y + 23
		size := item.Size
		if size == "" {
			size = fallbackColor
		}
		color := item.DisplayColor
		if color == "" {
			color = item.Color
		}
		if color == "" {
			color = fallbackColor
		}
		amount := item.UnitPrice * item.Quantity

		fmt.Fprintf(b, `<text x="52" y="%d" font-size="12" fill="#333333">%s</text>`, baseline, escape(item.Name))
		fmt.Fprintf(b, `<text x="380" y="%d" font-size="12" fill="#555555">%s</text>`, baseline, escape(size))
		fmt.Fprintf(b, `<text x="450" y="%d" font-size="12" fill="#555555">%s</text>`, baseline, escape(color))
		fmt.Fprintf(b, `<text x="560" y="%d" font-size="12" fill="#555555">%d</text>`, baseline, item.Quantity)
		fmt.Fprintf(b, `<text x="%d" y="%d" font-size="12" fill="#333333" text-anchor="end">%s</text>`,
			DocWidth-52, baseline, vat.FormatMinor(amount))
		fmt.Fprintf(b, `<line x1="40" y1="%d" x2="%d" y2="%d" stroke="#e5e5ee" stroke-width="1"/>`,
			y+RowHeight, DocWidth-40, y+RowHeight)
		y += RowHeight
	}
	return y
}

func renderSummary(b *strings.Builder, subtotal, vatAmount, total int64, y int) int {
	labelX := DocWidth - 260
	valueX := DocWidth - 52

	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="12" fill="#555555">Subtotal</text>`, labelX, y+35)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="12" fill="#333333" text-anchor="end">%s</text>`,
		valueX, y+35, vat.FormatMinorWithCurrency(subtotal))
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="12" fill="#555555">VAT (%s)</text>`, labelX, y+60, vat.RateLabel)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="12" fill="#333333" text-anchor="end">%s</text>`,
		valueX, y+60, vat.FormatMinorWithCurrency(vatAmount))
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#1a1a2e" stroke-width="1"/>`,
		labelX, y+78, valueX, y+78)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="14" font-weight="bold" fill="#1a1a2e">Total</text>`, labelX, y+102)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="14" font-weight="bold" fill="#1a1a2e" text-anchor="end">%s</text>`,
		valueX, y+102, vat.FormatMinorWithCurrency(total))
	return y + summaryHeight
}

func renderFooter(b *strings.Builder, y int) {
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" fill="#888888" text-anchor="middle">Thank you for shopping with %s. This is a computer-generated tax invoice.</text>`,
		DocWidth/2, y+30, storeName)
}

// escape neutralizes the five markup-special characters in user-supplied
// text before it is interpolated into the document.
func escape(s string) string {
	return html.EscapeString(s)
}
