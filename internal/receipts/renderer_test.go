package receipts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omaraldhaheri/zaina-backend/internal/orders"
)

func sampleOrder(items int) *orders.Order {
	order := &orders.Order{
		UserID:         "user-1",
		Currency:       "aed",
		SubtotalAmount: 10000,
		VATAmount:      500,
		TotalAmount:    10500,
		VATPercentage:  "5%",
		Metadata: map[string]string{
			"customerName":  "Mariam Said",
			"customerEmail": "mariam@example.com",
			"paymentMethod": "card",
		},
		Shipping: &orders.ShippingAddress{
			Name:    "Mariam Said",
			Line1:   "Villa 12, Al Wasl Rd",
			City:    "Dubai",
			Country: "AE",
		},
		CreatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	for i := 0; i < items; i++ {
		order.Items = append(order.Items, orders.LineItem{
			ProductID:    fmt.Sprintf("prod-%d", i),
			Name:         fmt.Sprintf("Linen Abaya %d", i),
			UnitPrice:    5000,
			Quantity:     2,
			Size:         "M",
			Color:        "black",
			DisplayColor: "Midnight Black",
		})
	}
	return order
}

func docHeight(t *testing.T, svg string) int {
	t.Helper()
	m := regexp.MustCompile(`height="(\d+)"`).FindStringSubmatch(svg)
	require.NotNil(t, m, "document must carry an explicit height")
	h, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	return h
}

func TestRenderEscapesUserSuppliedText(t *testing.T) {
	order := sampleOrder(1)
	order.Metadata["customerName"] = `<script>alert("x")</script>`
	order.Items[0].Name = `Abaya "Classic" & <b>Bold</b>`

	svg := Render(order, `ord-<script>`)

	require.NotContains(t, svg, "<script>")
	require.Contains(t, svg, "&lt;script&gt;")
	require.Contains(t, svg, "&amp;")
	require.Contains(t, svg, "&#34;Classic&#34;")
}

func TestRenderHeightScalesWithItemCount(t *testing.T) {
	empty := Render(sampleOrder(0), "ord-1")
	ten := Render(sampleOrder(10), "ord-2")

	h0 := docHeight(t, empty)
	h10 := docHeight(t, ten)

	require.Less(t, h0, h10)
	require.Equal(t, 10*RowHeight, h10-h0)
	require.Equal(t, Height(0), h0)
	require.Equal(t, Height(10), h10)
}

func TestRenderFormatsAmountsWithTwoDecimals(t *testing.T) {
	svg := Render(sampleOrder(2), "ord-3")

	require.Contains(t, svg, "100.00 AED")
	require.Contains(t, svg, "5.00 AED")
	require.Contains(t, svg, "105.00 AED")
}

func TestRenderSurvivesMissingData(t *testing.T) {
	svg := Render(&orders.Order{}, "ord-4")

	require.Contains(t, svg, "Guest User")
	require.Contains(t, svg, "N/A")
	require.True(t, strings.HasPrefix(svg, "<svg "))
	require.True(t, strings.HasSuffix(svg, "</svg>"))

	require.NotPanics(t, func() { Render(nil, "") })
}

func TestRenderFallsBackToItemDerivedAmounts(t *testing.T) {
	order := sampleOrder(2)
	order.SubtotalAmount = 0
	order.VATAmount = 0
	order.TotalAmount = 0

	svg := Render(order, "ord-5")

	// 2 items x (5000 * 2) = 20000 fils subtotal, 5% VAT = 1000 fils.
	require.Contains(t, svg, "200.00 AED")
	require.Contains(t, svg, "10.00 AED")
	require.Contains(t, svg, "210.00 AED")
}

func TestRenderUsesItemColorFallbackChain(t *testing.T) {
	order := sampleOrder(1)
	order.Items[0].DisplayColor = ""
	svg := Render(order, "ord-6")
	require.Contains(t, svg, ">black<")

	order.Items[0].Color = ""
	svg = Render(order, "ord-7")
	require.Contains(t, svg, ">-<")
}
