package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"Kirana/core"
	"Kirana/storage"
)

const (
	greetingText      = "Hello! I can help you with Prices, Stock, and Order Status. What would you like to do?"
	askPriceText      = "Sure! Which product's price are you looking for? (e.g., Milk, Atta)"
	askStockText      = "Sure! Which product's stock do you want to check?"
	notFoundText      = "Sorry, I couldn't find a product with that name. Please try again or type 'Menu' to go back."
	noOrdersText      = "You haven't placed any orders yet."
	ordersHeaderText  = "Here are your recent orders:"
	ordersFailedText  = "Sorry, I couldn't fetch your orders right now. Please try again later."
	orderIdSuffixSize = 6
)

const (
	optCheckPrice   = "Check Price"
	optCheckStock   = "Check Stock"
	optMyOrders     = "My Orders"
	optMainMenu     = "Main Menu"
	optAnotherPrice = "Check another price"
	optAnotherStock = "Check another stock"
)

func greeting() core.Reply {
	return core.Reply{Text: greetingText, Options: []string{optCheckPrice, optCheckStock, optMyOrders}}
}

func notFound() core.Reply {
	return core.Reply{Text: notFoundText, Options: []string{optMainMenu}}
}

func priceFound(p *storage.Product) core.Reply {
	return core.Reply{
		Text:    fmt.Sprintf("The price of %s is ₹%s.", p.Name, formatAmount(p.Price)),
		Options: []string{optAnotherPrice, optMainMenu},
	}
}

func stockFound(p *storage.Product) core.Reply {
	text := fmt.Sprintf("Sorry, %s is currently out of stock.", p.Name)
	if p.Stock > 0 {
		text = fmt.Sprintf("Yes, we have %d %s(s) in stock.", p.Stock, p.Name)
	}
	return core.Reply{Text: text, Options: []string{optAnotherStock, optMainMenu}}
}

func orderSummary(orders []storage.Order) core.Reply {
	if len(orders) == 0 {
		return core.Reply{Text: noOrdersText, Options: []string{optCheckPrice, optCheckStock}}
	}
	lines := make([]string, 0, len(orders)+1)
	lines = append(lines, ordersHeaderText)
	for _, o := range orders {
		lines = append(lines, fmt.Sprintf("• Order #%s: %s (₹%s)", shortId(o.Id), o.Status, formatAmount(o.TotalAmount)))
	}
	return core.Reply{
		Text:    strings.Join(lines, "\n"),
		Options: []string{optCheckPrice, optCheckStock, optMainMenu},
	}
}

func ordersFailed() core.Reply {
	return core.Reply{Text: ordersFailedText, Options: []string{optCheckPrice, optCheckStock, optMainMenu}}
}

// formatAmount prints the shortest decimal form: 28, 45.5
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortId(id string) string {
	if len(id) <= orderIdSuffixSize {
		return id
	}
	return id[len(id)-orderIdSuffixSize:]
}
