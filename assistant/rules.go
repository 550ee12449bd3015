package assistant

import (
	"context"
	"log/slog"
	"strings"

	"Kirana/core"
	"Kirana/lib/sl"
	"Kirana/storage"
)

const recentOrdersLimit = 3

var resetKeywords = map[string]struct{}{
	"cancel":    {},
	"menu":      {},
	"main menu": {},
	"hi":        {},
	"hello":     {},
}

// idleRule fires when the normalized text contains keyword; the first
// matching rule in idleRules wins.
type idleRule struct {
	keyword string
	next    storage.State
	reply   func(a *Assistant, ctx context.Context, userId string) core.Reply
}

var idleRules = []idleRule{
	{keyword: "price", next: storage.StateSearchPrice, reply: func(*Assistant, context.Context, string) core.Reply {
		return core.Reply{Text: askPriceText}
	}},
	{keyword: "stock", next: storage.StateSearchStock, reply: func(*Assistant, context.Context, string) core.Reply {
		return core.Reply{Text: askStockText}
	}},
	{keyword: "order", next: storage.StateIdle, reply: (*Assistant).recentOrders},
}

type stateHandler func(a *Assistant, ctx context.Context, userId, text string) (core.Reply, storage.State)

var stateHandlers = map[storage.State]stateHandler{
	storage.StateIdle:        (*Assistant).idle,
	storage.StateSearchPrice: (*Assistant).searchPrice,
	storage.StateSearchStock: (*Assistant).searchStock,
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func isResetKeyword(text string) bool {
	_, ok := resetKeywords[text]
	return ok
}

// respond applies one transition to session for the normalized text and
// returns the bot reply.
func (a *Assistant) respond(ctx context.Context, session *storage.DialogSession, text string) core.Reply {
	if isResetKeyword(text) {
		session.State = storage.StateIdle
		session.Metadata = map[string]any{}
	}
	handler, ok := stateHandlers[session.State]
	if !ok {
		handler = (*Assistant).idle
	}
	reply, next := handler(a, ctx, session.UserId, text)
	session.State = next
	return reply
}

func (a *Assistant) idle(ctx context.Context, userId, text string) (core.Reply, storage.State) {
	for _, rule := range idleRules {
		if strings.Contains(text, rule.keyword) {
			return rule.reply(a, ctx, userId), rule.next
		}
	}
	return greeting(), storage.StateIdle
}

func (a *Assistant) searchPrice(ctx context.Context, userId, text string) (core.Reply, storage.State) {
	product := a.lookup(ctx, userId, text)
	if product == nil {
		return notFound(), storage.StateSearchPrice
	}
	return priceFound(product), storage.StateIdle
}

func (a *Assistant) searchStock(ctx context.Context, userId, text string) (core.Reply, storage.State) {
	product := a.lookup(ctx, userId, text)
	if product == nil {
		return notFound(), storage.StateSearchStock
	}
	return stockFound(product), storage.StateIdle
}

// lookup treats a failing catalog as no match.
func (a *Assistant) lookup(ctx context.Context, userId, fragment string) *storage.Product {
	product, err := a.catalog.FindByNameFragment(ctx, fragment)
	if err != nil {
		a.log.With(sl.User(userId), slog.String("fragment", fragment)).Warn("catalog lookup", sl.Err(err))
		a.observer.CollaboratorFailed("catalog")
		return nil
	}
	return product
}

func (a *Assistant) recentOrders(ctx context.Context, userId string) core.Reply {
	orders, err := a.orders.RecentOrders(ctx, userId, recentOrdersLimit)
	if err != nil {
		a.log.With(sl.User(userId)).Warn("order history", sl.Err(err))
		a.observer.CollaboratorFailed("orders")
		return ordersFailed()
	}
	return orderSummary(orders)
}
