package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/domain"
)

// OrderAggregator collects an order and all of its line items from the order
// service.
type OrderAggregator struct {
	orders      OrderGateway
	pageSize    int
	maxPages    int
	concurrency int
}

func NewOrderAggregator(orders OrderGateway) *OrderAggregator {
	return &OrderAggregator{
		orders:      orders,
		pageSize:    config.LineItemPageSize,
		maxPages:    config.MaxLineItemPages,
		concurrency: config.LineItemFetchConcurrency,
	}
}

// Aggregate returns domain.ErrOrderNotFound when the order service does not
// know the order, and an error wrapping domain.ErrUpstreamUnavailable for any
// other upstream failure, including line items that cannot be invoiced.
// Nothing is retried.
func (a *OrderAggregator) Aggregate(ctx context.Context, orderID int64) (*domain.OrderSnapshot, error) {
	order, err := a.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamNotFound) {
			return nil, fmt.Errorf("%w: %d", domain.ErrOrderNotFound, orderID)
		}
		return nil, upstreamUnavailable("get order", err)
	}

	first, err := a.orders.ListLineItems(ctx, orderID, 1, a.pageSize)
	if err != nil {
		return nil, upstreamUnavailable("list line items", err)
	}

	if first.Pages < 0 || first.Pages > a.maxPages {
		return nil, upstreamUnavailable("list line items",
			fmt.Errorf("order service reported %d pages, limit is %d", first.Pages, a.maxPages))
	}

	pages := make([][]domain.OrderLine, max(first.Pages, 1))
	pages[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for p := 2; p <= first.Pages; p++ {
		g.Go(func() error {
			page, err := a.orders.ListLineItems(gctx, orderID, p, a.pageSize)
			if err != nil {
				return upstreamUnavailable(fmt.Sprintf("list line items page %d", p), err)
			}
			pages[p-1] = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := &domain.OrderSnapshot{Order: *order}
	for _, items := range pages {
		for _, l := range items {
			if err := l.Validate(); err != nil {
				return nil, upstreamUnavailable("list line items", err)
			}
		}
		snapshot.Lines = append(snapshot.Lines, items...)
	}
	return snapshot, nil
}

// upstreamUnavailable makes sure err reads as an outage. A missing line-item
// listing for an order that exists is an upstream fault, not a client one.
func upstreamUnavailable(op string, err error) error {
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
}
