// Package engine correlates ticket ownership with live agent presence.
package engine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"queueview/internal/domain"
	"queueview/internal/names"
	"queueview/internal/presence"
	"queueview/internal/tickets"
)

type Engine struct {
	Presence *presence.Source
	Tickets  *tickets.Source
	Log      *zap.Logger
}

func New(p *presence.Source, t *tickets.Source, log *zap.Logger) Engine {
	return Engine{Presence: p, Tickets: t, Log: log}
}

// BuildReport is the sole entry point for report construction: it fetches the
// presence map and the ticket list, filters tickets by status, and emits one
// row per surviving ticket in fetch order with the owner's presence attached.
//
// The two backends are independent, so both fetches run concurrently; the
// merge below stays deterministic. An empty presence map is not fatal (every
// row resolves to UNKNOWN) and an empty ticket list yields an empty report.
// Only authentication failures abort the whole report.
func (e Engine) BuildReport(ctx context.Context, queueName string, allowedStatuses []string) ([]domain.CorrelatedRow, error) {
	var (
		states map[string]domain.PresenceState
		list   []domain.Ticket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		states, err = e.Presence.StatesByName(gctx, queueName)
		return err
	})
	g.Go(func() error {
		var err error
		list, err = e.Tickets.Fetch(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(states) == 0 {
		e.log().Warn("no presence data; all rows will resolve to UNKNOWN", zap.String("queue", queueName))
	}

	filtered := tickets.FilterByStatus(list, allowedStatuses)
	rows := make([]domain.CorrelatedRow, 0, len(filtered))
	for _, t := range filtered {
		key := names.Normalize(t.OwnerFullName)
		state, ok := states[key]
		if !ok {
			state = domain.PresenceUnknown
		}
		rows = append(rows, domain.CorrelatedRow{
			Ticket:              t,
			OwnerNormalizedName: key,
			OwnerPresence:       state,
		})
	}
	e.log().Info("report built",
		zap.String("queue", queueName),
		zap.Int("tickets", len(list)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

func (e Engine) log() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}
