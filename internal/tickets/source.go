// Package tickets fetches and filters ticket records from the MTA backend.
package tickets

import (
	"context"

	"go.uber.org/zap"

	"queueview/internal/backend"
	"queueview/internal/domain"
	"queueview/internal/mta"
)

// Backend is the slice of the ticketing API the source needs.
type Backend interface {
	ListTickets(ctx context.Context) ([]mta.RawTicket, error)
}

type Source struct {
	Backend Backend
	Log     *zap.Logger
}

// Fetch returns the backend's full ticket list in fetch order. Missing fields
// on a record default to the placeholder instead of failing the batch. An
// unavailable backend degrades to an empty list; authentication failures
// propagate as errors.
func (s *Source) Fetch(ctx context.Context) ([]domain.Ticket, error) {
	raw, err := s.Backend.ListTickets(ctx)
	if err != nil {
		if backend.IsAuth(err) {
			return nil, err
		}
		s.log().Warn("ticket fetch failed", zap.Error(err))
		return nil, nil
	}
	out := make([]domain.Ticket, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Ticket{
			TicketID:      r.String("ticketId", domain.Placeholder),
			Customer:      r.String("customer", domain.Placeholder),
			Title:         r.String("title", domain.Placeholder),
			OwnerFullName: r.String("ownerFullName", domain.Placeholder),
			Status:        r.String("status", domain.Placeholder),
			Severity:      r.String("severity", domain.Placeholder),
		})
	}
	s.log().Info("tickets fetched", zap.Int("count", len(out)))
	return out, nil
}

// FilterByStatus keeps tickets whose status matches one of allowed exactly,
// preserving the input order. Matching is case-sensitive.
func FilterByStatus(list []domain.Ticket, allowed []string) []domain.Ticket {
	want := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		want[s] = struct{}{}
	}
	var out []domain.Ticket
	for _, t := range list {
		if _, ok := want[t.Status]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *Source) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
