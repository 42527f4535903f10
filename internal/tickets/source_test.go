package tickets

import (
	"context"
	"errors"
	"testing"

	"queueview/internal/backend"
	"queueview/internal/domain"
	"queueview/internal/mta"
)

type fakeBackend struct {
	tickets []mta.RawTicket
	err     error
}

func (f *fakeBackend) ListTickets(ctx context.Context) ([]mta.RawTicket, error) {
	return f.tickets, f.err
}

func TestFetchDefaultsMissingFields(t *testing.T) {
	src := Source{Backend: &fakeBackend{tickets: []mta.RawTicket{
		{"ticketId": "T-1", "status": "In Queue"},
		{"title": "broken record", "severity": 3}, // non-string severity is also defaulted
	}}}
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("one malformed record must not drop the batch, got %d tickets", len(got))
	}
	if got[0].Customer != domain.Placeholder || got[0].Title != domain.Placeholder {
		t.Fatalf("missing fields should default, got %+v", got[0])
	}
	if got[1].TicketID != domain.Placeholder || got[1].Severity != domain.Placeholder {
		t.Fatalf("malformed record should default fields, got %+v", got[1])
	}
	if got[1].Title != "broken record" {
		t.Fatalf("present fields must survive, got %+v", got[1])
	}
}

func TestFetchBackendUnavailableIsEmpty(t *testing.T) {
	src := Source{Backend: &fakeBackend{err: &backend.APIError{StatusCode: 503, Body: "down"}}}
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unavailable backend must degrade, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
}

func TestFetchAuthErrorPropagates(t *testing.T) {
	src := Source{Backend: &fakeBackend{err: &backend.AuthError{Op: "list tickets", Err: errors.New("401")}}}
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected auth error")
	}
}

func TestFilterByStatusExactMatch(t *testing.T) {
	ticket := domain.Ticket{TicketID: "T-1", Status: "In Queue"}
	if got := FilterByStatus([]domain.Ticket{ticket}, []string{"In Queue"}); len(got) != 1 || got[0] != ticket {
		t.Fatalf("expected ticket to survive its own status, got %+v", got)
	}
	if got := FilterByStatus([]domain.Ticket{ticket}, []string{"other"}); len(got) != 0 {
		t.Fatalf("expected no survivors, got %+v", got)
	}
	// case-sensitive on purpose
	if got := FilterByStatus([]domain.Ticket{ticket}, []string{"in queue"}); len(got) != 0 {
		t.Fatalf("matching must be case-sensitive, got %+v", got)
	}
}

func TestFilterByStatusPreservesOrder(t *testing.T) {
	list := []domain.Ticket{
		{TicketID: "T-1", Status: "In Queue"},
		{TicketID: "T-2", Status: "Closed"},
		{TicketID: "T-3", Status: "Analysis in Progress"},
		{TicketID: "T-4", Status: "In Queue"},
	}
	got := FilterByStatus(list, []string{"In Queue", "Analysis in Progress"})
	want := []string{"T-1", "T-3", "T-4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d survivors, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].TicketID != id {
			t.Fatalf("order not preserved: got[%d]=%s want %s", i, got[i].TicketID, id)
		}
	}
}
