// Package presence builds the normalized-name presence map that the
// correlation engine joins tickets against.
package presence

import (
	"context"

	"go.uber.org/zap"

	"queueview/internal/backend"
	"queueview/internal/domain"
	"queueview/internal/genesys"
	"queueview/internal/names"
)

// Backend is the slice of the presence cloud API the source needs.
type Backend interface {
	FindQueueID(ctx context.Context, name string) (string, bool, error)
	ListQueueMembers(ctx context.Context, queueID string) ([]genesys.Member, error)
	BulkGetPresence(ctx context.Context, ids []string) ([]genesys.PresenceRecord, error)
}

type Source struct {
	Backend Backend
	Log     *zap.Logger
}

// Agents resolves a queue, fetches its member roster, and bulk-fetches each
// member's current presence. Results follow the bulk response order.
//
// A missing queue, an empty roster, or an unavailable backend all degrade to
// an empty result so a partial report stays possible; only authentication
// failures propagate as errors.
func (s *Source) Agents(ctx context.Context, queueName string) ([]domain.AgentPresence, error) {
	log := s.log()

	queueID, found, err := s.Backend.FindQueueID(ctx, queueName)
	if err != nil {
		if backend.IsAuth(err) {
			return nil, err
		}
		log.Warn("queue lookup failed", zap.String("queue", queueName), zap.Error(err))
		return nil, nil
	}
	if !found {
		log.Info("queue not found", zap.String("queue", queueName))
		return nil, nil
	}

	members, err := s.Backend.ListQueueMembers(ctx, queueID)
	if err != nil {
		if backend.IsAuth(err) {
			return nil, err
		}
		log.Warn("roster fetch failed", zap.String("queue_id", queueID), zap.Error(err))
		return nil, nil
	}
	if len(members) == 0 {
		log.Info("queue has no members", zap.String("queue_id", queueID))
		return nil, nil
	}

	roster := make(map[string]string, len(members))
	ids := make([]string, 0, len(members))
	for _, m := range members {
		roster[m.ID] = m.Name
		ids = append(ids, m.ID)
	}

	records, err := s.Backend.BulkGetPresence(ctx, ids)
	if err != nil {
		if backend.IsAuth(err) {
			return nil, err
		}
		log.Warn("bulk presence fetch failed", zap.Int("members", len(ids)), zap.Error(err))
		return nil, nil
	}

	agents := make([]domain.AgentPresence, 0, len(records))
	for _, rec := range records {
		displayName, ok := roster[rec.ID]
		if !ok {
			continue
		}
		agents = append(agents, domain.AgentPresence{
			ID:             rec.ID,
			DisplayName:    displayName,
			NormalizedName: names.Normalize(displayName),
			State:          domain.StateFromSystem(rec.SystemPresence()),
		})
	}
	log.Info("presence fetched", zap.String("queue", queueName), zap.Int("agents", len(agents)))
	return agents, nil
}

// StatesByName returns the queue's presence keyed by normalized display name.
// When two roster members normalize to the same key the later record wins.
func (s *Source) StatesByName(ctx context.Context, queueName string) (map[string]domain.PresenceState, error) {
	agents, err := s.Agents(ctx, queueName)
	if err != nil {
		return nil, err
	}
	states := make(map[string]domain.PresenceState, len(agents))
	for _, a := range agents {
		states[a.NormalizedName] = a.State
	}
	return states, nil
}

func (s *Source) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
