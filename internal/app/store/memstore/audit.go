package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit mirrors audit.Store.
type Audit struct{ db *DB }

func (s *Audit) Log(_ context.Context, event audit.Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.db.mu.Lock()
	s.db.events = append(s.db.events, event)
	s.db.mu.Unlock()
	return nil
}

func matches(e audit.Event, f audit.QueryFilter) bool {
	switch {
	case f.TenantID != "" && e.TenantID != f.TenantID:
	case f.FileID != nil && (e.FileID == nil || *e.FileID != *f.FileID):
	case f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID):
	case f.Category != "" && e.Category != f.Category:
	case f.EventType != "" && e.EventType != f.EventType:
	case f.StartTime != nil && e.Timestamp.Before(*f.StartTime):
	case f.EndTime != nil && e.Timestamp.After(*f.EndTime):
	default:
		return true
	}
	return false
}

// Query returns matching events newest first.
func (s *Audit) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	s.db.mu.Lock()
	var out []audit.Event
	for _, e := range s.db.events {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	s.db.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if filter.Offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Audit) CountByFilter(_ context.Context, filter audit.QueryFilter) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, e := range s.db.events {
		if matches(e, filter) {
			n++
		}
	}
	return n, nil
}
