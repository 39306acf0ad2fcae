// Package cache is the read-through mirror of the document store: one
// entry per collection with a TTL, in-flight request coalescing so a
// collection is fetched at most once under concurrent readers, and
// optimistic local patching after successful writes. Reads degrade to the
// last good value when the store is unreachable; write errors are
// surfaced to the caller and leave the mirror untouched.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fieldserve/backend/internal/store"
)

const DefaultTTL = 10 * time.Minute

const (
	colCustomers   = "customers"
	colTickets     = "tickets"
	colTechnicians = "technicians"
	colPayments    = "payments"
	colServices    = "services"
)

type entry struct {
	data      any
	count     int
	timestamp time.Time
}

type Store struct {
	gw     store.Gateway
	ttl    time.Duration
	logger zerolog.Logger
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
}

func New(gw store.Gateway, ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		gw:      gw,
		ttl:     ttl,
		logger:  logger,
		clock:   time.Now,
		entries: map[string]*entry{},
	}
}

// Gateway exposes the underlying document store for collaborators that
// write outside the mirrored collections (backups, audit logs).
func (s *Store) Gateway() store.Gateway { return s.gw }

func (s *Store) Ping(ctx context.Context) error { return s.gw.Ping(ctx) }

// Invalidate forces the next read of the collection to fetch.
func (s *Store) Invalidate(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, collection)
}

func (s *Store) fresh(collection string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[collection]
	if !ok || e.count == 0 {
		return nil, false
	}
	if s.clock().Sub(e.timestamp) >= s.ttl {
		return nil, false
	}
	return e.data, true
}

// lastGood returns whatever the mirror holds, stale or not.
func (s *Store) lastGood(collection string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[collection]
	if !ok {
		return nil, false
	}
	return e.data, true
}

func (s *Store) put(collection string, data any, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[collection] = &entry{data: data, count: count, timestamp: s.clock()}
}

// listFromRaw decodes a Firebase-shaped collection object (id -> document)
// into a slice, injecting the key as the entity id. Iteration order is the
// sorted key order, which keeps encounter-order tie-breaks deterministic.
func listFromRaw[T any](raw json.RawMessage, withID func(T, string) T) ([]T, error) {
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	var docs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, id := range keys {
		var item T
		if err := json.Unmarshal(docs[id], &item); err != nil {
			return nil, err
		}
		out = append(out, withID(item, id))
	}
	return out, nil
}

// mergePatch applies a JSON-level partial to a typed value, mirroring what
// the gateway's Update does to the stored document.
func mergePatch[T any](item T, partial map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(item)
	if err != nil {
		return out, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, err
	}
	for k, v := range partial {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, err
	}
	return out, nil
}

// fetchList is the shared read path: fresh mirror, else one coalesced
// fetch, else the last good value when the store is down.
func fetchList[T any](ctx context.Context, s *Store, collection string, forceRefresh bool, decode func(json.RawMessage) ([]T, error)) ([]T, error) {
	if !forceRefresh {
		if v, ok := s.fresh(collection); ok {
			return v.([]T), nil
		}
	}

	v, err, _ := s.group.Do(collection, func() (any, error) {
		raw, err := s.gw.Get(ctx, collection)
		if err != nil {
			return nil, err
		}
		list, err := decode(raw)
		if err != nil {
			return nil, err
		}
		s.put(collection, list, len(list))
		return list, nil
	})
	if err != nil {
		if stale, ok := s.lastGood(collection); ok {
			s.logger.Warn().Err(err).Str("collection", collection).
				Msg("fetch failed, serving stale cache")
			return stale.([]T), nil
		}
		return nil, err
	}
	return v.([]T), nil
}
