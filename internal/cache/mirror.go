package cache

import (
	"github.com/fieldserve/backend/internal/models"
)

// The mirror helpers patch the in-memory copy of a collection after a
// successful write, so reads inside the TTL window see the mutation
// without another fetch. Readers hold slices the cache handed out
// earlier, so every mutation builds a fresh slice and swaps it in;
// a published backing array is never written again.

func appendItem[T any](s *Store, collection string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[collection]
	var list []T
	if ok {
		list = e.data.([]T)
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, item)
	s.entries[collection] = &entry{data: out, count: len(out), timestamp: s.clock()}
}

func patchItem[T any](s *Store, collection, id string, partial map[string]any, idOf func(T) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[collection]
	if !ok {
		return
	}
	list := e.data.([]T)
	for i, item := range list {
		if idOf(item) != id {
			continue
		}
		merged, err := mergePatch(item, partial)
		if err != nil {
			// Unmergeable patch: drop the mirror, the next read refetches.
			delete(s.entries, collection)
			return
		}
		out := make([]T, len(list))
		copy(out, list)
		out[i] = merged
		s.entries[collection] = &entry{data: out, count: len(out), timestamp: s.clock()}
		return
	}
}

func removeItem[T any](s *Store, collection, id string, idOf func(T) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[collection]
	if !ok {
		return
	}
	list := e.data.([]T)
	out := make([]T, 0, len(list))
	for _, item := range list {
		if idOf(item) != id {
			out = append(out, item)
		}
	}
	s.entries[collection] = &entry{data: out, count: len(out), timestamp: s.clock()}
}

func customerID(c models.Customer) string     { return c.ID }
func ticketID(t models.Ticket) string         { return t.ID }
func technicianID(t models.Technician) string { return t.ID }
func serviceID(v models.ServiceVisit) string  { return v.ID }

func (s *Store) appendCustomer(c models.Customer) { appendItem(s, colCustomers, c) }
func (s *Store) patchCustomer(id string, partial map[string]any) {
	patchItem(s, colCustomers, id, partial, customerID)
}
func (s *Store) removeCustomer(id string) { removeItem(s, colCustomers, id, customerID) }

func (s *Store) appendTicket(t models.Ticket) { appendItem(s, colTickets, t) }
func (s *Store) patchTicket(id string, partial map[string]any) {
	patchItem(s, colTickets, id, partial, ticketID)
}
func (s *Store) removeTicket(id string) { removeItem(s, colTickets, id, ticketID) }

func (s *Store) appendTechnician(t models.Technician) { appendItem(s, colTechnicians, t) }
func (s *Store) patchTechnician(id string, partial map[string]any) {
	patchItem(s, colTechnicians, id, partial, technicianID)
}
func (s *Store) removeTechnician(id string) { removeItem(s, colTechnicians, id, technicianID) }

func (s *Store) appendPayment(p models.Payment) { appendItem(s, colPayments, p) }

func (s *Store) patchService(id string, partial map[string]any) {
	patchItem(s, colServices, id, partial, serviceID)
}
