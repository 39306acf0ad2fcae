package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/store"
)

func withCustomerID(c models.Customer, id string) models.Customer {
	c.ID = id
	return c
}

func withTicketID(t models.Ticket, id string) models.Ticket {
	t.ID = id
	return t
}

func withTechnicianID(t models.Technician, id string) models.Technician {
	t.ID = id
	return t
}

func withPaymentID(p models.Payment, id string) models.Payment {
	p.ID = id
	return p
}

func withServiceID(v models.ServiceVisit, id string) models.ServiceVisit {
	v.ID = id
	return v
}

func (s *Store) Customers(ctx context.Context, forceRefresh bool) ([]models.Customer, error) {
	return fetchList(ctx, s, colCustomers, forceRefresh, func(raw json.RawMessage) ([]models.Customer, error) {
		list, err := listFromRaw(raw, withCustomerID)
		if err != nil {
			return nil, err
		}
		return dropDeleted(list, func(c models.Customer) bool { return c.Deleted }), nil
	})
}

func (s *Store) Customer(ctx context.Context, id string) (models.Customer, error) {
	customers, err := s.Customers(ctx, false)
	if err != nil {
		return models.Customer{}, err
	}
	for _, c := range customers {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Customer{}, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
}

func (s *Store) AddCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	c.ID = ""
	key, err := s.gw.Push(ctx, colCustomers, c)
	if err != nil {
		return models.Customer{}, err
	}
	c.ID = key
	s.appendCustomer(c)
	return c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, partial map[string]any) error {
	if err := s.gw.Update(ctx, colCustomers+"/"+id, partial); err != nil {
		return err
	}
	s.patchCustomer(id, partial)
	return nil
}

// DeleteCustomer soft-deletes: the document stays in the store flagged as
// deleted so it remains recoverable, but leaves the working set.
func (s *Store) DeleteCustomer(ctx context.Context, id, actor string) error {
	partial := map[string]any{
		"deleted":   true,
		"deletedAt": s.clock().UTC().Format(time.RFC3339),
		"deletedBy": actor,
	}
	if err := s.gw.Update(ctx, colCustomers+"/"+id, partial); err != nil {
		return err
	}
	s.removeCustomer(id)
	return nil
}

func (s *Store) Tickets(ctx context.Context, forceRefresh bool) ([]models.Ticket, error) {
	return fetchList(ctx, s, colTickets, forceRefresh, func(raw json.RawMessage) ([]models.Ticket, error) {
		list, err := listFromRaw(raw, withTicketID)
		if err != nil {
			return nil, err
		}
		return dropDeleted(list, func(t models.Ticket) bool { return t.Deleted }), nil
	})
}

func (s *Store) Ticket(ctx context.Context, id string) (models.Ticket, error) {
	tickets, err := s.Tickets(ctx, false)
	if err != nil {
		return models.Ticket{}, err
	}
	for _, t := range tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Ticket{}, fmt.Errorf("ticket %s: %w", id, store.ErrNotFound)
}

func (s *Store) AddTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	t.ID = ""
	key, err := s.gw.Push(ctx, colTickets, t)
	if err != nil {
		return models.Ticket{}, err
	}
	t.ID = key
	s.appendTicket(t)
	return t, nil
}

func (s *Store) UpdateTicket(ctx context.Context, id string, partial map[string]any) error {
	if err := s.gw.Update(ctx, colTickets+"/"+id, partial); err != nil {
		return err
	}
	s.patchTicket(id, partial)
	return nil
}

func (s *Store) DeleteTicket(ctx context.Context, id, actor string) error {
	partial := map[string]any{
		"deleted":   true,
		"deletedAt": s.clock().UTC().Format(time.RFC3339),
		"deletedBy": actor,
	}
	if err := s.gw.Update(ctx, colTickets+"/"+id, partial); err != nil {
		return err
	}
	s.removeTicket(id)
	return nil
}

func (s *Store) Technicians(ctx context.Context, forceRefresh bool) ([]models.Technician, error) {
	return fetchList(ctx, s, colTechnicians, forceRefresh, func(raw json.RawMessage) ([]models.Technician, error) {
		return listFromRaw(raw, withTechnicianID)
	})
}

// AddTechnician assigns the next zero-padded sequential id (001, 002, ...)
// rather than a pushed key, so technician ids stay human-readable.
func (s *Store) AddTechnician(ctx context.Context, t models.Technician) (models.Technician, error) {
	existing, err := s.Technicians(ctx, true)
	if err != nil {
		return models.Technician{}, err
	}
	next := 0
	for _, tech := range existing {
		var n int
		if _, err := fmt.Sscanf(tech.ID, "%d", &n); err == nil && n > next {
			next = n
		}
	}
	t.ID = ""
	id := fmt.Sprintf("%03d", next+1)
	if t.Status == "" {
		t.Status = models.TechnicianActive
	}
	if err := s.gw.Set(ctx, colTechnicians+"/"+id, t); err != nil {
		return models.Technician{}, err
	}
	t.ID = id
	s.appendTechnician(t)
	return t, nil
}

func (s *Store) UpdateTechnician(ctx context.Context, id string, partial map[string]any) error {
	if err := s.gw.Update(ctx, colTechnicians+"/"+id, partial); err != nil {
		return err
	}
	s.patchTechnician(id, partial)
	return nil
}

// RemoveTechnician is a hard delete; technicians carry no history worth a
// soft-delete trail.
func (s *Store) RemoveTechnician(ctx context.Context, id string) error {
	if err := s.gw.Remove(ctx, colTechnicians+"/"+id); err != nil {
		return err
	}
	s.removeTechnician(id)
	return nil
}

func (s *Store) Payments(ctx context.Context, forceRefresh bool) ([]models.Payment, error) {
	return fetchList(ctx, s, colPayments, forceRefresh, func(raw json.RawMessage) ([]models.Payment, error) {
		return listFromRaw(raw, withPaymentID)
	})
}

func (s *Store) AddPayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	p.ID = ""
	key, err := s.gw.Push(ctx, colPayments, p)
	if err != nil {
		return models.Payment{}, err
	}
	p.ID = key
	s.appendPayment(p)
	return p, nil
}

func (s *Store) Services(ctx context.Context, forceRefresh bool) ([]models.ServiceVisit, error) {
	return fetchList(ctx, s, colServices, forceRefresh, func(raw json.RawMessage) ([]models.ServiceVisit, error) {
		return listFromRaw(raw, withServiceID)
	})
}

func (s *Store) Service(ctx context.Context, id string) (models.ServiceVisit, error) {
	services, err := s.Services(ctx, false)
	if err != nil {
		return models.ServiceVisit{}, err
	}
	for _, v := range services {
		if v.ID == id {
			return v, nil
		}
	}
	return models.ServiceVisit{}, fmt.Errorf("service %s: %w", id, store.ErrNotFound)
}

func (s *Store) UpdateService(ctx context.Context, id string, partial map[string]any) error {
	if err := s.gw.Update(ctx, colServices+"/"+id, partial); err != nil {
		return err
	}
	s.patchService(id, partial)
	return nil
}

func dropDeleted[T any](list []T, deleted func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if !deleted(item) {
			out = append(out, item)
		}
	}
	return out
}
