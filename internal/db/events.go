package db

import (
	"context"

	"github.com/google/uuid"
)

// InsertDomainEventParams is the payload for a persisted domain event.
type InsertDomainEventParams struct {
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
}

const insertDomainEvent = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at`

// InsertDomainEvent persists a domain event row.
func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	var ev DomainEvent
	err := q.db.QueryRow(ctx, insertDomainEvent, arg.Topic, arg.AggregateID, arg.Payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}

const createCustomer = `
INSERT INTO customers (tenant_id, name, email)
VALUES ($1, $2, $3)
RETURNING id, tenant_id, name, email`

// CreateCustomer inserts a customer for a tenant.
func (q *Queries) CreateCustomer(ctx context.Context, tenantID uuid.UUID, name, email string) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, createCustomer, tenantID, name, email).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Email)
	return c, err
}

const getCustomerByTenant = `
SELECT id, tenant_id, name, email
FROM customers
WHERE id = $1 AND tenant_id = $2`

// GetCustomerByTenant loads one tenant-scoped customer.
func (q *Queries) GetCustomerByTenant(ctx context.Context, id, tenantID uuid.UUID) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, getCustomerByTenant, id, tenantID).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Email)
	return c, err
}
