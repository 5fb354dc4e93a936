// Package plan implements the subscription plan-limit policy. The policy is
// a pure read-only gate: it maps a tier to quotas and evaluates current
// usage against them. It never mutates state and never fails; non-admission
// is signalled through Decision.Allowed.
package plan

import (
	"context"
	"fmt"
	"time"
)

// Tier enumerates subscription tiers.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPaid Tier = "PAID"
)

// Resource enumerates plan-limited resource types.
type Resource string

const (
	ResourceSuppliers Resource = "suppliers"
	ResourceProducts  Resource = "products"
	ResourceShipments Resource = "shipments"
	ResourceInvoices  Resource = "invoices"
)

// Unlimited marks a quota with no cap.
const Unlimited = -1

// Limits holds the numeric quotas for a tier. Shipments and invoices are
// counted per UTC calendar month; suppliers and products are absolute.
type Limits struct {
	Suppliers         int
	Products          int
	ShipmentsPerMonth int
	InvoicesPerMonth  int
}

// For returns the quota for a resource type.
func (l Limits) For(r Resource) int {
	switch r {
	case ResourceSuppliers:
		return l.Suppliers
	case ResourceProducts:
		return l.Products
	case ResourceShipments:
		return l.ShipmentsPerMonth
	case ResourceInvoices:
		return l.InvoicesPerMonth
	default:
		return Unlimited
	}
}

// PaidLimits is the quota set for the PAID tier.
var PaidLimits = Limits{
	Suppliers:         Unlimited,
	Products:          Unlimited,
	ShipmentsPerMonth: Unlimited,
	InvoicesPerMonth:  Unlimited,
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	Message string
	Current int
	Limit   int
}

// Check evaluates current usage against the tier's quota for a resource.
// PAID short-circuits to allowed without consulting usage.
func Check(tier Tier, resource Resource, current int, free Limits) Decision {
	if tier == TierPaid {
		return Decision{Allowed: true, Limit: Unlimited}
	}
	limit := free.For(resource)
	if limit == Unlimited || current < limit {
		return Decision{Allowed: true, Current: current, Limit: limit}
	}
	return Decision{
		Allowed: false,
		Message: fmt.Sprintf("free plan allows %d %s (%d in use)", limit, resource, current),
		Current: current,
		Limit:   limit,
	}
}

// MonthBounds returns the first and last instant of the UTC calendar month
// containing now. Both bounds are inclusive: a record created at either
// instant counts toward that month's quota.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	utc := now.UTC()
	start := time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// Gate bundles the FREE-tier quotas so services can run admission checks
// without re-reading configuration.
type Gate struct {
	free Limits
}

// NewGate constructs a Gate from the configured FREE-tier quotas.
func NewGate(free Limits) *Gate {
	return &Gate{free: free}
}

// Allow runs an admission check, invoking count only when the tier actually
// requires a usage number. count typically hits the backing store.
func (g *Gate) Allow(ctx context.Context, tier Tier, resource Resource, count func(context.Context) (int, error)) (Decision, error) {
	if tier == TierPaid {
		return Decision{Allowed: true, Limit: Unlimited}, nil
	}
	current, err := count(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("count %s usage: %w", resource, err)
	}
	return Check(tier, resource, current, g.free), nil
}
