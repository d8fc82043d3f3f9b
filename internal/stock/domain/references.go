package domain

import (
	"fmt"
	"strings"
)

// EntityKind names an entity the lifecycle guard can delete
type EntityKind string

const (
	KindBatch     EntityKind = "batch"
	KindFarmer    EntityKind = "farmer"
	KindCustomer  EntityKind = "customer"
	KindMarket    EntityKind = "market"
	KindWarehouse EntityKind = "warehouse"
)

// ParseEntityKind accepts the kind in any case
func ParseEntityKind(s string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ReferenceGraph[kind]; !ok {
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
	return kind, nil
}

// TableRef is a table column pointing at an entity
type TableRef struct {
	Table  string
	Column string
	// Label is the user-facing name of the referencing records.
	Label string
}

// EntityRefs declares, for one entity kind, where it lives, which
// transactional records may reference it, and which rows it owns outright.
type EntityRefs struct {
	Table      string
	IDColumn   string
	References []TableRef
	Owned      []TableRef
}

// ReferenceGraph is the static ownership/reference declaration used by the guard.
// Owned children are deleted in slice order before the entity itself.
var ReferenceGraph = map[EntityKind]EntityRefs{
	KindBatch: {
		Table:    "batches",
		IDColumn: "id",
		References: []TableRef{
			{Table: "batch_purchases", Column: "batch_id", Label: "purchase allocation"},
			{Table: "batch_shipments", Column: "batch_id", Label: "shipment"},
		},
		Owned: []TableRef{
			{Table: "crops", Column: "batch_id", Label: "crop"},
			{Table: "warehouse_stocks", Column: "batch_id", Label: "warehouse stock"},
		},
	},
	KindFarmer: {
		Table:    "farmers",
		IDColumn: "id",
		References: []TableRef{
			{Table: "harvest_sessions", Column: "farmer_id", Label: "harvest session"},
		},
		Owned: []TableRef{
			{Table: "farmer_contacts", Column: "farmer_id", Label: "contact number"},
		},
	},
	KindCustomer: {
		Table:    "customers",
		IDColumn: "id",
		References: []TableRef{
			{Table: "orders", Column: "customer_id", Label: "order"},
		},
		Owned: []TableRef{
			{Table: "customer_contacts", Column: "customer_id", Label: "contact number"},
		},
	},
	KindMarket: {
		Table:    "markets",
		IDColumn: "id",
		References: []TableRef{
			{Table: "shipments", Column: "market_id", Label: "shipment"},
			{Table: "orders", Column: "market_id", Label: "order"},
		},
	},
	KindWarehouse: {
		Table:    "warehouses",
		IDColumn: "id",
		References: []TableRef{
			{Table: "warehouse_stocks", Column: "warehouse_id", Label: "warehouse stock"},
			{Table: "batches", Column: "warehouse_id", Label: "batch"},
		},
	},
}

// ReferenceCount is the number of live rows found for one TableRef
type ReferenceCount struct {
	Ref   TableRef
	Count int
}

// Verdict is the guard's answer to "may this entity be deleted?"
type Verdict struct {
	Kind    EntityKind `json:"kind"`
	ID      string     `json:"id"`
	Allowed bool       `json:"allowed"`
	Reason  string     `json:"reason,omitempty"`
}

// Decide turns reference counts into a verdict. Any non-zero count blocks the delete.
func Decide(kind EntityKind, id string, counts []ReferenceCount) Verdict {
	v := Verdict{Kind: kind, ID: id, Allowed: true}

	var blockers []string
	for _, c := range counts {
		if c.Count <= 0 {
			continue
		}
		label := c.Ref.Label
		if c.Count > 1 {
			label += "s"
		}
		blockers = append(blockers, fmt.Sprintf("%d %s", c.Count, label))
	}

	if len(blockers) > 0 {
		v.Allowed = false
		v.Reason = fmt.Sprintf("%s %s is referenced by %s", kind, id, strings.Join(blockers, ", "))
	}
	return v
}
