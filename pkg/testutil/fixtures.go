package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PartyFixture is a named row in one of the party tables
// (warehouses, farmers, customers, markets)
type PartyFixture struct {
	ID   string
	Name string
}

// HarvestFixture represents a harvest session and the farmer who produced it
type HarvestFixture struct {
	ID          string
	FarmerID    string
	HarvestDate time.Time
	Quantity    decimal.Decimal
}

// FixtureFactory creates and inserts test fixtures with sensible defaults
type FixtureFactory struct {
	db  *sqlx.DB
	mu  sync.Mutex
	seq int
}

// NewFixtureFactory creates a new fixture factory. db may be nil for
// factories used only to build values.
func NewFixtureFactory(db *sqlx.DB) *FixtureFactory {
	return &FixtureFactory{db: db}
}

// nextID returns a unique id with the given prefix
func (f *FixtureFactory) nextID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s%08d", prefix, f.seq)
}

// Warehouse inserts a warehouse
func (f *FixtureFactory) Warehouse(t *testing.T, ctx context.Context) PartyFixture {
	t.Helper()
	w := PartyFixture{ID: f.nextID("WHS"), Name: "Central Cold Store"}
	f.exec(t, ctx, `INSERT INTO warehouses (id, name, location) VALUES ($1, $2, 'Nakuru')`, w.ID, w.Name)
	return w
}

// Farmer inserts a farmer
func (f *FixtureFactory) Farmer(t *testing.T, ctx context.Context) PartyFixture {
	t.Helper()
	p := PartyFixture{ID: f.nextID("FRM"), Name: "Amina Otieno"}
	f.exec(t, ctx, `INSERT INTO farmers (id, name) VALUES ($1, $2)`, p.ID, p.Name)
	return p
}

// Customer inserts a customer
func (f *FixtureFactory) Customer(t *testing.T, ctx context.Context) PartyFixture {
	t.Helper()
	p := PartyFixture{ID: f.nextID("CUS"), Name: "Green Grocers Ltd"}
	f.exec(t, ctx, `INSERT INTO customers (id, name) VALUES ($1, $2)`, p.ID, p.Name)
	return p
}

// Market inserts a market
func (f *FixtureFactory) Market(t *testing.T, ctx context.Context) PartyFixture {
	t.Helper()
	p := PartyFixture{ID: f.nextID("MKT"), Name: "Wakulima Market"}
	f.exec(t, ctx, `INSERT INTO markets (id, name) VALUES ($1, $2)`, p.ID, p.Name)
	return p
}

// Harvest inserts a farmer and one harvest session for them
func (f *FixtureFactory) Harvest(t *testing.T, ctx context.Context) HarvestFixture {
	t.Helper()
	farmer := f.Farmer(t, ctx)
	h := HarvestFixture{
		ID:          f.nextID("HRV"),
		FarmerID:    farmer.ID,
		HarvestDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Quantity:    decimal.NewFromInt(500),
	}
	f.exec(t, ctx,
		`INSERT INTO harvest_sessions (id, farmer_id, harvest_date, quantity) VALUES ($1, $2, $3, $4)`,
		h.ID, h.FarmerID, h.HarvestDate, h.Quantity,
	)
	return h
}

// Contact adds a contact number row, e.g. Contact(t, ctx, "farmer_contacts", "farmer_id", farmerID)
func (f *FixtureFactory) Contact(t *testing.T, ctx context.Context, table, column, ownerID string) {
	t.Helper()
	query := fmt.Sprintf(`INSERT INTO %s (%s, phone) VALUES ($1, $2)`, table, column)
	f.exec(t, ctx, query, ownerID, "+254700000000")
}

func (f *FixtureFactory) exec(t *testing.T, ctx context.Context, query string, args ...any) {
	t.Helper()
	if f.db == nil {
		t.Fatal("fixture factory has no database")
	}
	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("failed to insert fixture: %v", err)
	}
}
