package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// memState is the in-memory equivalent of the stock schema
type memState struct {
	stocks         map[string]domain.WarehouseStock
	batches        map[string]domain.Batch
	crops          map[string]domain.Crop // keyed by batch id
	allocations    []domain.Allocation
	orders         map[string]domain.Order
	purchases      map[string]domain.Purchase
	shipments      map[string]domain.Shipment
	batchShipments []domain.BatchShipment
	transports     []domain.TransportAssignment

	// entities holds warehouses, farmers, customers and markets by table
	entities map[string]map[string]bool

	// links holds the owner column of plain child tables such as contacts
	// and harvest sessions: table -> column -> owner ids, one per row
	links map[string]map[string][]string
}

func newMemState() memState {
	return memState{
		stocks:    map[string]domain.WarehouseStock{},
		batches:   map[string]domain.Batch{},
		crops:     map[string]domain.Crop{},
		orders:    map[string]domain.Order{},
		purchases: map[string]domain.Purchase{},
		shipments: map[string]domain.Shipment{},
		entities: map[string]map[string]bool{
			"warehouses": {}, "farmers": {}, "customers": {}, "markets": {},
		},
		links: map[string]map[string][]string{},
	}
}

func (s memState) clone() memState {
	c := newMemState()
	for k, v := range s.stocks {
		c.stocks[k] = v
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	for k, v := range s.crops {
		c.crops[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.shipments {
		c.shipments[k] = v
	}
	c.allocations = append([]domain.Allocation(nil), s.allocations...)
	c.batchShipments = append([]domain.BatchShipment(nil), s.batchShipments...)
	c.transports = append([]domain.TransportAssignment(nil), s.transports...)
	for table, ids := range s.entities {
		c.entities[table] = map[string]bool{}
		for id := range ids {
			c.entities[table][id] = true
		}
	}
	for table, cols := range s.links {
		c.links[table] = map[string][]string{}
		for col, owners := range cols {
			c.links[table][col] = append([]string(nil), owners...)
		}
	}
	return c
}

// memStore implements every store interface of the service package.
// failOn makes the named method return the given error.
type memStore struct {
	mu     sync.Mutex
	state  memState
	failOn map[string]error
	calls  []string
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failOn: map[string]error{}}
}

func (m *memStore) hit(method string) error {
	m.calls = append(m.calls, method)
	return m.failOn[method]
}

func (m *memStore) addEntity(table, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.entities[table][id] = true
}

func (m *memStore) addLink(table, column, ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.links[table] == nil {
		m.state.links[table] = map[string][]string{}
	}
	m.state.links[table][column] = append(m.state.links[table][column], ownerID)
}

func (m *memStore) countBatches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.batches)
}

func (m *memStore) countStocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.stocks)
}

func (m *memStore) countCrops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.crops)
}

func (m *memStore) allocationsFor(purchaseID string) []domain.Allocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Allocation
	for _, a := range m.state.allocations {
		if a.PurchaseID == purchaseID {
			out = append(out, a)
		}
	}
	return out
}

// BatchStore

func (m *memStore) InsertStock(_ context.Context, stock *domain.WarehouseStock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertStock"); err != nil {
		return err
	}
	stock.CreatedAt, stock.UpdatedAt = time.Now(), time.Now()
	m.state.stocks[stock.ID] = *stock
	return nil
}

func (m *memStore) InsertBatch(_ context.Context, batch *domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertBatch"); err != nil {
		return err
	}
	batch.CreatedAt, batch.UpdatedAt = time.Now(), time.Now()
	m.state.batches[batch.ID] = *batch
	return nil
}

func (m *memStore) InsertCrop(_ context.Context, crop *domain.Crop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertCrop"); err != nil {
		return err
	}
	m.state.crops[crop.BatchID] = *crop
	return nil
}

func (m *memStore) LinkStock(_ context.Context, stockID, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("LinkStock"); err != nil {
		return err
	}
	stock, ok := m.state.stocks[stockID]
	if !ok {
		return errors.NotFound("warehouse stock")
	}
	stock.BatchID = &batchID
	m.state.stocks[stockID] = stock
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("GetByID"); err != nil {
		return nil, err
	}
	b, ok := m.state.batches[id]
	if !ok {
		return nil, errors.NotFound("batch")
	}
	return &b, nil
}

func (m *memStore) LockByID(ctx context.Context, id string) (*domain.Batch, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) UpdateBatch(_ context.Context, batch *domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpdateBatch"); err != nil {
		return err
	}
	if _, ok := m.state.batches[batch.ID]; !ok {
		return errors.NotFound("batch")
	}
	batch.UpdatedAt = time.Now()
	m.state.batches[batch.ID] = *batch
	return nil
}

func (m *memStore) UpdateStock(_ context.Context, stockID string, quantity decimal.Decimal, entryDate, expiryDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpdateStock"); err != nil {
		return err
	}
	stock, ok := m.state.stocks[stockID]
	if !ok {
		return errors.NotFound("warehouse stock")
	}
	stock.Quantity, stock.EntryDate, stock.ExpiryDate = quantity, entryDate, expiryDate
	m.state.stocks[stockID] = stock
	return nil
}

func (m *memStore) UpdateCrop(_ context.Context, batchID string, attrs domain.CropAttrs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpdateCrop"); err != nil {
		return err
	}
	crop, ok := m.state.crops[batchID]
	if !ok {
		return errors.NotFound("crop")
	}
	crop.Name, crop.Type, crop.Variety, crop.Season = attrs.Name, attrs.Type, attrs.Variety, attrs.Season
	m.state.crops[batchID] = crop
	return nil
}

func (m *memStore) UpdateStockStatus(_ context.Context, batchID string, status domain.StockStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpdateStockStatus"); err != nil {
		return err
	}
	b, ok := m.state.batches[batchID]
	if !ok {
		return errors.NotFound("batch")
	}
	stock := m.state.stocks[b.StockID]
	stock.Status = status
	m.state.stocks[b.StockID] = stock
	return nil
}

func (m *memStore) detail(b domain.Batch) domain.BatchDetail {
	stock := m.state.stocks[b.StockID]
	crop := m.state.crops[b.ID]
	d := domain.BatchDetail{
		BatchID:        b.ID,
		HarvestID:      b.HarvestID,
		WarehouseID:    b.WarehouseID,
		StockID:        b.StockID,
		ProductionDate: b.ProductionDate,
		Quantity:       b.Quantity,
		Allocated:      m.allocated(b.ID),
		EntryDate:      stock.EntryDate,
		ExpiryDate:     stock.ExpiryDate,
		StockStatus:    stock.Status,
		CropName:       crop.Name,
		CropType:       crop.Type,
		CropVariety:    crop.Variety,
		CropSeason:     crop.Season,
	}
	for _, bs := range m.state.batchShipments {
		if bs.BatchID == b.ID {
			d.Shipped = true
		}
	}
	return d
}

func (m *memStore) GetDetail(_ context.Context, id string) (*domain.BatchDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.state.batches[id]
	if !ok {
		return nil, errors.NotFound("batch")
	}
	d := m.detail(b)
	return &d, nil
}

func (m *memStore) ListDetails(_ context.Context, warehouseID string) ([]domain.BatchDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("ListDetails"); err != nil {
		return nil, err
	}
	out := []domain.BatchDetail{}
	for _, b := range m.state.batches {
		if warehouseID != "" && b.WarehouseID != warehouseID {
			continue
		}
		out = append(out, m.detail(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].BatchID < out[j].BatchID
	})
	return out, nil
}

func (m *memStore) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := m.state.batches[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// AllocationStore

func (m *memStore) allocated(batchID string) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range m.state.allocations {
		if a.BatchID == batchID {
			sum = sum.Add(a.Quantity)
		}
	}
	return sum
}

func (m *memStore) Candidates(_ context.Context, warehouseID string, key domain.CropKey) ([]domain.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Candidates"); err != nil {
		return nil, err
	}
	out := []domain.Candidate{}
	for _, b := range m.state.batches {
		crop := m.state.crops[b.ID]
		if !key.Matches(crop.Name, crop.Type, crop.Variety) {
			continue
		}
		if warehouseID != "" && b.WarehouseID != warehouseID {
			continue
		}
		out = append(out, domain.Candidate{
			BatchID:    b.ID,
			ExpiryDate: m.state.stocks[b.StockID].ExpiryDate,
			Available:  b.Quantity.Sub(m.allocated(b.ID)),
		})
	}
	domain.SortCandidates(out)
	return out, nil
}

func (m *memStore) LockCandidates(ctx context.Context, warehouseID string, key domain.CropKey) ([]domain.Candidate, error) {
	return m.Candidates(ctx, warehouseID, key)
}

func (m *memStore) AllocatedQuantity(_ context.Context, batchID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocated(batchID), nil
}

func (m *memStore) Insert(_ context.Context, alloc domain.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertAllocation"); err != nil {
		return err
	}
	m.state.allocations = append(m.state.allocations, alloc)
	return nil
}

func (m *memStore) ListByBatch(_ context.Context, batchID string) ([]domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Allocation{}
	for _, a := range m.state.allocations {
		if a.BatchID == batchID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) removeAllocation(batchID, purchaseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.state.allocations[:0]
	for _, a := range m.state.allocations {
		if a.BatchID == batchID && a.PurchaseID == purchaseID {
			continue
		}
		kept = append(kept, a)
	}
	m.state.allocations = kept
}

// OrderStore

func (m *memStore) InsertOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertOrder"); err != nil {
		return err
	}
	order.CreatedAt = time.Now()
	m.state.orders[order.ID] = *order
	return nil
}

func (m *memStore) InsertPurchase(_ context.Context, purchase *domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertPurchase"); err != nil {
		return err
	}
	m.state.purchases[purchase.ID] = *purchase
	return nil
}

// ShipmentStore

func (m *memStore) InsertShipment(_ context.Context, shipment *domain.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertShipment"); err != nil {
		return err
	}
	shipment.CreatedAt = time.Now()
	m.state.shipments[shipment.ID] = *shipment
	return nil
}

func (m *memStore) LinkBatch(_ context.Context, link domain.BatchShipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("LinkBatch"); err != nil {
		return err
	}
	m.state.batchShipments = append(m.state.batchShipments, link)
	return nil
}

func (m *memStore) InsertTransport(_ context.Context, t domain.TransportAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("InsertTransport"); err != nil {
		return err
	}
	m.state.transports = append(m.state.transports, t)
	return nil
}

// ReferenceStore

// column returns the value of column for every row of table
func (m *memStore) column(table, column string) []string {
	var out []string
	switch table + "." + column {
	case "batch_purchases.batch_id":
		for _, a := range m.state.allocations {
			out = append(out, a.BatchID)
		}
	case "batch_shipments.batch_id":
		for _, bs := range m.state.batchShipments {
			out = append(out, bs.BatchID)
		}
	case "orders.customer_id":
		for _, o := range m.state.orders {
			out = append(out, o.CustomerID)
		}
	case "orders.market_id":
		for _, o := range m.state.orders {
			if o.MarketID != nil {
				out = append(out, *o.MarketID)
			}
		}
	case "shipments.market_id":
		for _, s := range m.state.shipments {
			out = append(out, s.MarketID)
		}
	case "warehouse_stocks.warehouse_id":
		for _, s := range m.state.stocks {
			out = append(out, s.WarehouseID)
		}
	case "batches.warehouse_id":
		for _, b := range m.state.batches {
			out = append(out, b.WarehouseID)
		}
	default:
		out = append(out, m.state.links[table][column]...)
	}
	return out
}

func (m *memStore) entityExists(refs domain.EntityRefs, id string) bool {
	if refs.Table == "batches" {
		_, ok := m.state.batches[id]
		return ok
	}
	return m.state.entities[refs.Table][id]
}

func (m *memStore) Exists(_ context.Context, refs domain.EntityRefs, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Exists"); err != nil {
		return false, err
	}
	return m.entityExists(refs, id), nil
}

func (m *memStore) Lock(_ context.Context, refs domain.EntityRefs, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("Lock"); err != nil {
		return false, err
	}
	return m.entityExists(refs, id), nil
}

func (m *memStore) CountReferences(_ context.Context, refs domain.EntityRefs, id string) ([]domain.ReferenceCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make([]domain.ReferenceCount, 0, len(refs.References))
	for _, ref := range refs.References {
		n := 0
		for _, v := range m.column(ref.Table, ref.Column) {
			if v == id {
				n++
			}
		}
		counts = append(counts, domain.ReferenceCount{Ref: ref, Count: n})
	}
	return counts, nil
}

func (m *memStore) DeleteOwned(_ context.Context, ref domain.TableRef, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("DeleteOwned:" + ref.Table); err != nil {
		return 0, err
	}

	var removed int64
	switch ref.Table {
	case "crops":
		if _, ok := m.state.crops[id]; ok {
			delete(m.state.crops, id)
			removed++
		}
	case "warehouse_stocks":
		for sid, s := range m.state.stocks {
			if s.BatchID != nil && *s.BatchID == id {
				delete(m.state.stocks, sid)
				removed++
			}
		}
	default:
		owners := m.state.links[ref.Table][ref.Column]
		kept := owners[:0]
		for _, o := range owners {
			if o == id {
				removed++
				continue
			}
			kept = append(kept, o)
		}
		if m.state.links[ref.Table] != nil {
			m.state.links[ref.Table][ref.Column] = kept
		}
	}
	return removed, nil
}

func (m *memStore) DeleteEntity(_ context.Context, kind domain.EntityKind, refs domain.EntityRefs, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("DeleteEntity"); err != nil {
		return err
	}
	if !m.entityExists(refs, id) {
		return errors.NotFound(string(kind))
	}
	if refs.Table == "batches" {
		delete(m.state.batches, id)
		return nil
	}
	delete(m.state.entities[refs.Table], id)
	return nil
}

// fakeUoW snapshots the store before the outermost Run and restores it when
// a step fails, mirroring a rolled back transaction.
type fakeUoW struct {
	store *memStore
	runs  []string
}

type fakeTxKey struct{}

func (u *fakeUoW) Run(ctx context.Context, operation string, steps ...database.Step) error {
	u.runs = append(u.runs, operation)
	if ctx.Value(fakeTxKey{}) != nil {
		return runFakeSteps(ctx, operation, steps)
	}

	u.store.mu.Lock()
	snapshot := u.store.state.clone()
	u.store.mu.Unlock()

	if err := runFakeSteps(context.WithValue(ctx, fakeTxKey{}, true), operation, steps); err != nil {
		u.store.mu.Lock()
		u.store.state = snapshot
		u.store.mu.Unlock()
		return err
	}
	return nil
}

func runFakeSteps(ctx context.Context, operation string, steps []database.Step) error {
	for i, step := range steps {
		if err := step(ctx); err != nil {
			var appErr *errors.AppError
			if errors.As(err, &appErr) {
				return appErr
			}
			return errors.TransactionFailed(operation, fmt.Errorf("step %d: %w", i+1, err))
		}
	}
	return nil
}

// recordingPublisher captures published events by name
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	orders []*domain.Order
}

func (p *recordingPublisher) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
}

func (p *recordingPublisher) BatchCreated(context.Context, *domain.Batch, *domain.WarehouseStock, *domain.Crop) {
	p.record("batch.created")
}

func (p *recordingPublisher) BatchUpdated(context.Context, *domain.Batch, time.Time) {
	p.record("batch.updated")
}

func (p *recordingPublisher) StockStatusChanged(context.Context, string, domain.StockStatus) {
	p.record("batch.status_changed")
}

func (p *recordingPublisher) OrderAllocated(_ context.Context, order *domain.Order, _ string) {
	p.record("order.allocated")
	p.mu.Lock()
	p.orders = append(p.orders, order)
	p.mu.Unlock()
}

func (p *recordingPublisher) ShipmentCreated(context.Context, *domain.Shipment) {
	p.record("shipment.created")
}

func (p *recordingPublisher) EntityDeleted(context.Context, domain.EntityKind, string) {
	p.record("entity.deleted")
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
