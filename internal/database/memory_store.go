package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nfrund/smartshop/internal/domain"
)

// MemoryStore is an in-process domain.Store. It is used by tests and by the
// memory store driver; data is lost on exit.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[int64]*domain.User
	handles  map[string]int64
	products map[int64]*domain.Product
	names    map[string]int64
	history  map[int64][]domain.PricePoint
	txs      []domain.Transaction

	nextUser    int64
	nextProduct int64
}

var _ domain.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*domain.User),
		handles:  make(map[string]int64),
		products: make(map[int64]*domain.Product),
		names:    make(map[string]int64),
		history:  make(map[int64][]domain.PricePoint),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) findByHandle(handle string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.handles[handle]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryStore) FindPlayerByCollegeID(_ context.Context, collegeID string) (*domain.User, error) {
	return m.findByHandle(userHandle(domain.RolePlayer, collegeID))
}

func (m *MemoryStore) FindAdminByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.findByHandle(userHandle(domain.RoleAdmin, email))
}

func (m *MemoryStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle := userHandle(user.Role, user.Username())
	if _, exists := m.handles[handle]; exists {
		return nil, domain.ErrUserAlreadyExists
	}
	m.nextUser++
	cp := *user
	cp.ID = m.nextUser
	m.users[cp.ID] = &cp
	m.handles[handle] = cp.ID

	out := cp
	return &out, nil
}

func (m *MemoryStore) ListPlayersByPoints(_ context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if u.Role == domain.RolePlayer {
			players = append(players, *u)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].PointsEarned != players[j].PointsEarned {
			return players[i].PointsEarned > players[j].PointsEarned
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

func (m *MemoryStore) ConsumeRecommendationTry(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || u.RecoTriesLeft <= 0 {
		return 0, domain.ErrNoTriesLeft
	}
	u.RecoTriesLeft--
	return u.RecoTriesLeft, nil
}

func (m *MemoryStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (m *MemoryStore) FindProductByID(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) FindProductByName(_ context.Context, name string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.names[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.products[id]
	return &cp, nil
}

func (m *MemoryStore) CreateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	if err := product.Validate(); err != nil {
		return nil, NewDBError(fmt.Errorf("%w: %v", ErrInvalidInput, err), "invalid product")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.names[product.Name]; exists {
		return nil, domain.ErrProductExists
	}
	m.nextProduct++
	cp := *product
	cp.ID = m.nextProduct
	m.products[cp.ID] = &cp
	m.names[cp.Name] = cp.ID

	out := cp
	return &out, nil
}

func (m *MemoryStore) AppendPrice(_ context.Context, point domain.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[point.ProductID] = append(m.history[point.ProductID], point)
	return nil
}

func (m *MemoryStore) ListPriceHistory(_ context.Context, productID int64) ([]domain.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	points := append([]domain.PricePoint{}, m.history[productID]...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points, nil
}

func (m *MemoryStore) ApplyPurchase(_ context.Context, p domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[p.UserID]
	if !ok {
		return fmt.Errorf("%w: user %d disappeared", domain.ErrConflict, p.UserID)
	}
	prod, ok := m.products[p.ProductID]
	if !ok {
		return fmt.Errorf("%w: product %d disappeared", domain.ErrConflict, p.ProductID)
	}
	if prod.Stock != p.StockBefore || u.Coins < p.PricePaid {
		return fmt.Errorf("%w: product %d stock is %d, expected %d", domain.ErrConflict, prod.ID, prod.Stock, p.StockBefore)
	}

	u.Coins -= p.PricePaid
	u.PointsEarned += p.Points
	prod.Stock--
	prod.CurrentPrice = p.NewPrice

	m.txs = append(m.txs, domain.Transaction{
		ID:        int64(len(m.txs) + 1),
		UserID:    p.UserID,
		ProductID: p.ProductID,
		PricePaid: p.PricePaid,
		Timestamp: p.At,
	})
	m.history[p.ProductID] = append(m.history[p.ProductID], domain.PricePoint{
		ProductID: p.ProductID,
		Price:     p.NewPrice,
		Timestamp: p.At,
	})
	return nil
}

func (m *MemoryStore) Revenue(_ context.Context) (domain.RevenueSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum domain.RevenueSummary
	for _, tx := range m.txs {
		sum.TotalRevenue += tx.PricePaid
	}
	sum.TotalTransactions = len(m.txs)
	return sum, nil
}

// Transactions returns a copy of the recorded transactions.
func (m *MemoryStore) Transactions() []domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Transaction(nil), m.txs...)
}
