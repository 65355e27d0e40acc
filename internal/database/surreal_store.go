package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// purchaseQuery applies a purchase in a single transaction. The stock and
// balance are re-read inside the transaction and the whole block is aborted
// if either moved since the caller looked.
const purchaseQuery = `
BEGIN TRANSACTION;
LET $p = (SELECT stock FROM ONLY $product);
LET $u = (SELECT coins FROM ONLY $user);
IF $p.stock != $stock_before OR $u.coins < $price { THROW "` + staleStockMarker + `" };
UPDATE $user SET coins -= $price, points_earned += $points;
UPDATE $product SET stock -= 1, current_price = $new_price;
CREATE $tx CONTENT { seq: $tx_seq, user_id: $user_id, product_id: $product_id, price_paid: $price, ts: $ts };
CREATE price_history CONTENT { product_id: $product_id, price: $new_price, ts: $ts };
COMMIT TRANSACTION;`

// SurrealStore implements domain.Store on SurrealDB.
type SurrealStore struct {
	conn           *Connection
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

var _ domain.Store = (*SurrealStore)(nil)

// NewSurrealStore connects to SurrealDB, applies the schema and starts
// connection monitoring.
func NewSurrealStore(ctx context.Context, cfg config.Provider) (*SurrealStore, error) {
	queryTimeout := cfg.GetDBQueryTimeout()
	if queryTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_QUERY_TIMEOUT must be a positive duration")
	}
	executeTimeout := cfg.GetDBExecuteTimeout()
	if executeTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_EXECUTE_TIMEOUT must be a positive duration")
	}

	conn := NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}

	s := &SurrealStore{conn: conn, queryTimeout: queryTimeout, executeTimeout: executeTimeout}
	if err := conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		return ApplySchema(ctx, db)
	}); err != nil {
		conn.Close(ctx)
		return nil, err
	}

	conn.StartMonitoring()
	slog.Info("Successfully connected to SurrealDB", "event", "db_store_ready", "db_url", redactDBURL(cfg.GetDBURL()))
	return s, nil
}

// Close releases the connection.
func (s *SurrealStore) Close() error {
	return s.conn.Close(context.Background())
}

// Connection exposes the managed connection, e.g. for health checks.
func (s *SurrealStore) Connection() *Connection {
	return s.conn
}

func (s *SurrealStore) query(ctx context.Context, fn func(ctx context.Context, db *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, s.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()
	return s.conn.WithConnection(ctx, func(db *surrealdb.DB) error { return fn(ctx, db) })
}

func (s *SurrealStore) execute(ctx context.Context, fn func(ctx context.Context, db *surrealdb.DB) error) error {
	ctx, cancel := getTimeoutFromContext(ctx, s.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()
	return s.conn.WithConnection(ctx, func(db *surrealdb.DB) error { return fn(ctx, db) })
}

// nextID allocates the next integer id for table from its counter record.
func nextID(ctx context.Context, db *surrealdb.DB, table string) (int64, error) {
	q := "UPSERT $counter SET value += 1 RETURN AFTER"
	rec, err := QueryOne[counterRecord](ctx, db, q, map[string]any{"counter": counterID(table)})
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, fmt.Errorf("counter for %s returned no value", table)
	}
	return rec.Value, nil
}

// --- Users ---

func (s *SurrealStore) findUser(ctx context.Context, q string, params map[string]any) (*domain.User, error) {
	var rec *userRecord
	err := s.query(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[userRecord](ctx, db, q, params)
		return err
	})
	if err != nil {
		return nil, NewDBError(err, "failed to find user").WithQuery(q)
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	u := rec.toDomain()
	return &u, nil
}

func (s *SurrealStore) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.findUser(ctx, "SELECT * FROM $id", map[string]any{"id": recordID(tableUser, id)})
}

func (s *SurrealStore) FindPlayerByCollegeID(ctx context.Context, collegeID string) (*domain.User, error) {
	return s.findUser(ctx, "SELECT * FROM user WHERE handle = $handle",
		map[string]any{"handle": userHandle(domain.RolePlayer, collegeID)})
}

func (s *SurrealStore) FindAdminByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "SELECT * FROM user WHERE handle = $handle",
		map[string]any{"handle": userHandle(domain.RoleAdmin, email)})
}

func (s *SurrealStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	var created *userRecord
	err := s.execute(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		seq, err := nextID(ctx, db, tableUser)
		if err != nil {
			return err
		}
		rec := newUserRecord(user)
		rec.Seq = seq
		created, err = QueryOne[userRecord](ctx, db, "CREATE $id CONTENT $data",
			map[string]any{"id": recordID(tableUser, seq), "data": rec})
		return err
	})
	if err != nil {
		return nil, NewDBError(classify(err, domain.ErrUserAlreadyExists), "failed to create user")
	}
	if created == nil {
		return nil, NewDBError(ErrQueryFailed, "create user returned no record")
	}
	u := created.toDomain()
	slog.DebugContext(ctx, "User created", "event", "db_user_created", "user_id", u.ID, "role", u.Role)
	return &u, nil
}

func (s *SurrealStore) ListPlayersByPoints(ctx context.Context) ([]domain.User, error) {
	q := "SELECT * FROM user WHERE role = $role ORDER BY points_earned DESC, seq ASC"
	var recs []userRecord
	err := s.query(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		recs, err = Query[userRecord](ctx, db, q, map[string]any{"role": string(domain.RolePlayer)})
		return err
	})
	if err != nil {
		return nil, NewDBError(err, "failed to list players").WithQuery(q)
	}
	users := make([]domain.User, 0, len(recs))
	for _, r := range recs {
		users = append(users, r.toDomain())
	}
	return users, nil
}

func (s *SurrealStore) ConsumeRecommendationTry(ctx context.Context, userID int64) (int, error) {
	q := "UPDATE $id SET reco_tries_left -= 1 WHERE reco_tries_left > 0 RETURN AFTER"
	var rec *userRecord
	err := s.execute(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[userRecord](ctx, db, q, map[string]any{"id": recordID(tableUser, userID)})
		return err
	})
	if err != nil {
		return 0, NewDBError(err, "failed to consume recommendation try").WithQuery(q)
	}
	if rec == nil || rec.Seq == 0 {
		return 0, domain.ErrNoTriesLeft
	}
	return rec.RecoTriesLeft, nil
}

// --- Products ---

func (s *SurrealStore) findProduct(ctx context.Context, q string, params map[string]any) (*domain.Product, error) {
	var rec *productRecord
	err := s.query(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[productRecord](ctx, db, q, params)
		return err
	})
	if err != nil {
		return nil, NewDBError(err, "failed to find product").WithQuery(q)
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	p := rec.toDomain()
	return &p, nil
}

func (s *SurrealStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	q := "SELECT * FROM product ORDER BY seq ASC"
	var recs []productRecord
	err := s.query(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		recs, err = Query[productRecord](ctx, db, q, nil)
		return err
	})
	if err != nil {
		return nil, NewDBError(err, "failed to list products").WithQuery(q)
	}
	products := make([]domain.Product, 0, len(recs))
	for _, r := range recs {
		products = append(products, r.toDomain())
	}
	return products, nil
}

func (s *SurrealStore) FindProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.findProduct(ctx, "SELECT * FROM $id", map[string]any{"id": recordID(tableProduct, id)})
}

func (s *SurrealStore) FindProductByName(ctx context.Context, name string) (*domain.Product, error) {
	return s.findProduct(ctx, "SELECT * FROM product WHERE name = $name", map[string]any{"name": name})
}

func (s *SurrealStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := product.Validate(); err != nil {
		return nil, NewDBError(fmt.Errorf("%w: %v", ErrInvalidInput, err), "invalid product")
	}

	var created *productRecord
	err := s.execute(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		seq, err := nextID(ctx, db, tableProduct)
		if err != nil {
			return err
		}
		rec := newProductRecord(product)
		rec.Seq = seq
		created, err = QueryOne[productRecord](ctx, db, "CREATE $id CONTENT $data",
			map[string]any{"id": recordID(tableProduct, seq), "data": rec})
		return err
	})
	if err != nil {
		return nil, NewDBError(classify(err, domain.ErrProductExists), "failed to create product")
	}
	if created == nil {
		return nil, NewDBError(ErrQueryFailed, "create product returned no record")
	}
	p := created.toDomain()
	return &p, nil
}

// --- History ---

func (s *SurrealStore) AppendPrice(ctx context.Context, point domain.PricePoint) error {
	rec := pricePointRecord{ProductID: point.ProductID, Price: point.Price, TS: point.Timestamp.UnixNano()}
	err := s.execute(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		return Execute(ctx, db, "CREATE price_history CONTENT $data", map[string]any{"data": rec})
	})
	if err != nil {
		return NewDBError(err, "failed to append price point")
	}
	return nil
}

func (s *SurrealStore) ListPriceHistory(ctx context.Context, productID int64) ([]domain.PricePoint, error) {
	q := "SELECT * FROM price_history WHERE product_id = $product_id ORDER BY ts ASC"
	var recs []pricePointRecord
	err := s.query(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		recs, err = Query[pricePointRecord](ctx, db, q, map[string]any{"product_id": productID})
		return err
	})
	if err != nil {
		return nil, NewDBError(err, "failed to list price history").WithQuery(q)
	}
	points := make([]domain.PricePoint, 0, len(recs))
	for _, r := range recs {
		points = append(points, r.toDomain())
	}
	return points, nil
}

// --- Ledger ---

func (s *SurrealStore) ApplyPurchase(ctx context.Context, p domain.Purchase) error {
	err := s.execute(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		txSeq, err := nextID(ctx, db, tableTransaction)
		if err != nil {
			return err
		}
		return Execute(ctx, db, purchaseQuery, map[string]any{
			"user":         recordID(tableUser, p.UserID),
			"product":      recordID(tableProduct, p.ProductID),
			"tx":           recordID(tableTransaction, txSeq),
			"tx_seq":       txSeq,
			"user_id":      p.UserID,
			"product_id":   p.ProductID,
			"stock_before": p.StockBefore,
			"price":        p.PricePaid,
			"points":       p.Points,
			"new_price":    p.NewPrice,
			"ts":           p.At.UnixNano(),
		})
	})
	if err != nil {
		return NewDBError(classify(err, nil), "failed to apply purchase").WithParams(map[string]any{
			"user_id": p.UserID, "product_id": p.ProductID, "stock_before": p.StockBefore,
		})
	}
	return nil
}

func (s *SurrealStore) Revenue(ctx context.Context) (domain.RevenueSummary, error) {
	q := "SELECT math::sum(price_paid) AS total, count() AS count FROM transaction GROUP ALL"
	var rec *revenueRecord
	err := s.query(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[revenueRecord](ctx, db, q, nil)
		return err
	})
	if err != nil {
		return domain.RevenueSummary{}, NewDBError(err, "failed to summarize revenue").WithQuery(q)
	}
	if rec == nil {
		return domain.RevenueSummary{}, nil
	}
	return domain.RevenueSummary{TotalRevenue: rec.Total, TotalTransactions: rec.Count}, nil
}
