package database

import (
	"time"

	"github.com/nfrund/smartshop/internal/domain"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// Table names.
const (
	tableUser        = "user"
	tableProduct     = "product"
	tableTransaction = "transaction"
	tablePriceHist   = "price_history"
	tableCounter     = "counter"
)

// userRecord is the stored shape of a domain.User. Handle is role-qualified
// so that one unique index covers both player college ids and admin emails.
type userRecord struct {
	Seq           int64   `json:"seq"`
	Handle        string  `json:"handle"`
	Role          string  `json:"role"`
	Email         string  `json:"email"`
	CollegeID     string  `json:"college_id"`
	PasswordHash  string  `json:"password_hash"`
	Coins         float64 `json:"coins"`
	PointsEarned  int     `json:"points_earned"`
	RecoTriesLeft int     `json:"reco_tries_left"`
}

func userHandle(role domain.Role, username string) string {
	return string(role) + ":" + username
}

func newUserRecord(u *domain.User) userRecord {
	return userRecord{
		Seq:           u.ID,
		Handle:        userHandle(u.Role, u.Username()),
		Role:          string(u.Role),
		Email:         u.Email,
		CollegeID:     u.CollegeID,
		PasswordHash:  u.PasswordHash,
		Coins:         u.Coins,
		PointsEarned:  u.PointsEarned,
		RecoTriesLeft: u.RecoTriesLeft,
	}
}

func (r userRecord) toDomain() domain.User {
	return domain.User{
		ID:            r.Seq,
		Role:          domain.Role(r.Role),
		Email:         r.Email,
		CollegeID:     r.CollegeID,
		PasswordHash:  r.PasswordHash,
		Coins:         r.Coins,
		PointsEarned:  r.PointsEarned,
		RecoTriesLeft: r.RecoTriesLeft,
	}
}

type productRecord struct {
	Seq          int64   `json:"seq"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ImageURL     string  `json:"image_url"`
	BasePrice    float64 `json:"base_price"`
	CurrentPrice float64 `json:"current_price"`
	Stock        int     `json:"stock"`
	Points       int     `json:"points"`
}

func newProductRecord(p *domain.Product) productRecord {
	return productRecord{
		Seq:          p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		BasePrice:    p.BasePrice,
		CurrentPrice: p.CurrentPrice,
		Stock:        p.Stock,
		Points:       p.Points,
	}
}

func (r productRecord) toDomain() domain.Product {
	return domain.Product{
		ID:           r.Seq,
		Name:         r.Name,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		BasePrice:    r.BasePrice,
		CurrentPrice: r.CurrentPrice,
		Stock:        r.Stock,
		Points:       r.Points,
	}
}

// Timestamps are stored as Unix nanoseconds so that ordering is exact.
type pricePointRecord struct {
	ProductID int64   `json:"product_id"`
	Price     float64 `json:"price"`
	TS        int64   `json:"ts"`
}

func (r pricePointRecord) toDomain() domain.PricePoint {
	return domain.PricePoint{
		ProductID: r.ProductID,
		Price:     r.Price,
		Timestamp: time.Unix(0, r.TS).UTC(),
	}
}

type counterRecord struct {
	Value int64 `json:"value"`
}

type revenueRecord struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

func recordID(table string, seq int64) models.RecordID {
	return models.NewRecordID(table, seq)
}

func counterID(table string) models.RecordID {
	return models.NewRecordID(tableCounter, table)
}
