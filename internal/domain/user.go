package domain

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// Role identifies what a user may do in the market.
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// Defaults applied to newly registered players.
const (
	DefaultCoins     = 50000.0
	DefaultRecoTries = 2
	AdminCoins       = 999999.0
)

// User represents a market participant.
type User struct {
	ID            int64   `json:"id"`
	Role          Role    `json:"role"`
	Email         string  `json:"email,omitempty"`
	CollegeID     string  `json:"college_id,omitempty"`
	PasswordHash  string  `json:"password_hash,omitempty"`
	Coins         float64 `json:"coins"`
	PointsEarned  int     `json:"points_earned"`
	RecoTriesLeft int     `json:"reco_tries_left"`
}

// Username is the public handle: the college id for players, the email for admins.
func (u *User) Username() string {
	if u.Role == RoleAdmin {
		return u.Email
	}
	return u.CollegeID
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetPassword stores a bcrypt hash of the given password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a plaintext password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// NewPlayer returns a player with the starting balance and recommendation tries.
func NewPlayer(collegeID string) *User {
	return &User{
		Role:          RolePlayer,
		CollegeID:     collegeID,
		Coins:         DefaultCoins,
		RecoTriesLeft: DefaultRecoTries,
	}
}

// NewAdmin returns an admin account for the given email.
func NewAdmin(email string) *User {
	return &User{
		Role:          RoleAdmin,
		Email:         email,
		Coins:         AdminCoins,
		RecoTriesLeft: DefaultRecoTries,
	}
}

// UserRepository defines the contract for user data storage operations.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserRepository interface {
	// FindUserByID returns ErrNotFound when no user has the id.
	FindUserByID(ctx context.Context, id int64) (*User, error)
	// FindPlayerByCollegeID returns ErrNotFound when no player matches.
	FindPlayerByCollegeID(ctx context.Context, collegeID string) (*User, error)
	// FindAdminByEmail returns ErrNotFound when no admin matches.
	FindAdminByEmail(ctx context.Context, email string) (*User, error)
	// CreateUser assigns an id and persists the user. A duplicate email or
	// college id yields ErrUserAlreadyExists.
	CreateUser(ctx context.Context, user *User) (*User, error)
	// ListPlayersByPoints returns players ordered by points, highest first.
	ListPlayersByPoints(ctx context.Context) ([]User, error)
	// ConsumeRecommendationTry decrements the user's tries if any remain and
	// returns the remaining count. It returns ErrNoTriesLeft otherwise.
	ConsumeRecommendationTry(ctx context.Context, userID int64) (int, error)
}
