package user

import (
	"errors"
	"time"
)

// Position of an account holder. The portal only distinguishes staff
// ("prof") from students ("etudiant").
type Position string

const (
	PositionProf     Position = "prof"
	PositionEtudiant Position = "etudiant"
)

func (p Position) Valid() bool {
	return p == PositionProf || p == PositionEtudiant
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	PhoneNumber  string    `json:"phoneNumber"`
	Region       string    `json:"region,omitempty"`
	Position     Position  `json:"position"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public is the projection returned to clients. It never carries the
// password hash.
type Public struct {
	ID       int64    `json:"id"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Region   string   `json:"region,omitempty"`
	Position Position `json:"position"`
}

func (u User) Public() Public {
	return Public{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Region:   u.Region,
		Position: u.Position,
	}
}

// CreateParams is what the store needs to insert a row. PasswordHash must
// already be hashed; the store never sees a plaintext password.
type CreateParams struct {
	FullName     string
	Email        string
	PasswordHash string
	PhoneNumber  string
	Region       string
	Position     Position
}
