package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Skill is one entry of a user's skill collection. Names are unique within
// a user; setting an existing name updates its level in place.
type Skill struct {
	Name  string `bson:"name" json:"name"`
	Level int    `bson:"level" json:"level"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"` // Never expose the hash in JSON
	FirstName string             `bson:"firstName" json:"firstName"`
	LastName  string             `bson:"lastName" json:"lastName"`
	Location  string             `bson:"location,omitempty" json:"location,omitempty"`

	// Attributes holds free-form profile fields.
	Attributes map[string]string `bson:"attributes,omitempty" json:"attributes,omitempty"`

	Skills []Skill `bson:"skills,omitempty" json:"skills"`

	// Scores is append-only; Ranking is the rounded mean of Scores as of the
	// last append.
	Scores  []float64 `bson:"scores,omitempty" json:"scores"`
	Ranking int       `bson:"ranking,omitempty" json:"ranking"`

	Role      string    `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// RegisterInput carries the validated fields of an account creation request.
type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Location   string
	Attributes map[string]string
}

// UpdateInput carries a profile replacement. A non-empty Password is
// re-hashed before persisting.
type UpdateInput struct {
	ID         string
	Password   string
	FirstName  string
	LastName   string
	Location   string
	Attributes map[string]string
}
