// Package testfixtures provides a small shop API used to test introspection
// and generation against real source.
package testfixtures

import (
	"image"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/broady/fluidgen/fluidtypes"
)

// Role is a user's access level.
type Role string

const (
	// RoleAdmin can manage every order.
	RoleAdmin  Role = "admin"
	RoleMember Role = "member" // Default role.
)

// Priority orders fulfilment.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// Color is one of a fixed set of names.
type Color string

func (Color) LiteralValues() []any { return []any{"red", "green", "blue"} }

// Entity carries fields shared by stored records.
type Entity struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a registered account.
type User struct {
	Entity

	// Name is the display name.
	Name    string              `json:"name" validate:"required,min=1,max=64"`
	Email   fluidtypes.EmailStr `json:"email"`
	Role    Role                `json:"role" default:"member"`
	Orders  []*Order            `json:"orders,omitempty"`
	Manager *User               `json:"manager"`
	Cookie  *http.Cookie        `json:"cookie,omitempty"`
	Secret  string              `json:"-"`
	private string
}

// Order is a purchase.
type Order struct {
	Entity

	Buyer    *User                       `json:"buyer"`
	Total    decimal.Decimal             `json:"total" doc:"Total in the store currency."`
	Priority Priority                    `json:"priority"`
	Tags     map[string]string           `json:"tags"`
	Color    Color                       `json:"color"`
	Placed   fluidtypes.Date             `json:"placed"`
	Note     fluidtypes.Optional[string] `json:"note"`
}

// Admin is a user with elevated rights.
//
// Deprecated: grant RoleAdmin instead.
type Admin struct {
	User
	Scopes []string `json:"scopes"`
}

// Location is a point with a label. The embedded point is not part of the
// project, so its fields are flattened.
type Location struct {
	image.Point
	Label string `json:"label"`
}

// Page is one page of results.
type Page[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next"`
}

// Store is injected into handlers.
type Store struct {
	Users map[int64]*User
}

// StreamingResponse shares its name with the framework type and must never
// be mistaken for it.
type StreamingResponse struct {
	MediaType string
}

// NewStreamingResponse shares its name with the framework constructor.
func NewStreamingResponse(mediaType string) *StreamingResponse {
	return &StreamingResponse{MediaType: mediaType}
}
