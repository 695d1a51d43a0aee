package backend

import "github.com/skeliit/skeli/backend/data"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Principal is the authenticated caller of a request. A nil *Principal is an anonymous caller.
type Principal struct {
	UserID int32  `json:"userID"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// HasRole reports whether p holds exactly role. Comparison is case sensitive.
func (p *Principal) HasRole(role Role) bool {
	return p != nil && p.Role == role
}

func principalFromUser(u *data.User) *Principal {
	return &Principal{UserID: u.ID.Int32, Name: u.Name.String, Role: Role(u.Role.String)}
}
