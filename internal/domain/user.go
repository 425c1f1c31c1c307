package domain

import "time"

// Role enumerates account roles. Roles are hierarchical: each role
// carries every capability of the roles below it.
type Role string

const (
	RoleUser    Role = "USER"
	RoleTech    Role = "TECH"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleUser:    0,
	RoleTech:    1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// AtLeast reports whether the role carries the capability of min.
// Unknown roles rank below USER.
func (r Role) AtLeast(min Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[min]
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Assignable reports whether tickets may be assigned to a holder of this
// role. Only technicians and managers work tickets.
func (r Role) Assignable() bool {
	return r == RoleTech || r == RoleManager
}

// User is the domain model for every account: clients, technicians,
// managers and administrators, distinguished by Role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Locale       string
	Theme        string
	CreatedAt    time.Time
}

// UserRef is a lightweight reference to a user carried on tickets and
// comments fetched from the store.
type UserRef struct {
	ID   string
	Name string
}
