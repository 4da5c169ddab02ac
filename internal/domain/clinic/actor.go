package clinic

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the authority an actor holds in the clinic.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
)

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "doctor":
		return RoleDoctor, nil
	case "patient":
		return RolePatient, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDoctor || r == RolePatient
}

// Actor is the authenticated caller of a core operation. The request layer
// builds it from the verified token and passes it in explicitly.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Is reports whether the actor holds role and is the user identified by id.
func (a Actor) Is(role Role, id uuid.UUID) bool {
	return a.Role == role && a.ID == id
}

// Validate rejects actors without an identity or with an unknown role.
func (a Actor) Validate() error {
	if a.ID == uuid.Nil || !a.Role.Valid() {
		return fmt.Errorf("%w: missing or malformed actor", ErrForbidden)
	}
	return nil
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}
