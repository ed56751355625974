package auth

import "context"

type Role string

const (
	RoleUser   Role = "user"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller. For doctors UserID is the doctor id.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ActsForDoctor reports whether p may manage the schedule of doctorID.
func (p Principal) ActsForDoctor(doctorID string) bool {
	return p.IsAdmin() || (p.Role == RoleDoctor && p.UserID == doctorID)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
