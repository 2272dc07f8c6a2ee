package models

// UserRole represents the roles the Academy backend grants.
type UserRole string

const (
	// RoleAdmin is the producer/instructor role.
	RoleAdmin UserRole = "ADMIN"
	// RoleAffiliate is the student role.
	RoleAffiliate UserRole = "AFFILIATE"
)

// User is the authenticated viewer. Immutable during a session except the avatar.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
}

// IsAdmin reports whether the user may use instructor tools.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ProfileUpdate holds the editable profile fields. The email identifies the user and stays fixed.
type ProfileUpdate struct {
	Name string `json:"name" validate:"required,max=120"`
	Bio  string `json:"bio" validate:"max=500"`
}
