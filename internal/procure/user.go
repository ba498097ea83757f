package procure

import (
	"fmt"

	"procurio.org/internal/auth"
	"procurio.org/internal/record"
)

// User is the durable account record. The subject id is assigned by the
// identity gateway; the permission set gates create operations for
// non-admin callers.
type User struct {
	ID          string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        auth.Role `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// ToItem flattens the user into a store item.
func (u User) ToItem() record.Item {
	item := record.Item{
		"user_id":     u.ID,
		"email":       u.Email,
		"role":        string(u.Role),
		"permissions": nil,
		"created_at":  u.CreatedAt,
		"updated_at":  u.UpdatedAt,
	}
	if u.Permissions != nil {
		perms := make([]any, len(u.Permissions))
		for i, p := range u.Permissions {
			perms[i] = p
		}
		item["permissions"] = perms
	}
	return item
}

// UserFromItem rebuilds a user from a store item, rejecting unknown roles.
func UserFromItem(item record.Item) (User, error) {
	id, err := itemString(item, "user_id")
	if err != nil {
		return User{}, err
	}
	email, err := itemString(item, "email")
	if err != nil {
		return User{}, err
	}
	rawRole, err := itemString(item, "role")
	if err != nil {
		return User{}, err
	}
	role, err := auth.ParseRole(rawRole)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	u := User{
		ID:          id,
		Email:       email,
		Role:        role,
		Permissions: itemStringList(item, "permissions"),
	}
	if v := itemOptString(item, "created_at"); v != nil {
		u.CreatedAt = *v
	}
	if v := itemOptString(item, "updated_at"); v != nil {
		u.UpdatedAt = *v
	}
	return u, nil
}
