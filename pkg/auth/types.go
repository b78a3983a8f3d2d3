package auth

import "time"

// User is an account that can sign in and author reports.
type User struct {
	ID                 int64     `json:"id"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Email              string    `json:"email"`
	PhoneNumber        string    `json:"phoneNumber,omitempty"`
	PasswordHash       string    `json:"-"`
	MustChangePassword bool      `json:"mustChangePassword"`
	TempPassword       string    `json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Identity is the resolved caller attached to a request context. A nil
// Identity means the request is anonymous.
type Identity struct {
	User *User
}

// UserID returns the caller's user ID, or 0 for anonymous requests.
func (i *Identity) UserID() int64 {
	if i == nil || i.User == nil {
		return 0
	}
	return i.User.ID
}

// Authenticated reports whether the identity resolved to a real user.
func (i *Identity) Authenticated() bool {
	return i != nil && i.User != nil
}

// AuthPayload is the response to a successful login.
type AuthPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
