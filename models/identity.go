package models

// Identity is the verified principal behind a request, resolved from a bearer
// token by the auth service. It is never persisted.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
