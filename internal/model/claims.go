package model

// Identity is the resolved caller attached to a request by the auth gate.
type Identity struct {
	AccountID string `json:"id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Username  string `json:"userName"`
}
