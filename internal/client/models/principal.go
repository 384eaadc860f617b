package models

// Role is the principal type a session belongs to. The empty Role is an
// anonymous visitor.
type Role string

const (
	RoleAnonymous Role = ""
	RoleCustomer  Role = "customer"
	RoleVendor    Role = "vendor"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known authenticated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the identity the server returns for the current user. The
// copy held by the client is for optimistic display only; authorization
// decisions are always the server's.
type Principal struct {
	ID              string `json:"id"`
	DisplayName     string `json:"fullName"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber"`
	Role            Role   `json:"role"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	IsPhoneVerified bool   `json:"isPhoneVerified"`
	AccountStatus   string `json:"accountStatus"`
}
