// Package flows drives the multi-step identity journeys of a principal:
// signup with OTP verification, and forgot-password with OTP verification,
// reset handoff and new password.
//
// One Flow type serves every principal kind; a Policy supplies what differs
// between them (API role, scratch keys, routes, default OTP windows).
package flows

import (
	"time"

	"github.com/catermarket/caterauth/internal/client/challenge"
	"github.com/catermarket/caterauth/internal/client/models"
)

type Policy struct {
	Kind models.Role
	// KeyPrefix namespaces this principal's entries in the scratch store.
	KeyPrefix string
	// HomeRoute is where a freshly verified account lands.
	HomeRoute   string
	LoginRoute  string
	ForgotRoute string

	SignupOTPTTL time.Duration
	ResetOTPTTL  time.Duration
}

var (
	Customer = Policy{
		Kind:         models.RoleCustomer,
		KeyPrefix:    "customer",
		HomeRoute:    "/",
		LoginRoute:   "/customer/login",
		ForgotRoute:  "/customer/forgot-password",
		SignupOTPTTL: challenge.DefaultSignupTTL,
		ResetOTPTTL:  challenge.DefaultResetTTL,
	}

	Vendor = Policy{
		Kind:         models.RoleVendor,
		KeyPrefix:    "vendor",
		HomeRoute:    "/vendor/business-registration",
		LoginRoute:   "/vendor/login",
		ForgotRoute:  "/vendor/forgot-password",
		SignupOTPTTL: challenge.DefaultSignupTTL,
		ResetOTPTTL:  challenge.DefaultResetTTL,
	}
)

// HandoffKey is the scratch key holding the reset token between OTP
// verification and the new-password step.
func (p Policy) HandoffKey() string {
	return p.KeyPrefix + ":resetToken"
}

// PolicyFor returns the predefined policy of role.
func PolicyFor(role models.Role) (Policy, bool) {
	switch role {
	case models.RoleCustomer:
		return Customer, true
	case models.RoleVendor:
		return Vendor, true
	}
	return Policy{}, false
}
