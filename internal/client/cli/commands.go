package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/catermarket/caterauth/internal/client/flows"
	"github.com/catermarket/caterauth/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var ErrNoFlow = errors.New("no code has been requested; run signup or forgot first")

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// report prints a failed step. Flow errors carry a user-facing message.
func (a *App) report(err error) error {
	var fe *flows.Error
	switch {
	case errors.As(err, &fe):
		msg := fe.Message
		if fe.Field != "" {
			msg = fmt.Sprintf("%s: %s", fe.Field, msg)
		}
		if fe.AttemptsLeft != nil {
			msg = fmt.Sprintf("%s (%d attempts left)", msg, *fe.AttemptsLeft)
		}
		fmt.Fprintln(a.out, msg)
	default:
		fmt.Fprintf(a.out, "error: %v\n", err)
	}
	return err
}

// follow navigates to the redirect a finished step asked for.
func (a *App) follow(ctx context.Context, f *flows.Flow) {
	if r := f.Status().Redirect; r != "" {
		a.Navigate(ctx, r)
	}
}

func (a *App) SwitchRole(_ context.Context, name string) error {
	role := models.Role(name)
	if _, ok := a.policies[role]; !ok {
		return a.report(fmt.Errorf("unknown role %q", name))
	}
	a.mu.Lock()
	a.role = role
	a.mu.Unlock()
	fmt.Fprintf(a.out, "Switched to %s\n", role)
	return nil
}

func (a *App) Signup(ctx context.Context) error {
	var form flows.SignupForm
	var err error
	if form.FullName, err = a.ask("Full name"); err != nil {
		return err
	}
	if form.Email, err = a.ask("Email"); err != nil {
		return err
	}
	if form.PhoneNumber, err = a.ask("Phone number"); err != nil {
		return err
	}
	if form.Password, err = getPassword("Password", a.out); err != nil {
		return err
	}

	f := a.mount()
	if err := f.Submit(ctx, flows.StepSignup, form); err != nil {
		return a.report(err)
	}
	a.printChallenge(f)
	return nil
}

func (a *App) Forgot(ctx context.Context) error {
	phone, err := a.ask("Phone number")
	if err != nil {
		return err
	}
	f := a.mount()
	if err := f.Submit(ctx, flows.StepForgotPassword, flows.IdentifierForm{PhoneNumber: phone}); err != nil {
		return a.report(err)
	}
	a.printChallenge(f)
	return nil
}

func (a *App) printChallenge(f *flows.Flow) {
	st := f.Status()
	fmt.Fprintf(a.out, "Code sent to %s. It expires in %s.\n", st.Target, countdown(st.Remaining))
}

// VerifyOTP submits a code for whichever challenge the current flow holds.
func (a *App) VerifyOTP(ctx context.Context) error {
	f := a.current()
	if f == nil || f.Status().State != flows.StateAwaitingOTP {
		return a.report(ErrNoFlow)
	}
	code, err := a.ask("Enter the 6-digit code")
	if err != nil {
		return err
	}

	step := flows.StepSignupOTP
	if f.Status().Branch == flows.BranchReset {
		step = flows.StepResetOTP
	}
	if err := f.Submit(ctx, step, flows.OTPForm{Code: code}); err != nil {
		return a.report(err)
	}

	if step == flows.StepSignupOTP {
		fmt.Fprintln(a.out, "Account verified.")
		a.follow(ctx, f)
	} else {
		fmt.Fprintln(a.out, "Code accepted. Run 'password' to choose a new password.")
	}
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	f := a.current()
	if f == nil {
		return a.report(ErrNoFlow)
	}
	if err := f.Resend(ctx); err != nil {
		return a.report(err)
	}
	a.printChallenge(f)
	return nil
}

// NewPassword opens the new-password step, which needs the handoff left by
// a verified reset code.
func (a *App) NewPassword(ctx context.Context) error {
	var form flows.NewPasswordForm
	var err error
	if form.Password, err = getPassword("New password", a.out); err != nil {
		return err
	}
	if form.Confirm, err = getPassword("Confirm password", a.out); err != nil {
		return err
	}

	f := a.mount()
	err = f.Submit(ctx, flows.StepNewPassword, form)
	a.follow(ctx, f)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Password changed. Log in with your new password.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	identifier, err := a.ask("Phone number or email")
	if err != nil {
		return err
	}
	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}

	role := a.Role()
	if err := a.auth.Login(ctx, role, identifier, password); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Login successful")
	a.Navigate(ctx, a.policies[role].HomeRoute)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	role := a.auth.Role()
	if err := a.auth.Logout(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Logged out")
	if p, ok := a.policies[role]; ok {
		a.Navigate(ctx, p.LoginRoute)
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	p, err := a.auth.RefreshPrincipal(ctx)
	if err != nil {
		return a.report(err)
	}
	if p == nil {
		fmt.Fprintf(a.out, "%s (no profile)\n", a.auth.Role())
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> %s, %s\n", p.DisplayName, p.Email, a.auth.Role(), p.AccountStatus)
	return nil
}

// Status prints the current flow and session without a network call.
func (a *App) Status(_ context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintf(a.out, "session: %s\n", a.auth.Role())
	} else {
		fmt.Fprintln(a.out, "session: none")
	}
	f := a.current()
	if f == nil {
		return nil
	}
	st := f.Status()
	fmt.Fprintf(a.out, "flow: %s", st.State)
	if st.State == flows.StateAwaitingOTP {
		resend := "resend in " + countdown(st.Remaining)
		if st.CanResend {
			resend = "code expired, resend available"
		}
		fmt.Fprintf(a.out, ", %s", resend)
	}
	fmt.Fprintln(a.out)
	return nil
}

func countdown(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
