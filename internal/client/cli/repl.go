package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	focus(ctx context.Context)
	SwitchRole(ctx context.Context, role string) error
	Signup(ctx context.Context) error
	VerifyOTP(ctx context.Context) error
	Resend(ctx context.Context) error
	Forgot(ctx context.Context) error
	NewPassword(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// The shared session is rechecked before every command. The loop exits on
// EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  - role <customer|vendor>  switch principal kind
//	  - signup, otp, resend     create an account
//	  - forgot, otp, password   reset a password
//	  - login
//
//	Logged in:
//	  - whoami, logout
//
// Errors returned by handlers are ignored here; handlers report their own.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "caterauth %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		a.focus(ctx)

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: whoami, status, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: role <customer|vendor>, signup, otp, resend, forgot, password, login, status, exit")
			}
		case "role":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: role <customer|vendor>")
				continue
			}
			_ = a.SwitchRole(ctx, args[0])
		case "signup":
			_ = a.Signup(ctx)
		case "otp":
			_ = a.VerifyOTP(ctx)
		case "resend":
			_ = a.Resend(ctx)
		case "forgot":
			_ = a.Forgot(ctx)
		case "password":
			_ = a.NewPassword(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "status":
			_ = a.Status(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
