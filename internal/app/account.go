package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/auth"
	"github.com/rbright/signcap/internal/cli"
	"github.com/rbright/signcap/internal/lesson"
	"github.com/rbright/signcap/internal/stubserver"
)

const defaultStubAddr = "127.0.0.1:8000"

func (r Runner) commandLogin(ctx context.Context, svc *services, args []string) int {
	session, err := svc.auth.Login(ctx, args[0], args[1])
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "signed in as %s\n", displayName(session))
	return 0
}

func (r Runner) commandSignup(ctx context.Context, svc *services, args []string) int {
	session, err := svc.auth.Signup(ctx, args[0], args[1])
	if errors.Is(err, auth.ErrConfirmationPending) {
		fmt.Fprintln(r.Stdout, err.Error())
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "account created; signed in as %s\n", displayName(session))
	return 0
}

func (r Runner) commandLogout(ctx context.Context, svc *services) int {
	if err := svc.auth.Logout(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, "signed out")
	return 0
}

func (r Runner) commandProgress(ctx context.Context, svc *services) int {
	index, err := svc.progress.Load(ctx)
	if errors.Is(err, apperr.ErrAuthenticationRequired) {
		fmt.Fprintln(r.Stderr, "error: sign in to see lesson progress")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if index < 0 || index >= len(lesson.Alphabet) {
		index = 0
	}
	fmt.Fprintf(r.Stdout, "next letter: %s (%d/%d)\n", lesson.Alphabet[index], index+1, len(lesson.Alphabet))
	return 0
}

// commandReport files the archived samples recognized as TRANSLATED under
// the misclassification prefix, tagged with what was actually SIGNED.
func (r Runner) commandReport(ctx context.Context, svc *services, args []string) int {
	if svc.archiver == nil {
		fmt.Fprintln(r.Stderr, "error: archive.enable is false; there are no samples to report")
		return 1
	}
	signed, translated := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])

	userID, err := svc.users.UserID(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	moved, err := svc.archiver.ReportMisclassification(ctx, userID, translated, signed, time.Now())
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if moved == 0 {
		fmt.Fprintf(r.Stdout, "no recordings of %q to report\n", translated)
		return 0
	}
	fmt.Fprintf(r.Stdout, "reported %d recording(s) of %q as %q\n", moved, translated, signed)
	return 0
}

func (r Runner) commandStubServer(ctx context.Context, parsed cli.Parsed, logger *slog.Logger) int {
	addr := defaultStubAddr
	if len(parsed.Args) > 0 {
		addr = parsed.Args[0]
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	opts := stubserver.DefaultOptions()
	opts.Logger = logger
	fmt.Fprintf(r.Stdout, "stub recognition server listening on http://%s\n", listener.Addr())
	if err := stubserver.New(opts).Serve(ctx, listener); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func displayName(s auth.Session) string {
	if s.Email != "" {
		return s.Email
	}
	return s.UserID
}
