package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Strob0t/CogniChat/internal/config"
	"github.com/Strob0t/CogniChat/internal/domain/chat"
	"github.com/Strob0t/CogniChat/internal/domain/user"
	"github.com/Strob0t/CogniChat/internal/service"
)

// runChat signs in and runs an interactive chat loop on the terminal.
func runChat(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	email := fs.String("email", "", "account email (required)")
	length := fs.String("length", "", "response length: short, medium or long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}

	ctx := context.Background()
	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	password, err := promptPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	sess, err := d.sessions.SignIn(ctx, user.SignInRequest{Email: *email, Password: password})
	if err != nil {
		return err
	}
	defer func() { _ = d.sessions.SignOut(context.Background(), sess.ID) }()

	if *length != "" {
		l, err := chat.ParseLength(*length)
		if err != nil {
			return err
		}
		if err := d.sessions.SetLength(sess.ID, l); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Signed in as %s. Type /length <tier> to change reply length, /quit to leave.\n", sess.User.Email)
	return chatLoop(ctx, d, sess.ID, os.Stdin, os.Stdout)
}

func chatLoop(ctx context.Context, d *deps, sessionID string, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/length"):
			l, err := chat.ParseLength(strings.TrimSpace(strings.TrimPrefix(line, "/length")))
			if err == nil {
				err = d.sessions.SetLength(sessionID, l)
			}
			if err != nil {
				_, _ = fmt.Fprintln(out, "!", err)
				continue
			}
			_, _ = fmt.Fprintf(out, "Reply length set to %s.\n", l)
			continue
		}

		turn, err := runTurn(ctx, d, sessionID, line)
		if err != nil {
			_, _ = fmt.Fprintln(out, "! the assistant is unavailable:", err)
			continue
		}
		_, _ = fmt.Fprintln(out, turn.Reply)
		for _, w := range turn.Warnings {
			_, _ = fmt.Fprintln(out, "!", w)
		}
	}
}

func runTurn(ctx context.Context, d *deps, sessionID, message string) (service.Turn, error) {
	sess, release, err := d.sessions.Acquire(sessionID)
	if err != nil {
		return service.Turn{}, err
	}
	defer release()
	return d.chat.Dispatch(ctx, sess, message, sess.Length)
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
