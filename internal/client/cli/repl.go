package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

const (
	anonymousHelp = "Available commands: signup, login, forgot-password, select <path>, submit, download, reset, status, exit"
	signedInHelp  = "Available commands: select <path>, submit, download, reset, status, history, get <n>, delete <n>, " +
		"whoami, change-password, change-email, logout, exit"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	SignUp(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	Profile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	ChangeEmail(ctx context.Context) error
	Select(ctx context.Context, path string) error
	Submit(ctx context.Context) error
	Download(ctx context.Context) error
	Reset(ctx context.Context) error
	Status(ctx context.Context) error
	History(ctx context.Context) error
	HistoryDownload(ctx context.Context, pos string) error
	Delete(ctx context.Context, pos string) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
// The first token of a line is the command; the rest of the line is its
// argument, so paths with spaces work without quoting. Errors returned by
// handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ocr %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(signedInHelp)
			} else {
				printlnFn(anonymousHelp)
			}

		case "signup", "register":
			report(a.SignUp(ctx))

		case "login":
			report(a.Login(ctx))

		case "logout":
			report(a.Logout(ctx))

		case "forgot-password":
			report(a.ForgotPassword(ctx))

		case "whoami", "profile":
			report(a.Profile(ctx))

		case "change-password", "passwd":
			report(a.ChangePassword(ctx))

		case "change-email":
			report(a.ChangeEmail(ctx))

		case "select", "open":
			report(a.Select(ctx, arg))

		case "submit", "process":
			report(a.Submit(ctx))

		case "download":
			report(a.Download(ctx))

		case "reset":
			report(a.Reset(ctx))

		case "status":
			report(a.Status(ctx))

		case "history", "l":
			report(a.History(ctx))

		case "get":
			if arg == "" {
				printlnFn("Usage: get <n>")
				continue
			}
			report(a.HistoryDownload(ctx, arg))

		case "delete", "rm":
			if arg == "" {
				printlnFn("Usage: delete <n>")
				continue
			}
			report(a.Delete(ctx, arg))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

// report prints every user-facing line an error carries.
func report(err error) {
	for _, line := range errorLines(err) {
		printlnFn(line)
	}
}
