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

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// Command prompts share the same reader, so input is never double-buffered.
//
//	Not logged in:   help, register, login, exit | quit
//	Logged in:       help, whoami, refresh, logout, exit | quit
//
// Errors returned by command handlers are reported by the handlers
// themselves; the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ct %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, refresh, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
