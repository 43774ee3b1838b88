package cli

import (
	"bufio"
	"context"
	"fmt"
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
	Whoami(ctx context.Context) error
	UpdateAccount(ctx context.Context) error
	Avatar(ctx context.Context, args []string) error
	Cover(ctx context.Context, args []string) error
	Channel(ctx context.Context, args []string) error
	History(ctx context.Context) error
	Watch(ctx context.Context, args []string) error
	Subscribe(ctx context.Context, args []string) error
	Unsubscribe(ctx context.Context, args []string) error
	ChangePassword(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads a line from the provided scanner, parses the first token as
// the command, and dispatches to methods on a. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cs> %s", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, update, avatar <path>, cover <path>, channel <username>, history, watch <videoID>, sub <channelID>, unsub <channelID>, passwd, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "update":
			_ = a.UpdateAccount(ctx)

		case "avatar":
			_ = a.Avatar(ctx, args)

		case "cover":
			_ = a.Cover(ctx, args)

		case "channel":
			_ = a.Channel(ctx, args)

		case "history":
			_ = a.History(ctx)

		case "watch":
			_ = a.Watch(ctx, args)

		case "sub":
			_ = a.Subscribe(ctx, args)

		case "unsub":
			_ = a.Unsubscribe(ctx, args)

		case "passwd":
			_ = a.ChangePassword(ctx)

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
