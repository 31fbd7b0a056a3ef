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
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	Conversations(ctx context.Context) error
	Open(ctx context.Context, who string) error
	Compose(ctx context.Context, receiverID string) error
	Wallet(ctx context.Context) error
	Buy(ctx context.Context, amount string) error
	Unread(ctx context.Context) error
	Notify(ctx context.Context, kind string) error
}

// runREPL starts a simple read–eval–print loop for the CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help             show available commands
//	  - register         create an account
//	  - login            authenticate
//	  - exit | quit      leave the program
//
//	Logged in:
//	  - whoami           show the current user
//	  - profile | edit   show or edit the dating profile
//	  - conversations    list conversations
//	  - open <user>      open the conversation with a username or uuid
//	  - compose <uuid>   start a conversation with a user
//	  - wallet | buy <n> show the balance or purchase coins
//	  - unread           show the unread message count
//	  - notify <kind>    simulate a tapped push notification (like, match, message)
//	  - logout           log out
//
// Errors returned by command handlers are ignored here; handlers report their
// own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tmy %s > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !a.isLoggedIn() && sessionCommands[cmd] {
			printlnFn("Please login first")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, profile, edit, (c)onversations, open <user>, compose <uuid>, wallet, buy <amount>, unread, notify <kind>, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "edit":
			_ = a.EditProfile(ctx)

		case "c", "conversations":
			_ = a.Conversations(ctx)

		case "open":
			if len(args) == 0 {
				printlnFn("Usage: open <username|uuid>")
				continue
			}
			_ = a.Open(ctx, args[0])

		case "compose":
			if len(args) == 0 {
				printlnFn("Usage: compose <user uuid>")
				continue
			}
			_ = a.Compose(ctx, args[0])

		case "wallet":
			_ = a.Wallet(ctx)

		case "buy":
			if len(args) == 0 {
				printlnFn("Usage: buy <amount>")
				continue
			}
			_ = a.Buy(ctx, args[0])

		case "unread":
			_ = a.Unread(ctx)

		case "notify":
			if len(args) == 0 {
				printlnFn("Usage: notify <like|match|message>")
				continue
			}
			_ = a.Notify(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// sessionCommands need an authenticated session.
var sessionCommands = map[string]bool{
	"logout": true, "whoami": true, "profile": true, "edit": true,
	"c": true, "conversations": true, "open": true, "compose": true,
	"wallet": true, "buy": true, "unread": true, "notify": true,
}
