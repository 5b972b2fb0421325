package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	Sessions(ctx context.Context) error
	Observations(ctx context.Context, sessionID string) error
	Record(ctx context.Context, sessionID string) error
	Sync(ctx context.Context) error
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
	Conflicts(ctx context.Context) error
	Photo(ctx context.Context, sessionID, path string) error
}

const helpText = "Available commands: sessions, observations <session>, record <session>, " +
	"photo <session> <path>, sync, push, pull, conflicts, exit"

// runREPL reads commands from scanner until EOF, "exit" or "quit" and
// dispatches them to a. Handler errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("scout (%s)> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "s", "sessions":
			err = a.Sessions(ctx)
		case "o", "observations":
			if len(args) != 1 {
				printlnFn("Usage: observations <session>")
				continue
			}
			err = a.Observations(ctx, args[0])
		case "r", "record":
			if len(args) != 1 {
				printlnFn("Usage: record <session>")
				continue
			}
			err = a.Record(ctx, args[0])
		case "photo":
			if len(args) != 2 {
				printlnFn("Usage: photo <session> <path>")
				continue
			}
			err = a.Photo(ctx, args[0], args[1])
		case "sync":
			err = a.Sync(ctx)
		case "push":
			err = a.Push(ctx)
		case "pull":
			err = a.Pull(ctx)
		case "conflicts":
			err = a.Conflicts(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
