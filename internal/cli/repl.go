package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a recording stub.
type execIface interface {
	Tap()
	Save()
	Discard()
	Flip()
	ToggleFlash()
	Upload(ctx context.Context, path string) error
	List(ctx context.Context) error
	AlbumAdd(ctx context.Context, albumID string, photoIDs []string) error
	Delete(ctx context.Context, photoIDs []string) error
}

const helpText = "Available commands: tap, save, discard, flip, flash, upload <file>, list, album-add <album> <photo...>, delete <photo...>, status, exit"

// runREPL reads commands line by line and dispatches them to a.
//
// Booth commands (tap, save, discard, flip, flash) only post to the state
// machine; its progress is reported asynchronously by the event listener.
// The prompt is printed only when prompt is true, so piped input stays quiet.
// The loop ends on scanner EOF, ctx cancellation or "exit"/"quit".
//
// Errors returned by handlers are ignored here; handlers print their own
// user-facing messages.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, prompt bool) {
	for {
		if ctx.Err() != nil {
			return
		}
		if prompt {
			printlnFn(fmt.Sprintf("booth> %s > ", statusFn()))
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "tap", "t":
			a.Tap()

		case "save", "s":
			a.Save()

		case "discard", "d":
			a.Discard()

		case "flip":
			a.Flip()

		case "flash":
			a.ToggleFlash()

		case "upload":
			if len(args) != 1 {
				printlnFn("usage: upload <file>")
				continue
			}
			_ = a.Upload(ctx, args[0])

		case "l", "list":
			_ = a.List(ctx)

		case "album-add":
			if len(args) < 2 {
				printlnFn("usage: album-add <album> <photo...>")
				continue
			}
			_ = a.AlbumAdd(ctx, args[0], args[1:])

		case "delete", "rm":
			if len(args) == 0 {
				printlnFn("usage: delete <photo...>")
				continue
			}
			_ = a.Delete(ctx, args)

		case "status":
			printlnFn(statusFn())

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
