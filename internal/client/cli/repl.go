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
	hasBusiness() bool
	Use(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Images(ctx context.Context, args []string) error
	Cats(ctx context.Context) error
	AddCat(ctx context.Context, args []string) error
	DelCat(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	FullSync(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the catalog CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	No business selected:
//	  - help           — show available commands
//	  - use <id>       — select the business to work on
//	  - status         — show connectivity and sync state
//	  - exit | quit    — leave the program
//
//	Business selected:
//	  - help           — show available commands
//	  - list           — list products
//	  - search <q>     — search products by name, description, SKU or tag
//	  - add <name> <price> [category]  — create a product
//	  - update <id> <field> <value>    — update one product field
//	  - del <id>       — delete a product
//	  - images <id> <url> [url...]     — replace a product's images
//	  - cats           — list categories
//	  - addcat <name> [parent]         — create a category
//	  - delcat <id>    — delete a category
//	  - sync           — run one incremental sync round
//	  - fullsync       — re-fetch the entire catalog
//	  - status         — show connectivity and sync state
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cat> %s > ", statusFn()))
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
			if a.hasBusiness() {
				printlnFn("Available commands: list, search, add, update, del, images, cats, addcat, delcat, sync, fullsync, status, use, exit")
			} else {
				printlnFn("Available commands: use <business-id>, status, exit")
			}

		case "use":
			_ = a.Use(ctx, args)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "l", "list":
			if !requireBusiness(a) {
				continue
			}
			_ = a.List(ctx)

		case "search":
			if !requireBusiness(a) {
				continue
			}
			_ = a.Search(ctx, args)

		case "add":
			if !requireBusiness(a) {
				continue
			}
			_ = a.Add(ctx, args)

		case "update":
			if !requireBusiness(a) {
				continue
			}
			_ = a.Update(ctx, args)

		case "del":
			if !requireBusiness(a) {
				continue
			}
			_ = a.Delete(ctx, args)

		case "images":
			if !requireBusiness(a) {
				continue
			}
			_ = a.Images(ctx, args)

		case "cats":
			if !requireBusiness(a) {
				continue
			}
			_ = a.Cats(ctx)

		case "addcat":
			if !requireBusiness(a) {
				continue
			}
			_ = a.AddCat(ctx, args)

		case "delcat":
			if !requireBusiness(a) {
				continue
			}
			_ = a.DelCat(ctx, args)

		case "sync":
			if !requireBusiness(a) {
				continue
			}
			_ = a.Sync(ctx)

		case "fullsync":
			if !requireBusiness(a) {
				continue
			}
			_ = a.FullSync(ctx)

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func requireBusiness(a execIface) bool {
	if a.hasBusiness() {
		return true
	}
	printlnFn("Select a business first: use <business-id>")
	return false
}
