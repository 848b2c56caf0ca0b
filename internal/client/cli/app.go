package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/dvasilkov/catalogsync/internal/client/client"
	"github.com/dvasilkov/catalogsync/internal/client/config"
	"github.com/dvasilkov/catalogsync/internal/client/identity"
	"github.com/dvasilkov/catalogsync/internal/client/netwatch"
	"github.com/dvasilkov/catalogsync/internal/client/repositories/metadata"
	"github.com/dvasilkov/catalogsync/internal/client/sync"
	"github.com/dvasilkov/catalogsync/internal/logging"

	_ "modernc.org/sqlite"
)

// App holds the wired engine and the REPL state (the currently selected
// business).
type App struct {
	config   *config.Config
	db       *sql.DB
	registry *sync.Registry
	watcher  *netwatch.Watcher
	log      logging.Logger

	businessID string
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api := client.NewHTTPClient(c.ServerEndpointAddr, c.RequestTimeout)

	deviceID, err := identity.NewProvider(
		metadata.NewSQLiteRepository(db, metadata.GlobalScope)).Ensure(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	watcher := netwatch.New(api, c.OnlineCheckInterval, log)
	registry := sync.NewRegistry(db, api, watcher, deviceID, log)

	return &App{
		config:   c,
		db:       db,
		registry: registry,
		watcher:  watcher,
		log:      log,
	}, nil
}

// Run starts the connectivity watcher and the reconnect-sync loop, then
// blocks in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.watcher.Run(ctx)
	go a.registry.Run(ctx, a.watcher.Changes())

	fmt.Println("Catalog CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

func (a *App) getStatus() string {
	s := "offline"
	if a.watcher.Online() {
		s = "online"
	}
	if a.businessID != "" {
		s = a.businessID + " " + s
	}
	return "(" + s + ")"
}

func (a *App) hasBusiness() bool {
	return a.businessID != ""
}

// manager returns the sync manager of the currently selected business.
// Callers must check hasBusiness first.
func (a *App) manager() *sync.Manager {
	return a.registry.Manager(a.businessID)
}
