/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission dashboard server. Handles
  configuration, dependency injection, startup maintenance, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load config.yaml / env overrides
  2. Initialize SQLite store and run the self-healing maintenance pass
  3. Load the payroll calendar (embedded table + optional extra years)
  4. Connect the chat notifier (disabled when no bot token is set)
  5. Configure HTTP router and start with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the trim scheduler and close the database
  4. Exit

SEE ALSO:
  - config.go: configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"

	"github.com/warp/commission-engine/api"
	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/chat"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/identity"
	"github.com/warp/commission-engine/payroll"
	"github.com/warp/commission-engine/store/sqlite"
)

func main() {
	cfg := LoadConfig()

	// Flags override file and env config.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	importPath := flag.String("import", "", "JSON book-of-business export to import, then exit")
	importAgent := flag.String("import-agent", "", "agent id that owns the imported book")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// One-shot import mode for agents migrating from spreadsheets.
	if *importPath != "" {
		runImport(store, *importPath, *importAgent)
		return
	}

	runMaintenance(store)
	if cfg.AgentRosterPath != "" {
		syncRoster(store, cfg.AgentRosterPath)
	}

	// Payroll calendar: embedded table plus any configured extra years.
	payCal := payroll.Default()
	if cfg.PayrollTablePath != "" {
		data, err := os.ReadFile(cfg.PayrollTablePath)
		if err != nil {
			log.Fatalf("Failed to read payroll table %s: %v", cfg.PayrollTablePath, err)
		}
		extra, err := payroll.Parse(data)
		if err != nil {
			log.Fatalf("Failed to parse payroll table %s: %v", cfg.PayrollTablePath, err)
		}
		payCal.Merge(extra)
	}
	log.Printf("Payroll calendar %s covering years %v", payCal.Version(), payCal.Years())

	// Chat notifier; a nil poster disables outbound messages.
	var poster chat.Poster
	if cfg.SlackBotToken != "" {
		poster = slack.New(cfg.SlackBotToken,
			slack.OptionHTTPClient(&http.Client{Timeout: 10 * time.Second}))
		log.Printf("Chat notifications enabled (general=%s reconciliation=%s)",
			cfg.GeneralChannelID, cfg.ReconciliationChannelID)
	} else {
		log.Printf("Chat notifications disabled: no bot token configured")
	}
	notifier := chat.NewNotifier(poster, cfg.GeneralChannelID, cfg.ReconciliationChannelID)

	// Nightly contact-log trim.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.TrimSchedule, func() {
		n, err := store.TrimContactLog(context.Background(), calendar.Today())
		if err != nil {
			log.Printf("Contact-log trim failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("Trimmed %d expired contact-log rows", n)
		}
	}); err != nil {
		log.Fatalf("Invalid trim schedule %q: %v", cfg.TrimSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize handler and router
	handler := api.NewHandler(store, payCal, notifier)
	router := api.NewRouter(handler, identity.HeaderProvider{})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// runImport loads a JSON book-of-business export into the store. The whole
// book is validated before any row is written.
func runImport(store *sqlite.Store, path, agentID string) {
	if agentID == "" {
		log.Fatalf("-import requires -import-agent")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	policies, err := factory.ParseBook(data, agentID)
	if err != nil {
		log.Fatalf("Import rejected: %v", err)
	}

	ctx := context.Background()
	for _, p := range policies {
		if _, err := store.CreatePolicy(ctx, p); err != nil {
			log.Fatalf("Import failed on %s (%s): %v", p.PolicyNumber, p.ClientName, err)
		}
	}
	log.Printf("Imported %d policies for agent %s", len(policies), agentID)
}

// syncRoster mirrors the identity-provider roster into agent_profiles so
// every known agent has a profile row before first login. Existing rows are
// never touched.
func syncRoster(store *sqlite.Store, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read agent roster %s: %v", path, err)
	}
	agents, err := identity.ParseRoster(data)
	if err != nil {
		log.Fatalf("Invalid agent roster %s: %v", path, err)
	}
	created, err := store.SyncAgents(context.Background(), agents)
	if err != nil {
		log.Fatalf("Agent sync failed: %v", err)
	}
	log.Printf("Agent roster: %d agents, %d profiles created", len(agents), created)
}

// runMaintenance repairs legacy data on startup. Each routine is idempotent;
// failures are logged and never block startup.
func runMaintenance(store *sqlite.Store) {
	ctx := context.Background()

	if n, err := store.FixCommissionRounding(ctx); err != nil {
		log.Printf("Maintenance: rounding repair failed: %v", err)
	} else if n > 0 {
		log.Printf("Maintenance: repaired %d mis-rounded commission amounts", n)
	}

	if n, err := store.BackfillCancelledDates(ctx); err != nil {
		log.Printf("Maintenance: cancelled-date backfill failed: %v", err)
	} else if n > 0 {
		log.Printf("Maintenance: backfilled %d missing cancelled dates", n)
	}

	if n, err := store.TrimContactLog(ctx, calendar.Today()); err != nil {
		log.Printf("Maintenance: contact-log trim failed: %v", err)
	} else if n > 0 {
		log.Printf("Maintenance: trimmed %d expired contact-log rows", n)
	}
}
