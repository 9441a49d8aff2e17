package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/instadm-pro/internal/browser"
	"github.com/yourusername/instadm-pro/internal/campaign"
	"github.com/yourusername/instadm-pro/internal/config"
	"github.com/yourusername/instadm-pro/internal/events"
	"github.com/yourusername/instadm-pro/internal/leads"
	"github.com/yourusername/instadm-pro/internal/logger"
	"github.com/yourusername/instadm-pro/internal/storage"
	"github.com/yourusername/instadm-pro/internal/timing"
)

const (
	AppVersion = "1.0.0"
)

func main() {
	// Display warning banner
	displayWarningBanner()

	// Load configuration
	logger.Info("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Init(cfg.Logging.Level, cfg.Logging.ToFile, cfg.Logging.FilePath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("InstaDM Pro started", "version", AppVersion)
	logger.Warn("This tool is for EDUCATIONAL purposes only and violates Instagram's Terms of Service")

	// Load each account's lead list. An unreadable file aborts the run; an
	// empty list only skips that account.
	accounts := make([]campaign.Account, 0, len(cfg.Accounts))
	for _, accountCfg := range cfg.Accounts {
		list, err := leads.Load(accountCfg.LeadsFile)
		if err != nil {
			logger.Fatal("Failed to load leads file", "file", accountCfg.LeadsFile, "error", err)
		}
		if len(list) == 0 {
			logger.Warn("Leads file is empty, skipping account",
				"account", accountCfg.Username,
				"file", accountCfg.LeadsFile,
			)
			continue
		}
		accounts = append(accounts, campaign.Account{
			Username:   accountCfg.Username,
			Password:   accountCfg.Password,
			Leads:      list,
			SourceFile: accountCfg.LeadsFile,
		})
		logger.Info("Leads loaded", "account", accountCfg.Username, "count", len(list))
	}

	if len(accounts) == 0 {
		logger.Fatal("No accounts with leads to process")
	}

	c := campaign.New(accounts, cfg.Message.Template, cfg.MessageDelay(), cfg.Message.PerAccountCap)
	model := timing.NewModel(timing.DefaultProfile())
	driver := browser.NewDriver(cfg.Stealth.Headless, model)
	runner := campaign.NewRunner(driver, events.LogSink{}, model)

	// Optional campaign history database
	var store *storage.Store
	if cfg.Database.Enabled {
		logger.Info("Initializing database...", "path", cfg.Database.Path)
		store, err = storage.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("Failed to initialize database", "error", err)
		}
		defer store.Close()

		if stats, err := store.GetStats(); err == nil {
			logger.Info("Database statistics",
				"total_runs", stats["total_runs"],
				"total_outcomes", stats["total_outcomes"],
				"total_sent", stats["total_sent"],
				"sent_today", stats["sent_today"],
			)
		}

		if err := store.StartRun(c.ID); err != nil {
			logger.Warn("Failed to record run start", "error", err)
		}

		runner.WithRecorder(store)
	}

	// Graceful shutdown: Ctrl+C stops between leads, outcomes are flushed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx, c)
	if err != nil {
		logger.Warn("Campaign interrupted", "error", err)
	}

	if store != nil {
		if err := store.FinishRun(c.ID, summary.TotalSent, summary.TotalFailed); err != nil {
			logger.Warn("Failed to record run finish", "error", err)
		}
	}

	logger.Info("Campaign summary",
		"campaign_id", c.ID,
		"total_sent", summary.TotalSent,
		"total_failed", summary.TotalFailed,
		"outcomes", len(summary.Outcomes),
	)
}

// displayWarningBanner displays a warning about the tool's purpose
func displayWarningBanner() {
	banner := `
╔════════════════════════════════════════════════════════════════════════════╗
║                                                                            ║
║                    ⚠️  WARNING - EDUCATIONAL USE ONLY ⚠️                    ║
║                                                                            ║
║  This Instagram DM automation tool is a PROOF-OF-CONCEPT for educational   ║
║  and demonstration purposes ONLY.                                          ║
║                                                                            ║
║  ❌ This tool VIOLATES Instagram's Terms of Service                        ║
║  ❌ Using this on real accounts may result in ACCOUNT BAN                  ║
║  ❌ This is NOT intended for production use                                ║
║                                                                            ║
║  ✅ Use ONLY for learning automation techniques                            ║
║  ✅ Use ONLY on test/dummy accounts                                        ║
║  ✅ Demonstrate technical skills responsibly                               ║
║                                                                            ║
║  By continuing, you acknowledge that you understand these warnings and     ║
║  accept full responsibility for any consequences.                          ║
║                                                                            ║
╚════════════════════════════════════════════════════════════════════════════╝

Press Ctrl+C at any time to stop the campaign.

`
	fmt.Println(banner)

	fmt.Println("Starting in 5 seconds...")
	for i := 5; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(1 * time.Second)
	}
	fmt.Println()
}
