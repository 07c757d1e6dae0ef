package main

import (
	"context"
	"log"
	"time"

	"formsheet/adapters/mail"
	"formsheet/adapters/pgstore"
	"formsheet/adapters/sheet"
	"formsheet/app"
	"formsheet/domain/ingest"
	"formsheet/internal/config"
	"formsheet/internal/events"
	"formsheet/ports"
	"formsheet/ui"

	"github.com/joho/godotenv"
)

// publishingStore is the slice of store implementations that can emit
// change events.
type publishingStore interface {
	ports.TabularStore
	SetPublisher(p ports.ChangePublisher)
}

// initStore selects the tabular store backend: PostgreSQL when DATABASE_URL
// is set, otherwise the xlsx workbook.
func initStore(cfg *config.Config) (publishingStore, error) {
	if cfg.Store.DatabaseURL != "" {
		log.Printf("Using PostgreSQL store")
		return pgstore.Open(cfg.Store.DatabaseURL)
	}
	log.Printf("Using workbook store: %s (sheet %q)", cfg.Store.SheetFile, cfg.Store.SheetName)
	return sheet.Open(cfg.Store.SheetFile, cfg.Store.SheetName)
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loc := time.Local
	if cfg.Store.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Store.Timezone)
		if err != nil {
			log.Fatalf("Invalid TIMEZONE %q: %v", cfg.Store.Timezone, err)
		}
	}

	store, err := initStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	hub := events.NewHub()
	store.SetPublisher(hub)

	var notifier ports.Notifier
	if cfg.Mail.Enabled {
		mailer := mail.NewMailer(store, mail.Config{
			SMTPHost: cfg.Mail.SMTPHost,
			SMTPPort: cfg.Mail.SMTPPort,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
			Subject:  cfg.Mail.Subject,
		})
		notifier = mailer
		go mailer.Run(context.Background(), hub.Subscribe())
		log.Println("Email notifications enabled")
	}

	coordinator := ingest.NewCoordinator(store, loc, cfg.Store.LockTimeout)
	statsSvc := app.NewStatsService(store, loc)

	admin := ui.NewAdminApp(store, coordinator, statsSvc, notifier, cfg.Store.LockTimeout)
	go func() {
		if err := admin.Start(":" + cfg.Server.AdminPort); err != nil {
			log.Printf("Admin server failed: %v", err)
		}
	}()

	server := ui.NewServer(coordinator)
	log.Fatal(server.Start(":" + cfg.Server.Port))
}
