// Command seed-suc opens a SUC collection cycle: it creates the event and one
// UNPAID billing record per active member. Re-running with -event fills in
// records for members added after the cycle opened.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"bendahara/internal/config"
	"bendahara/internal/core"
	applog "bendahara/internal/log"
	"bendahara/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentSeed})
	applog.SetDefault(logger)

	var (
		title    = flag.String("title", "", "event title, e.g. \"SUC Agustus 2026\"")
		amount   = flag.String("amount", "", "amount due per member, decimal units (e.g. 25000 or 25000.00)")
		deadline = flag.String("deadline", "", "payment deadline, YYYY-MM-DD")
		eventID  = flag.String("event", "", "existing event id to backfill instead of creating a new event")
	)
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	event, err := resolveEvent(ctx, repo, *eventID, *title, *amount, *deadline)
	if err != nil {
		logger.Error("Failed to resolve event", "error", err)
		flag.Usage()
		os.Exit(1)
	}

	members, err := repo.ListActiveMembers(ctx)
	if err != nil {
		logger.Error("Failed to list active members", "error", err)
		os.Exit(1)
	}
	if len(members) == 0 {
		logger.Warn("No active members found, nothing to seed", "event_id", event.ID)
		return
	}

	created := 0
	skipped := 0
	for _, m := range members {
		if _, err := repo.GetSucRecord(ctx, m.ID, event.ID); err == nil {
			skipped++
			continue
		} else if !errors.Is(err, core.ErrRecordNotFound) {
			logger.Error("Failed to check existing record", "member_id", m.ID, "error", err)
			os.Exit(1)
		}

		rec := core.SucRecord{
			MemberID:     m.ID,
			EventID:      event.ID,
			BilledAmount: event.AmountRequired,
			Status:       core.Unpaid,
		}
		if _, err := repo.CreateSucRecord(ctx, rec); err != nil {
			logger.Error("Failed to create record", "member_id", m.ID, "member_name", m.Name, "error", err)
			os.Exit(1)
		}
		created++
	}

	logger.Info("SUC seeding complete",
		"event_id", event.ID,
		"event_title", event.Title,
		"records_created", created,
		"records_skipped", skipped,
		"active_members", len(members))
}

func resolveEvent(ctx context.Context, repo *storage.SQLiteRepository, eventID, title, amount, deadline string) (core.SucEvent, error) {
	if eventID != "" {
		return repo.GetEvent(ctx, eventID)
	}

	if title == "" || amount == "" || deadline == "" {
		return core.SucEvent{}, errors.New("either -event or all of -title, -amount and -deadline are required")
	}

	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.SucEvent{}, err
	}
	due, err := time.Parse(time.DateOnly, deadline)
	if err != nil {
		return core.SucEvent{}, err
	}

	return repo.CreateEvent(ctx, core.SucEvent{
		Title:          title,
		AmountRequired: core.Money{Cents: cents},
		Deadline:       due,
	})
}
