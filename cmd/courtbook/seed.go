package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtbook/courtbook/internal/config"
	"github.com/courtbook/courtbook/internal/event"
	"github.com/courtbook/courtbook/internal/user"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo admin, members and upcoming sessions",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoMembers = []user.CreateUserInput{
	{Name: "admin", Email: "admin@courtbook.local", Password: "admin", IsAdmin: true},
	{Name: "mika", Email: "mika@courtbook.local", Password: "demo"},
	{Name: "sam", Email: "sam@courtbook.local", Password: "demo"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := user.NewStore(pool, cfg.Sessions.TTL)
	eventStore := event.NewStore(pool)
	eventService := event.NewService(eventStore)

	// Check if seed has already run.
	count, err := userStore.Count(ctx)
	if err != nil {
		return fmt.Errorf("checking existing users: %w", err)
	}
	if count > 0 {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	for _, input := range demoMembers {
		u, err := userStore.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("creating user %q: %w", input.Name, err)
		}
		slog.Info("created user", "name", u.Name, "admin", u.IsAdmin)
	}

	nextTuesday := upcomingWeekday(time.Now(), time.Tuesday)
	sessions := []event.CreateEventInput{
		{Date: nextTuesday, StartTime: "19:00", Name: "Tuesday practice", Creator: "admin"},
		{Date: nextTuesday.AddDate(0, 0, 4), StartTime: "10:30", Name: "Saturday open play", Creator: "mika"},
	}
	for _, input := range sessions {
		e, err := eventService.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("creating session %q: %w", input.Name, err)
		}
		slog.Info("created session", "name", e.Name, "date", e.Date.Format("2006-01-02"))
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Users:     %d registered (admin/admin is the administrator)\n", len(demoMembers))
	fmt.Printf("Sessions:  %d on the calendar\n", len(sessions))
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST localhost:8000/api/v1/auth/login -d '{\"name\":\"admin\",\"password\":\"admin\"}'\n")
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' localhost:8000/api/v1/events\n")

	return nil
}

// upcomingWeekday returns the next occurrence of the given weekday strictly
// after t's date.
func upcomingWeekday(t time.Time, day time.Weekday) time.Time {
	days := (int(day) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := t.AddDate(0, 0, days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
