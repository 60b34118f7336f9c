package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openmms/mmsd/internal/core/config"
	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show message counts per status",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewMessageRepo(db)
	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		slog.Error("Failed to count messages", "error", err)
		os.Exit(1)
	}

	statuses := []domain.MessageStatus{
		domain.StatusPending,
		domain.StatusHeld,
		domain.StatusRunning,
		domain.StatusDone,
		domain.StatusFailed,
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tCOUNT")
	for _, status := range statuses {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", status, counts[status])
	}
	_ = w.Flush()
}
