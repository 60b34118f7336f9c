package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openmms/mmsd/internal/core/config"
	"github.com/openmms/mmsd/internal/infra/storage/postgres"
)

var setAPNCmd = &cobra.Command{
	Use:   "set-apn [subscription_id] [mmsc_url]",
	Short: "Set or replace the access-point settings for a subscription",
	Args:  cobra.RangeArgs(2, 4),
	Run:   runSetAPN,
}

func init() {
	rootCmd.AddCommand(setAPNCmd)
}

func runSetAPN(cmd *cobra.Command, args []string) {
	subscriptionID := args[0]
	mmsc := args[1]

	var proxyHost string
	var proxyPort int64
	if len(args) > 2 {
		proxyHost = args[2]
	}
	if len(args) > 3 {
		var err error
		proxyPort, err = strconv.ParseInt(args[3], 10, 32)
		if err != nil {
			fmt.Printf("Invalid proxy port: %v\n", err)
			os.Exit(1)
		}
	}

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

	// Direct SQL keeps this one-shot override simple.
	query := `
		INSERT INTO apns (subscription_id, mmsc, proxy_host, proxy_port, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, 0), NOW())
		ON CONFLICT (subscription_id) DO UPDATE SET
			mmsc = EXCLUDED.mmsc,
			proxy_host = EXCLUDED.proxy_host,
			proxy_port = EXCLUDED.proxy_port,
			updated_at = EXCLUDED.updated_at
	`
	_, err = db.ExecContext(ctx, query, subscriptionID, mmsc, proxyHost, proxyPort)
	if err != nil {
		slog.Error("Failed to set APN", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully set APN for %s to %s\n", subscriptionID, mmsc)
}
