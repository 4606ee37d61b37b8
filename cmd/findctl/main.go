package main

import (
	"context"
	"fmt"
	"os"

	listsvc "findonlu-backend/internal/application/listings"
	"findonlu-backend/internal/config"
	"findonlu-backend/internal/infrastructure/database"
	"findonlu-backend/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "findctl",
	Short:         "Operator tasks for the Find On LU backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Setup(cfg)
		appCfg = cfg
		return nil
	},
}

var appCfg *config.Config

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the listing tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if appCfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
		db, err := database.Open(appCfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		log.Info().Int("models", len(database.Models())).Msg("migration complete")
		return nil
	},
}

var flushCacheCmd = &cobra.Command{
	Use:   "flush-cache",
	Short: "Drop the cached browse lists for every category",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := redis.ParseURL(appCfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		return flushCaches(cmd.Context(), listsvc.NewCache(rdb, appCfg.ListCacheTTL))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

// flushCaches needs no database; the stores only build their cache keys.
func flushCaches(ctx context.Context, cache *listsvc.Cache) error {
	lf := listsvc.NewLostFoundStore(nil)
	lf.Cache = cache
	th := listsvc.NewThriftStore(nil)
	th.Cache = cache
	if err := lf.FlushCache(ctx); err != nil {
		return err
	}
	if err := th.FlushCache(ctx); err != nil {
		return err
	}
	log.Info().Msg("browse caches flushed")
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd, flushCacheCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
