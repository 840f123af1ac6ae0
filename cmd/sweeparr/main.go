package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sweeparr/internal/config"
	"sweeparr/internal/controllers"
	"sweeparr/internal/scheduler"
	"sweeparr/internal/services/arr"
	"sweeparr/internal/services/emby"
	"sweeparr/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, controllers.ErrQuit) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweeparr",
		Short: "Report and delete media nobody has watched",
		Long: `Sweeparr lists all shows and movies on an Emby-compatible server that have
not been watched in the last N days, and can delete them through Sonarr and
Radarr. It runs once or at a scheduled interval as a long-lived process.

All flags can also be set through SWEEPARR_* environment variables
(e.g. SWEEPARR_API_KEY).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.StringP("server", "s", "", "Emby server URL (e.g. http://localhost:8096)")
	flags.StringP("api-key", "k", "", "Emby API key")
	flags.IntP("days", "d", 90, "number of days to look back for unwatched media")
	flags.StringP("whitelist", "w", "", "comma-separated users whose watched history prevents deletion")
	flags.String("libraries", "", "comma-separated library names to check (default: all)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.Bool("include-recent", false, "include recently added items in the unwatched list")
	flags.Bool("ignore-episodes", false, "only consider shows as a whole, ignore episode watch status")
	flags.Bool("ignore-recent-episodes", false, "include shows that gained episodes recently")
	flags.String("sonarr-url", "", "Sonarr server URL (e.g. http://localhost:8989)")
	flags.String("sonarr-api-key", "", "Sonarr API key")
	flags.String("radarr-url", "", "Radarr server URL (e.g. http://localhost:7878)")
	flags.String("radarr-api-key", "", "Radarr API key")
	flags.Bool("sort-by-size", false, "sort unwatched media by size, largest first")
	flags.String("delete-mode", "none", "deletion policy: interactive, all or none")
	flags.Bool("delete-files", false, "also delete files from disk when removing from Sonarr/Radarr")
	flags.Bool("dry-run", false, "show what would be deleted without deleting anything")
	flags.Bool("list-libraries", false, "list available libraries and exit")
	flags.Int("interval", 0, "run at the given interval in hours")
	flags.Bool("run-at-start", false, "with --interval, also run immediately at startup")
	flags.Bool("daemon", false, "run as a long-lived scheduled process (requires --interval)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix("SWEEPARR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting sweeparr")

	embyClient, err := emby.NewClient(cfg.ServerURL, cfg.APIKey, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalHandler(cancel, logger)

	if cfg.ListLibraries {
		return listLibraries(ctx, embyClient)
	}

	var sonarrCatalog, radarrCatalog controllers.Catalog
	if cfg.SonarrURL != "" {
		client, err := arr.NewSonarr(cfg.SonarrURL, cfg.SonarrAPIKey, logger)
		if err != nil {
			return err
		}
		sonarrCatalog = client
		logger.WithField("url", cfg.SonarrURL).Info("Sonarr client initialized")
	}
	if cfg.RadarrURL != "" {
		client, err := arr.NewRadarr(cfg.RadarrURL, cfg.RadarrAPIKey, logger)
		if err != nil {
			return err
		}
		radarrCatalog = client
		logger.WithField("url", cfg.RadarrURL).Info("Radarr client initialized")
	}

	cfg.Normalize(isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()), logger)

	unwatchedCtrl := controllers.NewUnwatchedController(embyClient, controllers.UnwatchedOptions{
		Whitelist:            cfg.Whitelist,
		Libraries:            cfg.Libraries,
		IgnoreEpisodes:       cfg.IgnoreEpisodes,
		IgnoreRecentEpisodes: cfg.IgnoreRecentEpisodes,
		IncludeRecent:        cfg.IncludeRecent,
	}, logger)
	matchCtrl := controllers.NewMatchController(sonarrCatalog, radarrCatalog, logger)
	deleteCtrl := controllers.NewDeleteController(sonarrCatalog, radarrCatalog, cfg.DeleteMode, cfg.DeleteFiles, cfg.DryRun, os.Stdin, os.Stdout, logger)
	runCtrl := controllers.NewRunController(unwatchedCtrl, matchCtrl, deleteCtrl, controllers.RunOptions{
		Days:       cfg.Days,
		DeleteMode: cfg.DeleteMode,
		SortBySize: cfg.SortBySize,
	}, os.Stdout, logger)

	sched := scheduler.NewScheduler(runCtrl, cfg.Interval(), cfg.RunAtStart, logger)

	if cfg.Scheduled() {
		return sched.Start(ctx)
	}

	if err := sched.RunOnce(ctx); err != nil {
		if errors.Is(err, controllers.ErrQuit) {
			return err
		}
		return fmt.Errorf("run failed: %w", err)
	}
	logger.Info("Run completed successfully")
	return nil
}

// installSignalHandler makes the first interrupt cancel the run context
// cooperatively; a second interrupt terminates the process immediately.
func installSignalHandler(cancel context.CancelFunc, logger *logrus.Logger) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig).Info("Received shutdown signal, finishing current work")
		cancel()

		sig = <-sigChan
		logger.WithField("signal", sig).Info("Received second signal, exiting immediately")
		os.Exit(0)
	}()
}

// listLibraries prints the available libraries and exits
func listLibraries(ctx context.Context, client *emby.Client) error {
	libraries, err := client.Libraries(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\nAVAILABLE LIBRARIES")
	for i, library := range libraries {
		fmt.Printf("%d. %s\n", i+1, library.Name)
	}
	fmt.Println("\nUse --libraries to specify which libraries to check.")
	return nil
}
