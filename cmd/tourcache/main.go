package main

import (
	"fmt"
	"os"
	"syscall"

	"tourcache/internal/app"
	"tourcache/internal/config"
	"tourcache/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "DownloadTour", "Sync").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:   "tourcache",
	Short: "Offline tour download and sync tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new user ID
		userID := uuid.New().String()

		cfg := config.NewConfig(userID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User ID:      %s\n", cfg.UserID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Database:     %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Remote:       %s\n", cfg.Remote.BaseURL)
		fmt.Printf("Fetcher:      %s\n", cfg.Fetcher.Type)
		fmt.Printf("Connectivity: %s\n", cfg.Connectivity.Type)
		fmt.Printf("Retention:    %d day(s)\n", cfg.Retention.MaxAgeDays)
		fmt.Printf("Encryption:   %t\n", cfg.Encryption.Enabled)
		return nil
	},
}

var configEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Set up at-rest audio encryption",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase for new key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupEncryption(passphrase); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}

		fmt.Println("Encryption key generated.")
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download TOUR_ID",
	Short: "Download a tour for offline use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DownloadTour")
		if err != nil {
			return err
		}
		defer a.Close()

		tourID := args[0]
		last := -1
		err = a.DownloadTour(cmd.Context(), tourID, func(percent int, rec *model.DownloadRecord) {
			if percent == last {
				return
			}
			last = percent
			fmt.Printf("\r%s: %3d%%", tourID, percent)
		})
		fmt.Println()
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		fmt.Printf("Downloaded tour %s\n", tourID)
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued progress records to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Online() {
			fmt.Println("Offline; queued records will sync when connectivity returns.")
			return nil
		}

		if err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Println("Sync complete.")
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded tours",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListTours")
		if err != nil {
			return err
		}
		defer a.Close()

		tours, sizes, err := a.ListTours(cmd.Context())
		if err != nil {
			return err
		}

		if len(tours) == 0 {
			fmt.Println("No tours downloaded.")
			return nil
		}

		for _, t := range tours {
			downloaded := ""
			if t.DownloadedAt != nil {
				downloaded = t.DownloadedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-36s  %-11s  %10d  %s\n", t.ID, t.Status, sizes[t.ID], downloaded)
		}
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete TOUR_ID",
	Short: "Remove a downloaded tour",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteTour")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteTour(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting tour: %w", err)
		}

		fmt.Printf("Deleted tour %s\n", args[0])
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View local storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "StorageStats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats := a.StorageStats(cmd.Context())
		fmt.Printf("Used:      %d bytes\n", stats.UsedBytes)
		fmt.Printf("Available: %d bytes\n", stats.AvailableBytes)
		fmt.Printf("Usage:     %d%%\n", stats.Percentage)
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Evict tours not accessed recently",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxAgeDays, _ := cmd.Flags().GetInt("max-age-days")

		a, err := newApp(cmd, "CleanupOldData")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.Cleanup(cmd.Context(), maxAgeDays)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}

		fmt.Printf("Evicted %d tour(s)\n", count)
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export TRACK_ID FILE",
	Short: "Export a downloaded audio track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ExportAudio")
		if err != nil {
			return err
		}
		defer a.Close()

		trackID, outPath := args[0], args[1]

		var passphrase string
		if a.EncryptionConfigured() {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		if err := a.ExportAudio(cmd.Context(), trackID, passphrase, f); err != nil {
			os.Remove(outPath)
			return fmt.Errorf("exporting track: %w", err)
		}

		fmt.Printf("Exported track %s to %s\n", trackID, outPath)
		return nil
	},
}

// progress command
var progressCmd = &cobra.Command{
	Use:   "progress TOUR_ID PAYLOAD",
	Short: "Record playback progress for a tour",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "RecordProgress")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.RecordProgress(cmd.Context(), args[0], []byte(args[1]))
		if err != nil {
			return fmt.Errorf("recording progress: %w", err)
		}

		state := "queued"
		if rec.SyncStatus == model.SyncSynced {
			state = "synced"
		}
		fmt.Printf("Progress %s (%s)\n", rec.ID, state)
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View connectivity state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Online() {
			fmt.Println("online")
		} else {
			fmt.Println("offline")
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEncryptCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntP("max-age-days", "n", -1, "Evict tours not accessed in this many days (default: config value)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(statusCmd)
}
