package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wallsync/internal/app"
	"wallsync/internal/config"
	"wallsync/internal/encryption"
	"wallsync/internal/feed"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, app.ErrPriorCompleted) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(app.ExitCode(err))
	}
}

// resolveConfigPath honors the persistent -f/--config-file flag, falling
// back to the environment-derived default.
func resolveConfigPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config-file"); path != "" {
		return path, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults["config_path"], nil
}

// applyOverrides lays the persistent credential flags over the file config.
func applyOverrides(cfg *config.Config, accessToken string, clientID int64) {
	if accessToken != "" {
		cfg.Graph.AccessToken = accessToken
	}
	if clientID != 0 {
		cfg.Graph.ClientID = clientID
	}
}

// newApp reads the config, applies CLI overrides, and creates an App. The
// caller must defer a.Close(). operation identifies the CLI command being
// run (e.g. "Fetch", "Archive").
func newApp(cmd *cobra.Command, operation string, verbosity int) (*app.App, error) {
	configPath, err := resolveConfigPath(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(configPath)
	if err != nil {
		return nil, &app.ConfigError{Err: fmt.Errorf("reading config: %w", err)}
	}

	accessToken, _ := cmd.Flags().GetString("access-token")
	clientID, _ := cmd.Flags().GetInt64("client-id")
	applyOverrides(cfg, accessToken, clientID)

	a, err := app.New(cfg, operation, verbosity)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// summaryLine formats the terminal summary for a fetch run.
func summaryLine(counts feed.Counts) string {
	if counts.Inserted == 0 {
		return "No additional posts were fetched."
	}
	return fmt.Sprintf("Inserted %d posts", counts.Inserted)
}

func printSummary(counts feed.Counts) {
	fmt.Println(summaryLine(counts))
}

// readPassphrase prompts on stderr and reads without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:           "wallsync",
	Short:         "Incremental wall post cache",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch new wall posts into the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		force, _ := cmd.Flags().GetBool("force")
		ignoreCacheTime, _ := cmd.Flags().GetBool("ignore-cache-time")

		a, err := newApp(cmd, "Fetch", verbosity)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.Fetch(force, ignoreCacheTime)
		if errors.Is(err, feed.ErrCacheFresh) {
			fmt.Println("Using cache data instead.")
			return err
		}
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		printSummary(counts)
		return nil
	},
}

// likes command
var likesCmd = &cobra.Command{
	Use:   "likes",
	Short: "Fetch likes for cached wall posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		a, err := newApp(cmd, "FetchLikes", verbosity)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.FetchLikes()
		if err != nil {
			return fmt.Errorf("fetching likes failed: %w", err)
		}

		printSummary(counts)
		return nil
	},
}

// prior command
var priorCmd = &cobra.Command{
	Use:   "prior",
	Short: "Fetch the window before the earliest cached post",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		a, err := newApp(cmd, "FetchPrior", verbosity)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.FetchPrior()
		if err != nil {
			return fmt.Errorf("fetching prior window failed: %w", err)
		}

		printSummary(counts)
		return app.ErrPriorCompleted
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View request history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "History", 0)
		if err != nil {
			return err
		}
		defer a.Close()

		txns, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(txns) == 0 {
			fmt.Println("No requests recorded.")
			return nil
		}

		for _, t := range txns {
			status := "failed"
			if t.StatusCode.Valid {
				status = fmt.Sprintf("%d", t.StatusCode.Int64)
			}
			fmt.Printf("#%d  %s  %s\n",
				t.ID,
				t.RequestedAt.Format("2006-01-02 15:04:05"),
				status,
			)
		}
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Snapshot the cache into the configured vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		a, err := newApp(cmd, "Archive", verbosity)
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := a.Archive()
		if err != nil {
			return fmt.Errorf("archive failed: %w", err)
		}

		fmt.Printf("Archived snapshot at version %d\n", version)
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore DEST",
	Short: "Restore the archived cache snapshot to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		dest, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		a, err := newApp(cmd, "Restore", verbosity)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase (empty if unencrypted): ")
		if err != nil {
			return err
		}

		if err := a.RestoreSnapshot(dest, passphrase); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored snapshot to %s\n", dest)
		return nil
	},
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
		configPath, err := resolveConfigPath(cmd)
		if err != nil {
			return err
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(configPath, cfg); err != nil {
			return &app.ConfigError{Err: fmt.Errorf("failed to initialize config: %w", err)}
		}

		fmt.Printf("Configuration initialized at %s\n", configPath)
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := resolveConfigPath(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.ReadFromFile(configPath)
		if err != nil {
			return &app.ConfigError{Err: fmt.Errorf("failed to read config: %w", err)}
		}

		fmt.Printf("Configuration from %s:\n\n", configPath)
		fmt.Printf("Host ID:   %s\n", cfg.HostID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Base URL:  %s\n", cfg.Graph.BaseURL)
		fmt.Printf("Fields:    %v\n", cfg.Graph.Fields)
		fmt.Printf("Interval:  %s\n", cfg.Graph.UpdateInterval())
		fmt.Printf("Cache Dir: %s\n", cfg.Database.CacheDir)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := resolveConfigPath(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.ReadFromFile(configPath)
		if err != nil {
			return &app.ConfigError{Err: fmt.Errorf("failed to read config: %w", err)}
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return &app.ConfigError{Err: err}
		}

		passphrase, err := readPassphrase("New key passphrase: ")
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

		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("access-token", "A", "", "Override the configured access token")
	rootCmd.PersistentFlags().Int64P("client-id", "C", 0, "Override the configured client id")
	rootCmd.PersistentFlags().StringP("config-file", "f", "", "Path to the config file")

	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().CountP("verbose", "v", "Increase diagnostic output")
	fetchCmd.Flags().BoolP("force", "R", false, "Bypass the cache gate and fetch a single page")
	fetchCmd.Flags().Bool("ignore-cache-time", false, "Fetch even when the cache is fresh")

	rootCmd.AddCommand(likesCmd)
	likesCmd.Flags().CountP("verbose", "v", "Increase diagnostic output")

	rootCmd.AddCommand(priorCmd)
	priorCmd.Flags().CountP("verbose", "v", "Increase diagnostic output")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of requests to show")

	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().CountP("verbose", "v", "Increase diagnostic output")

	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().CountP("verbose", "v", "Increase diagnostic output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)
	rootCmd.AddCommand(keysCmd)
}
