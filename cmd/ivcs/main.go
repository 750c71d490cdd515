package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ivcs-go/internal/app"
	"ivcs-go/internal/config"
	"ivcs-go/internal/encryption"
	"ivcs-go/internal/ivcs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagProject string
	flagUser    string
	flagDebug   bool
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an IVCSApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Scan", "Commit").
func newApp(ctx context.Context, operation string) (*app.IVCSApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewIVCSApp(ctx, cfg, operation, app.Options{User: flagUser, Debug: flagDebug})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// unlock prompts for the passphrase when stored versions are encrypted.
func unlock(a *app.IVCSApp) error {
	if !a.NeedsPassphrase() {
		return nil
	}
	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		return err
	}
	return a.Unlock(passphrase)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

var rootCmd = &cobra.Command{
	Use:          "ivcs",
	Short:        "Version control for imagery assets",
	SilenceUsage: true,
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
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		user := flagUser
		if user == "" {
			user = app.DefaultUser()
		}
		cfg := config.NewConfig(user, defaults["base_dir"])

		if encrypt {
			cfg.Encryption.Type = "age"
			passphrase, err := readNewPassphrase()
			if err != nil {
				return err
			}
			if err := encryption.NewAgeEncryptor(cfg.Encryption).Setup(passphrase); err != nil {
				return fmt.Errorf("generating keys: %w", err)
			}
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := app.MigrateDatabase(cfg); err != nil {
			return err
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Username: %s\n", cfg.Username)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		if encrypt {
			fmt.Printf("Keys:     %s\n", filepath.Dir(cfg.Encryption.PublicKeyPath))
		}
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
		fmt.Printf("Username:         %s\n", cfg.Username)
		fmt.Printf("Base Dir:         %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:          %s\n", cfg.LogDir)
		fmt.Printf("Extensions:       %v\n", cfg.Tracking.Extensions)
		fmt.Printf("Change Detection: %s\n", cfg.Tracking.ChangeDetection)
		fmt.Printf("Database:         %s\n", cfg.Database.Type)
		fmt.Printf("Store:            %s\n", cfg.Store.Type)
		fmt.Printf("Encryption:       %s\n", cfg.Encryption.Type)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := app.MigrateDatabase(cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CreateProject")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.CreateProject(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created project %s (%s)\n", p.Name, p.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListProjects")
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.ListProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s  %s  %s\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04:05"), p.Name)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a project and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteProject")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteProject(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted project %s. Run `ivcs gc` to free stored content.\n", args[0])
		return nil
	},
}

// dir command
var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Manage project directories",
}

var dirAddCmd = &cobra.Command{
	Use:   "add [PATH]",
	Short: "Track a directory (default: current directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "AddDirectory")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}
		d, err := a.AddDirectory(flagProject, target)
		if err != nil {
			return fmt.Errorf("tracking directory: %w", err)
		}
		fmt.Printf("Tracking directory: %s\n", d.Path)
		return nil
	},
}

var dirListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListDirectories")
		if err != nil {
			return err
		}
		defer a.Close()

		dirs, err := a.ListDirectories(flagProject)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			fmt.Println(d.Path)
		}
		return nil
	},
}

var (
	addedMark    = color.New(color.FgGreen).SprintFunc()
	modifiedMark = color.New(color.FgYellow).SprintFunc()
	deletedMark  = color.New(color.FgRed).SprintFunc()
)

func changeMarker(k ivcs.ChangeKind) string {
	switch k {
	case ivcs.Added:
		return addedMark("A")
	case ivcs.Modified:
		return modifiedMark("M")
	case ivcs.Deleted:
		return deletedMark("D")
	default:
		return "?"
	}
}

func printReport(r *ivcs.ScanReport) {
	for _, e := range r.Entries {
		fmt.Printf("%s %s\n", changeMarker(e.Kind), e.RelativePath)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(os.Stderr, "warning: skipped %s: %v\n", w.Path, w.Err)
	}
	for _, fe := range r.FileErrors {
		fmt.Fprintf(os.Stderr, "warning: %v\n", fe)
	}
	fmt.Printf("Scanned %d file(s), %d change(s)\n", r.Scanned, len(r.Entries))
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan project directories and record changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Scan")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Scan(cmd.Context(), flagProject)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		printReport(report)
		return nil
	},
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "View the changelist",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "Changes")
		if err != nil {
			return err
		}
		defer a.Close()

		lines, err := a.Changes(flagProject, limit)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			fmt.Println("No changes recorded.")
			return nil
		}
		for _, l := range lines {
			fmt.Printf("%s  %s  %s\n", changeMarker(l.Kind), l.Entry.ChangedAt.Format("2006-01-02 15:04:05"), l.Path)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View tracked assets and checkouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.Status(flagProject)
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No assets found.")
			return nil
		}
		for _, s := range statuses {
			presence := " "
			if !s.Asset.OnDisk {
				presence = deletedMark("-")
			}
			holder := ""
			if s.Holder != "" {
				holder = "  [" + s.Holder + "]"
			}
			fmt.Printf("%s %s  %10d  %s%s\n", presence, shortHash(s.Asset.ContentHash), s.Asset.Size, s.Path, holder)
		}
		return nil
	},
}

// checkout, checkin, commit
var checkoutCmd = &cobra.Command{
	Use:   "checkout FILE",
	Short: "Lock a file for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Checkout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Checkout(cmd.Context(), flagProject, args[0]); err != nil {
			var conflict *ivcs.ConflictError
			if errors.As(err, &conflict) {
				return fmt.Errorf("%s is checked out by %s", args[0], conflict.Holder)
			}
			return err
		}
		fmt.Printf("Checked out %s as %s\n", args[0], a.User())
		return nil
	},
}

var checkinCmd = &cobra.Command{
	Use:   "checkin FILE",
	Short: "Release a checked out file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Checkin")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Checkin(cmd.Context(), flagProject, args[0]); err != nil {
			return err
		}
		fmt.Printf("Checked in %s\n", args[0])
		return nil
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit FILE",
	Short: "Store the current content of a checked out file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp(cmd.Context(), "Commit")
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.Commit(cmd.Context(), flagProject, args[0], message)
		if err != nil {
			if errors.Is(err, ivcs.ErrNothingToCommit) {
				fmt.Println("Nothing to commit.")
				return nil
			}
			return fmt.Errorf("commit failed: %w", err)
		}
		fmt.Printf("Committed %s  %s  %d bytes\n", v.ID, shortHash(v.ContentKey), v.Size)
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log FILE",
	Short: "View file versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Log")
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.Log(flagProject, args[0])
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No versions.")
			return nil
		}
		for _, v := range versions {
			fmt.Printf("%s  %s  %s  %-10s  %d  %s\n",
				v.ID,
				shortHash(v.ContentKey),
				v.CreatedAt.Format("2006-01-02 15:04:05"),
				v.CommittedBy,
				v.Size,
				v.Message.String,
			)
		}
		return nil
	},
}

// get command
var getCmd = &cobra.Command{
	Use:   "get VERSION_ID",
	Short: "Restore a version to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd.Context(), "GetVersion")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlock(a); err != nil {
			return err
		}
		if output == "" || output == "-" {
			return a.Restore(cmd.Context(), args[0], os.Stdout)
		}
		if err := a.RestoreToFile(cmd.Context(), args[0], output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Restored %s to %s\n", args[0], output)
		return nil
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete stored content no version references",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CollectGarbage")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.CollectGarbage(cmd.Context())
		if err != nil {
			return fmt.Errorf("garbage collection failed: %w", err)
		}
		fmt.Printf("Examined %d blob(s), deleted %d\n", result.Examined, len(result.Deleted))
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan the project on changes and on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Watch(ctx, flagProject, func(r *ivcs.ScanReport) {
			if len(r.Entries) > 0 || len(r.FileErrors) > 0 {
				printReport(r)
			}
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", os.Getenv("IVCS_PROJECT"), "Project name (env IVCS_PROJECT)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "Acting user (overrides config username)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Generate an age key pair and encrypt stored versions")
	configCmd.AddCommand(configListCmd)

	dbCmd.AddCommand(dbMigrateCmd)

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectDeleteCmd)

	dirCmd.AddCommand(dirAddCmd)
	dirCmd.AddCommand(dirListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(dirCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show (0 for all)")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringP("output", "o", "", "Write the version to this file instead of stdout")
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(watchCmd)
}
