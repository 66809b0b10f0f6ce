// catalogkit: translation-catalog toolchain for i18next web front ends.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ophjod/catalogkit/config"
	"github.com/ophjod/catalogkit/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errFindings reports a completed run whose result must fail the build
// (missing keys, dynamic usages, duplicates). Its details were already
// printed.
var errFindings = errors.New("findings reported")

var (
	infoLabel    = color.New(color.FgBlue).Sprint("[INFO]")
	successLabel = color.New(color.FgGreen).Sprint("[OK]")
	warningLabel = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorLabel   = color.New(color.FgRed).Sprint("[ERROR]")
	accent       = color.New(color.FgBlue).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, infoLabel+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, successLabel+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, warningLabel+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, errorLabel+" "+format+"\n", args...)
}

func section(title string) {
	fmt.Fprintf(os.Stderr, "\n%s\n%s\n", accent(title), strings.Repeat("─", 60))
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	verbose    bool
)

// fsys is the filesystem every command works on.
var fsys afero.Fs = afero.NewOsFs()

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	fs.StringVarP(&configPath, "config", "c", "", i18n.T("Config file (default: <root>/.catalogkit.yaml)"))
	fs.BoolVarP(&verbose, "verbose", "v", false, i18n.T("Verbose output"))
}

// loadProject reads the project config named by the global flags.
func loadProject() (*config.File, error) {
	cfg, err := config.Load(fsys, rootDir, configPath)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("%w (create %s or pass --config)", err, config.FileName)
		}
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

func setupLogging(debug bool) {
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalogkit",
		Short: i18n.T("Translation catalog toolchain for i18next front ends"),
		Long: `catalogkit: translation catalog toolchain for i18next front ends.

Finds every translation key used in the source tree, checks it against the
per-language catalogs, keeps the key tags of the Tolgee project in sync and
merges translated spreadsheets back into the catalogs.

Commands:
  check       Report missing, unused and duplicate keys (exit 1 on findings)
  extract     Print the keys used in the source tree
  sync-tags   Update key lifecycle tags in Tolgee
  import      Merge a translated .xlsx file into the catalogs
  auth        Manage the stored Tolgee API key`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newCheckCmd(),
		newExtractCmd(),
		newSyncTagsCmd(),
		newImportCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	return exitCode(root.ExecuteContext(ctx))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errFindings), errors.Is(err, context.Canceled):
		return 1
	default:
		logError("%v", err)
		return 1
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalogkit version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}
