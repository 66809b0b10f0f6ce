package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ophjod/catalogkit/i18n"
	"github.com/ophjod/catalogkit/settings"
)

// ---------------------------------------------------------------------------
// auth (manage the stored Tolgee API key)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage the stored Tolgee API key"),
		Long: `Manage the Tolgee API keys stored in $XDG_DATA_HOME/catalogkit/auth.json.

The key used by sync-tags is looked up in this order:
  1. --api-key flag
  2. TOLGEE_API_KEY environment variable
  3. the key stored for the project's tms.host

Examples:
  catalogkit auth login                    Store a key for tms.host
  catalogkit auth login --host tolgee.example
  catalogkit auth logout                   Remove all stored keys
  catalogkit auth status                   Show stored keys`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)

	return cmd
}

// authHost returns the --host flag value, or the configured tms.host.
func authHost(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := loadProject()
	if err != nil {
		return "", fmt.Errorf("no --host given and no project config: %w", err)
	}
	if cfg.TMS.Host == "" {
		return "", errors.New("no --host given and tms.host is not configured")
	}
	return cfg.TMS.Host, nil
}

func newAuthLoginCmd() *cobra.Command {
	var host, projectID string

	cmd := &cobra.Command{
		Use:   "login",
		Short: i18n.T("Store a Tolgee API key"),
		Long: `Store a Tolgee API key read from standard input.

Create a project API key in Tolgee under Project settings > API keys with the
keys.view and keys.edit scopes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := authHost(host)
			if err != nil {
				return err
			}
			return authLogin(cmd.InOrStdin(), h, projectID)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", i18n.T("Tolgee host (default: tms.host)"))
	cmd.Flags().StringVar(&projectID, "project", "", i18n.T("Project id the key belongs to"))

	return cmd
}

func authLogin(in io.Reader, host, projectID string) error {
	section(fmt.Sprintf(i18n.T("Tolgee API key for %s"), settings.HostKey(host)))

	existing := settings.GetAPIKey(host)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  %s %s\n", i18n.T("Current key:"), color.YellowString(settings.MaskKey(existing)))
		fmt.Fprintf(os.Stderr, "  %s ", i18n.T("Enter new key to replace, or press Enter to keep:"))
	} else {
		fmt.Fprintf(os.Stderr, "  %s ", i18n.T("Enter API key:"))
	}

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
		return errors.New("no input received")
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		if existing != "" {
			logInfo(i18n.T("Keeping existing key"))
			return nil
		}
		return errors.New("no API key provided")
	}

	if err := settings.SetAPIKey(host, key, projectID); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	logSuccess(i18n.T("API key saved to %s"), settings.FilePath())
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: i18n.T("Remove stored API keys"),
		Long: `Remove the stored key of one host, or all stored keys when --host is not
given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if host != "" {
				if err := settings.Remove(host); err != nil {
					return err
				}
				logSuccess(i18n.T("Removed the key of %s"), settings.HostKey(host))
				return nil
			}
			if err := settings.RemoveAll(); err != nil {
				return err
			}
			logSuccess(i18n.T("All stored keys removed"))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", i18n.T("Tolgee host to log out from (default: all)"))

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"list", "ls"},
		Short:   i18n.T("Show stored API keys"),
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			writeAuthStatus(cmd.OutOrStdout(), settings.Load(), os.Getenv(settings.EnvAPIKey))
		},
	}
}

func writeAuthStatus(w io.Writer, store settings.Store, envKey string) {
	fmt.Fprintf(w, "\n%s\n", accent(i18n.T("Stored keys")))
	if len(store) == 0 {
		fmt.Fprintf(w, "  %s\n", color.RedString(i18n.T("none")))
	}
	hosts := lo.Keys(store)
	sort.Strings(hosts)
	for _, h := range hosts {
		info := store[h]
		if info == nil {
			continue
		}
		line := fmt.Sprintf("  %-28s %s", h, color.GreenString(settings.MaskKey(info.Key)))
		if info.ProjectID != "" {
			line += fmt.Sprintf(" (%s %s)", i18n.T("project"), info.ProjectID)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n%s\n", accent(i18n.T("Environment")))
	if envKey != "" {
		fmt.Fprintf(w, "  %s: %s %s\n", settings.EnvAPIKey, color.GreenString(settings.MaskKey(envKey)), i18n.T("(overrides stored keys)"))
	} else {
		fmt.Fprintf(w, "  %s: %s\n", settings.EnvAPIKey, color.RedString(i18n.T("not set")))
	}
	fmt.Fprintln(w)
}
