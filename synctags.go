package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ophjod/catalogkit/catalog"
	"github.com/ophjod/catalogkit/config"
	"github.com/ophjod/catalogkit/i18n"
	"github.com/ophjod/catalogkit/settings"
	"github.com/ophjod/catalogkit/tagsync"
	"github.com/ophjod/catalogkit/ticket"
	"github.com/ophjod/catalogkit/tms"
)

type syncArgs struct {
	apiKey  string
	dryRun  bool
	workers int
}

func addTMSFlags(fs *pflag.FlagSet, apiKey *string) {
	fs.StringVar(apiKey, "api-key", "", i18n.T("Tolgee API key (default: $TOLGEE_API_KEY, then the stored key)"))
}

// newTMSClient builds the Tolgee client of the project.
func newTMSClient(cfg *config.File, apiKey string) (*tms.Tolgee, error) {
	if err := cfg.ValidateTMS(); err != nil {
		return nil, err
	}
	key, source, err := settings.ResolveAPIKey(apiKey, cfg.TMS.Host, os.Getenv)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("sys", "tms").Str("source", string(source)).Str("key", settings.MaskKey(key)).Msg("using API key")

	return tms.NewTolgee(tms.Options{
		Host:              cfg.TMS.Host,
		ProjectID:         cfg.TMS.ProjectID,
		APIKey:            key,
		PageSize:          cfg.TMS.PageSize,
		RequestsPerSecond: cfg.TMS.RequestsPerSecond,
		MaxRetries:        cfg.TMS.MaxRetries,
	})
}

// ---------------------------------------------------------------------------
// sync-tags (update key lifecycle tags in the TMS)
// ---------------------------------------------------------------------------

func newSyncTagsCmd() *cobra.Command {
	var a syncArgs

	cmd := &cobra.Command{
		Use:   "sync-tags",
		Short: i18n.T("Synchronize key tags with Tolgee"),
		Long: `Compare the keys of the Tolgee project with the keys used in the source
tree and update their tags:

  - keys no longer used get the deprecated tag (and the current ticket tag)
  - keys used again lose the deprecated tag and any ticket tags
  - used keys of the shared namespace carry the shared tag

Only keys in the project namespaces are touched. The ticket id is taken from
$TICKET_ID, the CI branch name or the last commit message.

Examples:
  catalogkit sync-tags --dry-run   Show the changes without applying them
  catalogkit sync-tags             Apply the changes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			client, err := newTMSClient(cfg, a.apiKey)
			if err != nil {
				return err
			}
			return runSyncTags(cmd, cfg, client, a)
		},
	}

	addTMSFlags(cmd.Flags(), &a.apiKey)
	cmd.Flags().BoolVarP(&a.dryRun, "dry-run", "n", false, i18n.T("Show the tag changes without applying them"))
	cmd.Flags().IntVarP(&a.workers, "workers", "w", 0, i18n.T("Keys updated concurrently (default: tms.workers)"))

	return cmd
}

func runSyncTags(cmd *cobra.Command, cfg *config.File, client tms.Client, a syncArgs) error {
	ctx := cmd.Context()

	res, err := scanSources(ctx, cfg)
	if err != nil {
		return err
	}

	projectNamespaces := cfg.Sync.ProjectNamespaces
	if len(projectNamespaces) == 0 {
		catalogs, err := catalog.Load(fsys, cfg.Resolve(cfg.CatalogDir), cfg.Languages)
		if err != nil {
			return err
		}
		projectNamespaces = catalogs.Namespaces
	}

	keys, err := client.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}

	tk := ticket.Resolve(cfg.TicketRegexp(), os.Getenv, ticket.GitCommitMessage(ctx, rootDir))
	if tk == "" {
		logWarning(i18n.T("No ticket id found, deprecated keys get no ticket tag"))
	} else {
		logInfo(i18n.T("Ticket: %s"), tk)
	}

	deltas := tagsync.Plan(keys, res.Usages, tagsync.Rules{
		ProjectNamespaces: projectNamespaces,
		SharedNamespace:   cfg.Sync.SharedNamespace,
		SharedTag:         cfg.Sync.SharedTag,
		DeprecatedTag:     cfg.Sync.DeprecatedTag,
		Ticket:            tk,
		TicketPattern:     cfg.TicketRegexp(),
	})
	logInfo(i18n.N("%d of %d remote key needs new tags", "%d of %d remote keys need new tags", len(deltas)), len(deltas), len(keys))
	if len(deltas) == 0 {
		logSuccess(i18n.T("Tags are up to date"))
		return nil
	}

	workers := a.workers
	if workers <= 0 {
		workers = cfg.TMS.Workers
	}

	bar := progressbar.NewOptions(len(deltas),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(i18n.T("Updating tags")),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(!a.dryRun && isatty.IsTerminal(os.Stderr.Fd())),
	)

	summary, err := tagsync.Apply(ctx, client, deltas, tagsync.Options{
		Workers: workers,
		DryRun:  a.dryRun,
		OnProgress: func(done, total int) {
			_ = bar.Set(done)
		},
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("updating tags: %w", err)
	}

	if a.dryRun {
		logInfo(i18n.T("Dry run: %d key(s), %d tag(s) to add, %d tag(s) to remove"), summary.Keys, summary.Added, summary.Removed)
		return nil
	}
	logSuccess(i18n.T("Updated %d key(s): %d tag(s) added, %d tag(s) removed"), summary.Keys, summary.Added, summary.Removed)
	return nil
}
