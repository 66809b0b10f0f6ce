package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ophjod/catalogkit/catalog"
	"github.com/ophjod/catalogkit/config"
	"github.com/ophjod/catalogkit/extract"
	"github.com/ophjod/catalogkit/i18n"
	"github.com/ophjod/catalogkit/reconcile"
)

// scanSources finds and extracts the configured source tree.
func scanSources(ctx context.Context, cfg *config.File) (*extract.Result, error) {
	exceptions, err := cfg.Exceptions()
	if err != nil {
		return nil, err
	}

	srcDir := cfg.Resolve(cfg.SourceDir)
	files, err := extract.FindSources(fsys, srcDir, cfg.SourceExtensions, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn().Str("sys", "extract").Str("dir", srcDir).Msg("no source files found")
	} else {
		log.Debug().Str("sys", "extract").Str("dir", srcDir).Msg(extract.DescribeFiles(files))
	}

	res, err := extract.Scan(ctx, fsys, srcDir, files, extract.ScanOptions{
		DefaultNamespace: cfg.DefaultNamespace,
		Exceptions:       exceptions,
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("sys", "extract").
		Int("files", len(res.Files)).
		Int("keys", res.Usages.Len()).
		Int("dynamic", len(res.Dynamic)).
		Msg("source scanned")
	return res, nil
}

// ---------------------------------------------------------------------------
// check (reconcile usage against catalogs)
// ---------------------------------------------------------------------------

type checkArgs struct {
	jsonOutput bool
	preview    int
}

func newCheckCmd() *cobra.Command {
	var a checkArgs

	cmd := &cobra.Command{
		Use:   "check",
		Short: i18n.T("Check translation keys against the catalogs"),
		Long: `Scan the source tree for translation keys and compare them with the
catalogs of every configured language.

The run fails (exit 1) when a used key is missing from some language, when a
key is used dynamically and cannot be analyzed, or when a key is defined in
more than one namespace. Unused keys are reported but never fail the run.

Examples:
  catalogkit check                 Summary report
  catalogkit check -v              List every usage and unused key
  catalogkit check --json          Machine-readable report on stdout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cfg, cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().BoolVar(&a.jsonOutput, "json", false, i18n.T("Write the report as JSON"))
	cmd.Flags().IntVar(&a.preview, "preview", reconcile.DefaultPreview, i18n.T("Usage sites shown per missing key"))

	return cmd
}

func runCheck(ctx context.Context, cfg *config.File, out io.Writer, a checkArgs) error {
	res, err := scanSources(ctx, cfg)
	if err != nil {
		return err
	}

	catalogs, err := catalog.Load(fsys, cfg.Resolve(cfg.CatalogDir), cfg.Languages)
	if err != nil {
		return err
	}

	report := reconcile.Reconcile(res.Usages, res.Dynamic, catalogs)

	if a.jsonOutput {
		err = reconcile.WriteJSON(out, report)
	} else {
		err = reconcile.WriteText(out, report, reconcile.TextOptions{Verbose: verbose, Preview: a.preview})
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if report.Failed() {
		return errFindings
	}
	return nil
}

// ---------------------------------------------------------------------------
// extract (print the usage map)
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: i18n.T("Print the translation keys used in the source tree"),
		Long: `Scan the source tree and print every key with its usage sites as JSON,
in first-seen order. Dynamic usages are listed separately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			res, err := scanSources(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			dynamic := res.Dynamic
			if dynamic == nil {
				dynamic = []extract.DynamicUsage{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(struct {
				Files   int                    `json:"files"`
				Keys    *extract.UsageMap      `json:"keys"`
				Dynamic []extract.DynamicUsage `json:"dynamic"`
			}{len(res.Files), res.Usages, dynamic})
		},
	}
}
