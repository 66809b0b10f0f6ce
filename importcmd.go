package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ophjod/catalogkit/config"
	"github.com/ophjod/catalogkit/i18n"
	"github.com/ophjod/catalogkit/langmeta"
	"github.com/ophjod/catalogkit/merge"
	"github.com/ophjod/catalogkit/sheet"
)

// ---------------------------------------------------------------------------
// import (merge a translated spreadsheet into the two-tier catalogs)
// ---------------------------------------------------------------------------

type importArgs struct {
	file      string
	languages []string
}

func newImportCmd() *cobra.Command {
	var a importArgs

	cmd := &cobra.Command{
		Use:   "import",
		Short: i18n.T("Merge a translated spreadsheet into the catalogs"),
		Long: `Read the translated workbook (the single .xlsx file in import.dir unless
--file is given) and merge it into <import.catalog_dir>/<lang>/translation.json
and draft.translation.json.

The first worksheet must have a "Key" column and one column per language
code. Imported values keep the trailing newline and <br> conventions of the
text they replace. Draft keys that were translated move to the active
catalog.

Examples:
  catalogkit import                        Import import/*.xlsx
  catalogkit import --file kaannokset.xlsx
  catalogkit import --lang sv              Import only Swedish`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			return runImport(cfg, cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().StringVarP(&a.file, "file", "f", "", i18n.T("Workbook to import (default: the .xlsx file in import.dir)"))
	cmd.Flags().StringSliceVarP(&a.languages, "lang", "l", nil, i18n.T("Languages to import (default: import.languages)"))

	return cmd
}

func runImport(cfg *config.File, out io.Writer, a importArgs) error {
	path := a.file
	if path == "" {
		found, err := sheet.FindImportFile(fsys, cfg.Resolve(cfg.Import.Dir))
		if err != nil {
			return err
		}
		path = found
	}

	languages := cfg.Import.Languages
	if len(a.languages) > 0 {
		for _, lang := range a.languages {
			if !langmeta.Valid(lang) {
				return fmt.Errorf("invalid language code %q", lang)
			}
		}
		languages = a.languages
	}

	logInfo(i18n.T("Reading %s"), path)
	rows, err := sheet.ReadRows(fsys, path)
	if err != nil {
		return err
	}
	logInfo(i18n.N("%d row", "%d rows", len(rows)), len(rows))

	results, err := merge.MergeDir(fsys, cfg.Resolve(cfg.Import.CatalogDir), languages, rows)
	if err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}

	section(i18n.T("Import summary"))
	for _, r := range results {
		meta := langmeta.Resolve(r.Language)
		fmt.Fprintf(out, "  %s %-10s %s %4d  %s %4d  %s %4d  %s %4d\n",
			meta.Flag, r.Language,
			i18n.T("updated"), r.Updated,
			i18n.T("promoted"), r.Promoted,
			i18n.T("demoted"), r.Demoted,
			i18n.T("skipped"), r.Skipped)
	}
	logSuccess(i18n.T("Import complete"))
	return nil
}
