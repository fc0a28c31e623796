// Package statement implements the import command.
package statement

import (
	"fmt"
	"os"

	"fjacquet/church-ledger/cmd/root"
	"fjacquet/church-ledger/internal/fileutils"
	"fjacquet/church-ledger/internal/logging"

	"github.com/spf13/cobra"
)

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import FILE|DIR...",
	Short: "Import bank statement exports",
	Long: `Import one or more bank statement CSV exports as pending bank records.

Rows already imported are skipped, except that a missing running balance is
filled in when a later export carries it. Malformed rows are reported and do
not stop the import. A directory argument imports every .csv file below it.

Example:
  church-ledger import statements/2024-06.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: importFunc,
}

func importFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	paths, err := fileutils.ExpandPaths(args, ".csv")
	if err != nil {
		return err
	}

	app := root.App()
	out := cmd.OutOrStdout()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("error opening statement: %w", err)
		}
		res, err := app.GetImporter().Import(ctx, f)
		if cerr := f.Close(); cerr != nil {
			app.GetLogger().WithError(cerr).WithField(logging.FieldFile, path).Warn("Failed to close file")
		}
		if err != nil {
			return fmt.Errorf("import of %s stopped: %w", path, err)
		}

		fmt.Fprintf(out, "%s: imported %d, skipped %d, malformed %d (batch %s)\n",
			path, res.Imported, res.Skipped, res.Malformed, res.BatchID)
		for _, p := range res.Problems {
			fmt.Fprintf(out, "  %v\n", p)
		}
	}
	return nil
}
