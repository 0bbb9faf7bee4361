package main

import (
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/flatr/pkg/rename"
)

// newRenameCmd creates the rename subcommand
func newRenameCmd() *cobra.Command {
	var (
		mapFile string
		mapDB   string
		dbTable string
		pairs   []string
	)

	cmd := &cobra.Command{
		Use:   "rename TARGET_DIR",
		Short: "Renames immediate subdirectories using an old-name to new-name map",
		Long: `rename applies an old-name to new-name map to the immediate
subdirectories of a target directory. The map can come from a JSON or YAML
file, a SQLite database, or repeated --map OLD=NEW flags. Renames whose
target name already exists are skipped.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, ulog := setupContext(cmd)

			var (
				m   rename.Map
				err error
			)
			switch {
			case mapFile != "":
				m, err = rename.LoadMapFromFile(ctx, mapFile)
			case mapDB != "":
				m, err = rename.LoadMapFromDB(ctx, mapDB, dbTable)
			case len(pairs) > 0:
				m, err = parseMapPairs(pairs)
			default:
				err = errors.New("one of --map-file, --map-db, or --map is required")
			}
			if err != nil {
				ulog.Errorf("%v", err)
				return err
			}

			summary, err := rename.Subdirectories(ctx, args[0], m)
			if err != nil {
				ulog.Errorf("%v", err)
				return err
			}

			ulog.Successf("inspected %d subdirectories: %d renamed, %d skipped",
				summary.Inspected, summary.Renamed, summary.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&mapFile, "map-file", "", "JSON or YAML file with old-name to new-name pairs")
	cmd.Flags().StringVar(&mapDB, "map-db", "", "SQLite database with a rename table")
	cmd.Flags().StringVar(&dbTable, "map-db-table", rename.DefaultDBTable, "table to read the map from")
	cmd.Flags().StringArrayVar(&pairs, "map", nil, "single OLD=NEW mapping (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("map-file", "map-db", "map")

	return cmd
}

func parseMapPairs(pairs []string) (rename.Map, error) {
	m := rename.Map{}
	for _, pair := range pairs {
		oldName, newName, ok := strings.Cut(pair, "=")
		if !ok || oldName == "" || newName == "" {
			return nil, errors.Errorf("invalid --map value %q (want OLD=NEW)", pair)
		}
		m[oldName] = newName
	}
	return m, nil
}
