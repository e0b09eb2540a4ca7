package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/you/subway/models"
	"github.com/you/subway/repository"
)

var stationsCmd = &cobra.Command{
	Use:   "stations <lineID>",
	Short: "Print a line's stations from up terminus to down terminus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lineID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || lineID <= 0 {
			return fmt.Errorf("lineID must be a positive integer, got %q", args[0])
		}

		path, _ := cmd.Flags().GetString("db")
		store, err := repository.NewSQLiteDB(path)
		if err != nil {
			return err
		}
		defer store.Close()

		line, err := repository.NewSQLiteLineRepository(store).GetLine(cmd.Context(), lineID)
		if err != nil {
			return err
		}
		return printLine(cmd.OutOrStdout(), line)
	},
}

// printLine writes one row per station with the distance to the next one.
func printLine(w io.Writer, line *models.Line) error {
	fmt.Fprintf(w, "%s (%s), %d sections, total distance %d\n",
		line.Name, line.Color, line.Sections.Len(), line.Sections.TotalDistance())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tSTATION\tNEXT")
	ordered := line.Sections.Ordered()
	for i, st := range line.Stations() {
		next := "-"
		if i < len(ordered) {
			next = strconv.Itoa(ordered[i].Distance)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, st.ID, st.Name, next)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(stationsCmd)
}
