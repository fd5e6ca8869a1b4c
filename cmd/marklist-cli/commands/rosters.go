package commands

import (
	"time"

	"marklist-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rostersDb *string
var showDb *string

func init() {
	rostersDb = rostersCmd.Flags().String("db", "rosters.db", "The database to read rosters from.")
	showDb = showCmd.Flags().String("db", "rosters.db", "The database to read rosters from.")
	rootCmd.AddCommand(rostersCmd)
	rootCmd.AddCommand(showCmd)
}

var rostersCmd = &cobra.Command{
	Use:   "rosters [--db <path/to/rosters.db>]",
	Short: "Lists the courses stored in the roster database.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(*rostersDb)

		courses, err := store.Courses(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list courses", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Course", "Students", "Scraped at"})
		for _, c := range courses {
			t.AppendRow(table.Row{c.Code, c.Students, c.ScrapedAt.Format(time.DateTime)})
		}
		t.Render()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <course code> [--db <path/to/rosters.db>]",
	Short: "Prints the stored roster for one course.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(*showDb)

		result, err := store.Roster(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to load roster", err)
		}
		printRoster(result)
	},
}
