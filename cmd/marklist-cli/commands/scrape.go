package commands

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"marklist-backend/lib/configutil"
	"marklist-backend/lib/scrapers/marklist"
	"marklist-backend/lib/serviceutil"
	"marklist-backend/lib/sqliteutil"
	"marklist-backend/services/roster"
	"marklist-backend/services/roster/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var scrapeDb *string
var scrapeProfile *string

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "rosters.db", "The database to write scraped rosters to.")
	scrapeProfile = scrapeCmd.Flags().String("profile", "default", "The login profile from config.json5 to use.")
	rootCmd.AddCommand(scrapeCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func loadConfig() roster.Config {
	cfg, err := configutil.ReadConfig[roster.Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func openStore(dbPath string) roster.Store {
	out, err := sqliteutil.OpenDB(db.Schema, dbPath)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	return roster.NewStore(out)
}

func promptIndex(stdin *bufio.Scanner, step marklist.Step, opts []marklist.Option) string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Option"})
	for i, opt := range opts {
		t.AppendRow(table.Row{i, opt.Label})
	}
	t.Render()

	for {
		fmt.Printf("select %s [0-%d]: ", step.Name, len(opts)-1)
		if !stdin.Scan() {
			serviceutil.Fatal("read selection", stdin.Err())
		}
		idx, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
		if err != nil || idx < 0 || idx >= len(opts) {
			fmt.Println("not a valid index, try again")
			continue
		}
		return opts[idx].Value
	}
}

func printRoster(result marklist.ReportResult) {
	t := newTable()
	header := table.Row{"#", "Seat", "Name"}
	for _, h := range result.GradeHeaders {
		header = append(header, h)
	}
	t.AppendHeader(header)
	for _, s := range result.Students {
		row := table.Row{s.ID, s.Seat, s.Name}
		for _, g := range s.Grades {
			row = append(row, g)
		}
		t.AppendRow(row)
	}
	t.Render()
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/rosters.db>] [--profile <name>]",
	Short: "Walks the picker interactively and scrapes one course roster.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := roster.NewService(loadConfig(), openStore(*scrapeDb), nil)

		cascade, err := service.LoginProfile(ctx, *scrapeProfile)
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}

		stdin := bufio.NewScanner(os.Stdin)
		for {
			step, opts, err := service.Advance(ctx, cascade)
			if err != nil {
				serviceutil.Fatal("failed to advance picker", err)
			}
			if step == nil {
				break
			}
			value := promptIndex(stdin, *step, opts)
			err = cascade.Select(ctx, step.Name, value)
			if err != nil {
				serviceutil.Fatal("failed to select option", err)
			}
		}

		result, err := service.ScrapeCourse(ctx, cascade)
		if err != nil {
			serviceutil.Fatal("failed to scrape course", err)
		}

		fmt.Printf("course %s: %d students\n", result.CourseCode, len(result.Students))
		printRoster(result)
	},
}
