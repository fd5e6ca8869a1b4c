package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"time"

	"marklist-backend/lib/scrapers/marklist"
	"marklist-backend/lib/serviceutil"
	"marklist-backend/services/roster"

	"github.com/spf13/cobra"
)

var batchDb *string
var batchProfile *string

func init() {
	batchDb = batchCmd.Flags().String("db", "rosters.db", "The database to write scraped rosters to.")
	batchProfile = batchCmd.Flags().String("profile", "default", "The login profile from config.json5 to use.")
	rootCmd.AddCommand(batchCmd)
}

func watchEvents(events <-chan roster.Event) {
	for ev := range events {
		switch ev.Kind {
		case roster.EventReportReady:
			slog.Info("scraped course", "course", ev.Course)
		case roster.EventError:
			slog.Warn("skipped course", "course", ev.Course, "err", ev.Err)
		}
	}
}

var batchCmd = &cobra.Command{
	Use:   "batch [--db <path/to/rosters.db>] [--profile <name>]",
	Short: "Walks the picker up to the course list and scrapes every course on it.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		events := make(chan roster.Event, 64)
		service := roster.NewService(loadConfig(), openStore(*batchDb), events)
		go watchEvents(events)

		cascade, err := service.LoginProfile(ctx, *batchProfile)
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}

		// Walk the picker down to the course list, prompting for
		// the manual steps along the way.
		var courses []marklist.Option
		stdin := bufio.NewScanner(os.Stdin)
		for {
			step, opts, err := service.Advance(ctx, cascade)
			if err != nil {
				serviceutil.Fatal("failed to advance picker", err)
			}
			if step == nil {
				serviceutil.Fatal("advance picker", fmt.Errorf("picker finished before reaching the course list"))
			}
			if step.Name == marklist.StepCourse {
				courses = opts
				break
			}
			value := promptIndex(stdin, *step, opts)
			err = cascade.Select(ctx, step.Name, value)
			if err != nil {
				serviceutil.Fatal("failed to select option", err)
			}
		}

		slog.Info("starting batch", "courses", len(courses))
		t1 := time.Now()
		err = service.RunBatch(ctx, cascade, courses)
		if err != nil {
			serviceutil.Fatal("batch failed", err)
		}
		slog.Info("batch done", "seconds", time.Since(t1).Seconds())
	},
}
