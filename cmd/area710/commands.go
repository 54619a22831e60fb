package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"area710/internal/aggregate"
	"area710/internal/archive"
	"area710/internal/config"
	"area710/internal/ics"
	appLog "area710/internal/log"
	"area710/internal/model"
)

var (
	exportOut     string
	feedBlocked   bool
	importFrom    string
	importTo      string
	importReason  string
	importStatus  string
	importRooms   []string
	importTimeout time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup archive of the project",
	Long: `Zip events.json, gallery.json and both image folders. With --out the
archive goes to that file; otherwise to the configured archive sink.`,
	RunE: runExport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard figures as JSON",
	RunE:  runStats,
}

var feedCmd = &cobra.Command{
	Use:   "ics",
	Short: "Print the public events as iCalendar",
	RunE:  runFeed,
}

var importCmd = &cobra.Command{
	Use:   "import <url>",
	Short: "Add blocked slots from a remote calendar",
	Long: `Fetch an iCalendar document and add one blocked slot per occurrence in
[--from, --to). The window defaults to the coming year.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Write the archive to this file")
	feedCmd.Flags().BoolVar(&feedBlocked, "blocked", false, "Include blocked slots as private entries")

	importCmd.Flags().StringVar(&importFrom, "from", "", "Window start (YYYY-MM-DD), defaults to today")
	importCmd.Flags().StringVar(&importTo, "to", "", "Window end (YYYY-MM-DD, exclusive), defaults to one year after --from")
	importCmd.Flags().StringVar(&importReason, "reason", "", "Reason for every slot; defaults to the entry summary")
	importCmd.Flags().StringVar(&importStatus, "status", "", "Status for every slot (reserved or confirmed)")
	importCmd.Flags().StringSliceVar(&importRooms, "room", nil, "Blocked room; repeat for several, omit for all")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 30*time.Second, "Fetch timeout")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rp, err := openRepository(cfg)
	if err != nil {
		return err
	}
	p := rp.Project()
	data, err := archive.Export(p)
	if err != nil {
		return err
	}

	if exportOut != "" {
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), exportOut)
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sink, err := archiveSink(ctx, cfg)
	if err != nil {
		return err
	}
	loc, err := sink.Put(ctx, p.Root, archive.FileName(time.Now()), data)
	if err != nil {
		return err
	}
	appLog.Info("archive written", "location", loc, "bytes", len(data))
	fmt.Fprintln(cmd.OutOrStdout(), loc)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rp, err := openRepository(cfg)
	if err != nil {
		return err
	}
	c, st := rp.Collections()
	if st.Corrupt() {
		appLog.Warn("collection file unreadable; figures treat it as empty",
			"events", st.Events.Outcome.String(), "gallery", st.Gallery.Outcome.String())
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(aggregate.DashboardStats(c.Events, c.Gallery, time.Now()))
}

func runFeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rp, err := openRepository(cfg)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.ICS.Timezone)
	if err != nil {
		return fmt.Errorf("ics timezone %q: %w", cfg.ICS.Timezone, err)
	}
	c, _ := rp.Collections()
	_, err = fmt.Fprint(cmd.OutOrStdout(), ics.Feed(c.Events, ics.FeedOptions{
		ProductID:      cfg.ICS.ProductID,
		Name:           cfg.ICS.Name,
		Location:       loc,
		IncludeBlocked: feedBlocked,
		Stamp:          time.Now(),
	}))
	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rp, err := openRepository(cfg)
	if err != nil {
		return err
	}
	win, err := importWindow(cfg, importFrom, importTo)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	rooms := make([]model.Room, 0, len(importRooms))
	for _, r := range importRooms {
		rooms = append(rooms, model.Room(r))
	}
	fetcher := ics.NewFetcher(cfg.ICS.CacheDir, nil)
	slots, err := fetcher.Import(ctx, ics.Source{ID: "cli", URL: args[0]}, win, ics.BlockTemplate{
		Reason: importReason,
		Status: model.Status(importStatus),
		Rooms:  rooms,
	})
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no occurrences in window")
		return nil
	}
	added, err := rp.AppendBlocked(slots)
	if err != nil {
		return err
	}
	for _, b := range added {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s-%s\t%s\n", b.ID, b.Date, b.StartTime, b.EndTime, b.Reason)
	}
	return nil
}

func importWindow(cfg *config.Config, from, to string) (ics.Window, error) {
	loc, err := time.LoadLocation(cfg.ICS.Timezone)
	if err != nil {
		return ics.Window{}, fmt.Errorf("ics timezone %q: %w", cfg.ICS.Timezone, err)
	}
	y, m, d := time.Now().In(loc).Date()
	win := ics.Window{From: time.Date(y, m, d, 0, 0, 0, 0, loc), Location: loc}
	if from != "" {
		if win.From, err = time.ParseInLocation(model.DateLayout, from, loc); err != nil {
			return ics.Window{}, fmt.Errorf("invalid --from (use YYYY-MM-DD): %v", err)
		}
	}
	win.To = win.From.AddDate(1, 0, 0)
	if to != "" {
		if win.To, err = time.ParseInLocation(model.DateLayout, to, loc); err != nil {
			return ics.Window{}, fmt.Errorf("invalid --to (use YYYY-MM-DD): %v", err)
		}
	}
	if !win.To.After(win.From) {
		return ics.Window{}, fmt.Errorf("--to must be after --from")
	}
	return win, nil
}
