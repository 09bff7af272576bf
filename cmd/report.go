package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jsphweid/staffmidi/config"
	"github.com/jsphweid/staffmidi/db"
	"github.com/jsphweid/staffmidi/logger"
	"github.com/jsphweid/staffmidi/midi"
	"github.com/jsphweid/staffmidi/util"
	"github.com/spf13/cobra"
)

const reportBatchSize = 100

var exportNameRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-([0-9a-fA-F]{4}-){3}[0-9a-fA-F]{12}\.mid$`)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [dir]",
	Short: "Creates a report",
	Long:  `Summarizes every MIDI file under a directory, defaults to the export dir`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		dir := cfg.OutDir
		if len(args) == 1 {
			dir = args[0]
		}
		store, err := openStore(cfg)
		cobra.CheckErr(err)
		cobra.CheckErr(report(context.Background(), os.Stdout, dir, store))
	},
}

type fileReport struct {
	path     string
	exportId string
	title    string
	bytes    int64
	notes    int
	endTick  int64
	tempo    float64
}

func analyzeFile(path string) (fileReport, error) {
	fr := fileReport{path: path}
	stats, err := os.Stat(path)
	if err != nil {
		return fr, err
	}
	fr.bytes = stats.Size()

	s, err := midi.ReadMidiFile(path)
	if err != nil {
		return fr, err
	}
	for _, sum := range midi.Summarize(s) {
		fr.notes += sum.NoteOns
		fr.endTick = util.Max(fr.endTick, sum.EndTick)
		if sum.Tempo > 0 {
			fr.tempo = sum.Tempo
		}
	}

	if name := filepath.Base(path); exportNameRegex.MatchString(name) {
		fr.exportId = strings.TrimSuffix(name, ".mid")
	}
	return fr, nil
}

// lookupTitles fills in titles for files the server saved
func lookupTitles(ctx context.Context, store db.MetadataStore, reports []fileReport) error {
	var ids []string
	byId := make(map[string]int)
	for i, fr := range reports {
		if fr.exportId != "" {
			ids = append(ids, fr.exportId)
			byId[fr.exportId] = i
		}
	}

	for start := 0; start < len(ids); start += reportBatchSize {
		end := util.Min(start+reportBatchSize, len(ids))
		metas, err := store.GetExportMetadatas(ctx, ids[start:end])
		if err != nil {
			return err
		}
		for id, m := range metas {
			reports[byId[id]].title = m.Title
		}
	}
	return nil
}

func report(ctx context.Context, w io.Writer, dir string, store db.MetadataStore) error {
	paths, err := util.GatherAllMidiPaths(dir, 0)
	if err != nil {
		return err
	}

	var reports []fileReport
	for _, path := range paths {
		fr, err := analyzeFile(path)
		if err != nil {
			logger.Warn("skipping unreadable file", logger.Fields{"path": path, "error": err.Error()})
			continue
		}
		reports = append(reports, fr)
	}

	if store != nil {
		if err := lookupTitles(ctx, store, reports); err != nil {
			return err
		}
	}

	var sizes []int64
	var notes []int
	for _, fr := range reports {
		title := fr.title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d bytes\t%d notes\t%d ticks\t%.2f bpm\n",
			fr.path, title, fr.bytes, fr.notes, fr.endTick, fr.tempo)
		sizes = append(sizes, fr.bytes)
		notes = append(notes, fr.notes)
	}

	fmt.Fprintf(w, "\nfiles: %d (%d unreadable)\n", len(reports), len(paths)-len(reports))
	fmt.Fprintf(w, "total bytes: %d\n", util.Sum(sizes))
	fmt.Fprintf(w, "total notes: %d\n", util.Sum(notes))
	return nil
}
