package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bep/debounce"
	"github.com/jsphweid/staffmidi/config"
	"github.com/jsphweid/staffmidi/constants"
	"github.com/jsphweid/staffmidi/logger"
	"github.com/spf13/cobra"
)

const (
	watchPollInterval = 200 * time.Millisecond
	watchSettleDelay  = 300 * time.Millisecond
)

var watchOut string

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", constants.DefaultFilename, "where to write the .mid file")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <song.json>",
	Short: "Re-exports a song every time it is saved",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cobra.CheckErr(watch(ctx, args[0], watchOut, config.Load().DefaultTempo, watchPollInterval))
	},
}

func modTime(path string) (time.Time, error) {
	stats, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return stats.ModTime(), nil
}

// watch exports once, then again after each burst of writes settles.
func watch(ctx context.Context, songPath string, outPath string, defaultTempo float64, every time.Duration) error {
	last, err := modTime(songPath)
	if err != nil {
		return err
	}

	reexport := func() {
		if err := exportFile(songPath, outPath, 0, defaultTempo); err != nil {
			logger.Warn("export failed", logger.Fields{"song": songPath, "error": err.Error()})
		}
	}
	reexport()

	debounced := debounce.New(watchSettleDelay)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			mt, err := modTime(songPath)
			if err != nil {
				// editors often replace the file, so it can be briefly missing
				continue
			}
			if mt.After(last) {
				last = mt
				debounced(reexport)
			}
		}
	}
}
