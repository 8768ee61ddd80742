// Command mosaic is a tiled viewer for multiple live video streams. It
// connects to every stream in the list concurrently, reconnects each one
// independently as they fail and resume, and composes their most recent
// frames into a single grid with clickable per-tile audio toggles.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zsiec/mosaic/internal/audio"
	"github.com/zsiec/mosaic/internal/compose"
	"github.com/zsiec/mosaic/internal/config"
	"github.com/zsiec/mosaic/internal/display"
	"github.com/zsiec/mosaic/internal/source"
	"github.com/zsiec/mosaic/internal/stream"
	"github.com/zsiec/mosaic/internal/viewer"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:          "mosaic",
		Short:        "Tiled viewer for multiple live video streams",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("file", "streams.txt", "stream list file, one \"video-url [audio-url]\" per line")
	flags.String("window-size", "1920x1080", `window resolution, e.g. "1280x720"`)
	flags.Bool("fullscreen", false, "start in fullscreen")
	flags.Bool("overlay", true, "overlay stream labels on each tile")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("streams.file", flags.Lookup("file"))
	_ = v.BindPFlag("window.size", flags.Lookup("window-size"))
	_ = v.BindPFlag("fullscreen", flags.Lookup("fullscreen"))
	_ = v.BindPFlag("overlay", flags.Lookup("overlay"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	return cmd
}

func run(v *viper.Viper) error {
	cfg, err := config.Resolve(v)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))

	ids, err := config.LoadStreams(cfg.StreamFile)
	if err != nil {
		if errors.Is(err, config.ErrNoStreams) {
			// A missing or empty list is a user message, not a crash.
			fmt.Println("No valid streams found.")
			return nil
		}
		return err
	}

	slog.Info("mosaic starting",
		"version", version,
		"streams", len(ids),
		"window", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	backoff := stream.Backoff{Initial: cfg.ReconnectInitial, Max: cfg.ReconnectMax}
	starter := audio.SDLStarter(slog.Default())

	workers := make([]*stream.Worker, len(ids))
	for i, id := range ids {
		workers[i] = stream.NewWorker(id, source.Open, starter, backoff, nil)
	}
	mgr := stream.NewManager(workers, nil)

	win, err := display.NewWindow("Mosaic", cfg.Width, cfg.Height, cfg.Fullscreen)
	if err != nil {
		return err
	}

	comp := compose.New(cfg.Width, cfg.Height, cfg.Overlay)
	return viewer.New(mgr, comp, win, nil).Run(ctx)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
