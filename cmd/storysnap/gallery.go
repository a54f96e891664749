package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"storysnap/pkg/config"
	"storysnap/pkg/events"
	"storysnap/pkg/gallery"
	"storysnap/pkg/logger"
	"storysnap/pkg/traversal"
	"storysnap/pkg/ui"
)

var (
	galleryRoot string
	picsDir     string
	watch       bool
	listenAddr  string
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Write the gallery index of all captured slides",
	Long: `Scan the capture directory and write the date-grouped JSON index read by the
gallery page. With --watch the index is rewritten every time a capture run
publishes its final event on NATS.`,
	Example: `  # Write ./gallery-data.json from ./pics
  storysnap index

  # Keep the index current while captures run elsewhere
  storysnap index --watch --nats-url nats://localhost:4222`,
	Args: cobra.NoArgs,
	Run:  runIndex,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gallery and a live index over HTTP",
	Args:  cobra.NoArgs,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)

	for _, cmd := range []*cobra.Command{indexCmd, serveCmd} {
		cmd.Flags().StringVar(&galleryRoot, "root", "", "gallery root directory (default .)")
		cmd.Flags().StringVar(&picsDir, "pics", "", "capture directory (default ./pics)")
	}
	indexCmd.Flags().BoolVarP(&watch, "watch", "w", false, "rewrite the index after every published run")
	indexCmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server to watch")
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (default :8080)")
}

func galleryFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if picsDir != "" {
		flags["output"] = picsDir
	}
	if natsURL != "" {
		flags["nats-url"] = natsURL
	}
	if listenAddr != "" {
		flags["listen"] = listenAddr
	}
	return flags
}

func galleryPaths(cfg *config.Config) (root, pics string) {
	root = cfg.Gallery.Root
	if galleryRoot != "" {
		root = galleryRoot
	}
	return root, cfg.Output.BaseDirectory
}

// writeIndex scans pics and writes the index file under root
func writeIndex(root, pics, indexFile string) (gallery.Index, string, error) {
	idx, err := gallery.Scan(root, pics)
	if err != nil {
		return nil, "", err
	}
	out := filepath.Join(root, indexFile)
	if err := gallery.WriteIndex(out, idx); err != nil {
		return nil, "", err
	}
	return idx, out, nil
}

func runIndex(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(galleryFlags())
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		os.Exit(1)
	}
	root, pics := galleryPaths(cfg)

	idx, out, err := writeIndex(root, pics, cfg.Gallery.IndexFile)
	if err != nil {
		ui.PrintError("Failed to write gallery index", err)
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Indexed %d images across %d dates into %s", idx.Images(), idx.Dates(), out))

	if !watch {
		return
	}
	if cfg.Events.NATSURL == "" {
		ui.PrintError("--watch needs a NATS server", fmt.Errorf("set --nats-url or events.nats_url"))
		os.Exit(1)
	}

	log := logger.GetLogger().WithField("component", "indexer")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Watching", events.Subject(cfg.Events.Subject, "*"))
	err = events.Listen(ctx, cfg.Events.NATSURL, cfg.Events.Subject, func(e traversal.Event) {
		if e.Kind != traversal.EventDone {
			return
		}
		idx, _, err := writeIndex(root, pics, cfg.Gallery.IndexFile)
		if err != nil {
			log.WithError(err).Error("Reindex failed")
			return
		}
		log.InfoWithFields("Index updated", map[string]interface{}{
			"images": idx.Images(),
			"dates":  idx.Dates(),
		})
	}, log)
	if err != nil {
		ui.PrintError("Watching events failed", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(galleryFlags())
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		os.Exit(1)
	}
	root, pics := galleryPaths(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := gallery.NewServer(root, pics, cfg.Gallery.IndexFile, logger.GetLogger())
	ui.PrintInfo("Gallery", "http://localhost"+cfg.Gallery.ListenAddr)
	if err := srv.ListenAndServe(ctx, cfg.Gallery.ListenAddr); err != nil {
		ui.PrintError("Gallery server failed", err)
		os.Exit(1)
	}
}
