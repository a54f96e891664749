package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storysnap/pkg/browser"
	"storysnap/pkg/browser/pwdriver"
	"storysnap/pkg/browser/roddriver"
	"storysnap/pkg/config"
	"storysnap/pkg/events"
	"storysnap/pkg/instagram"
	"storysnap/pkg/logger"
	"storysnap/pkg/scraper"
	"storysnap/pkg/traversal"
	"storysnap/pkg/ui"
	"storysnap/pkg/vault"
)

var (
	// Capture command flags
	outputDir  string
	maxStories int
	storyURL   string
	driverName string
	profileDir string
	headless   bool
	natsURL    string
	account    string
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture [username]",
	Short: "Capture the current stories of an Instagram account",
	Long: `Open the stories of an Instagram account in a browser and save one screenshot
per slide under <output>/<YYYY-MM-DD>/001.png, 002.png, ...

The browser keeps its profile between runs. When the session has expired the login
page is opened and the command waits for you to log in by hand.`,
	Example: `  # Capture with default settings
  storysnap capture natgeo

  # Same thing, capture is the default command
  storysnap natgeo

  # Use the rod driver and a different output folder
  storysnap capture natgeo --driver rod --output ./archive

  # Open an explicit story URL and publish slide events
  storysnap capture --story-url https://www.instagram.com/stories/natgeo/ --nats-url nats://localhost:4222`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)
	addCaptureFlags(captureCmd)

	// Also add the flags to the root command so capture works without its name
	addCaptureFlags(rootCmd)

	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			return runCapture(cmd, args[:1])
		}
		return cmd.Help()
	}
}

func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "base output directory (default ./pics)")
	cmd.Flags().IntVarP(&maxStories, "max-stories", "n", 0, "maximum number of slides to attempt (default 50)")
	cmd.Flags().StringVar(&storyURL, "story-url", "", "explicit story URL, overrides the username")
	cmd.Flags().StringVar(&driverName, "driver", "", "browser driver: playwright or rod")
	cmd.Flags().StringVar(&profileDir, "profile", "", "persistent browser profile directory")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "publish slide events to this NATS server")
	cmd.Flags().StringVarP(&account, "account", "a", "", "cookie vault account name")
}

// captureFlags collects the flags given on the command line
func captureFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	if len(args) > 0 {
		flags["username"] = instagram.SanitizeUsername(args[0])
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if maxStories > 0 {
		flags["max-stories"] = maxStories
	}
	if storyURL != "" {
		flags["story-url"] = storyURL
	}
	if driverName != "" {
		flags["driver"] = driverName
	}
	if profileDir != "" {
		flags["profile"] = profileDir
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if natsURL != "" {
		flags["nats-url"] = natsURL
	}
	return flags
}

// newLauncher returns the browser driver named by cfg
func newLauncher(cfg *config.Config, log logger.Logger) browser.Launcher {
	if strings.EqualFold(cfg.Browser.Driver, "rod") {
		return roddriver.New(log)
	}
	return pwdriver.New(log)
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(captureFlags(cmd, args))
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		os.Exit(1)
	}
	if account != "" {
		cfg.Session.Account = account
	}

	username := cfg.Story.Username
	if cfg.Story.URL == "" {
		if !instagram.IsValidUsername(username) {
			ui.PrintError("A valid Instagram username or --story-url is required", nil)
			return cmd.Usage()
		}
		ui.PrintInfo("Target", username)
	} else {
		ui.PrintInfo("Story URL", cfg.Story.URL)
	}

	log := logger.GetLogger()
	log.WithField("version", version).Info("storysnap starting")

	console := ui.Stdout()
	desktop := ui.NewDesktopNotifierWithSender(console, nil)
	if notifications {
		desktop = ui.NewDesktopNotifier(console)
	}

	s := scraper.New(cfg, newLauncher(cfg, log))
	s.SetLogger(log)
	s.SetLoginHook(func() {
		desktop.LoginRequired(cfg.Session.LoginTimeout.String())
	})

	if cfg.Session.CookieVault {
		v, err := vault.NewManager("")
		if err != nil {
			log.WithError(err).Warn("Cookie vault unavailable, continuing without it")
		} else {
			s.SetVault(v)
		}
	}

	publisher, err := events.New(cfg.Events.NATSURL, cfg.Events.Subject, log)
	if err != nil {
		log.WithError(err).Warn("Event publishing disabled")
		publisher = events.Nop{}
	}
	defer publisher.Close()

	narrator := ui.NewNarrator(console, cfg.Output.BaseDirectory, cfg.Story.MaxStories)
	s.SetOutputDirHook(narrator.SetOutputDir)
	s.SetNotifier(traversal.Notifiers{narrator, publisher})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console.Highlight("[OPENING STORIES]")
	report, err := s.CaptureStories(ctx, username)
	if err != nil {
		log.WithError(err).WithField("username", username).Error("Capture failed")
		desktop.RunFailed(err)
		ui.PrintError("CAPTURE FAILED", err)
		os.Exit(1)
	}

	desktop.RunComplete(report.Result.Saved, report.Result.Attempted, report.OutputDir)
	log.InfoWithFields("Capture finished", map[string]interface{}{
		"username": username,
		"saved":    report.Result.Saved,
		"reason":   string(report.Result.Reason),
		"duration": report.Finished.Sub(report.Started).Round(time.Second).String(),
	})
	if report.Result.Saved == 0 {
		ui.PrintWarning(fmt.Sprintf("No slides saved (%s)", report.Result.Reason))
	}
	return nil
}
