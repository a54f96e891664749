// Package scraper runs one story capture from start to finish.
//
// A run launches the browser on its persistent profile, seeds cookies saved by
// the previous run, makes sure the session is logged in (waiting for a manual
// login when it is not), opens the story and hands the page to the traversal
// controller. Captured slides land in a date-bucketed directory:
//
//	s := scraper.New(cfg, pwdriver.New(log))
//	s.SetNotifier(ui.NewNarrator(ui.Stdout(), dir, cfg.Story.MaxStories))
//	report, err := s.CaptureStories(ctx, "someone")
//
// Cancelling ctx closes the browser. The traversal sees a closed page and ends
// the run normally with the slides captured so far.
package scraper
