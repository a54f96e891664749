package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storysnap/pkg/browser/pwdriver"
	"storysnap/pkg/browser/roddriver"
	"storysnap/pkg/config"
	"storysnap/pkg/logger"
)

func TestIsKnownCommand(t *testing.T) {
	for _, name := range []string{"capture", "index", "serve", "config", "session"} {
		assert.True(t, isKnownCommand(name), name)
	}
	assert.False(t, isKnownCommand("natgeo"))
}

func TestCaptureFlags(t *testing.T) {
	defer func() {
		outputDir, maxStories, driverName = "", 0, ""
	}()

	outputDir = "./archive"
	maxStories = 7
	driverName = "rod"

	flags := captureFlags(captureCmd, []string{"@natgeo/"})
	assert.Equal(t, "natgeo", flags["username"])
	assert.Equal(t, "./archive", flags["output"])
	assert.Equal(t, 7, flags["max-stories"])
	assert.Equal(t, "rod", flags["driver"])
	assert.NotContains(t, flags, "headless")

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, "natgeo", cfg.Story.Username)
	assert.Equal(t, 7, cfg.Story.MaxStories)
}

func TestNewLauncher(t *testing.T) {
	cfg := config.DefaultConfig()
	log := logger.NewNopLogger()

	assert.IsType(t, &pwdriver.Launcher{}, newLauncher(cfg, log))

	cfg.Browser.Driver = "Rod"
	assert.IsType(t, &roddriver.Launcher{}, newLauncher(cfg, log))
}
