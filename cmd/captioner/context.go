package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"captioner/internal/config"
	"captioner/internal/httpapi"
	"captioner/internal/jobs"
	"captioner/internal/logging"
	"captioner/internal/pipeline"
	"captioner/internal/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// withStore opens the job store for the duration of fn.
func (c *commandContext) withStore(fn func(*jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withJanitor opens the job store and the configured subtitle storage so
// removals also discard published files.
func (c *commandContext) withJanitor(fn func(*pipeline.Janitor) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	backend, err := storage.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	return c.withStore(func(store *jobs.Store) error {
		return fn(pipeline.NewJanitor(store, backend, logging.NewNop()))
	})
}

func (c *commandContext) client() (*httpapi.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return httpapi.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
