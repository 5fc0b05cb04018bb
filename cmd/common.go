package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/scoring"
	"github.com/spigell/resume-scorer/internal/secrets"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// setup builds the logger and the config every command starts with.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redacted(config *Config) Config {
	c := *config
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return c
}

func newClient(config *Config, logger *zap.Logger) (*scoring.Client, error) {
	apiKey, err := secrets.LoadOptional(secrets.Source{
		Name:  "scoring service api key",
		File:  config.APIKeyFile,
		Value: config.APIKey,
	})
	if err != nil {
		return nil, err
	}

	client := scoring.New(logger.Named("scoring"), apiKey)

	if config.APIURL != "" {
		client.APIURL = config.APIURL
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}
	if config.Timeout > 0 {
		client.HTTPClient.Timeout = config.Timeout
	}
	if config.MaxLogLength > 0 {
		client.MaxLogLength = config.MaxLogLength
	}

	return client, nil
}

// sourceFlags names the flags a one-shot command takes a document from.
type sourceFlags struct {
	resumePath, resumeText string
	jdPath, jdText         string
}

// load reads both documents concurrently. A path wins over pasted text.
func (f sourceFlags) load(ctx context.Context, maxBytes int64) (document.Source, document.Source, error) {
	var resume, jd document.Source

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resume, err = loadSource(document.RoleResume, f.resumePath, f.resumeText, maxBytes)
		return err
	})
	g.Go(func() error {
		var err error
		jd, err = loadSource(document.RoleJobDescription, f.jdPath, f.jdText, maxBytes)
		return err
	})

	if err := g.Wait(); err != nil {
		return document.Source{}, document.Source{}, err
	}

	return resume, jd, nil
}

func loadSource(role document.Role, path, text string, maxBytes int64) (document.Source, error) {
	if strings.TrimSpace(path) != "" {
		return document.FromPath(role, path, maxBytes)
	}

	src := document.FromText(role, text)
	if !src.HasData() {
		return document.Source{}, fmt.Errorf("%s is required: pass a file or text", role)
	}
	return src, nil
}

// withTimeout is context.WithTimeout that treats a non-positive d as no limit.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
