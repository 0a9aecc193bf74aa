// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tomtom215/catalogus/internal/app"
	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/search"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// aliasSetter repoints the configured search aliases.
type aliasSetter interface {
	SetAlias(ctx context.Context, index string) error
}

// cli carries the loaded configuration and the constructors commands use,
// replaceable in tests.
type cli struct {
	out     io.Writer
	envFile string
	timeout time.Duration
	cfg     *config.Config

	loadConfig func() (*config.Config, error)
	newAliases func(cfg *config.SearchConfig) (aliasSetter, error)
}

func newCLI(out io.Writer) *cli {
	return &cli{
		out:        out,
		loadConfig: config.Load,
		newAliases: func(cfg *config.SearchConfig) (aliasSetter, error) {
			client, err := search.NewClient(cfg)
			if err != nil {
				return nil, err
			}
			return search.NewService(client, cfg), nil
		},
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	return newCLI(out).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Operator commands for the Catalogus course catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.setup()
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.out)
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Minute, "how long to wait for the server to answer")

	root.AddCommand(
		c.setAliasCmd(),
		c.loadCoursesCmd(),
		c.importCourseMetadataCmd(),
		c.setupServiceCmd(),
		c.runDataLoaderCmd(),
	)
	return root
}

// setup loads the dotenv file, then configuration, then logging.
func (c *cli) setup() error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	c.cfg = cfg
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	return nil
}

// apiClient calls the running server as the service user. The server
// holds the DuckDB file open for writing, so commands go through its API
// instead of opening the store.
func (c *cli) apiClient() (*upstream.Client, error) {
	a, err := app.NewAuth(c.cfg)
	if err != nil {
		return nil, err
	}
	opts := []upstream.Option{
		upstream.WithHTTPClient(&http.Client{Timeout: c.timeout}),
		upstream.WithRetry(0, 0),
	}
	if authz := a.ServiceAuthorizer(); authz != nil {
		opts = append(opts, upstream.WithAuthorizer(authz))
	}
	return upstream.NewClient("catalogctl", c.cfg.Loader.APIBaseURL, opts...), nil
}

// apiError replaces a status error with the message the server sent, from
// either the error envelope or a plain {"error": "..."} body.
func apiError(err error) error {
	var se *upstream.StatusError
	if !errors.As(err, &se) || se.Body == "" {
		return err
	}
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal([]byte(se.Body), &body) != nil || len(body.Error) == 0 {
		return err
	}
	var message string
	if json.Unmarshal(body.Error, &message) == nil && message != "" {
		return errors.New(message)
	}
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body.Error, &envelope) == nil && envelope.Message != "" {
		return errors.New(envelope.Message)
	}
	return err
}

// status prints msg in green when ok and red otherwise.
func (c *cli) status(ok bool, format string, args ...interface{}) {
	attr := color.FgGreen
	if !ok {
		attr = color.FgRed
	}
	_, _ = color.New(attr).Fprintf(c.out, format+"\n", args...)
}

// pyBool renders b the way operators' existing scripts grep for.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
