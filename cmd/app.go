/*
Copyright © 2025 Travis Lyons travis.lyons@gmail.com

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package cmd provides the command line interface for quadlet-gen
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-gen/internal/config"
	"github.com/trly/quadlet-gen/internal/execx"
	"github.com/trly/quadlet-gen/internal/fs"
	"github.com/trly/quadlet-gen/internal/history"
	"github.com/trly/quadlet-gen/internal/inspect"
	"github.com/trly/quadlet-gen/internal/log"
	"github.com/trly/quadlet-gen/internal/validate"
)

type contextKey string

const appContextKey contextKey = "app"

// App holds the application dependencies for command line interface.
type App struct {
	Logger         log.Logger
	Config         *config.Settings
	ConfigProvider config.Provider
	Runner         execx.Runner
	FSService      *fs.Service
	Validator      PodmanValidator
	Clock          clock.Clock

	// source and history are built on first use unless injected.
	source    inspect.Source
	history   history.Repository
	historyDB *sql.DB
	mu        sync.Mutex
}

// NewApp creates a new App with all dependencies initialized.
func NewApp(logger log.Logger, configProv config.Provider) *App {
	runner := execx.NewRealRunner()
	return &App{
		Logger:         logger,
		Config:         configProv.GetConfig(),
		ConfigProvider: configProv,
		Runner:         runner,
		FSService:      fs.NewServiceWithLogger(configProv, logger),
		Validator:      validate.NewValidator(logger, runner),
		Clock:          clock.New(),
	}
}

// getApp retrieves the App from the command context.
func getApp(cmd *cobra.Command) *App {
	if cmd.Context() == nil {
		return nil
	}
	app, _ := cmd.Context().Value(appContextKey).(*App)
	return app
}

// SourceOptions selects the inspection source for one command run.
type SourceOptions struct {
	Source    string
	ImageFile string
	PodFile   string
}

// Source returns the inspection source named by opts, falling back to the
// configured source.
func (a *App) Source(ctx context.Context, opts SourceOptions) (inspect.Source, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source != nil {
		return a.source, nil
	}

	source := opts.Source
	if source == "" {
		source = a.Config.Source
	}

	exec := inspect.NewExecSource(a.Runner, a.Config.PodmanBinary, a.Logger)

	switch source {
	case config.SourceExec, "":
		a.source = exec
	case config.SourcePodman:
		src, err := inspect.NewBindingsSource(ctx, a.Config.Socket(), exec, a.Logger)
		if err != nil {
			return nil, err
		}
		a.source = src
	case config.SourceFile:
		a.source = &inspect.FileSource{ImagePath: opts.ImageFile, PodPath: opts.PodFile}
	default:
		return nil, fmt.Errorf("invalid source: %s, allowed sources are: %v", source, allowedSources)
	}

	return a.source, nil
}

// History returns the generation history repository, opening and migrating
// the database on first use.
func (a *App) History() (history.Repository, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.history != nil {
		return a.history, nil
	}

	db, err := history.Open(a.Config.HistoryPath(), a.Logger)
	if err != nil {
		return nil, err
	}

	a.historyDB = db
	a.history = history.NewRepository(db, a.Clock)
	return a.history, nil
}

// Close releases resources opened by the App.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.historyDB == nil {
		return nil
	}
	err := a.historyDB.Close()
	a.historyDB = nil
	a.history = nil
	return err
}

var allowedSources = []string{config.SourceExec, config.SourcePodman, config.SourceFile}
