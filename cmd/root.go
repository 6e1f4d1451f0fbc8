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

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trly/quadlet-gen/internal/config"
	"github.com/trly/quadlet-gen/internal/log"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigFile string
	DBPath     string
	UserMode   bool
	Verbose    bool
}

// RootCommand represents the root command for quadlet-gen CLI.
type RootCommand struct {
	opts RootOptions
}

// NewRootCommand creates a new RootCommand.
func NewRootCommand() *RootCommand {
	return &RootCommand{}
}

// GetCobraCommand returns the cobra root command for quadlet-gen CLI.
func (c *RootCommand) GetCobraCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quadlet-gen",
		Short: "quadlet-gen turns existing podman resources into Quadlet unit files.",
		Long: `quadlet-gen turns existing podman resources into Quadlet unit files.
It reads container, pod, volume, network and image inspection data and writes the
minimal .container, .pod, .volume, .network, .image or .kube unit that recreates them.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if getApp(cmd) != nil {
				return nil
			}

			app := c.buildApp()
			if app.Config.Verbose {
				fmt.Fprintf(os.Stderr, "%s using config: %s\n\n", cmd.Root().Use, viper.GetViper().ConfigFileUsed())
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, appContextKey, app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if app := getApp(cmd); app != nil {
				return app.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&c.opts.UserMode, "user", "u", false, "Run in user mode")
	rootCmd.PersistentFlags().BoolVarP(&c.opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&c.opts.ConfigFile, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&c.opts.DBPath, "db-path", "", "Path to the history database file")

	rootCmd.AddCommand(
		NewGenerateCommand().GetCobraCommand(),
		NewDiffCommand().GetCobraCommand(),
		NewHistoryCommand().GetCobraCommand(),
		NewConfigCommand().GetCobraCommand(),
		NewVersionCommand().GetCobraCommand(),
		NewUpdateCommand().GetCobraCommand(),
	)

	return rootCmd
}

// buildApp loads the configuration, applies the global flags and creates
// the App.
func (c *RootCommand) buildApp() *App {
	provider := config.NewDefaultConfigProvider()
	if c.opts.ConfigFile != "" {
		provider.SetConfigFilePath(c.opts.ConfigFile)
	}
	cfg := provider.InitConfig()
	c.applyFlags(cfg)

	log.Init(cfg.Verbose)
	config.SetConfig(cfg)

	return NewApp(log.GetLogger(), provider)
}

func (c *RootCommand) applyFlags(cfg *config.Settings) {
	if c.opts.Verbose {
		cfg.Verbose = true
	}
	if c.opts.UserMode {
		cfg.UserMode = true
	}
	if c.opts.DBPath != "" {
		cfg.DBPath = c.opts.DBPath
	}
}
