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

	"github.com/SerhiiCho/timeago/v3"
	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-gen/internal/history"
)

// HistoryDeps holds history dependencies.
type HistoryDeps struct {
	CommonDeps
}

// HistoryCommand represents the history command.
type HistoryCommand struct{}

// NewHistoryCommand creates a new HistoryCommand.
func NewHistoryCommand() *HistoryCommand {
	return &HistoryCommand{}
}

// GetCobraCommand returns the cobra command for listing recorded
// generations.
func (c *HistoryCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [NAME]",
		Short: "Lists recorded unit generations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			deps := HistoryDeps{CommonDeps: NewRootDeps(app, cmd.OutOrStdout())}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return c.Run(cmd.Context(), app, name, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Run executes the history command with injected dependencies.
func (c *HistoryCommand) Run(_ context.Context, app *App, name string, deps HistoryDeps) error {
	repo, err := app.History()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}

	var entries []history.Entry
	if name == "" {
		entries, err = repo.List()
	} else {
		entries, err = repo.FindByName(name)
	}
	if err != nil {
		return fmt.Errorf("error finding generations: %w", err)
	}

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.New("ID", "Name", "Kind", "Content", "Input", "Recorded")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt).WithWriter(deps.Out)

	for _, e := range entries {
		recorded, err := timeago.Parse(e.CreatedAt)
		if err != nil {
			deps.Logger.Debug("Error parsing recorded time", "error", err)
			recorded = "UNKNOWN"
		}
		tbl.AddRow(e.ID, e.Name, e.Kind, shortHash(e.ContentHash), shortHash(e.InputHash), recorded)
	}
	tbl.Print()
	return nil
}
