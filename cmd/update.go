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
	"errors"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// ErrNoReleaseSlug is returned by update when no release repository is
// configured.
var ErrNoReleaseSlug = errors.New("no release repository configured (set releaseSlug)")

// UpdateCommand represents the update command.
type UpdateCommand struct{}

// NewUpdateCommand creates a new UpdateCommand.
func NewUpdateCommand() *UpdateCommand {
	return &UpdateCommand{}
}

// GetCobraCommand returns the cobra command for updating the binary.
func (c *UpdateCommand) GetCobraCommand() *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update quadlet-gen to the latest version",
		Long:  `Update quadlet-gen to the latest version from the releases of the configured releaseSlug.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := getApp(cmd)
			if app == nil || app.Config.ReleaseSlug == "" {
				return ErrNoReleaseSlug
			}
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintf(out, "Current version: %s\n", Version)
			_, _ = fmt.Fprintln(out, "Checking for updates...")

			latest, found, err := detectLatest(cmd.Context(), app.Config.ReleaseSlug)
			if err != nil {
				return fmt.Errorf("failed to check for updates: %w", err)
			}

			if !found {
				_, _ = fmt.Fprintln(out, "No release found")
				return nil
			}

			if latest.LessOrEqual(Version) {
				_, _ = fmt.Fprintln(out, "You are already running the latest version.")
				return nil
			}

			_, _ = fmt.Fprintf(out, "Update available! New version: %s\n", latest.Version())
			_, _ = fmt.Fprintln(out, "Downloading and applying update...")

			exe, err := selfupdate.ExecutablePath()
			if err != nil {
				return fmt.Errorf("failed to get executable path: %w", err)
			}

			if err := selfupdate.UpdateTo(cmd.Context(), latest.AssetURL, latest.AssetName, exe); err != nil {
				return fmt.Errorf("failed to update: %w", err)
			}

			_, _ = fmt.Fprintln(out, "Update completed successfully! Please restart quadlet-gen to use the new version.")
			return nil
		},
		SilenceUsage: true,
	}

	return updateCmd
}
