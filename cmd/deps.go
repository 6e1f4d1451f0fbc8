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
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/trly/quadlet-gen/internal/log"
)

// CommonDeps provides dependencies common across commands.
type CommonDeps struct {
	Clock  clock.Clock
	Logger log.Logger
	Out    io.Writer
}

// NewCommonDeps creates production common dependencies.
func NewCommonDeps(logger log.Logger) CommonDeps {
	return CommonDeps{
		Clock:  clock.New(),
		Logger: logger,
		Out:    os.Stdout,
	}
}

// NewRootDeps creates common root dependencies for all commands. Output goes
// to the command's configured writer.
func NewRootDeps(app *App, out io.Writer) CommonDeps {
	deps := NewCommonDeps(app.Logger)
	if app.Clock != nil {
		deps.Clock = app.Clock
	}
	if out != nil {
		deps.Out = out
	}
	return deps
}
