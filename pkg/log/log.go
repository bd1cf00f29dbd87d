// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/walteh/repotext/pkg/remote"
	"github.com/walteh/repotext/pkg/walk"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 50 // Base width for the path
	statusWidth = 12 // Width for status text
)

// 📊 Counts tallies what a walk did with each entry
type Counts struct {
	Fetched      int
	Placeholders int
	Excluded     int
	Failed       int
}

// 🖥️ Console prints one line per walked entry. It is safe for concurrent use.
type Console struct {
	console io.Writer
	verbose bool
	mu      sync.Mutex
	counts  Counts
}

var _ walk.Observer = (*Console)(nil)

// 🏭 NewConsole creates a console printer. Excluded entries are only printed
// when verbose is set.
func NewConsole(console io.Writer, verbose bool) *Console {
	return &Console{
		console: console,
		verbose: verbose,
	}
}

// 📝 formatLine formats one entry for display
func formatLine(symbol rune, symbolColor color.Attribute, path, status string) string {
	return fmt.Sprintf("%s%s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, path),
		color.New(color.Faint).Sprint(fmt.Sprintf("%-*s", statusWidth, status)))
}

// Header prints the repository being fetched.
func (c *Console) Header(repo string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.console, "%s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(repo))
}

func (c *Console) Excluded(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts.Excluded++
	if c.verbose {
		fmt.Fprintln(c.console, formatLine('-', color.FgYellow, path, "excluded"))
	}
}

func (c *Console) Fetched(file walk.File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote.IsPlaceholder(file.Path, file.Content) {
		c.counts.Placeholders++
		fmt.Fprintln(c.console, formatLine('•', color.FgCyan, file.Path, "placeholder"))
		return
	}

	c.counts.Fetched++
	fmt.Fprintln(c.console, formatLine('✓', color.FgGreen, file.Path, fmt.Sprintf("%d B", len(file.Content))))
}

func (c *Console) Failed(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts.Failed++
	fmt.Fprintln(c.console, formatLine('✗', color.FgRed, path, "failed"))
}

// Counts returns the tallies so far.
func (c *Console) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}
