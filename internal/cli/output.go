package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// printer writes user-facing messages to the command's streams.
type printer struct {
	out, err io.Writer
	quiet    bool
	color    bool
}

func newPrinter(cmd *cobra.Command, g *Globals) *printer {
	return &printer{
		out:   cmd.OutOrStdout(),
		err:   cmd.ErrOrStderr(),
		quiet: g.Quiet,
		color: !g.NoColor && os.Getenv("NO_COLOR") == "" && isTerminal(cmd.OutOrStdout()),
	}
}

// Check if output is to terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func (p *printer) colorize(color, text string) string {
	if p.color {
		return color + text + colorReset
	}
	return text
}

func (p *printer) errorf(format string, args ...interface{}) {
	fmt.Fprintf(p.err, "%s %s\n", p.colorize(colorRed, "✗"), fmt.Sprintf(format, args...))
}

func (p *printer) successf(format string, args ...interface{}) {
	if !p.quiet {
		fmt.Fprintf(p.out, "%s %s\n", p.colorize(colorGreen, "✓"), fmt.Sprintf(format, args...))
	}
}

func (p *printer) infof(format string, args ...interface{}) {
	if !p.quiet {
		fmt.Fprintln(p.out, p.colorize(colorCyan, fmt.Sprintf(format, args...)))
	}
}

func (p *printer) warnf(format string, args ...interface{}) {
	fmt.Fprintf(p.err, "%s %s\n", p.colorize(colorYellow, "⚠"), fmt.Sprintf(format, args...))
}

// readAccessions reads one accession per line, skipping blanks and # comments
func readAccessions(r io.Reader) ([]string, error) {
	accessions := make([]string, 0)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		accessions = append(accessions, line)
	}
	return accessions, scanner.Err()
}
