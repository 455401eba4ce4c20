package download

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// unknownPercent is returned by Percent when the total size is unknown.
const unknownPercent = -1

// Percent returns floor(done*100/total) clamped to [0, 100],
// or -1 when total is not positive.
func Percent(done, total int64) int {
	if total <= 0 {
		return unknownPercent
	}

	if done <= 0 {
		return 0
	}

	if done >= total {
		return 100
	}

	return int(done * 100 / total)
}

// Progress counts written bytes and reports the percentage whenever it grows.
// Reported values never decrease and never exceed 100.
type Progress struct {
	// Total is the expected size; non-positive disables reporting.
	Total int64
	// Report receives each new percentage.
	Report func(percent int)

	done int64
	last int
}

// NewProgress returns a Progress for total bytes.
func NewProgress(total int64, report func(percent int)) *Progress {
	return &Progress{Total: total, Report: report, last: unknownPercent}
}

// Write implements io.Writer; it never fails.
func (p *Progress) Write(b []byte) (int, error) {
	p.done += int64(len(b))

	percent := Percent(p.done, p.Total)
	if percent > p.last {
		p.last = percent

		if p.Report != nil {
			p.Report(percent)
		}
	}

	return len(b), nil
}

// Written returns the number of bytes counted so far.
func (p *Progress) Written() int64 {
	return p.done
}

// ConsolePrinter renders percentages as "\rDownloading <label>... N%",
// ending the line at 100.
type ConsolePrinter struct {
	out   io.Writer
	label string
	color *color.Color
}

// NewConsolePrinter returns a printer writing to out.
func NewConsolePrinter(out io.Writer, label string) *ConsolePrinter {
	return &ConsolePrinter{
		out:   out,
		label: label,
		color: color.New(color.FgCyan),
	}
}

// Print writes one progress update.
func (c *ConsolePrinter) Print(percent int) {
	_, _ = c.color.Fprintf(c.out, "\rDownloading %s... %d%%", c.label, percent)

	if percent == 100 {
		_, _ = fmt.Fprintln(c.out)
	}
}
