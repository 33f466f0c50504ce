// Package report renders audit progress to the console and the final
// markdown report.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"massaudit/internal/types"
)

// Reporter writes colored status lines and the end-of-run markdown report.
type Reporter struct {
	out  io.Writer
	info *color.Color
	warn *color.Color
	fail *color.Color
}

// New returns a reporter writing to stdout.
func New() *Reporter {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter returns a reporter writing to w (used by tests).
func NewWithWriter(w io.Writer) *Reporter {
	return &Reporter{
		out:  w,
		info: color.New(color.FgGreen, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
	}
}

func (r *Reporter) Infof(format string, args ...any) {
	r.info.Fprintf(r.out, format+"\n", args...)
}

func (r *Reporter) Warnf(format string, args ...any) {
	r.warn.Fprintf(r.out, format+"\n", args...)
}

func (r *Reporter) Errorf(format string, args ...any) {
	r.fail.Fprintf(r.out, format+"\n", args...)
}

// WriteMarkdown renders the full audit report to path.
func (r *Reporter) WriteMarkdown(path string, outcomes []*types.Outcome) error {
	var b strings.Builder

	b.WriteString("# MassAudit Report\n\n")
	fmt.Fprintf(&b, "**Generated**: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Findings processed**: %d\n\n", len(outcomes))

	for i, o := range outcomes {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, o.Finding.RuleID)
		fmt.Fprintf(&b, "- **Project**: `%s`\n", o.Project)
		fmt.Fprintf(&b, "- **Location**: `%s:%d`\n", o.Finding.FilePath, o.Finding.Line)
		fmt.Fprintf(&b, "- **Status**: %s\n", o.Status)

		if o.SkipReason != "" {
			fmt.Fprintf(&b, "- **Skip reason**: %s\n", o.SkipReason)
		}
		if o.Verdict != nil {
			fmt.Fprintf(&b, "- **Verdict**: **%s**\n", strings.ToUpper(string(o.Verdict.Severity)))
			fmt.Fprintf(&b, "- **Reason**: %s\n", o.Verdict.Reason)
		}
		if v := o.Verification; v != nil {
			fmt.Fprintf(&b, "- **Verification**: %s", v.State)
			if v.Classification != "" {
				fmt.Fprintf(&b, " / **%s**", v.Classification)
			}
			b.WriteString("\n")
			if v.Reason != "" {
				fmt.Fprintf(&b, "- **Judgment**: %s\n", v.Reason)
			}
			fmt.Fprintf(&b, "- **Repair attempts**: %d\n", v.FixAttempts)
			if v.ArtifactPath != "" {
				fmt.Fprintf(&b, "- **PoC artifact**: `%s`\n", v.ArtifactPath)
			}
		}
		b.WriteString("\n")

		if o.Verdict != nil && len(o.Verdict.Rounds) > 0 {
			b.WriteString("### Context negotiation\n\n")
			for _, round := range o.Verdict.Rounds {
				fmt.Fprintf(&b, "#### Round %d\n\n", round.Round+1)
				fmt.Fprintf(&b, "- **Requested**: `%s`\n", round.Requested)
				if round.Found {
					fmt.Fprintf(&b, "- **Found in**: `%s` (%s)\n\n", round.FilePath, round.Language)
					fmt.Fprintf(&b, "```\n%s\n```\n\n", round.Code)
				} else {
					b.WriteString("- **Found**: no\n\n")
				}
			}
		}

		b.WriteString("---\n\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	r.Infof("markdown report saved to %s", path)
	return nil
}
