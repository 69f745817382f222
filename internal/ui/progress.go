package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"apexci/internal/domain"
)

// PollProgress shows deploy polling as a progress bar over the poll budget.
type PollProgress struct {
	bar *progressbar.ProgressBar
}

// NewPollProgress creates a progress bar writing to stderr
func NewPollProgress(maxPolls int) *PollProgress {
	return NewPollProgressTo(os.Stderr, maxPolls)
}

// NewPollProgressTo creates a progress bar writing to w
func NewPollProgressTo(w io.Writer, maxPolls int) *PollProgress {
	bar := progressbar.NewOptions(maxPolls,
		progressbar.OptionSetDescription(describe(nil)),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &PollProgress{bar: bar}
}

// Update moves the bar to poll and shows the component and test counts of result
func (p *PollProgress) Update(poll int, result *domain.DeployResult) {
	_ = p.bar.Set(poll)
	p.bar.Describe(describe(result))
}

// Finish completes the progress bar
func (p *PollProgress) Finish() {
	_ = p.bar.Finish()
}

func describe(result *domain.DeployResult) string {
	status := "Queued"
	var r domain.DeployResult
	if result != nil {
		r = *result
		if r.Status != "" {
			status = r.Status
		}
	}

	return color.CyanString("Deploying (%s): ", status) +
		color.GreenString("[components: %d/%d", r.NumberComponentsDeployed, r.NumberComponentsTotal) +
		" | " +
		color.GreenString("tests: %d/%d", r.NumberTestsCompleted, r.NumberTestsTotal) +
		" | " +
		color.RedString("errors: %d]", r.NumberComponentErrors+r.NumberTestErrors)
}
