package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"apexci/internal/config"
	"apexci/internal/domain"
	"apexci/internal/storage"
)

const maxStackLines = 10

// FailureViewer displays failed tests, component errors and coverage warnings in an interactive TUI
type FailureViewer struct {
	config *config.Config
}

// NewFailureViewer creates a new FailureViewer
func NewFailureViewer(cfg *config.Config) *FailureViewer {
	return &FailureViewer{config: cfg}
}

// failureItem is one row of the viewer.
type failureItem struct {
	kind    string
	title   string
	details string
}

// items lists component errors first, then test failures, then coverage warnings.
func (fv *FailureViewer) items(result *domain.DeployResult) []failureItem {
	var items []failureItem

	for _, cf := range result.Details.ComponentFailures {
		items = append(items, failureItem{
			kind:    "component",
			title:   cf.ComponentType + " " + cf.FullName,
			details: fv.formatComponentFailure(cf),
		})
	}

	if t := result.Details.RunTestResult; t != nil {
		for _, f := range t.Failures {
			items = append(items, failureItem{
				kind:    "test",
				title:   f.QualifiedName() + "." + f.MethodName,
				details: fv.formatFailureDetails(f),
			})
		}
		for _, w := range t.CodeCoverageWarnings {
			title := w.QualifiedName()
			if title == "" {
				title = "Coverage"
			}
			items = append(items, failureItem{
				kind:    "coverage",
				title:   title,
				details: fmt.Sprintf("[yellow]Coverage warning:[white]\n%s\n", tview.Escape(w.Message)),
			})
		}
	}

	return items
}

// View displays the failures of record in an interactive TUI
func (fv *FailureViewer) View(record *storage.Record) error {
	items := fv.items(record.Result)
	if len(items) == 0 {
		color.Green("✓ No failures found!")
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	for i, item := range items {
		list.AddItem(fmt.Sprintf("[yellow]%d.[white] %s", i+1, tview.Escape(item.title)), "", 0, nil)
	}
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText(fmt.Sprintf(" Deploy %s on %s (%d items) | Use ↑↓ to navigate, → to view details, ← to go back, Ctrl+C to exit ",
			tview.Escape(record.Result.Status), tview.Escape(fv.config.Endpoint()), len(items)))

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(items) {
			statsView.SetText(fv.formatStats(items[index], index+1))
			detailsView.SetText(items[index].details).ScrollToBeginning()
		}
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

// formatFailureDetails formats a test failure for display using tview color tags ([red], [cyan], etc.)
func (fv *FailureViewer) formatFailureDetails(failure domain.Failure) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "[red]✗ Test: %s.%s[white]\n\n", tview.Escape(failure.QualifiedName()), tview.Escape(failure.MethodName))
	fmt.Fprintf(w, "[cyan]Time:\t%.0f ms[white]\n", failure.Time)
	if failure.Type != "" {
		fmt.Fprintf(w, "[cyan]Type:\t%s[white]\n", tview.Escape(failure.Type))
	}
	fmt.Fprintf(w, "\n")

	if failure.Message != "" {
		fmt.Fprintf(w, "[yellow]Message:[white]\n%s\n\n", tview.Escape(failure.Message))
	}

	if failure.StackTrace != "" {
		lines := strings.Split(strings.TrimSpace(failure.StackTrace), "\n")
		fmt.Fprintf(w, "[yellow]Stack Trace:[white]\n")
		for i, line := range lines {
			if i < maxStackLines {
				fmt.Fprintf(w, "  %s\n", tview.Escape(line))
			}
		}
		if len(lines) > maxStackLines {
			fmt.Fprintf(w, "  [gray]... and %d more lines[white]\n", len(lines)-maxStackLines)
		}
	}

	w.Flush()
	return builder.String()
}

func (fv *FailureViewer) formatComponentFailure(cf domain.ComponentFailure) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "[red]✗ %s %s[white]\n\n", tview.Escape(cf.ComponentType), tview.Escape(cf.FullName))
	if cf.FileName != "" {
		location := cf.FileName
		if cf.LineNumber > 0 {
			location = fmt.Sprintf("%s:%d:%d", cf.FileName, cf.LineNumber, cf.ColumnNumber)
		}
		fmt.Fprintf(&builder, "[yellow]Location: %s[white]\n\n", tview.Escape(location))
	}
	fmt.Fprintf(&builder, "[yellow]%s:[white]\n%s\n", tview.Escape(cf.ProblemType), tview.Escape(cf.Problem))

	return builder.String()
}

// formatStats formats the stats header for an item
func (fv *FailureViewer) formatStats(item failureItem, number int) string {
	return fmt.Sprintf("[cyan]%s #%d:[white] [yellow]%s[white]\n", item.kind, number, tview.Escape(item.title))
}
