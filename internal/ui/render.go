package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/osclean/internal/cleanup"
	"github.com/imamik/osclean/internal/resource"
)

// Banner describes the run mode shown before discovery.
type Banner struct {
	Version string
	DryRun  bool
	Filter  string
	// ListFile is the supplied resource list; empty means discovery by filter.
	ListFile string
	Auth     string
}

// RenderBanner returns the mode header.
func RenderBanner(b Banner) string {
	var sb strings.Builder

	sb.WriteString("\n")
	title := "  osclean"
	if b.Version != "" {
		title += " " + b.Version
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("═", 30)))
	sb.WriteString("\n")

	if b.DryRun {
		sb.WriteString(warningStyle.Render("  !!! DRY RUN - RESOURCES WILL BE CHECKED BUT WILL NOT BE DELETED !!!"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(failedStyle.Render("  LIVE RUN - matching resources will be deleted"))
		sb.WriteString("\n")
	}

	if b.ListFile != "" {
		fmt.Fprintf(&sb, "    Resources: %s\n", b.ListFile)
	} else {
		fmt.Fprintf(&sb, "    Filter:    %s\n", b.Filter)
	}
	if b.Auth != "" {
		fmt.Fprintf(&sb, "    Auth:      %s\n", b.Auth)
	}
	return sb.String()
}

// RenderInventory returns the table of resources selected for deletion.
func RenderInventory(inv resource.Inventory) string {
	rows := make([][]string, 0, inv.Count())
	for _, ref := range inv.Rows() {
		rows = append(rows, []string{ref.Kind.Label(), ref.Name, ref.ID})
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(sectionStyle.Render(fmt.Sprintf("  Resources to delete (%d)", len(rows))))
	sb.WriteString("\n")
	sb.WriteString(newTable("TYPE", "NAME", "ID").Rows(rows...).String())
	sb.WriteString("\n")
	return sb.String()
}

// RenderNoMatches returns the message shown when nothing was selected.
func RenderNoMatches(filter string) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(okStyle.Render("  No resources found matching the specified filter."))
	sb.WriteString("\n")
	if filter != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  Filter used: '%s'", filter)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderSummary returns per-status counts, category durations and the list
// of resources that failed or timed out.
func RenderSummary(s cleanup.Summary) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(sectionStyle.Render("  Summary"))
	sb.WriteString("\n")

	var counts [][]string
	for _, st := range resource.Statuses() {
		if n := s.Count(st); n > 0 {
			counts = append(counts, []string{string(st), fmt.Sprintf("%d", n)})
		}
	}
	if len(counts) > 0 {
		sb.WriteString(newTable("STATUS", "COUNT").Rows(counts...).String())
		sb.WriteString("\n")
	}

	if len(s.Timings) > 0 {
		timings := make([][]string, 0, len(s.Timings))
		for _, t := range s.Timings {
			timings = append(timings, []string{t.Category.String(), t.Duration.Round(time.Millisecond).String()})
		}
		sb.WriteString(newTable("CATEGORY", "DURATION").Rows(timings...).String())
		sb.WriteString("\n")
	}

	if s.Problems() > 0 {
		sb.WriteString(failedStyle.Render(fmt.Sprintf("  %d resources failed or timed out:", s.Problems())))
		sb.WriteString("\n")
		for _, o := range s.Outcomes {
			if o.Status != resource.StatusFailed && o.Status != resource.StatusTimedOut {
				continue
			}
			fmt.Fprintf(&sb, "    %s %s (%s): %s\n", o.Kind.Label(), o.Name, o.ID, o.Reason)
		}
	}
	return sb.String()
}

// RenderClosing returns the final message. selected is the number of
// resources shown in the inventory table.
func RenderClosing(s cleanup.Summary, selected int) string {
	var sb strings.Builder
	sb.WriteString("\n")
	if s.DryRun {
		sb.WriteString(okStyle.Render("  Dry run completed successfully!"))
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "    Found %d resources that would be deleted.\n", selected)
		sb.WriteString(dimStyle.Render("    To actually delete these resources, run the same command without --dryrun"))
		sb.WriteString("\n")
		return sb.String()
	}

	if s.Problems() > 0 {
		sb.WriteString(warningStyle.Render("  Cleanup completed with problems."))
	} else {
		sb.WriteString(okStyle.Render("  Cleanup completed!"))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "    Processed %d resources.\n", s.Processed)
	return sb.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
