package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/gridroute/pkg/result"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleFailed   = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printer writes styled status lines. Commands print to cmd.OutOrStdout()
// so tests can capture the output.
type printer struct {
	w io.Writer
}

func (p printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	fmt.Fprintln(p.w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...any) {
	fmt.Fprintln(p.w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

func (p printer) detail(format string, args ...any) {
	fmt.Fprintln(p.w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func (p printer) file(path string) {
	fmt.Fprintln(p.w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func (p printer) keyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(p.w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Result Display
// =============================================================================

// stats prints the headline numbers of a result on a single line.
func (p printer) stats(res *result.Result, cached bool) {
	parts := []string{
		fmt.Sprintf("%d nets", len(res.Nets)),
		fmt.Sprintf("wirelength %d", res.Wirelength()),
		fmt.Sprintf("%d vias", res.Vias()),
		fmt.Sprintf("overflow %d", res.Utilization.TotalOverflow),
	}

	status := styleComputed.Render(iconFresh)
	if cached {
		status = styleCached.Render(iconCached)
	}

	styled := make([]string, len(parts))
	for i, part := range parts {
		styled[i] = StyleDim.Render(part)
	}
	fmt.Fprintln(p.w, "  "+strings.Join(append(styled, status), StyleDim.Render(" · ")))
}

// summary prints the run-level fields of a result.
func (p printer) summary(res *result.Result) {
	fmt.Fprintln(p.w, StyleTitle.Render(res.Design))
	p.keyValue("id", res.ID)
	p.keyValue("mode", string(res.Mode))
	p.keyValue("created", res.CreatedAt.Format("2006-01-02 15:04:05"))
	p.keyValue("partitions", strconv.Itoa(res.Partitions))
	p.keyValue("iterations", strconv.Itoa(len(res.Iterations())))
	p.keyValue("utilization", fmt.Sprintf("mean %.2f  max %.2f  σ %.2f",
		res.Utilization.Mean, res.Utilization.Max, res.Utilization.StdDev))
	p.keyValue("overflow", fmt.Sprintf("%d on %d edges", res.Utilization.TotalOverflow, res.Utilization.OverflowEdges))
}

// netTable renders one row per net.
func netTable(res *result.Result) string {
	rows := make([][]string, 0, len(res.Nets))
	for _, n := range res.Nets {
		status := iconSuccess
		if !n.Complete {
			status = "incomplete"
		}
		rows = append(rows, []string{
			n.Name,
			strconv.Itoa(countPins(n)),
			strconv.Itoa(n.Wirelength),
			strconv.Itoa(n.Vias),
			status,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Net", "Pins", "Wirelength", "Vias", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col > 0 && col < 4 {
				base = base.Align(lipgloss.Right)
			}
			if row < len(res.Nets) && !res.Nets[row].Complete {
				return base.Inherit(styleFailed)
			}
			return base
		})
	return t.Render()
}

func countPins(n result.NetRoute) int {
	pins := 0
	for _, node := range n.Nodes {
		if node.Kind != "steiner" {
			pins++
		}
	}
	return pins
}
