package batch

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// RenderSummary writes the batch summary to w. Terminals get a table,
// everything else gets plain lines so piped output stays greppable.
func RenderSummary(w io.Writer, summary *Summary) {
	if isTerminal(w) {
		fmt.Fprintln(w, renderSummaryTable(summary))
	} else {
		renderSummaryPlain(w, summary)
	}

	fmt.Fprintf(w, "processed %d file(s): %d successful, %d failed, %d skipped\n",
		len(summary.Results), summary.Successful(), summary.Failed(), summary.Skipped())
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderSummaryTable(summary *Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"File", "Status", "Language", "Speakers", "Segments", "Detail"})

	for _, result := range summary.Results {
		tw.AppendRow(table.Row{
			result.Path,
			string(result.Status),
			result.Language,
			formatCount(result, result.Speakers),
			formatCount(result, result.Segments),
			resultDetail(result),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	return tw.Render()
}

func renderSummaryPlain(w io.Writer, summary *Summary) {
	for _, result := range summary.Results {
		line := fmt.Sprintf("%s\t%s", result.Path, result.Status)
		if result.Status == FileSuccess {
			line += fmt.Sprintf("\tlanguage=%s speakers=%d segments=%d",
				result.Language, result.Speakers, result.Segments)
		}
		if detail := resultDetail(result); detail != "" {
			line += "\t" + detail
		}
		fmt.Fprintln(w, line)
	}
}

func formatCount(result FileResult, n int) string {
	if result.Status != FileSuccess {
		return ""
	}
	return strconv.Itoa(n)
}

func resultDetail(result FileResult) string {
	switch {
	case result.Error != "":
		return result.Error
	case result.Degraded > 0:
		return fmt.Sprintf("%d stage(s) degraded", result.Degraded)
	default:
		return ""
	}
}
