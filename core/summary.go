package core

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/Macmod/domaindump/report"
)

// PrintSummary renders the end-of-run table of written reports.
func PrintSummary(stats []report.Stats) {
	writeSummary(os.Stdout, stats)
}

func writeSummary(w io.Writer, stats []report.Stats) {
	table := tablewriter.NewTable(w)
	table.Header("Report", "Entities", "Formats")

	for _, s := range stats {
		table.Append([]string{
			s.Name,
			strconv.Itoa(s.Entities),
			strings.Join(s.Formats, ", "),
		})
	}

	table.Render()
}
