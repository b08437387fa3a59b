package explain

import (
	"fmt"
	"github.com/olekukonko/tablewriter"
	"io"
)

// Render writes rs as a text table followed by its message.
func Render(w io.Writer, rs *ResultSet) {
	if len(rs.Header) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader(rs.Header)
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		for _, row := range rs.Rows {
			table.Append(row)
		}
		table.Render()
	}
	if rs.Message != "" {
		fmt.Fprintln(w, rs.Message)
	}
}
