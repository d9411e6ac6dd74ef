package writer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"oiflow/models"
)

// RenderTopMovers prints the top n results as a console table, ordered as the
// table already is. The caller ranks before rendering.
func RenderTopMovers(out io.Writer, table models.ResultTable, n int) {
	top := table.TopN(n)
	if len(top) == 0 {
		fmt.Fprintln(out, "no results to display")
		return
	}

	t := tablewriter.NewWriter(out)
	t.SetHeader([]string{"#", "Symbol", "Spot", "ATM", "Expiry", "Put OI", "Call OI", "OI Ratio", "Chg Ratio"})
	t.SetBorder(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	t.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for i, r := range top {
		t.Append([]string{
			strconv.Itoa(i + 1),
			r.Symbol,
			strconv.FormatFloat(r.UnderlyingValue, 'f', 2, 64),
			strconv.FormatFloat(r.ATMStrike, 'f', 2, 64),
			r.Expiry,
			strconv.FormatInt(r.SumPutOI, 10),
			strconv.FormatInt(r.SumCallOI, 10),
			tableRatio(r.CombinedOIRatio),
			tableRatio(r.CombinedChangeRatio),
		})
	}
	t.Render()
}

func tableRatio(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
