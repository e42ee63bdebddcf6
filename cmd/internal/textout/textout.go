// Package textout prints tables for the command line tools.
package textout

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angas/fmi-go/convert"
	"github.com/angas/fmi-go/fmi"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Header turns a parameter name like "wind_speed" into "Wind Speed".
func Header(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// Write prints t as aligned columns with times converted by toLocal.
func Write(w io.Writer, t fmi.Table, toLocal func(time.Time) time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	headers := make([]string, 0, len(t.Columns)+1)
	headers = append(headers, "Time")
	for _, c := range t.Columns {
		headers = append(headers, Header(c))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")+"\t"); err != nil {
		return err
	}

	for _, row := range t.Rows {
		cells := make([]string, 0, len(row.Values)+1)
		cells = append(cells, toLocal(row.Time).Format("2006-01-02 15:04"))
		for _, v := range row.Values {
			cells = append(cells, convert.FormatValue(v))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t"); err != nil {
			return err
		}
	}
	return tw.Flush()
}
