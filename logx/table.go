package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// NewTableWriter creates a tabwriter for custom output
func NewTableWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// PrintTable writes header and rows as aligned columns to stdout.
func PrintTable(header []string, rows [][]string) {
	FprintTable(os.Stdout, header, rows)
}

func FprintTable(out io.Writer, header []string, rows [][]string) {
	w := NewTableWriter(out)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	sep := make([]string, len(header))
	for i, h := range header {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()
}

// PrintKV prints aligned key/value pairs, in order.
func PrintKV(prefix string, kv ...string) {
	w := NewTableWriter(os.Stdout)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(w, "%s%s:\t%s\n", prefix, kv[i], kv[i+1])
	}
	w.Flush()
}
