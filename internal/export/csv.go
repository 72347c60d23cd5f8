// Package export serializes dashboard records to BOM-prefixed CSV and
// aggregates scenario statistics.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const bom = "\uFEFF"

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// WriteTo writes the table as CSV: a byte-order mark, then every row
// terminated by "\n". Only cells containing a comma, a double quote or a
// newline are quoted.
func (t Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	if _, err := io.WriteString(cw, bom); err != nil {
		return cw.n, fmt.Errorf("writing bom: %w", err)
	}
	if err := writeRow(cw, t.Header); err != nil {
		return cw.n, fmt.Errorf("writing header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writeRow(cw, row); err != nil {
			return cw.n, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("flushing csv: %w", err)
	}
	return cw.n, nil
}

// String renders the table; it cannot fail.
func (t Table) String() string {
	var sb strings.Builder
	_, _ = t.WriteTo(&sb)
	return sb.String()
}

func writeRow(w io.Writer, cells []string) error {
	var sb strings.Builder
	for i, cell := range cells {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quote(cell))
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

func quote(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
