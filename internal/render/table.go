// Package render prints server listings as terminal tables.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"rsm/internal/service"
)

const (
	// NotAvailable fills a cell whose field the record does not carry.
	NotAvailable = "N/A"

	// NoDue fills the due cell of a task that has no due date.
	NoDue = "None"

	// EmptyMessage replaces the table when there are no records.
	EmptyMessage = "no data to display"

	// wrapWidth is the widest a data cell may grow before wrapping.
	wrapWidth = 110
)

// Options controls terminal styling.
type Options struct {
	// Color enables bold and coloured cells.
	Color bool

	// Location is the zone timestamps are shown in. Nil means local time.
	Location *time.Location
}

// DefaultOptions returns options suited to w: colour only on a terminal
// and only when NO_COLOR is unset.
func DefaultOptions(w io.Writer) Options {
	return Options{Color: isTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

// column is one column of a schema.
type column struct {
	header string
	cell   func(service.Task, Options) string
}

// Schema is the column layout chosen for a whole task listing.
type Schema struct {
	HasDue   bool
	HasGroup bool
}

// SelectSchema picks the columns for tasks. A column is present when at
// least one task carries the field.
func SelectSchema(tasks []service.Task) Schema {
	var s Schema
	for _, task := range tasks {
		s.HasDue = s.HasDue || task.Due != nil
		s.HasGroup = s.HasGroup || task.Group != nil
	}
	return s
}

// Headers returns the column headers of s in display order.
func (s Schema) Headers() []string {
	cols := s.columns()
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.header
	}
	return headers
}

func (s Schema) columns() []column {
	cols := []column{
		{header: "id", cell: idCell},
		{header: "description", cell: descriptionCell},
	}
	if s.HasDue {
		cols = append(cols, column{header: "due", cell: dueCell})
	}
	if s.HasGroup {
		cols = append(cols, column{header: "group", cell: groupCell})
	}
	return cols
}

// Tasks writes tasks as a table whose columns are chosen by SelectSchema.
func Tasks(w io.Writer, tasks []service.Task, opts Options) error {
	if len(tasks) == 0 {
		return writeEmpty(w)
	}

	cols := SelectSchema(tasks).columns()
	tw := newWriter(opts)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c.header
	}
	tw.AppendHeader(header)

	for _, task := range tasks {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = c.cell(task, opts)
		}
		tw.AppendRow(row)
	}
	return writeTable(w, tw)
}

// TableSpecs writes table definitions with Yes/No support columns.
func TableSpecs(w io.Writer, specs []service.TableSpec, opts Options) error {
	if len(specs) == 0 {
		return writeEmpty(w)
	}

	tw := newWriter(opts)
	tw.AppendHeader(table.Row{"name", "group support", "due support"})
	for _, spec := range specs {
		tw.AppendRow(table.Row{orNA(spec.Name), yesNo(spec.HasGroup), yesNo(spec.HasDue)})
	}
	return writeTable(w, tw)
}

func newWriter(opts Options) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatUpper

	first := table.ColumnConfig{
		Number:           1,
		Align:            text.AlignRight,
		WidthMax:         wrapWidth,
		WidthMaxEnforcer: text.WrapSoft,
	}
	if opts.Color {
		tw.Style().Color.Header = text.Colors{text.Bold, text.FgGreen}
		first.Colors = text.Colors{text.Bold}
		first.ColorsHeader = text.Colors{text.Bold, text.FgGreen}
	}

	configs := []table.ColumnConfig{first}
	for n := 2; n <= 4; n++ {
		configs = append(configs, table.ColumnConfig{
			Number:           n,
			WidthMax:         wrapWidth,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

func writeTable(w io.Writer, tw table.Writer) error {
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

func writeEmpty(w io.Writer) error {
	_, err := fmt.Fprintln(w, EmptyMessage)
	return err
}

func idCell(task service.Task, _ Options) string {
	if task.ID == nil {
		return NotAvailable
	}
	return strconv.FormatInt(*task.ID, 10)
}

func descriptionCell(task service.Task, _ Options) string {
	return orNA(task.Description)
}

func dueCell(task service.Task, opts Options) string {
	if task.Due == nil {
		return NoDue
	}
	return FormatTime(task.Due.Time, opts.Location)
}

func groupCell(task service.Task, _ Options) string {
	if task.Group == nil {
		return NotAvailable
	}
	return orNA(*task.Group)
}

// FormatTime renders t as "YYYY-MM-DD HH:MM", adding ":SS" when the seconds
// are not zero.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	if t.Second() != 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04")
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
