package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/deployer-cli/deployer/pkg/deployer/output"
)

func paginate[T any](items []T, page, pageSize int, all bool) ([]T, string) {
	if all || pageSize <= 0 {
		return items, ""
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, fmt.Sprintf("Showing page %d of %d (%d total items)", page, maxPage(len(items), pageSize), len(items))
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], fmt.Sprintf("Showing page %d of %d (%d total items)", page, maxPage(len(items), pageSize), len(items))
}

func maxPage(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	if pages == 0 {
		return 1
	}
	return pages
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// writeFormatted prints obj as JSON or YAML when asked, otherwise runs table.
func writeFormatted(rt *runtimeState, obj any, table func()) error {
	format, err := output.ParseFormat(rt.OutputFormat())
	if err != nil {
		return err
	}
	if format.IsStructured() {
		return output.WriteObject(rt.Writer(), format, obj)
	}
	table()
	return nil
}
