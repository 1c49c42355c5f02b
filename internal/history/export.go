package history

import (
	"io"
	"strings"
	"time"

	"bulk_sender/internal/model"
)

// TimestampLayout is used for the exported Timestamp column.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var exportHeader = []string{"Timestamp", "Name", "Phone", "Message", "Status", "Error"}

// ExportFilename names the download for day t.
func ExportFilename(t time.Time) string {
	return "history_" + t.Format("2006-01-02") + ".csv"
}

// WriteCSV writes entries as CSV with every field quoted and rows separated by "\n". The full
// message text is exported when it was recorded.
func WriteCSV(w io.Writer, entries []model.HistoryEntry) error {
	var b strings.Builder
	writeRow(&b, exportHeader)
	for _, e := range entries {
		msg := e.FullMessage
		if msg == "" {
			msg = e.Message
		}
		b.WriteByte('\n')
		writeRow(&b, []string{
			e.Timestamp.UTC().Format(TimestampLayout),
			e.Name,
			e.Phone,
			msg,
			string(e.Status),
			e.Error,
		})
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// encoding/csv only quotes fields that need it; the export quotes all of them.
func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}
