package history

import (
	"bytes"
	"testing"
	"time"

	"bulk_sender/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 20, 30, 123e6, time.UTC)
	entries := []model.HistoryEntry{
		{Timestamp: ts, Name: `Ann "A"`, Phone: "5551234567", Message: "Hi...", FullMessage: "Hi, Ann", Status: model.DeliverySuccess},
		{Timestamp: ts, Name: "", Phone: "5559876543", Message: "Yo", Status: model.DeliveryFailed, Error: "could not find send button"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	want := `"Timestamp","Name","Phone","Message","Status","Error"` + "\n" +
		`"2024-03-05T10:20:30.123Z","Ann ""A""","5551234567","Hi, Ann","success",""` + "\n" +
		`"2024-03-05T10:20:30.123Z","","5559876543","Yo","failed","could not find send button"`
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, `"Timestamp","Name","Phone","Message","Status","Error"`, buf.String())
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "history_2024-03-05.csv", ExportFilename(time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)))
}
