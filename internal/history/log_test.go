package history

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"bulk_sender/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(i int) model.HistoryEntry {
	return model.HistoryEntry{
		Timestamp: time.Unix(int64(i), 0),
		Phone:     fmt.Sprintf("555000%04d", i),
		Status:    model.DeliverySuccess,
	}
}

func TestAppendNewestFirstAndCapped(t *testing.T) {
	l := New(0)
	require.Equal(t, DefaultLimit, l.Limit())
	for i := 0; i < 501; i++ {
		l.Append(entry(i))
	}
	got := l.Entries()
	require.Len(t, got, 500)
	assert.Equal(t, entry(500).Phone, got[0].Phone)
	assert.Equal(t, entry(1).Phone, got[499].Phone)
}

func TestEntriesIsACopy(t *testing.T) {
	l := New(10)
	l.Append(entry(1))
	got := l.Entries()
	got[0].Phone = "changed"
	assert.Equal(t, entry(1).Phone, l.Entries()[0].Phone)
}

func TestSetLimitTrims(t *testing.T) {
	l := New(10)
	for i := 0; i < 10; i++ {
		l.Append(entry(i))
	}
	assert.Equal(t, 7, l.SetLimit(3))
	got := l.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, entry(9).Phone, got[0].Phone)
	assert.Equal(t, 0, l.SetLimit(20))
}

func TestLoadAndClear(t *testing.T) {
	l := New(2)
	l.Load([]model.HistoryEntry{entry(3), entry(2), entry(1)})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, entry(3).Phone, l.Entries()[0].Phone)
	l.Clear()
	assert.Empty(t, l.Entries())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	exact := strings.Repeat("a", 100)
	assert.Equal(t, exact, Preview(exact))
	long := strings.Repeat("é", 150)
	assert.Equal(t, strings.Repeat("é", 100)+"...", Preview(long))
}

func TestLimitNeverExceedsDefault(t *testing.T) {
	l := New(1000)
	assert.Equal(t, DefaultLimit, l.Limit())
	l.SetLimit(10)
	l.SetLimit(DefaultLimit + 1)
	assert.Equal(t, DefaultLimit, l.Limit())
	for i := 0; i < DefaultLimit+1; i++ {
		l.Append(entry(i))
	}
	assert.Equal(t, DefaultLimit, l.Len())
}
