package contacts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParse_CSV(t *testing.T) {
	in := "\xef\xbb\xbf\"Phone\",Name,Message,City\n" +
		"+1 555 010 2030,Ann,\"Hi {{name}}, from {{city}}\",Oslo\n" +
		"\n" +
		"123,Short,too short,Rome\n" +
		"5550102031,Bob,Hey\n"

	got, err := Parse("contacts.CSV", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "15550102030", got[0].Phone)
	assert.Equal(t, "Hi {{name}}, from {{city}}", got[0].Message)
	assert.Equal(t, "Oslo", got[0].Fields["city"])
	assert.Equal(t, "Bob", got[1].Name)
	assert.Equal(t, "", got[1].Fields["city"], "missing trailing columns become empty")
}

func TestParse_CSVTooShort(t *testing.T) {
	_, err := Parse("a.csv", strings.NewReader("phone,name,message\n\n"))
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestParse_NoValidContacts(t *testing.T) {
	_, err := Parse("a.csv", strings.NewReader("foo,bar\n1,2\n"))
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Contains(t, err.Error(), "no valid contacts")
}

func TestParse_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Mobile", "Full Name", "FullName", "Msg"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"5550102030", "", "Ann", "Hello"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"", "", "", ""}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"5550102031", "", "Bob", "Hey {{fullname}}"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := Parse("book.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ann", got[0].Name)
	assert.Equal(t, "5550102031", got[1].Phone)
}

func TestParse_BadSpreadsheet(t *testing.T) {
	_, err := Parse("book.xlsx", strings.NewReader("not a zip"))
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}
