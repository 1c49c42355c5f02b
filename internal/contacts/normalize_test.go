package contacts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"bulk_sender/internal/model"
)

func TestNormalize_DropsRowsMissingRequiredFields(t *testing.T) {
	got := Normalize([]Row{{"phone": "1234567890", "name": "A"}})
	assert.Empty(t, got)

	got = Normalize([]Row{
		{"phone": "", "name": "A", "message": "hi"},
		{"phone": "12345", "name": "A", "message": "hi"},
		{"phone": "1234567890", "name": "  ", "message": "hi"},
		{"phone": "1234567890", "name": "A", "message": ""},
	})
	assert.Empty(t, got)
}

func TestNormalize_AliasesAndOrder(t *testing.T) {
	rows := []Row{
		{"Mobile": "+1 (555) 010-2030", "FullName": " Ann ", "TEXT": " Hello {{city}} ", "City": "Oslo"},
		{"whatsapp": "555-010-2031", "contact": "Bob", "msg": "Hey"},
		{"Number": float64(5550102032), "firstname": "Cy", "content": "Yo"},
		{"phone": "5550102031", "name": "Bob again", "message": "dup phone stays"},
	}
	got := Normalize(rows)

	want := []model.Contact{
		{Phone: "15550102030", Name: "Ann", Message: "Hello {{city}}", Fields: map[string]string{
			"mobile": "+1 (555) 010-2030", "fullname": " Ann ", "text": " Hello {{city}} ", "city": "Oslo",
		}},
		{Phone: "5550102031", Name: "Bob", Message: "Hey", Fields: map[string]string{
			"whatsapp": "555-010-2031", "contact": "Bob", "msg": "Hey",
		}},
		{Phone: "5550102032", Name: "Cy", Message: "Yo", Fields: map[string]string{
			"number": "5550102032", "firstname": "Cy", "content": "Yo",
		}},
		{Phone: "5550102031", Name: "Bob again", Message: "dup phone stays", Fields: map[string]string{
			"phone": "5550102031", "name": "Bob again", "message": "dup phone stays",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_AliasPriority(t *testing.T) {
	got := Normalize([]Row{{"number": "2222222222", "phone": "1111111111", "name": "A", "msg": "m2", "message": "m1"}})
	if assert.Len(t, got, 1) {
		assert.Equal(t, "1111111111", got[0].Phone)
		assert.Equal(t, "m1", got[0].Message)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "", NormalizePhone("123-456-789"))
	assert.Equal(t, "1234567890", NormalizePhone("(123) 456-7890"))

	for _, in := range []string{"+44 20 7946 0958", "0020-1234-5678", "abc", "12345678901234"} {
		once := NormalizePhone(in)
		assert.Equal(t, once, NormalizePhone(once), "NormalizePhone must be idempotent for %q", in)
	}
}

func TestNormalize_CaseDuplicateHeadersAreDeterministic(t *testing.T) {
	row := Row{"Phone": "1111111111", "phone": "2222222222", "PHONE": "3333333333", "name": "A", "message": "hi"}
	for i := 0; i < 100; i++ {
		got := Normalize([]Row{row})
		if assert.Len(t, got, 1) {
			assert.Equal(t, "2222222222", got[0].Phone, "the lower-case header wins")
		}
	}

	row = Row{"Phone": "1111111111", "PHONE": "3333333333", "phone": "", "name": "A", "message": "hi"}
	for i := 0; i < 100; i++ {
		got := Normalize([]Row{row})
		if assert.Len(t, got, 1) {
			assert.Equal(t, "3333333333", got[0].Phone, "empty values never win; then sorted order")
		}
	}
}
