package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dompet/internal/core"
)

func TestWrite(t *testing.T) {
	date := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)
	txs := []core.Transaction{
		{Date: date, Category: core.Living, Description: `Rice "premium", 5kg`, Amount: 120000},
		{Date: date, Category: core.Saving, Description: "Emergency fund", Amount: 500000},
		{Date: date, Category: core.Saving, Description: "Cover for: Trip", Amount: -50000},
		{Date: date, Category: core.Income, Description: "Salary", Amount: 9000000},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, txs))

	want := strings.Join([]string{
		"Date,Category,Description,Amount,Type",
		`2024-01-05T10:30:00Z,Living,"Rice ""premium"", 5kg",120000,Expense`,
		`2024-01-05T10:30:00Z,Saving,"Emergency fund",500000,Income`,
		`2024-01-05T10:30:00Z,Saving,"Cover for: Trip",-50000,Income`,
		`2024-01-05T10:30:00Z,Income,"Salary",9000000,Income`,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestRoundTrip(t *testing.T) {
	in := []core.Transaction{
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Category: core.Playing, Description: `Concert "live"`, Amount: 350000},
		{Date: time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC), Category: core.Living, Description: "Line\nbreak, comma", Amount: 1},
		{Date: time.Date(2024, 2, 9, 23, 59, 59, 0, time.UTC), Category: core.Saving, Description: "Cover for: x", Amount: -42},
		{Date: time.Date(2024, 2, 10, 9, 0, 0, 123456789, time.UTC), Category: core.Income, Description: "Bonus", Amount: 7},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	out, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, in[i].Date.Equal(out[i].Date), "date %s came back as %s", in[i].Date, out[i].Date)
		assert.Equal(t, in[i].Category, out[i].Category)
		assert.Equal(t, in[i].Description, out[i].Description)
		assert.Equal(t, in[i].Amount, out[i].Amount)
	}
}

func TestWriteKeepsSubsecondDates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []core.Transaction{
		{Date: time.Date(2024, 4, 1, 9, 0, 0, 500000000, time.UTC), Category: core.Living, Description: "x", Amount: 1},
	}))
	assert.Contains(t, buf.String(), "2024-04-01T09:00:00.5Z,Living")
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong header", "a,b,c,d,e\n"},
		{"bad category", "Date,Category,Description,Amount,Type\n2024-01-01T00:00:00Z,Food,\"x\",1,Expense\n"},
		{"bad amount", "Date,Category,Description,Amount,Type\n2024-01-01T00:00:00Z,Living,\"x\",1.5,Expense\n"},
		{"bad date", "Date,Category,Description,Amount,Type\n01/01/2024,Living,\"x\",1,Expense\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "expenses-2024-03.csv", Filename(core.Selector("2024-03")))
	assert.Equal(t, "expenses-all.csv", Filename(core.AllTime))
}
