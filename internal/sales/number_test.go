package sales_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/sales"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2024, time.January, 31, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		template string
		seq      int64
		want     string
	}{
		{template: sales.DefaultNumberTemplate, seq: 42, want: "INV-20240131-000042"},
		{template: "{YY}{MM}/{SEQ}", seq: 7, want: "2401/7"},
		{template: "S-{SEQ3}", seq: 12345, want: "S-12345"},
		{template: "fixed-{DD}", seq: 1, want: "fixed-31"},
	}
	for _, tt := range tests {
		got, err := sales.FormatInvoiceNumber(tt.template, issued, tt.seq)
		require.NoError(t, err, tt.template)
		require.Equal(t, tt.want, got)
	}
}

func TestFormatInvoiceNumberErrors(t *testing.T) {
	issued := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	_, err := sales.FormatInvoiceNumber("", issued, 1)
	require.Error(t, err)

	_, err = sales.FormatInvoiceNumber(sales.DefaultNumberTemplate, issued, 0)
	require.Error(t, err)

	_, err = sales.FormatInvoiceNumber("INV-{WEEK}", issued, 1)
	require.ErrorContains(t, err, "{WEEK}")

	_, err = sales.FormatInvoiceNumber("INV-{seq}", issued, 1)
	require.Error(t, err)
}
