package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
)

const tableInvoice = `E.S.E. HOSPITAL LOCAL DE MALAMBO
NIT: 802001234-1
Factura Electronica de Venta No. FERO306500
Fecha de Expedicion: 15/03/2024
Cliente
NUEVA EPS S.A.
NIT: 900156264-2
No Codigo Nombre Unidad Bodega Cantidad Valor Unitario Valor Total
1 993520 VACUNACION CONTRA INFLUENZA UND PRINCIPAL 1 59.000,00 59.000,00
2 993510 VACUNACION CONTRA NEUMOCOCO UND PRINCIPAL 1 67.500,00 67.500,00
SUBTOTAL $ 126.500,00
Total $ 126.500,00`

const freeTextInvoice = `IPS SALUD TOTAL
NIT: 802009999-3
Factura No: FE1234
Fecha: 02/05/2024
Cliente
COOSALUD EPS
993520 - VACUNACION CONTRA INFLUENZA
993510 - VACUNACION CONTRA NEUMOCOCO`

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$ 1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"COP 85000", "85000"},
		{"59.000,00", "59000"},
		{"", "0"},
		{"$$", "0"},
		{"12", "0.12"}, // digit-only salvage, implied decimals
		{"8500000", "8500000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, want.Equal(ParseAmount(tt.in)), "got %s", ParseAmount(tt.in))
		})
	}
}

func TestParseTableInvoice(t *testing.T) {
	p := NewParser(nil, nil)
	info, err := p.Parse(tableInvoice)
	require.NoError(t, err)

	assert.Equal(t, "FERO306500", info.InvoiceID)
	require.NotNil(t, info.IssueDate)
	assert.Equal(t, "2024-03-15", info.IssueDate.Format("2006-01-02"))
	assert.Equal(t, "E.S.E. HOSPITAL LOCAL DE MALAMBO", info.SupplierName)
	assert.Equal(t, "802001234-1", info.SupplierNIT)
	assert.Equal(t, "NUEVA EPS S.A.", info.CustomerName)
	assert.Equal(t, "900156264-2", info.CustomerNIT)

	require.Len(t, info.Lines, 2)
	assert.Equal(t, "993520", info.Lines[0].Code)
	assert.Equal(t, "VACUNACION CONTRA INFLUENZA UND PRINCIPAL", info.Lines[0].Description)
	assert.True(t, decimal.NewFromInt(59000).Equal(info.Lines[0].Total))
	assert.Equal(t, "993510", info.Lines[1].Code)

	// printed total matches the line sum
	assert.False(t, info.TotalFromLines)
	assert.True(t, decimal.NewFromInt(126500).Equal(info.Total))
	assert.True(t, info.Total.Equal(info.LinesTotal()))
}

func TestParseFreeTextInvoice(t *testing.T) {
	p := NewParser(nil, nil)
	info, err := p.Parse(freeTextInvoice)
	require.NoError(t, err)

	assert.Equal(t, "FE1234", info.InvoiceID)
	require.Len(t, info.Lines, 2)
	assert.Equal(t, "993520", info.Lines[0].Code)
	assert.True(t, decimal.NewFromInt(1).Equal(info.Lines[0].Quantity))
	assert.True(t, info.Lines[0].Total.IsZero())

	// no printed total and zero-valued lines -> summed total of zero
	assert.True(t, info.TotalFromLines)
	assert.True(t, info.Total.IsZero())
}

func TestParseFailsWithoutHeader(t *testing.T) {
	p := NewParser(nil, nil)

	_, err := p.Parse("")
	assert.True(t, common.IsCode(err, common.CodeExtractionFailed))

	_, err = p.Parse("texto sin encabezado de factura\nni fechas ni numeros")
	assert.True(t, common.IsCode(err, common.CodeExtractionFailed))
}

func TestParseFailsWithoutDate(t *testing.T) {
	p := NewParser(nil, nil)
	_, err := p.Parse("HOSPITAL\nFactura No: FE99\nsin fecha impresa")
	assert.True(t, common.IsCode(err, common.CodeExtractionFailed))
}
