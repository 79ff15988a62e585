package annex

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
)

const fullAnnex = `{
  "numFactura": "FERO306500",
  "usuarios": [
    {
      "tipoDocumentoIdentificacion": "CC",
      "numDocumentoIdentificacion": "1232835680",
      "nombreUsuario": "ANA MARIA PEREZ GOMEZ",
      "codSexo": "f",
      "fechaNacimiento": "1995-02-14",
      "codMunicipioResidencia": "08433",
      "codZonaTerritorialResidencia": "01",
      "servicios": {
        "medicamentos": [
          {
            "codPrestador": "080043310101",
            "numAutorizacion": "AUT-1",
            "codTecnologiaSalud": "19903001",
            "nomTecnologiaSalud": "AMOXICILINA 500MG",
            "tipoMedicamento": "01",
            "vrUnitMedicamento": "1500.50",
            "vrServicio": 4501.5,
            "cantidadMedicamento": 3,
            "unidadMinDispensa": 1,
            "diasTratamiento": "7",
            "codDiagnosticoPrincipal": "J030",
            "concentracionMedicamento": 500,
            "fechaDispensAdmon": "2024-03-15"
          }
        ],
        "otrosServicios": [
          {
            "codPrestador": "080043310101",
            "codTecnologiaSalud": "S11102",
            "nomTecnologiaSalud": "SUERO ORAL",
            "tipoOS": "02",
            "vrUnitOS": "8000",
            "vrServicio": "8000",
            "cantidadOS": "1",
            "fechaSuministroTecnologia": "2024/03/15"
          }
        ]
      }
    }
  ]
}`

func TestNormalizeFullAnnex(t *testing.T) {
	n := NewNormalizer(nil)
	info, err := n.Normalize([]byte(fullAnnex))
	require.NoError(t, err)

	require.NotNil(t, info.DocumentType)
	assert.Equal(t, "CC", *info.DocumentType)
	require.NotNil(t, info.DocumentNumber)
	assert.Equal(t, "1232835680", *info.DocumentNumber)
	require.NotNil(t, info.Sex)
	assert.Equal(t, "F", *info.Sex)
	require.NotNil(t, info.BirthDate)
	assert.Equal(t, "1995-02-14", info.BirthDate.Format("2006-01-02"))
	require.NotNil(t, info.Municipality)
	assert.Equal(t, "08433", *info.Municipality)

	require.Len(t, info.Medications, 1)
	med := info.Medications[0]
	assert.Equal(t, "19903001", med.Code)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(med.UnitValue))
	assert.True(t, decimal.RequireFromString("4501.5").Equal(med.TotalValue))
	assert.True(t, decimal.NewFromInt(3).Equal(med.Quantity))
	require.NotNil(t, med.TreatmentDays)
	assert.Equal(t, 7, *med.TreatmentDays)
	require.NotNil(t, med.Concentration)
	assert.Equal(t, "500", *med.Concentration)
	require.NotNil(t, med.AdministeredAt)

	require.Len(t, info.OtherServices, 1)
	os := info.OtherServices[0]
	assert.Equal(t, "S11102", os.Code)
	assert.True(t, decimal.NewFromInt(8000).Equal(os.TotalValue))
	require.NotNil(t, os.ServiceDate)
	assert.Equal(t, "2024-03-15", os.ServiceDate.Format("2006-01-02"))
}

func TestNormalizeRejectsMalformedPayload(t *testing.T) {
	n := NewNormalizer(nil)

	_, err := n.Normalize([]byte(`not json at all`))
	assert.True(t, common.IsCode(err, common.CodeAnnexFormat))

	_, err = n.Normalize([]byte(`{"otraCosa": true}`))
	assert.True(t, common.IsCode(err, common.CodeAnnexFormat))

	_, err = n.Normalize([]byte(`{"usuarios": "no-es-arreglo"}`))
	assert.True(t, common.IsCode(err, common.CodeAnnexFormat))
}

func TestNormalizeToleratesMissingSubFields(t *testing.T) {
	n := NewNormalizer(nil)
	info, err := n.Normalize([]byte(`{"usuarios": [{"numDocumentoIdentificacion": "123456"}]}`))
	require.NoError(t, err)

	require.NotNil(t, info.DocumentNumber)
	assert.Equal(t, "123456", *info.DocumentNumber)
	assert.Nil(t, info.DocumentType)
	assert.Nil(t, info.FullName)
	assert.Nil(t, info.BirthDate)
	assert.Empty(t, info.Medications)
	assert.Empty(t, info.OtherServices)
}

func TestNormalizeEmptyUsersIsValid(t *testing.T) {
	n := NewNormalizer(nil)
	info, err := n.Normalize([]byte(`{"usuarios": []}`))
	require.NoError(t, err)
	assert.Nil(t, info.DocumentNumber)
}

func TestNormalizeEmptyStringsBecomeNil(t *testing.T) {
	n := NewNormalizer(nil)
	info, err := n.Normalize([]byte(`{"usuarios": [{"numDocumentoIdentificacion": "99", "nombreUsuario": "", "codSexo": "  "}]}`))
	require.NoError(t, err)
	assert.Nil(t, info.FullName)
	assert.Nil(t, info.Sex)
}
