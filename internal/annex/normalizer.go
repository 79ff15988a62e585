package annex

import (
	"os"
	"strings"

	"log/slog"

	"github.com/goccy/go-json"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

// wire types mirroring the externally defined annex schema.
type payload struct {
	Usuarios []usuario `json:"usuarios"`
}

type usuario struct {
	TipoDocumento flexString `json:"tipoDocumentoIdentificacion"`
	NumDocumento  flexString `json:"numDocumentoIdentificacion"`
	NombreUsuario flexString `json:"nombreUsuario"`
	CodSexo       flexString `json:"codSexo"`
	FechaNacim    flexString `json:"fechaNacimiento"`
	CodMunicipio  flexString `json:"codMunicipioResidencia"`
	CodZona       flexString `json:"codZonaTerritorialResidencia"`
	Servicios     servicios  `json:"servicios"`
}

type servicios struct {
	Medicamentos   []medicamento  `json:"medicamentos"`
	OtrosServicios []otroServicio `json:"otrosServicios"`
}

type medicamento struct {
	CodPrestador      flexString  `json:"codPrestador"`
	TipoDocumento     flexString  `json:"tipoDocumentoIdentificacion"`
	NumDocumento      flexString  `json:"numDocumentoIdentificacion"`
	NumAutorizacion   flexString  `json:"numAutorizacion"`
	CodTecnologia     flexString  `json:"codTecnologiaSalud"`
	NomTecnologia     flexString  `json:"nomTecnologiaSalud"`
	TipoMedicamento   flexString  `json:"tipoMedicamento"`
	VrUnit            flexDecimal `json:"vrUnitMedicamento"`
	VrServicio        flexDecimal `json:"vrServicio"`
	Cantidad          flexDecimal `json:"cantidadMedicamento"`
	UnidadMin         flexString  `json:"unidadMinDispensa"`
	DiasTratamiento   flexInt     `json:"diasTratamiento"`
	CodDxPrincipal    flexString  `json:"codDiagnosticoPrincipal"`
	CodDxRelacionado  flexString  `json:"codDiagnosticoRelacionado"`
	IDMipres          flexString  `json:"idMIPRES"`
	FechaDispens      flexString  `json:"fechaDispensAdmon"`
	FormaFarmaceutica flexString  `json:"formaFarmaceutica"`
	Concentracion     flexString  `json:"concentracionMedicamento"`
}

type otroServicio struct {
	CodPrestador     flexString  `json:"codPrestador"`
	TipoDocumento    flexString  `json:"tipoDocumentoIdentificacion"`
	NumDocumento     flexString  `json:"numDocumentoIdentificacion"`
	NumAutorizacion  flexString  `json:"numAutorizacion"`
	CodTecnologia    flexString  `json:"codTecnologiaSalud"`
	NomTecnologia    flexString  `json:"nomTecnologiaSalud"`
	TipoOS           flexString  `json:"tipoOS"`
	VrUnit           flexDecimal `json:"vrUnitOS"`
	VrServicio       flexDecimal `json:"vrServicio"`
	Cantidad         flexDecimal `json:"cantidadOS"`
	FechaSuministro  flexString  `json:"fechaSuministroTecnologia"`
	CodDxPrincipal   flexString  `json:"codDiagnosticoPrincipal"`
	CodDxRelacionado flexString  `json:"codDiagnosticoRelacionado"`
	IDMipres         flexString  `json:"idMIPRES"`
}

// Normalizer turns annex payloads into the shapes the builder consumes.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// ParseFile reads and normalizes the annex at path.
func (n *Normalizer) ParseFile(path string) (*entity.AnnexInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, common.AnnexFormatError("read annex", err)
	}
	return n.Normalize(b)
}

// Normalize decodes the annex payload. Only the top-level shape is a hard
// requirement: malformed JSON or a missing usuarios array is an
// AnnexFormatError, while any missing sub-field decays to nil. Pure
// transform, no side effects.
func (n *Normalizer) Normalize(data []byte) (*entity.AnnexInfo, error) {
	if err := validateAgainstSchema(payloadSchema(), data); err != nil {
		return nil, common.AnnexFormatError("annex payload shape", err)
	}

	var doc payload
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, common.AnnexFormatError("decode annex payload", err)
	}

	info := &entity.AnnexInfo{}
	if len(doc.Usuarios) == 0 {
		n.logger.Warn("annex.normalize.no_users")
		return info, nil
	}

	// single-patient granularity: the first user is the invoice subject
	u := doc.Usuarios[0]
	info.DocumentType = u.TipoDocumento.ptr()
	info.DocumentNumber = u.NumDocumento.ptr()
	info.FullName = u.NombreUsuario.ptr()
	info.Sex = upper(u.CodSexo.ptr())
	info.BirthDate = parseDate(u.FechaNacim)
	info.Municipality = u.CodMunicipio.ptr()
	info.Zone = u.CodZona.ptr()

	for _, m := range u.Servicios.Medicamentos {
		info.Medications = append(info.Medications, entity.MedicationLine{
			ProviderCode:       string(m.CodPrestador),
			DocumentType:       m.TipoDocumento.ptr(),
			DocumentNumber:     m.NumDocumento.ptr(),
			Authorization:      m.NumAutorizacion.ptr(),
			Code:               string(m.CodTecnologia),
			Name:               m.NomTecnologia.ptr(),
			Type:               m.TipoMedicamento.ptr(),
			PharmaceuticalForm: m.FormaFarmaceutica.ptr(),
			Concentration:      m.Concentracion.ptr(),
			UnitMeasure:        m.UnidadMin.ptr(),
			TreatmentDays:      m.DiasTratamiento.value,
			Quantity:           m.Cantidad.Decimal,
			UnitValue:          m.VrUnit.Decimal,
			TotalValue:         m.VrServicio.Decimal,
			DiagnosisCode:      m.CodDxPrincipal.ptr(),
			RelatedDiagnosis:   m.CodDxRelacionado.ptr(),
			MipresID:           m.IDMipres.ptr(),
			AdministeredAt:     parseDate(m.FechaDispens),
		})
	}
	for _, o := range u.Servicios.OtrosServicios {
		info.OtherServices = append(info.OtherServices, entity.OtherServiceLine{
			ProviderCode:     string(o.CodPrestador),
			DocumentType:     o.TipoDocumento.ptr(),
			DocumentNumber:   o.NumDocumento.ptr(),
			Authorization:    o.NumAutorizacion.ptr(),
			Code:             string(o.CodTecnologia),
			Name:             o.NomTecnologia.ptr(),
			Type:             o.TipoOS.ptr(),
			ServiceDate:      parseDate(o.FechaSuministro),
			Quantity:         o.Cantidad.Decimal,
			UnitValue:        o.VrUnit.Decimal,
			TotalValue:       o.VrServicio.Decimal,
			DiagnosisCode:    o.CodDxPrincipal.ptr(),
			RelatedDiagnosis: o.CodDxRelacionado.ptr(),
			MipresID:         o.IDMipres.ptr(),
		})
	}

	n.logger.Info("annex.normalize.ok",
		"has_document", info.DocumentNumber != nil,
		"medications", len(info.Medications),
		"other_services", len(info.OtherServices),
	)
	return info, nil
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(*s)
	return &v
}
