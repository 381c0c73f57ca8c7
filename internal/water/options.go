package water

// Options carries the study configuration for the water-quality dataset.
// DefaultOptions reproduces the Río Sonora study; tests pass their own.
type Options struct {
	// KeyColumn joins the sites sheet to the measurements sheet.
	KeyColumn string

	// SiteColumns are the identity/location columns kept, in output order.
	SiteColumns []string

	// Pollutants are the measurement columns kept and cleaned, in output order.
	Pollutants []string

	// OptionalColumns are appended after the site columns when the joined
	// table has them.
	OptionalColumns []string

	StateColumn        string
	MunicipalityColumn string
	BodyTypeColumn     string
	LatitudeColumn     string
	LongitudeColumn    string

	// State is the only state kept.
	State string

	// Municipalities is the municipality allow-list.
	Municipalities []string

	// ExcludedBodyTypes drops rows whose water-body type contains any of
	// these substrings.
	ExcludedBodyTypes []string

	// ParameterCodeColumn is the dictionary column matched against Pollutants.
	ParameterCodeColumn string
}

// DefaultOptions returns the configuration used for the published dataset.
func DefaultOptions() Options {
	return Options{
		KeyColumn: "CLAVE SITIO",
		SiteColumns: []string{
			"CLAVE SITIO",
			"ESTADO",
			"MUNICIPIO",
			"CUERPO DE AGUA",
			"TIPO CUERPO DE AGUA",
			"SUBTIPO CUERPO AGUA",
			"LATITUD",
			"LONGITUD",
		},
		Pollutants: []string{
			"OD_mg/L",
			"DBO_TOT",
			"DQO_TOT",
			"COLI_FEC",
			"E_COLI",
			"N_TOT",
			"P_TOT",
			"TOX_D_48_UT",
			"TOX_FIS_SUP_15_UT",
		},
		OptionalColumns:    []string{"FECHA REALIZACION"},
		StateColumn:        "ESTADO",
		MunicipalityColumn: "MUNICIPIO",
		BodyTypeColumn:     "TIPO CUERPO DE AGUA",
		LatitudeColumn:     "LATITUD",
		LongitudeColumn:    "LONGITUD",
		State:              "SONORA",
		Municipalities: []string{
			"ARIZPE",
			"BANÁMICHI",
			"HUÉPAC",
			"ACONCHI",
			"SAN FELIPE",
			"BAVIÁCORA",
			"URES",
			"CANANEA",
		},
		ExcludedBodyTypes:   []string{"COSTERO"},
		ParameterCodeColumn: "CLAVE PARÁMETRO",
	}
}
