package livestock

import "github.com/couchcryptid/rio-sonora-etl/internal/table"

// Options carries the study configuration for the livestock dataset.
type Options struct {
	// RawColumns is the per-year CSV schema.
	RawColumns table.Schema

	MunicipalityColumn string
	SpeciesColumn      string

	// Municipalities and Species are literal allow-lists; values are compared
	// byte for byte, so "Baviácora " keeps its trailing space.
	Municipalities []string
	Species        []string

	// DropColumns are removed before renaming.
	DropColumns []string

	// Renames maps raw names to the canonical schema.
	Renames []table.Rename

	// AmountColumns (canonical names) are cleaned of thousands separators and
	// parsed as floats when possible.
	AmountColumns []string

	// KeyColumns (canonical names) must be integers.
	KeyColumns []string
}

// DefaultOptions returns the configuration used for the published dataset.
func DefaultOptions() Options {
	return Options{
		RawColumns: table.Strings(
			"Anio", "Cveestado", "Nomestado", "Cveddr", "Nomddr", "Cvempio",
			"Nommunicipio", "Cveespecie", "Nomespecie", "Cveproducto",
			"Nomproducto", "Volumen", "Precio", "Valor", "Peso", "Asacrificado",
		),
		MunicipalityColumn: "Nommunicipio",
		SpeciesColumn:      "Nomespecie",
		Municipalities: []string{
			"Huepac",
			"Ures",
			"Aconchi",
			"Arizpe",
			"Banámichi",
			"Baviácora ",
			"Cananea",
			"San Felipe de Jesús",
		},
		Species:     []string{"Bovino", "Caprino", "Porcino", "Ovino"},
		DropColumns: []string{"Cveddr", "Cveespecie", "Peso", "Asacrificado", "Nomddr"},
		Renames: []table.Rename{
			{From: "Anio", To: "Año"},
			{From: "Cveestado", To: "Clave_Estado"},
			{From: "Nomestado", To: "Nombre_Estado"},
			{From: "Nomddr", To: "Nombre_DDR"},
			{From: "Cvempio", To: "Clave_Municipio"},
			{From: "Nommunicipio", To: "Nombre_Municipio"},
			{From: "Nomespecie", To: "Nombre_Especie"},
			{From: "Cveproducto", To: "Clave_Producto"},
			{From: "Nomproducto", To: "Nombre_Producto"},
			{From: "Volumen", To: "Volumen"},
			{From: "Precio", To: "Precio"},
			{From: "Valor", To: "Valor Total"},
		},
		AmountColumns: []string{"Volumen", "Precio", "Valor Total"},
		KeyColumns:    []string{"Año", "Clave_Estado", "Clave_Municipio", "Clave_Producto"},
	}
}
