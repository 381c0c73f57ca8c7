package water

import (
	"testing"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pollutantHeader = []string{
	"OD_mg/L", "DBO_TOT", "DQO_TOT", "COLI_FEC", "E_COLI",
	"N_TOT", "P_TOT", "TOX_D_48_UT", "TOX_FIS_SUP_15_UT",
}

// build creates a table whose cells are text, null for "".
func build(t *testing.T, columns []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.New(columns...)
	require.NoError(t, err)
	for _, r := range rows {
		vals := make([]table.Value, len(r))
		for i, s := range r {
			if s == "" {
				vals[i] = table.Null()
			} else {
				vals[i] = table.Str(s)
			}
		}
		require.NoError(t, tbl.Append(vals...))
	}
	return tbl
}

func sitesSheet(t *testing.T, rows ...[]string) *table.Table {
	cols := []string{"CLAVE SITIO", "NOMBRE DEL SITIO", "ESTADO", "MUNICIPIO", "CUERPO DE AGUA",
		"TIPO CUERPO DE AGUA", "SUBTIPO CUERPO AGUA", "LATITUD", "LONGITUD"}
	return build(t, cols, rows...)
}

func measurementsSheet(t *testing.T, rows ...[]string) *table.Table {
	cols := append([]string{"CLAVE SITIO", "FECHA REALIZACION"}, pollutantHeader...)
	return build(t, cols, rows...)
}

func dictionarySheet(t *testing.T) *table.Table {
	return build(t, []string{"CLAVE PARÁMETRO", "PARÁMETRO", "UNIDAD"},
		[]string{"OD_mg/L", "Oxígeno disuelto", "mg/L"},
		[]string{"P_TOT", "Fósforo total", "mg/L"},
		[]string{"SST", "Sólidos suspendidos totales", "mg/L"},
		[]string{"CONDUCT", "Conductividad", "µS/cm"},
	)
}

func site(key, state, muni, bodyType string) []string {
	return []string{key, "Sitio " + key, state, muni, "RIO SONORA", bodyType, "RIO", "30.1", "-110.2"}
}

func reading(key, value string) []string {
	r := []string{key, "2023-05-01"}
	for range pollutantHeader {
		r = append(r, value)
	}
	return r
}

func TestTransform_JoinFilterClean(t *testing.T) {
	sites := sitesSheet(t,
		site("A", "SONORA", "ARIZPE", "LOTICO"),
		site("B", "SONORA", "URES", "COSTERO"),
		site("C", "SONORA", "HERMOSILLO", "LOTICO"),
		site("D", "CHIHUAHUA", "ARIZPE", "LOTICO"),
		site("E", "SONORA", "CANANEA", ""),
	)
	measurements := measurementsSheet(t,
		reading("A", "<0.5"),
		reading("A", ">100"),
		reading("B", "1"),
		reading("C", "2"),
		reading("D", "3"),
		reading("E", "n/a"),
		reading("Z", "4"),
	)

	res, err := Transform([]*table.Table{sites, measurements, dictionarySheet(t)}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 6, res.Merged, "Z has no site record")
	require.Equal(t, 3, res.Tidy.Len())

	wantCols := append([]string{"CLAVE SITIO", "ESTADO", "MUNICIPIO", "CUERPO DE AGUA",
		"TIPO CUERPO DE AGUA", "SUBTIPO CUERPO AGUA", "LATITUD", "LONGITUD", "FECHA REALIZACION"}, pollutantHeader...)
	assert.Equal(t, wantCols, res.Tidy.Columns())

	assert.Equal(t, table.Str("A"), res.Tidy.Value(0, "CLAVE SITIO"))
	assert.Equal(t, table.Float(0.5), res.Tidy.Value(0, "P_TOT"))
	assert.Equal(t, table.Float(100), res.Tidy.Value(1, "E_COLI"))
	assert.Equal(t, table.Float(30.1), res.Tidy.Value(0, "LATITUD"))
	assert.Equal(t, table.Float(-110.2), res.Tidy.Value(0, "LONGITUD"))

	// Unparsable reading: row kept, value missing.
	assert.Equal(t, table.Str("E"), res.Tidy.Value(2, "CLAVE SITIO"))
	assert.True(t, res.Tidy.Value(2, "COLI_FEC").IsNull())
	assert.Equal(t, len(pollutantHeader), res.Degraded)

	// Dictionaries.
	assert.Equal(t, 4, res.Dictionary.Len())
	require.Equal(t, 2, res.TidyDictionary.Len())
	assert.Equal(t, table.Str("OD_mg/L"), res.TidyDictionary.Value(0, "CLAVE PARÁMETRO"))
	assert.Equal(t, table.Str("P_TOT"), res.TidyDictionary.Value(1, "CLAVE PARÁMETRO"))
}

func TestFilter_Conjunction(t *testing.T) {
	opts := DefaultOptions()
	opts.ExcludedBodyTypes = []string{"COASTAL"}

	tbl := build(t, []string{"ESTADO", "MUNICIPIO", "TIPO CUERPO DE AGUA"},
		[]string{"SONORA", "ARIZPE", "COASTAL LAGOON"},
		[]string{"SONORA", "NOGALES", "RIVER"},
		[]string{"SONORA", "ARIZPE", "RIVER"},
		[]string{"", "ARIZPE", "RIVER"},
		[]string{"SONORA", "", "RIVER"},
	)

	out, err := Filter(tbl, opts)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, table.Str("RIVER"), out.Value(0, "TIPO CUERPO DE AGUA"))
	assert.Equal(t, table.Str("ARIZPE"), out.Value(0, "MUNICIPIO"))
}

func TestFilter_MunicipalityIsExact(t *testing.T) {
	tbl := build(t, []string{"ESTADO", "MUNICIPIO", "TIPO CUERPO DE AGUA"},
		[]string{"SONORA", "BANAMICHI", "LOTICO"},
		[]string{"SONORA", "BANÁMICHI", "LOTICO"},
		[]string{"SONORA", "arizpe", "LOTICO"},
	)
	out, err := Filter(tbl, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, table.Str("BANÁMICHI"), out.Value(0, "MUNICIPIO"))
}

func TestTransform_TooFewSheets(t *testing.T) {
	_, err := Transform([]*table.Table{sitesSheet(t), measurementsSheet(t)}, DefaultOptions())
	var malformed *domain.MalformedSourceError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, err.Error(), "found 2")
}

func TestTransform_MissingJoinKey(t *testing.T) {
	measurements := build(t, append([]string{"SITIO"}, pollutantHeader...))
	_, err := Transform([]*table.Table{sitesSheet(t), measurements, dictionarySheet(t)}, DefaultOptions())
	var malformed *domain.MalformedSourceError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "measurements sheet", malformed.Source)
}

func TestTransform_MissingPollutantIsSchemaError(t *testing.T) {
	cols := []string{"CLAVE SITIO", "FECHA REALIZACION"}
	for _, p := range pollutantHeader {
		if p != "TOX_D_48_UT" {
			cols = append(cols, p)
		}
	}
	measurements := build(t, cols)

	_, err := Transform([]*table.Table{sitesSheet(t), measurements, dictionarySheet(t)}, DefaultOptions())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"TOX_D_48_UT"}, schemaErr.Columns)
}

func TestTransform_OptionalColumnAbsent(t *testing.T) {
	measurements := build(t, append([]string{"CLAVE SITIO"}, pollutantHeader...),
		append([]string{"A"}, make([]string, len(pollutantHeader))...))
	sites := sitesSheet(t, site("A", "SONORA", "URES", "LOTICO"))

	res, err := Transform([]*table.Table{sites, measurements, dictionarySheet(t)}, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, res.Tidy.Has("FECHA REALIZACION"))
	assert.Equal(t, 1, res.Tidy.Len())
	assert.Zero(t, res.Degraded, "missing readings are not degradations")
}

func TestCleanPollutants_NumericCellsStayNumeric(t *testing.T) {
	tbl, err := table.New("P_TOT")
	require.NoError(t, err)
	require.NoError(t, tbl.Append(table.Float(0.25)))
	require.NoError(t, tbl.Append(table.Int(3)))

	degraded, err := CleanPollutants(tbl, []string{"P_TOT"})
	require.NoError(t, err)
	assert.Zero(t, degraded)
	assert.Equal(t, table.Float(0.25), tbl.Value(0, "P_TOT"))
	assert.Equal(t, table.Float(3), tbl.Value(1, "P_TOT"))
}

func TestTidyDictionary_MissingCodeColumn(t *testing.T) {
	dic := build(t, []string{"CLAVE", "UNIDAD"})
	_, err := TidyDictionary(dic, DefaultOptions())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
