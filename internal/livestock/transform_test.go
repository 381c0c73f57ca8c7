package livestock

import (
	"testing"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rawHeader = DefaultOptions().RawColumns.Names()

type rec struct {
	year, muni, species, volume, price, value string
}

func yearTable(t *testing.T, rows ...rec) *table.Table {
	t.Helper()
	tbl, err := table.New(rawHeader...)
	require.NoError(t, err)
	for _, r := range rows {
		cells := []string{
			r.year, "26", "Sonora", "139", "Ures", "30", r.muni, "1", r.species,
			"101", "Carne en canal", r.volume, r.price, r.value, "450", "12",
		}
		vals := make([]table.Value, len(cells))
		for i, c := range cells {
			vals[i] = table.Str(c)
		}
		require.NoError(t, tbl.Append(vals...))
	}
	return tbl
}

func TestTransform(t *testing.T) {
	y2013 := yearTable(t,
		rec{"2013", "Ures", "Bovino", "1,234", "45.5", " 56,147.00 "},
		rec{"2013", "Ures", "Equino", "10", "1", "10"},
		rec{"2013", "Hermosillo", "Bovino", "10", "1", "10"},
	)
	y2014 := yearTable(t,
		rec{"2014", "Baviácora ", "Ovino", "abc", "12", "1,2a"},
		rec{"2014", "Baviácora", "Ovino", "1", "1", "1"},
		rec{"2014", "San Felipe de Jesús", "Porcino", "7", "8", "56"},
	)

	res, err := Transform([]*table.Table{y2013, y2014}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 6, res.Stacked)
	tidy := res.Tidy
	require.Equal(t, 3, tidy.Len())

	assert.Equal(t, []string{
		"Año", "Clave_Estado", "Nombre_Estado", "Clave_Municipio", "Nombre_Municipio",
		"Nombre_Especie", "Clave_Producto", "Nombre_Producto", "Volumen", "Precio", "Valor Total",
	}, tidy.Columns())

	assert.Equal(t, table.Int(2013), tidy.Value(0, "Año"))
	assert.Equal(t, table.Int(26), tidy.Value(0, "Clave_Estado"))
	assert.Equal(t, table.Int(30), tidy.Value(0, "Clave_Municipio"))
	assert.Equal(t, table.Int(101), tidy.Value(0, "Clave_Producto"))
	assert.Equal(t, table.Float(1234), tidy.Value(0, "Volumen"))
	assert.Equal(t, table.Float(45.5), tidy.Value(0, "Precio"))
	assert.Equal(t, table.Float(56147), tidy.Value(0, "Valor Total"))

	// Trailing-space variant is matched literally and kept.
	assert.Equal(t, table.Str("Baviácora "), tidy.Value(1, "Nombre_Municipio"))
	assert.Equal(t, table.Str("abc"), tidy.Value(1, "Volumen"))
	assert.Equal(t, table.Str("12a"), tidy.Value(1, "Valor Total"))
	assert.Equal(t, 2, res.Unparsed)

	assert.Equal(t, table.Str("San Felipe de Jesús"), tidy.Value(2, "Nombre_Municipio"))
}

func TestFilter_AllowListsAreExact(t *testing.T) {
	tbl := yearTable(t,
		rec{"2020", "Cananea", "Equino", "1", "1", "1"},
		rec{"2020", "Nogales", "Bovino", "1", "1", "1"},
		rec{"2020", "Cananea", "bovino", "1", "1", "1"},
		rec{"2020", "Cananea", "Caprino", "1", "1", "1"},
	)
	out, err := Filter(tbl, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, table.Str("Caprino"), out.Value(0, "Nomespecie"))
}

func TestTransform_KeyCoercionIsFatal(t *testing.T) {
	y := yearTable(t,
		rec{"2020", "Ures", "Bovino", "1", "1", "1"},
		rec{"202X", "Ures", "Bovino", "1", "1", "1"},
	)
	_, err := Transform([]*table.Table{y}, DefaultOptions())

	var coercion *domain.CoercionError
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, "Año", coercion.Column)
	assert.Equal(t, 1, coercion.Row)
	assert.Equal(t, "202X", coercion.Value)
}

func TestTransform_FilteredOutBadKeyIsIgnored(t *testing.T) {
	y := yearTable(t,
		rec{"2020", "Ures", "Bovino", "1", "1", "1"},
		rec{"202X", "Hermosillo", "Bovino", "1", "1", "1"},
	)
	res, err := Transform([]*table.Table{y}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tidy.Len())
}

func TestTransform_EmptyInput(t *testing.T) {
	_, err := Transform(nil, DefaultOptions())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestTransform_SchemaMismatch(t *testing.T) {
	good := yearTable(t)
	cols := append(append([]string{}, rawHeader...), "Extra")
	extra, err := table.New(cols...)
	require.NoError(t, err)

	_, err = Transform([]*table.Table{good, extra}, DefaultOptions())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"Extra"}, schemaErr.Columns)

	missing, err := table.New(rawHeader[:len(rawHeader)-1]...)
	require.NoError(t, err)
	_, err = Transform([]*table.Table{good, missing}, DefaultOptions())
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"Asacrificado"}, schemaErr.Columns)
}

func TestCleanAmounts_NonTextPassesThrough(t *testing.T) {
	tbl, err := table.New("Volumen")
	require.NoError(t, err)
	require.NoError(t, tbl.Append(table.Float(3.5)))
	require.NoError(t, tbl.Append(table.Null()))
	require.NoError(t, tbl.Append(table.Str("1,234")))

	unparsed, err := CleanAmounts(tbl, []string{"Volumen"})
	require.NoError(t, err)
	assert.Zero(t, unparsed)
	assert.Equal(t, table.Float(3.5), tbl.Value(0, "Volumen"))
	assert.True(t, tbl.Value(1, "Volumen").IsNull())
	assert.Equal(t, table.Float(1234), tbl.Value(2, "Volumen"))
}

func TestCoerceKeys_NullIsFatal(t *testing.T) {
	tbl, err := table.New("Año")
	require.NoError(t, err)
	require.NoError(t, tbl.Append(table.Null()))

	err = CoerceKeys(tbl, []string{"Año"})
	var coercion *domain.CoercionError
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, 0, coercion.Row)
}
