package table

import (
	"testing"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAppend(t *testing.T, tbl *Table, values ...Value) {
	t.Helper()
	require.NoError(t, tbl.Append(values...))
}

func TestValue(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "0.5", Float(0.5).String())
	assert.Equal(t, "100", Float(100).String())
	assert.Equal(t, "2013", Int(2013).String())
	assert.Equal(t, "abc", Str("abc").String())

	f, ok := Int(7).Float64()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = Str("7").Float64()
	assert.False(t, ok)

	s, ok := Str("x").Text()
	assert.True(t, ok)
	assert.Equal(t, "x", s)
}

func TestNew_DuplicateColumns(t *testing.T) {
	_, err := New("a", "b", "a")
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"a"}, schemaErr.Columns)
}

func TestAppend_WrongArity(t *testing.T) {
	tbl := MustNew("a", "b")
	assert.Error(t, tbl.Append(Str("only one")))
}

func TestInnerJoin(t *testing.T) {
	sites := MustNew("CLAVE SITIO", "ESTADO")
	mustAppend(t, sites, Str("A"), Str("SONORA"))
	mustAppend(t, sites, Str("B"), Str("SONORA"))

	results := MustNew("CLAVE SITIO", "P_TOT")
	mustAppend(t, results, Str("A"), Str("v1"))
	mustAppend(t, results, Str("A"), Str("v2"))
	mustAppend(t, results, Str("C"), Str("v3"))

	joined, err := InnerJoin(sites, results, "CLAVE SITIO")
	require.NoError(t, err)

	assert.Equal(t, []string{"CLAVE SITIO", "ESTADO", "P_TOT"}, joined.Columns())
	want := [][]Value{
		{Str("A"), Str("SONORA"), Str("v1")},
		{Str("A"), Str("SONORA"), Str("v2")},
	}
	if diff := cmp.Diff(want, joined.Records(), cmp.AllowUnexported(Value{})); diff != "" {
		t.Errorf("joined rows mismatch (-want +got):\n%s", diff)
	}
}

func TestInnerJoin_Cardinality(t *testing.T) {
	left := MustNew("k", "l")
	mustAppend(t, left, Str("1"), Str("a"))
	mustAppend(t, left, Str("2"), Str("b"))
	mustAppend(t, left, Null(), Str("c"))

	right := MustNew("k", "r")
	for _, k := range []string{"2", "1", "2", "2"} {
		mustAppend(t, right, Str(k), Str("r"+k))
	}
	mustAppend(t, right, Null(), Str("rnull"))

	joined, err := InnerJoin(left, right, "k")
	require.NoError(t, err)
	require.Equal(t, 4, joined.Len())

	// Left order first, then right order within a key.
	keys := make([]string, joined.Len())
	for i := range keys {
		keys[i] = joined.Value(i, "k").String()
	}
	assert.Equal(t, []string{"1", "2", "2", "2"}, keys)
}

func TestInnerJoin_NumericAndTextKeysMatch(t *testing.T) {
	left := MustNew("k")
	mustAppend(t, left, Float(10))
	right := MustNew("k", "v")
	mustAppend(t, right, Str("10"), Int(1))

	joined, err := InnerJoin(left, right, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, joined.Len())
}

func TestInnerJoin_OverlappingColumnsGetSuffixes(t *testing.T) {
	left := MustNew("k", "NOMBRE")
	mustAppend(t, left, Str("A"), Str("left"))
	right := MustNew("k", "NOMBRE")
	mustAppend(t, right, Str("A"), Str("right"))

	joined, err := InnerJoin(left, right, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "NOMBRE_x", "NOMBRE_y"}, joined.Columns())
}

func TestInnerJoin_MissingKey(t *testing.T) {
	_, err := InnerJoin(MustNew("a"), MustNew("k"), "k")
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "join left", schemaErr.Op)
}

func TestSelect(t *testing.T) {
	tbl := MustNew("a", "b", "c")
	mustAppend(t, tbl, Int(1), Int(2), Int(3))

	sel, err := tbl.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())
	assert.Equal(t, [][]Value{{Int(3), Int(1)}}, sel.Records())

	_, err = tbl.Select("a", "x", "y")
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"x", "y"}, schemaErr.Columns)
}

func TestDrop(t *testing.T) {
	tbl := MustNew("a", "b", "c")
	mustAppend(t, tbl, Int(1), Int(2), Int(3))

	out, err := tbl.Drop("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.Columns())

	_, err = tbl.Drop("z")
	assert.Error(t, err)
}

func TestRename(t *testing.T) {
	tbl := MustNew("Anio", "Valor", "Otro")
	mustAppend(t, tbl, Str("2013"), Str("1"), Str("x"))

	out, err := tbl.Rename(
		Rename{From: "Anio", To: "Año"},
		Rename{From: "Valor", To: "Valor Total"},
		Rename{From: "Nomddr", To: "Nombre_DDR"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Año", "Valor Total", "Otro"}, out.Columns())
	assert.Equal(t, Str("2013"), out.Value(0, "Año"))

	// The source table is untouched.
	assert.Equal(t, []string{"Anio", "Valor", "Otro"}, tbl.Columns())
}

func TestRename_Collision(t *testing.T) {
	tbl := MustNew("a", "b")
	_, err := tbl.Rename(Rename{From: "a", To: "b"})
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"b"}, schemaErr.Columns)
}

func TestFilter_CopiesRows(t *testing.T) {
	tbl := MustNew("n")
	for i := range 5 {
		mustAppend(t, tbl, Int(int64(i)))
	}

	even := tbl.Filter(func(r Row) bool {
		n, _ := r.Value("n").Int64()
		return n%2 == 0
	})
	require.Equal(t, 3, even.Len())

	require.NoError(t, even.Update("n", func(_ int, _ Value) (Value, error) { return Null(), nil }))
	assert.Equal(t, Int(0), tbl.Value(0, "n"), "filter result must not alias the source")
}

func TestConcat(t *testing.T) {
	a := MustNew("x", "y")
	mustAppend(t, a, Int(1), Str("a"))
	b := MustNew("y", "x")
	mustAppend(t, b, Str("b"), Int(2))

	out, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out.Columns())
	assert.Equal(t, [][]Value{{Int(1), Str("a")}, {Int(2), Str("b")}}, out.Records())
}

func TestConcat_SchemaMismatch(t *testing.T) {
	a := MustNew("x", "y")
	b := MustNew("x", "z")

	_, err := Concat(a, b)
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.ElementsMatch(t, []string{"y", "z"}, schemaErr.Columns)

	_, err = Concat()
	assert.Error(t, err)
}

func TestSchema_ResolvesKinds(t *testing.T) {
	tbl := MustNew("s", "f", "i", "mixed", "empty", "num")
	mustAppend(t, tbl, Str("a"), Float(1.5), Int(1), Float(2), Null(), Int(3))
	mustAppend(t, tbl, Null(), Null(), Int(2), Str("abc"), Null(), Float(0.5))

	want := Schema{
		{Name: "s", Kind: KindString},
		{Name: "f", Kind: KindFloat},
		{Name: "i", Kind: KindInt},
		{Name: "mixed", Kind: KindString},
		{Name: "empty", Kind: KindString},
		{Name: "num", Kind: KindFloat},
	}
	assert.Equal(t, want, tbl.Schema())
}

func TestSchema_Check(t *testing.T) {
	tbl := MustNew("a", "b")
	require.NoError(t, Strings("a", "b").Check("read", tbl))

	err := Strings("a", "c").Check("read", tbl)
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "read", schemaErr.Op)
	assert.Equal(t, []string{"c"}, schemaErr.Columns)
}

func TestSlice(t *testing.T) {
	tbl := MustNew("n")
	for i := range 10 {
		mustAppend(t, tbl, Int(int64(i)))
	}
	s := tbl.Slice(3, 6)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, Int(3), s.Value(0, "n"))
	assert.Equal(t, Int(5), s.Value(2, "n"))
}
