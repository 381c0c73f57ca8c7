package table

import (
	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

// Field is one named, typed column of a Schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of fields.
type Schema []Field

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Check verifies that every field of s is a column of t. It is the single
// place where a missing column turns into an error.
func (s Schema) Check(op string, t *Table) error {
	return t.Require(op, s.Names()...)
}

// Strings builds a schema of string fields, the shape every raw source has
// before coercion.
func Strings(names ...string) Schema {
	s := make(Schema, len(names))
	for i, n := range names {
		s[i] = Field{Name: n, Kind: KindString}
	}
	return s
}

// Schema resolves the storage kind of every column from its values:
//   - all null: string
//   - any string: string
//   - any float: float
//   - otherwise: int
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.columns))
	for j, name := range t.columns {
		s[j] = Field{Name: name, Kind: t.columnKind(j)}
	}
	return s
}

func (t *Table) columnKind(j int) Kind {
	var hasFloat, hasInt bool
	for _, row := range t.rows {
		switch row[j].kind {
		case KindString:
			return KindString
		case KindFloat:
			hasFloat = true
		case KindInt:
			hasInt = true
		}
	}
	switch {
	case hasFloat:
		return KindFloat
	case hasInt:
		return KindInt
	default:
		return KindString
	}
}

func missingColumns(op string, missing []string) error {
	return &domain.SchemaError{Op: op, Columns: missing}
}
