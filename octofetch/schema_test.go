package octofetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		text    string
		want    Ordering
		wantErr bool
	}{
		{text: "", want: nil},
		{text: "age", want: Ordering{{Column: "age"}}},
		{text: "age:desc, name", want: Ordering{{Column: "age", Direction: Descending}, {Column: "name"}}},
		{text: "age:DESC", want: Ordering{{Column: "age", Direction: Descending}}},
		{text: "age:sideways", wantErr: true},
		{text: ":asc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseOrdering(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrdering_String(t *testing.T) {
	ordering, err := ParseOrdering("age:desc,name")
	require.NoError(t, err)
	assert.Equal(t, "age:desc,name:asc", ordering.String())
	assert.Equal(t, "", Ordering(nil).String())
}

func TestOrdering_Comparator(t *testing.T) {
	schema := NewSchema(
		Field{Name: "name", Type: String},
		Field{Name: "age", Type: Int},
	)
	compare, err := Ordering{{Column: "age", Direction: Descending}, {Column: "name"}}.Comparator(schema)
	require.NoError(t, err)

	alice := []Value{NewString("alice"), NewInt(30)}
	bob := []Value{NewString("bob"), NewInt(30)}
	carol := []Value{NewString("carol"), NewInt(40)}
	assert.Equal(t, -1, compare(alice, bob))
	assert.Equal(t, -1, compare(carol, alice))
	assert.Equal(t, 0, compare(bob, bob))

	_, err = Ordering{{Column: "height"}}.Comparator(schema)
	assert.Error(t, err)
}
