package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TableRef
		wantErr bool
	}{
		{name: "valid", input: "raw.numbers", want: TableRef{Schema: "raw", Table: "numbers"}},
		{name: "underscores", input: "stg_sales.order_items", want: TableRef{Schema: "stg_sales", Table: "order_items"}},
		{name: "missing_schema", input: "numbers", wantErr: true},
		{name: "too_many_parts", input: "a.b.c", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "bad_schema", input: "1raw.numbers", wantErr: true},
		{name: "bad_table", input: "raw.num-bers", wantErr: true},
		{name: "trailing_dot", input: "raw.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTableRef(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorAs(t, err, new(*ValidationError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("raw"))
	assert.True(t, ValidIdentifier("_private"))
	assert.True(t, ValidIdentifier("t2"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("2fast"))
	assert.False(t, ValidIdentifier("with space"))
	assert.False(t, ValidIdentifier(`raw"; drop table x; --`))
}
