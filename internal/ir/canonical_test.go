package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   IRValue
		want string
	}{
		{"string", IRString("Müller"), `"Müller"`},
		{"html stays literal", IRString("a < b && c > d"), `"a < b && c > d"`},
		{"quote and backslash", IRString(`S"1\2`), `"S\"1\\2"`},
		{"control characters", IRString("a\tb\nc\x01"), `"a\tb\nc\u0001"`},
		{"line separator stays literal", IRString("a\u2028b"), "\"a\u2028b\""},
		{"negative int", IRInt(-5), "-5"},
		{"decimal keeps spelling", IRDecimal("1234.50"), `"1234.50"`},
		{"date", IRDate("2024-01-31"), `"2024-01-31"`},
		{"bool", IRBool(true), "true"},
		{"empty array", IRArray{}, "[]"},
		{"params", IRArray{IRString("A"), IRInt(500)}, `["A",500]`},
		{"keys sorted", IRObject{"report": IRString("R"), "context": IRString("COVER"), "limit": IRInt(10)},
			`{"context":"COVER","limit":10,"report":"R"}`},
		{"nested", IRObject{"filters": IRArray{IRObject{"op": IRString("between"), "value": IRArray{IRInt(100), IRInt(200)}}}},
			`{"filters":[{"op":"between","value":[100,200]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed, err := MarshalCanonical(IRString("Pra\u0308mie"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(IRString("Pr\u00e4mie"))
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	tests := []struct {
		name string
		in   IRValue
		msg  string
	}{
		{"nil", nil, "null has no canonical form"},
		{"IRNull", IRNull{}, "null has no canonical form"},
		{"nested", IRObject{"value": IRArray{IRInt(1), IRNull{}}}, `"value": [1]: null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.in)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}
