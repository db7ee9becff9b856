package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CompileError
		want string
	}{
		{
			name: "message only",
			err:  NewCompileError(CodeUnrecognizedRequest, "no expert accepted the request"),
			want: "UNRECOGNIZED_REQUEST: no expert accepted the request",
		},
		{
			name: "with field",
			err:  NewCompileError(CodeUnresolvedField, "not in report").WithField("ursache"),
			want: "UNRESOLVED_FIELD: not in report (field=ursache)",
		},
		{
			name: "with field and value",
			err:  NewCompileError(CodeMalformedValue, "not a number").WithField("praemie").WithValue("abc"),
			want: `MALFORMED_VALUE: not a number (field=praemie, value="abc")`,
		},
		{
			name: "with value only",
			err:  NewCompileErrorf(CodeMalformedValue, "limit %s", "invalid").WithValue("x"),
			want: `MALFORMED_VALUE: limit invalid (value="x")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCodeOf_SeesThroughWrapping(t *testing.T) {
	base := NewCompileError(CodeNoMatchingTemplate, "no template")

	wrapped := WithHint(Wrap(base, "cover expert"), "nenne einen Bericht")
	assert.Equal(t, CodeNoMatchingTemplate, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, CodeNoMatchingTemplate))
	assert.False(t, HasCode(wrapped, CodeUnresolvedField))

	stdWrapped := fmt.Errorf("outer: %w", base)
	assert.Equal(t, CodeNoMatchingTemplate, CodeOf(stdWrapped))

	assert.Contains(t, GetAllHints(wrapped), "nenne einen Bericht")
}

func TestCodeOf_NonCompileError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(stderrors.New("plain")))
	assert.False(t, HasCode(nil, CodeMalformedValue))
}
