package itemid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "test_file_creation"},
		{name: "leading underscore", input: "_private"},
		{name: "digits after first char", input: "a1b2c3"},
		{name: "empty", input: "", wantErr: true},
		{name: "leading digit", input: "1abc", wantErr: true},
		{name: "hyphen not allowed", input: "my-item", wantErr: true},
		{name: "space not allowed", input: "my item", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := New(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var fmtErr *InvalidFmtError
				assert.ErrorAs(t, err, &fmtErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestMustNew_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustNew("1bad") })
	assert.NotPanics(t, func() { MustNew("good_id") })
}

func TestNewFlowAndProfile(t *testing.T) {
	_, err := NewFlow("deploy_site")
	require.NoError(t, err)
	_, err = NewFlow("9nope")
	require.Error(t, err)

	_, err = NewProfile("staging")
	require.NoError(t, err)
	_, err = NewProfile("bad id")
	require.Error(t, err)
}
