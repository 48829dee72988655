package http

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`{"v":"15551234567"}`, "15551234567"},
		{`{"v":15551234567}`, "15551234567"},
		{`{"v":null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var out struct {
			V flexString `json:"v"`
		}
		require.NoError(t, json.Unmarshal([]byte(tt.in), &out), tt.in)
		require.Equal(t, tt.want, string(out.V), tt.in)
	}

	var bad struct {
		V flexString `json:"v"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"v":true}`), &bad))
}

func TestFormField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		want     formField
		numbers  bool
		text     string
		rejected bool
	}{
		{in: `{"v":"Jo"}`, want: formField{Value: "Jo"}, text: "Jo"},
		{in: `{"v":null}`, want: formField{}, text: ""},
		{in: `{}`, want: formField{}, text: ""},
		{in: `{"v":123}`, want: formField{Value: "123", IsNumber: true}, rejected: true},
		{in: `{"v":15551234567}`, want: formField{Value: "15551234567", IsNumber: true}, numbers: true, text: "15551234567"},
		{in: `{"v":true}`, want: formField{Invalid: true}, rejected: true},
		{in: `{"v":["a"]}`, want: formField{Invalid: true}, numbers: true, rejected: true},
		{in: `{"v":{"a":1}}`, want: formField{Invalid: true}, rejected: true},
	}
	for _, tt := range tests {
		var out struct {
			V formField `json:"v"`
		}
		require.NoError(t, json.Unmarshal([]byte(tt.in), &out), tt.in)
		require.Equal(t, tt.want, out.V, tt.in)

		var malformed []string
		require.Equal(t, tt.text, out.V.text("v", tt.numbers, &malformed), tt.in)
		if tt.rejected {
			require.Equal(t, []string{"v"}, malformed, tt.in)
		} else {
			require.Empty(t, malformed, tt.in)
		}
	}
}
