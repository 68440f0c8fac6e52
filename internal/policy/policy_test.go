package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"plain", Plain},
		{"PLAIN", Plain},
		{"visibility_only", VisibilityOnly},
		{"visibility-only", VisibilityOnly},
		{"volatile", VisibilityOnly},
		{" atomic ", Atomic},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("mutex")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Contains(t, err.Error(), "mutex")
}

func TestString(t *testing.T) {
	assert.Equal(t, "plain", Plain.String())
	assert.Equal(t, "visibility_only", VisibilityOnly.String())
	assert.Equal(t, "atomic", Atomic.String())
	assert.Equal(t, "Policy(9)", Policy(9).String())
}

func TestAllAndNames(t *testing.T) {
	assert.Equal(t, []Policy{Plain, VisibilityOnly, Atomic}, All())
	assert.Equal(t, []string{"plain", "visibility_only", "atomic"}, Names())
}

func TestValid(t *testing.T) {
	for _, p := range All() {
		assert.True(t, p.Valid(), p.String())
	}
	assert.False(t, Policy(-1).Valid())
	assert.False(t, Policy(3).Valid())
}

func TestTextRoundTrip_JSON(t *testing.T) {
	type wrapper struct {
		Policy Policy `json:"policy"`
	}

	data, err := json.Marshal(wrapper{Policy: VisibilityOnly})
	require.NoError(t, err)
	assert.JSONEq(t, `{"policy":"visibility_only"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"policy":"volatile"}`), &w))
	assert.Equal(t, VisibilityOnly, w.Policy)
}

func TestTextUnmarshal_YAML(t *testing.T) {
	var w struct {
		Policy Policy `yaml:"policy"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("policy: atomic\n"), &w))
	assert.Equal(t, Atomic, w.Policy)

	err := yaml.Unmarshal([]byte("policy: sometimes\n"), &w)
	require.Error(t, err)
}

func TestMarshalText_Invalid(t *testing.T) {
	_, err := Policy(7).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestFlagValue(t *testing.T) {
	var p Policy
	require.NoError(t, p.Set("atomic"))
	assert.Equal(t, Atomic, p)
	assert.Equal(t, "policy", p.Type())
	assert.Error(t, p.Set("nope"))
	assert.Equal(t, Atomic, p, "failed Set must not change the value")
}
