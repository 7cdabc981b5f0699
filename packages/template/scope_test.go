package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_Resolve(t *testing.T) {
	scope := NewScope(NewMapLayer("environment", map[string]string{
		"base_url": "https://api.example.com",
		"id":       "42",
	}))

	resolved, err := scope.Resolve("{{base_url}}/users/{{id}}")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/users/42", resolved)
}

func TestScope_Resolve_NoPlaceholdersIsIdentity(t *testing.T) {
	scope := NewScope()

	resolved, err := scope.Resolve("https://example.com/{literal}")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/{literal}", resolved)
}

func TestScope_Resolve_UnresolvedNamesVariable(t *testing.T) {
	scope := NewScope(NewMapLayer("environment", map[string]string{"a": "1"}))

	_, err := scope.Resolve("{{a}}/{{missing}}")
	require.Error(t, err)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "missing", resErr.Name)
}

func TestScope_Resolve_SubstitutionIsVerbatim(t *testing.T) {
	scope := NewScope(NewMapLayer("overrides", map[string]string{
		"outer": "{{inner}}",
		"inner": "should never appear",
	}))

	resolved, err := scope.Resolve("{{outer}}")
	require.NoError(t, err)
	assert.Equal(t, "{{inner}}", resolved)
}

func TestScope_LayerPriority(t *testing.T) {
	scope := NewScope(
		NewMapLayer("overrides", map[string]string{"env": "override"}),
		NewMapLayer("environment", map[string]string{"env": "saved", "other": "fallback"}),
	)

	value, ok := scope.Lookup("env")
	require.True(t, ok)
	assert.Equal(t, "override", value)

	value, ok = scope.Lookup("other")
	require.True(t, ok)
	assert.Equal(t, "fallback", value)
}

func TestScope_Push(t *testing.T) {
	scope := NewScope(NewMapLayer("environment", map[string]string{"k": "low"}))
	scope.Push(NewMapLayer("overrides", map[string]string{"k": "high"}))

	value, _ := scope.Lookup("k")
	assert.Equal(t, "high", value)
}

func TestEnvLayer_UppercaseFallback(t *testing.T) {
	t.Setenv("REQFORGE_TEST_TOKEN", "from-env")

	layer := EnvLayer{}
	value, ok := layer.Lookup("reqforge_test_token")
	require.True(t, ok)
	assert.Equal(t, "from-env", value)
}
