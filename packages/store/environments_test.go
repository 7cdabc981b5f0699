package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndGetEnvironment(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SaveEnvironment("prod", map[string]string{
		"base_url": "https://api.example.com",
		"token":    "tok-prod",
	}))

	variables, err := st.GetEnvironment("prod")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", variables["base_url"])
	assert.Equal(t, "tok-prod", variables["token"])
}

func TestStore_GetEnvironment_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetEnvironment("staging")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_SetEnvironmentVariable(t *testing.T) {
	st := newTestStore(t)

	// setting a variable creates the environment
	require.NoError(t, st.SetEnvironmentVariable("dev", "base_url", "http://localhost:8080"))
	require.NoError(t, st.SetEnvironmentVariable("dev", "token", "tok-dev"))
	require.NoError(t, st.SetEnvironmentVariable("dev", "token", "tok-dev-2"))

	variables, err := st.GetEnvironment("dev")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", variables["base_url"])
	assert.Equal(t, "tok-dev-2", variables["token"])
}

func TestStore_ListEnvironments_Sorted(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SaveEnvironment("prod", nil))
	require.NoError(t, st.SaveEnvironment("dev", nil))
	require.NoError(t, st.SaveEnvironment("staging", nil))

	names, err := st.ListEnvironments()
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod", "staging"}, names)
}

func TestStore_DeleteEnvironment(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SaveEnvironment("dev", map[string]string{"k": "v"}))
	require.NoError(t, st.DeleteEnvironment("dev"))

	_, err := st.GetEnvironment("dev")
	assert.True(t, IsNotFound(err))

	err = st.DeleteEnvironment("dev")
	assert.True(t, IsNotFound(err))
}
