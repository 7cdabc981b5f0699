package session

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkadyv/reqforge/packages/auth"
	"github.com/arkadyv/reqforge/packages/core/config"
	"github.com/arkadyv/reqforge/packages/descriptor"
	"github.com/arkadyv/reqforge/packages/http"
	"github.com/arkadyv/reqforge/packages/output"
	"github.com/arkadyv/reqforge/packages/store"
	"github.com/arkadyv/reqforge/packages/template"
)

func newTestSession(t *testing.T) (*Session, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	sess := New(config.Default(), st, "test",
		WithFormatter(output.NewFormatter(output.WithNoColor(true))))
	return sess, st
}

func TestSession_Run_Execute(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	sess, st := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", server.URL),
		Format:     output.FormatAuto,
		Execute:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 200, result.Response.StatusCode)
	assert.Contains(t, result.Output, "hello")

	entries, err := st.History(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, server.URL, entries[0].URL)
}

func TestSession_Run_ResolvesFromEnvironment(t *testing.T) {
	var sawPath, sawAuth string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sawPath = r.URL.Path
		sawAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	sess, st := newTestSession(t)
	require.NoError(t, st.SaveEnvironment("prod", map[string]string{
		"base_url": server.URL,
		"user_id":  "42",
		"token":    "tok-prod",
	}))

	d := descriptor.New("GET", "{{base_url}}/users/{{user_id}}")
	d.SetAuth(&auth.Spec{Kind: auth.KindBearer, Token: "{{token}}"})

	result, err := sess.Run(context.Background(), Operation{
		Descriptor:  d,
		Environment: "prod",
		Format:      output.FormatAuto,
		Execute:     true,
	})

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "/users/42", sawPath)
	assert.Equal(t, "Bearer tok-prod", sawAuth)
	// the input keeps its template form
	assert.Equal(t, "{{base_url}}/users/{{user_id}}", d.URL)
}

func TestSession_Run_OverridesBeatEnvironment(t *testing.T) {
	var sawPath string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sawPath = r.URL.Path
	}))
	defer server.Close()

	sess, st := newTestSession(t)
	require.NoError(t, st.SaveEnvironment("prod", map[string]string{"id": "1"}))

	_, err := sess.Run(context.Background(), Operation{
		Descriptor:  descriptor.New("GET", server.URL+"/items/{{id}}"),
		Environment: "prod",
		Overrides:   map[string]string{"id": "99"},
		Format:      output.FormatAuto,
		Execute:     true,
	})

	require.NoError(t, err)
	assert.Equal(t, "/items/99", sawPath)
}

func TestSession_Run_UnresolvedFailsBeforeNetwork(t *testing.T) {
	sess, st := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", "https://example.com/{{never_defined_anywhere}}"),
		Format:     output.FormatAuto,
		Execute:    true,
	})

	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	var resErr *template.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "never_defined_anywhere", resErr.Name)

	entries, err := st.History(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSession_Run_MissingExplicitEnvironmentFails(t *testing.T) {
	sess, _ := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		Descriptor:  descriptor.New("GET", "https://example.com"),
		Environment: "never-created",
		Format:      output.FormatAuto,
		Execute:     true,
	})

	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.True(t, store.IsNotFound(err))
}

func TestSession_Run_MissingDefaultEnvironmentTolerated(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	defer server.Close()

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	cfg := config.Default()
	cfg.DefaultEnvironment = "never-created"
	sess := New(cfg, st, "test",
		WithFormatter(output.NewFormatter(output.WithNoColor(true))))

	result, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", server.URL),
		Format:     output.FormatAuto,
		Execute:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
}

func TestSession_Run_SaveOnly(t *testing.T) {
	sess, st := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", "{{base_url}}/users"),
		SaveName:   "list-users",
		Collection: "users",
		Execute:    false,
	})

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Saved)
	assert.Nil(t, result.Response)

	saved, err := st.GetRequest("list-users")
	require.NoError(t, err)
	assert.Equal(t, "{{base_url}}/users", saved.Descriptor.URL)
	assert.Equal(t, "users", saved.Collection)

	entries, err := st.History(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSession_Run_SaveOnlyRequiresName(t *testing.T) {
	sess, _ := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", "https://example.com"),
		Execute:    false,
	})

	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
}

func TestSession_Run_LoadAndExecute(t *testing.T) {
	var sawPath string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sawPath = r.URL.Path
	}))
	defer server.Close()

	sess, st := newTestSession(t)
	_, err := st.SaveRequest("ping", "", descriptor.New("GET", server.URL+"/ping"))
	require.NoError(t, err)

	result, err := sess.Run(context.Background(), Operation{
		LoadName: "ping",
		Format:   output.FormatAuto,
		Execute:  true,
	})

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "/ping", sawPath)

	// replay stamps recency
	saved, err := st.GetRequest("ping")
	require.NoError(t, err)
	assert.False(t, saved.LastUsedAt.IsZero())
}

func TestSession_Run_LoadUnknownName(t *testing.T) {
	sess, _ := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		LoadName: "missing",
		Execute:  true,
	})

	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.True(t, store.IsNotFound(err))
}

func TestSession_Run_ExecuteAndSaveStoresTemplateForm(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	defer server.Close()

	sess, st := newTestSession(t)
	require.NoError(t, st.SaveEnvironment("dev", map[string]string{"base_url": server.URL}))

	result, err := sess.Run(context.Background(), Operation{
		Descriptor:  descriptor.New("GET", "{{base_url}}/users"),
		Environment: "dev",
		SaveName:    "list-users",
		Format:      output.FormatAuto,
		Execute:     true,
	})

	require.NoError(t, err)
	require.NotNil(t, result.Saved)

	saved, err := st.GetRequest("list-users")
	require.NoError(t, err)
	// the stored snapshot is pre-resolution
	assert.Equal(t, "{{base_url}}/users", saved.Descriptor.URL)
}

func TestSession_Run_CaptureChainsIntoNextRequest(t *testing.T) {
	var sawSession string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.URL.Path {
		case "/login":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"tok-abc","user":{"id":7}}`))
		case "/orders":
			sawSession = r.Header.Get("X-Session")
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	sess, _ := newTestSession(t)

	first, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("POST", server.URL+"/login"),
		CaptureAs:  "login",
		Format:     output.FormatAuto,
		Execute:    true,
	})
	require.NoError(t, err)
	assert.True(t, first.CaptureSet)

	second, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", server.URL+"/orders").
			SetHeader("X-Session", "{{login.token}}").
			SetHeader("X-User", "{{login.user.id}}"),
		Format:  output.FormatAuto,
		Execute: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, second.State)
	assert.Equal(t, "tok-abc", sawSession)
}

func TestSession_Run_TransportFailureLandsInHistory(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	url := server.URL
	server.Close()

	sess, st := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", url),
		Format:     output.FormatAuto,
		Execute:    true,
	})

	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	var clientErr *http.Error
	require.ErrorAs(t, err, &clientErr)

	entries, err := st.History(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, 0, entries[0].Status)
}

func TestSession_Run_NoHistory(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	defer server.Close()

	sess, st := newTestSession(t)

	_, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", server.URL),
		Format:     output.FormatAuto,
		Execute:    true,
		NoHistory:  true,
	})
	require.NoError(t, err)

	entries, err := st.History(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSession_Run_MaskedOutputUnmaskedResponse(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-123456"}`))
	}))
	defer server.Close()

	sess, _ := newTestSession(t)

	result, err := sess.Run(context.Background(), Operation{
		Descriptor: descriptor.New("GET", server.URL),
		Format:     output.FormatJSON,
		Execute:    true,
	})

	require.NoError(t, err)
	assert.NotContains(t, result.Output, "tok-123456")
	assert.Contains(t, result.Output, "to****56")
	// the raw record keeps the real value for chaining
	assert.Contains(t, result.Response.BodyString(), "tok-123456")
}
