package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/backend/backendfake"
	"github.com/jrsteele09/portfolio-auth/gateway"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/jrsteele09/portfolio-auth/session"
	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/stretchr/testify/require"
)

type holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// recorder keeps the Authorization and request id headers the API saw
type recorder struct {
	mu           sync.Mutex
	auth         []string
	requestIDs   []string
	contentTypes []string
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	r.requestIDs = append(r.requestIDs, req.Header.Get(gateway.RequestIDHeader))
	r.contentTypes = append(r.contentTypes, req.Header.Get("Content-Type"))
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.contentTypes...)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.requestIDs...)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.auth...)
}

type fixture struct {
	be      *backendfake.FakeBackend
	store   *token.InMemoryStore
	manager *session.Manager
	gw      *gateway.Gateway
	rec     *recorder
}

// newFixture serves a small portfolio API that accepts the fake backend's
// access tokens.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		be:    backendfake.NewFakeBackend(),
		store: token.NewInMemoryStore(),
		rec:   &recorder{},
	}
	f.be.AddUser("alice", "alice@x.com", "pw123456")
	f.manager = session.NewManager(f.store, f.be)
	require.NoError(t, f.manager.Initialize(ctx))

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.rec.add(r)
			accessToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if _, err := f.be.GetCurrentUser(r.Context(), accessToken); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail":"Could not validate credentials"}`))
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/holdings", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]holding{{Symbol: "VWRL", Quantity: 12}})
	}))
	mux.HandleFunc("POST /api/v1/holdings", authed(func(w http.ResponseWriter, r *http.Request) {
		var h holding
		json.NewDecoder(r.Body).Decode(&h)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(h)
	}))
	mux.HandleFunc("GET /api/v1/always-401", func(w http.ResponseWriter, r *http.Request) {
		f.rec.add(r)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"nope"}`))
	})
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		f.rec.add(r)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/v1/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Holding not found","detail":"ignored"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f.gw = gateway.New(srv.URL+"/api/v1/", f.manager, gateway.WithHTTPClient(srv.Client()))
	return f
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.manager.SignIn(context.Background(), authmodel.SignInInput{Username: "alice", Password: "pw123456"}))
}

func TestAttachesBearerToken(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	holdings, err := gateway.ExecuteJSON[[]holding](context.Background(), f.gw, "/holdings", gateway.Request{})
	require.NoError(t, err)
	require.Equal(t, []holding{{Symbol: "VWRL", Quantity: 12}}, *holdings)
	require.Equal(t, []string{"Bearer A1"}, f.rec.seen())
	require.NoError(t, f.gw.LastError())
}

func TestPostsJSONBody(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, err := f.gw.Execute(context.Background(), "/holdings", gateway.Request{
		Method: http.MethodPost,
		Body:   holding{Symbol: "AAPL", Quantity: 3},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status)

	var h holding
	require.NoError(t, resp.Decode(&h))
	require.Equal(t, "AAPL", h.Symbol)

	_, err = f.gw.Execute(context.Background(), "/holdings", gateway.Request{})
	require.NoError(t, err)
	// only a request with a body declares a content type
	require.Equal(t, []string{"application/json", ""}, f.rec.types())
}

func TestSkipAuthSendsNoToken(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, err := f.gw.Execute(context.Background(), "/health", gateway.Request{SkipAuth: true})
	require.NoError(t, err)
	require.False(t, resp.IsJSON())
	require.Equal(t, "ok", resp.Text)
	require.Equal(t, []string{""}, f.rec.seen())
}

func TestSkipAuth401NotRetried(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, err := f.gw.Execute(context.Background(), "/always-401", gateway.Request{SkipAuth: true})
	require.Nil(t, resp)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Equal(t, "nope", apperrors.Message(err))
	require.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))

	require.Equal(t, []string{""}, f.rec.seen())
	require.Zero(t, f.be.Calls(backendfake.OpRefresh))
	require.True(t, f.manager.State().IsAuthenticated)
}

func TestRequestIDPerCall(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		_, err := f.gw.Execute(context.Background(), "/health", gateway.Request{})
		require.NoError(t, err)
	}
	ids := f.rec.ids()
	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])
	_, err := uuid.Parse(ids[0])
	require.NoError(t, err)
}

func TestRetriesOnceAfterRefresh(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.be.ExpireAccess("A1")

	holdings, err := gateway.ExecuteJSON[[]holding](context.Background(), f.gw, "/holdings", gateway.Request{})
	require.NoError(t, err)
	require.Len(t, *holdings, 1)

	require.Equal(t, []string{"Bearer A1", "Bearer A2"}, f.rec.seen())
	require.Equal(t, 1, f.be.Calls(backendfake.OpRefresh))
	ids := f.rec.ids()
	require.Equal(t, ids[0], ids[1])
	require.True(t, f.manager.State().IsAuthenticated)
}

func TestInvalidRefreshEndsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.be.ExpireAll()

	resp, err := f.gw.Execute(context.Background(), "/holdings", gateway.Request{})
	require.Nil(t, resp)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))
	require.Equal(t, "Could not validate credentials", apperrors.Message(err))
	require.Equal(t, err, f.gw.LastError())

	require.Len(t, f.rec.seen(), 1)
	require.False(t, f.manager.State().IsAuthenticated)
	_, ok := f.store.Access(context.Background())
	require.False(t, ok)
}

func TestSecondFailureSurfacesOriginalError(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	_, err := f.gw.Execute(context.Background(), "/always-401", gateway.Request{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Equal(t, "nope", apperrors.Message(err))

	require.Equal(t, []string{"Bearer A1", "Bearer A2"}, f.rec.seen())
	require.Equal(t, 1, f.be.Calls(backendfake.OpRefresh))
}

func TestAnonymous401NotRetried(t *testing.T) {
	f := newFixture(t)

	_, err := f.gw.Execute(context.Background(), "/always-401", gateway.Request{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Len(t, f.rec.seen(), 1)
	require.Zero(t, f.be.Calls(backendfake.OpRefresh))
}

func TestNon401ErrorNotRetried(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	_, err := f.gw.Execute(context.Background(), "/missing", gateway.Request{})
	require.ErrorIs(t, err, apperrors.ErrServer)
	require.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
	require.Equal(t, "Holding not found", apperrors.Message(err))
	require.Zero(t, f.be.Calls(backendfake.OpRefresh))

	var ae *apperrors.AuthError
	require.True(t, apperrors.As(err, &ae))
	require.Equal(t, map[string]any{"message": "Holding not found", "detail": "ignored"}, ae.Details)
}

func TestMissingTokenReloadsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	require.NoError(t, f.store.Clear(context.Background()))

	_, err := f.gw.Execute(context.Background(), "/holdings", gateway.Request{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Equal(t, []string{""}, f.rec.seen())
	require.False(t, f.manager.State().IsAuthenticated)
}

func TestNetworkFailure(t *testing.T) {
	f := newFixture(t)
	gw := gateway.New("http://127.0.0.1:1", f.manager)

	resp, err := gw.Execute(context.Background(), "/holdings", gateway.Request{})
	require.Nil(t, resp)
	require.ErrorIs(t, err, apperrors.ErrNetwork)
	require.Zero(t, apperrors.StatusOf(err))
	require.Error(t, gw.LastError())

	gw.Reset()
	require.NoError(t, gw.LastError())
}
