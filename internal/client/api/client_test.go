package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kodasoftware/example-api/internal/client/session"
	"github.com/kodasoftware/example-api/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// fakeAPI mimics the server's cookie and token behaviour.
type fakeAPI struct {
	mu         sync.Mutex
	access     string
	refresh    string
	generation int
	refreshes  int
}

func (f *fakeAPI) setCookies(w http.ResponseWriter) {
	for name, v := range map[string]string{
		common.AccessTokenCookie:  f.access,
		common.RefreshTokenCookie: f.refresh,
	} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: v, Path: "/", MaxAge: 60})
		http.SetCookie(w, &http.Cookie{Name: name + ".sig", Value: "sig-" + v, Path: "/", MaxAge: 60})
	}
}

func (f *fakeAPI) clearRefresh(w http.ResponseWriter) {
	for _, n := range []string{common.RefreshTokenCookie, common.RefreshTokenCookie + ".sig"} {
		http.SetCookie(w, &http.Cookie{Name: n, Value: "", Path: "/", MaxAge: -1})
	}
}

func (f *fakeAPI) rotate() {
	f.generation++
	f.access = "access-" + string(rune('0'+f.generation))
}

// expire invalidates the current access token without telling the client.
func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotate()
}

func (f *fakeAPI) validAccess(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return token != "" && token == f.access
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "alice@example.com" || body["password"] != "correct-password" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		f.mu.Lock()
		f.rotate()
		f.refresh = "refresh-1"
		f.setCookies(w)
		access := f.access
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, Token{AccessToken: access, Expiry: time.Now().Add(time.Minute)})
	})

	mux.HandleFunc("GET /auth", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshes++
		c, err := r.Cookie(common.RefreshTokenCookie)
		sig, sigErr := r.Cookie(common.RefreshTokenCookie + ".sig")
		if err != nil || sigErr != nil || c.Value != f.refresh || sig.Value != "sig-"+f.refresh {
			f.clearRefresh(w)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		f.rotate()
		f.setCookies(w)
		writeJSON(w, http.StatusOK, Token{AccessToken: f.access, Expiry: time.Now().Add(time.Minute)})
	})

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@example.com" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "user exists"})
			return
		}
		writeJSON(w, http.StatusCreated, User{ID: "u-1", Email: body["email"], Name: body["name"]})
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		if !f.validAccess(bearer(r)) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, User{ID: "u-1", Email: "alice@example.com", Name: "Alice"})
	})

	mux.HandleFunc("DELETE /accounts", func(w http.ResponseWriter, r *http.Request) {
		if !f.validAccess(bearer(r)) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	return ""
}

func newTestStore(t *testing.T) *session.SQLiteStore {
	t.Helper()
	db, err := session.Open(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return session.NewSQLiteStore(db)
}

func newTestClient(t *testing.T) (*Client, *fakeAPI, *session.SQLiteStore) {
	t.Helper()
	f := &fakeAPI{}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	store := newTestStore(t)
	c, err := New(srv.URL+"/", "", store, 5*time.Second)
	require.NoError(t, err)
	return c, f, store
}

func TestLogin_StoresCookies(t *testing.T) {
	ctx := context.Background()
	c, _, store := newTestClient(t)

	tok, err := c.Login(ctx, "alice@example.com", "correct-password")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)

	for name, want := range map[string]string{
		common.AccessTokenCookie:         "access-1",
		common.AccessTokenCookie + ".sig": "sig-access-1",
		common.RefreshTokenCookie:        "refresh-1",
	} {
		v, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, v, name)
	}

	u, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestLogin_BadCredentials(t *testing.T) {
	c, _, _ := newTestClient(t)

	_, err := c.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestRegister_Conflict(t *testing.T) {
	c, _, _ := newTestClient(t)

	u, err := c.Register(context.Background(), "bob@example.com", "long-enough-pw", "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)

	_, err = c.Register(context.Background(), "taken@example.com", "long-enough-pw", "Bob")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestCall_RefreshesExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	c, f, store := newTestClient(t)

	_, err := c.Login(ctx, "alice@example.com", "correct-password")
	require.NoError(t, err)
	f.expire()

	u, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, 1, f.refreshes)

	v, err := store.Get(ctx, common.AccessTokenCookie)
	require.NoError(t, err)
	assert.Equal(t, "access-3", v)

	require.NoError(t, c.DeleteAccount(ctx))
}

func TestCall_RejectedRefreshClearsSession(t *testing.T) {
	ctx := context.Background()
	c, f, store := newTestClient(t)

	_, err := c.Login(ctx, "alice@example.com", "correct-password")
	require.NoError(t, err)

	f.mu.Lock()
	f.refresh = "revoked"
	f.rotate()
	f.mu.Unlock()

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	for _, name := range sessionCookies {
		v, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, v, name)
	}
}

func TestMe_WithoutSession(t *testing.T) {
	c, f, _ := newTestClient(t)

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, f.refreshes)
}

func TestLogout_ClearsSession(t *testing.T) {
	ctx := context.Background()
	c, _, store := newTestClient(t)

	_, err := c.Login(ctx, "alice@example.com", "correct-password")
	require.NoError(t, err)
	require.NoError(t, c.Logout(ctx))

	v, err := store.Get(ctx, common.AccessTokenCookie)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestServerDown(t *testing.T) {
	store := newTestStore(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, "", store, time.Second)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "alice@example.com", "correct-password")
	assert.ErrorIs(t, err, ErrUnavailable)
}

// startIdentityServer serves WhoAmI over bufconn, accepting only the fake's
// current access token.
func startIdentityServer(t *testing.T, f *fakeAPI) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ interface{}, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		if method != common.WhoAmIMethod {
			return status.Error(codes.Unimplemented, method)
		}
		if err := stream.RecvMsg(&emptypb.Empty{}); err != nil {
			return err
		}
		md, _ := metadata.FromIncomingContext(stream.Context())
		vals := md.Get(common.AccessTokenHeaderName)
		if len(vals) == 0 || !f.validAccess(vals[0]) {
			return status.Error(codes.Unauthenticated, "invalid token")
		}
		out, err := structpb.NewStruct(map[string]any{"id": "u-1", "email": "alice@example.com"})
		if err != nil {
			return err
		}
		return stream.SendMsg(out)
	}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis
}

func attachIdentity(t *testing.T, c *Client, lis *bufconn.Listener) {
	t.Helper()
	ic, err := newIdentityClient("passthrough:///bufnet", c,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	c.grpc = ic
	t.Cleanup(func() { _ = c.Close() })
}

func TestWhoAmI_RefreshesOnUnauthenticated(t *testing.T) {
	ctx := context.Background()
	c, f, _ := newTestClient(t)
	attachIdentity(t, c, startIdentityServer(t, f))

	_, err := c.Login(ctx, "alice@example.com", "correct-password")
	require.NoError(t, err)

	id, err := c.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", id["email"])
	assert.Equal(t, 0, f.refreshes)

	f.expire()
	id, err = c.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id["id"])
	assert.Equal(t, 1, f.refreshes)
}

func TestWhoAmI_Unauthenticated(t *testing.T) {
	c, f, _ := newTestClient(t)
	attachIdentity(t, c, startIdentityServer(t, f))

	_, err := c.WhoAmI(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestWhoAmI_NotConfigured(t *testing.T) {
	c, _, _ := newTestClient(t)

	_, err := c.WhoAmI(context.Background())
	assert.Error(t, err)
}
