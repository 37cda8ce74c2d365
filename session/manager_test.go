package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"library-client/api"
	"library-client/internal/apitest"
	"library-client/library"
	"library-client/store"
)

func tempStore(t *testing.T) *store.Database {
	t.Helper()
	db, err := store.NewDatabase(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// unsignedToken builds a JWT-shaped token with the given claims and no signature.
func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return tok
}

// rawToken joins header and claims into a token with a junk signature.
func rawToken(t *testing.T, header string, claims jwt.MapClaims) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString(payload) + ".sig"
}

// storedKeys reports which session keys are present in db.
func storedKeys(t *testing.T, db *store.Database) []string {
	t.Helper()
	var keys []string
	for _, k := range []string{store.KeyToken, store.KeyUser} {
		_, ok, err := db.GetItem(k)
		require.NoError(t, err)
		if ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func newLoggedOutManager(t *testing.T, opts ...Option) (*Manager, *store.Database, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	db := tempStore(t)
	client := api.NewClient(srv.URL, nil)
	m := NewManager(db, client, opts...)
	client.SetTokenSource(m)
	return m, db, srv
}

func TestLoginPersistsSession(t *testing.T) {
	m, db, srv := newLoggedOutManager(t)
	srv.AddUser("alice", "alice@x.com", "pw", library.RoleLibrarian)

	res := m.Login(context.Background(), library.Credentials{Username: "alice", Password: "pw"})
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Error)

	s, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, library.RoleLibrarian, m.Role())
	assert.True(t, m.IsLibrarian())
	assert.False(t, m.IsAdmin())

	token, ok, err := db.GetItem(store.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.Token, token)

	raw, ok, err := db.GetItem(store.KeyUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"username":"alice"`)
	assert.Contains(t, raw, `"type":"Bearer"`, "unknown fields are kept")
	require.NotNil(t, s.User.LastLogin, "zone-less lastLogin from the API decodes")
	assert.WithinDuration(t, time.Now(), s.User.LastLogin.Time, time.Minute)
}

func TestFailedLoginLeavesStateUntouched(t *testing.T) {
	m, db, srv := newLoggedOutManager(t)
	srv.AddUser("alice", "alice@x.com", "pw", library.RoleUser)

	require.True(t, m.Login(context.Background(), library.Credentials{Username: "alice", Password: "pw"}).Success)
	before, _ := m.Current()

	res := m.Login(context.Background(), library.Credentials{Username: "alice", Password: "wrong"})
	assert.False(t, res.Success)
	assert.Equal(t, "Login failed", res.Error)

	after, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, before.Token, after.Token)
	token, _, _ := db.GetItem(store.KeyToken)
	assert.Equal(t, before.Token, token)
}

func TestFailedLoginFromSignedOut(t *testing.T) {
	m, db, _ := newLoggedOutManager(t)

	res := m.Login(context.Background(), library.Credentials{Username: "ghost", Password: "x"})
	assert.Equal(t, Result{Error: "Login failed"}, res)
	assert.False(t, m.IsAuthenticated())

	assert.Empty(t, storedKeys(t, db))
}

func TestTransportFailureKeepsMessage(t *testing.T) {
	db := tempStore(t)
	client := api.NewClient("http://127.0.0.1:1", nil)
	m := NewManager(db, client)

	res := m.Login(context.Background(), library.Credentials{Username: "a", Password: "b"})
	assert.False(t, res.Success)
	assert.NotEqual(t, "Login failed", res.Error)
	assert.Contains(t, res.Error, api.ErrTransport.Error())
}

func TestRegister(t *testing.T) {
	m, _, _ := newLoggedOutManager(t)
	ctx := context.Background()

	res := m.Register(ctx, library.Registration{Username: "bob", Email: "bob@x.com", Password: "pw"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, library.RoleUser, m.Role())

	m.Logout()
	res = m.Register(ctx, library.Registration{Username: "bob", Email: "bob@x.com", Password: "pw"})
	assert.Equal(t, Result{Error: "Registration failed"}, res)
	assert.False(t, m.IsAuthenticated())
}

func TestLogoutIsIdempotent(t *testing.T) {
	m, db, srv := newLoggedOutManager(t)
	srv.AddUser("alice", "alice@x.com", "pw", library.RoleAdmin)
	require.True(t, m.Login(context.Background(), library.Credentials{Username: "alice", Password: "pw"}).Success)

	m.Logout()
	m.Logout()

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, library.Role(""), m.Role())
	assert.False(t, m.IsAdmin())
	assert.Empty(t, storedKeys(t, db))
}

func TestRestore(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	profile := `{"username":"alice","email":"a@x.com","role":"ADMIN","active":true,"type":"Bearer","lastLogin":"2024-05-01T10:30:00"}`
	lastLogin := time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local)

	tests := []struct {
		name     string
		items    map[string]string
		restored bool
	}{
		{
			name: "valid token",
			items: map[string]string{
				store.KeyToken: unsignedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}),
				store.KeyUser:  profile,
			},
			restored: true,
		},
		{
			name: "unregistered header alg",
			items: map[string]string{
				store.KeyToken: rawToken(t, `{"alg":"XYZ","typ":"JWT"}`, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}),
				store.KeyUser:  profile,
			},
			restored: true,
		},
		{
			name: "expired token",
			items: map[string]string{
				store.KeyToken: unsignedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}),
				store.KeyUser:  profile,
			},
		},
		{
			name: "expires exactly now",
			items: map[string]string{
				store.KeyToken: unsignedToken(t, jwt.MapClaims{"exp": now.Unix()}),
				store.KeyUser:  profile,
			},
		},
		{
			name: "no exp claim",
			items: map[string]string{
				store.KeyToken: unsignedToken(t, jwt.MapClaims{"sub": "alice"}),
				store.KeyUser:  profile,
			},
		},
		{
			name:  "malformed token",
			items: map[string]string{store.KeyToken: "not-a-jwt", store.KeyUser: profile},
		},
		{
			name:  "undecodable payload",
			items: map[string]string{store.KeyToken: "aaa.%%%.ccc", store.KeyUser: profile},
		},
		{
			name: "token without profile",
			items: map[string]string{
				store.KeyToken: unsignedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}),
			},
		},
		{
			name: "malformed profile",
			items: map[string]string{
				store.KeyToken: unsignedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}),
				store.KeyUser:  "{",
			},
		},
		{
			name:  "profile without token",
			items: map[string]string{store.KeyUser: profile},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := tempStore(t)
			require.NoError(t, db.SetItems(tt.items))

			m := NewManager(db, nil, WithClock(func() time.Time { return now }))
			assert.Equal(t, tt.restored, m.Restore(context.Background()))
			assert.Equal(t, tt.restored, m.IsAuthenticated())

			keys := storedKeys(t, db)
			if tt.restored {
				assert.ElementsMatch(t, []string{store.KeyToken, store.KeyUser}, keys)
				s, _ := m.Current()
				assert.Equal(t, "alice", s.User.Username)
				assert.True(t, m.IsAdmin())
				assert.False(t, m.IsSuperAdmin())
				assert.JSONEq(t, profile, string(s.User.Raw))
				require.NotNil(t, s.User.LastLogin)
				assert.True(t, lastLogin.Equal(s.User.LastLogin.Time), s.User.LastLogin)
			} else {
				assert.Empty(t, keys, "implicit logout clears both keys")
			}
		})
	}
}

func TestRestoreEmptyStore(t *testing.T) {
	m := NewManager(tempStore(t), nil)
	assert.False(t, m.Restore(context.Background()))
	assert.False(t, m.IsAuthenticated())
}

func TestTokenReadsStorage(t *testing.T) {
	db := tempStore(t)
	m := NewManager(db, nil)

	_, ok := m.Token(context.Background())
	assert.False(t, ok)

	require.NoError(t, db.SetItems(map[string]string{store.KeyToken: "abc"}))
	tok, ok := m.Token(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "abc", tok, "no expiry check unless revalidation is on")
}

func TestTokenRevalidatesExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	db := tempStore(t)
	require.NoError(t, db.SetItems(map[string]string{
		store.KeyToken: unsignedToken(t, jwt.MapClaims{"exp": now.Add(time.Minute).Unix()}),
		store.KeyUser:  `{"username":"alice","role":"USER"}`,
	}))

	m := NewManager(db, nil,
		WithClock(func() time.Time { return clock }),
		WithRevalidateExpiry(true),
	)
	require.True(t, m.Restore(context.Background()))

	_, ok := m.Token(context.Background())
	assert.True(t, ok)

	clock = now.Add(2 * time.Minute)
	_, ok = m.Token(context.Background())
	assert.False(t, ok)
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, storedKeys(t, db))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1_700_000_000, 0)
	got, err := TokenExpiry(unsignedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = TokenExpiry(unsignedToken(t, jwt.MapClaims{}))
	assert.ErrorIs(t, err, ErrNoExpiry)

	// Signature is never checked.
	signed := apitest.Token("alice", library.RoleUser, time.Hour)
	_, err = TokenExpiry(signed)
	assert.NoError(t, err)

	got, err = TokenExpiry(rawToken(t, `{"alg":"XYZ"}`, jwt.MapClaims{"exp": exp.Unix()}))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got), "header is ignored")

	_, err = TokenExpiry("only-one-segment")
	assert.Error(t, err)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetItem(key string) (string, bool, error) {
	args := m.Called(key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStorage) SetItems(items map[string]string) error {
	return m.Called(items).Error(0)
}

func (m *mockStorage) RemoveItems(keys ...string) error {
	return m.Called(keys).Error(0)
}

func TestRestoreStorageError(t *testing.T) {
	st := new(mockStorage)
	st.On("GetItem", store.KeyToken).Return("", false, errors.New("disk gone"))
	st.On("RemoveItems", []string{store.KeyToken, store.KeyUser}).Return(nil)

	m := NewManager(st, nil)
	assert.False(t, m.Restore(context.Background()))
	st.AssertExpectations(t)
}

func TestLoginPersistFailure(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("alice", "a@x.com", "pw", library.RoleUser)

	st := new(mockStorage)
	st.On("SetItems", mock.Anything).Return(errors.New("read-only"))

	m := NewManager(st, api.NewClient(srv.URL, nil))
	res := m.Login(context.Background(), library.Credentials{Username: "alice", Password: "pw"})
	assert.False(t, res.Success)
	assert.Equal(t, "read-only", res.Error)
	assert.False(t, m.IsAuthenticated())
	st.AssertExpectations(t)
}
