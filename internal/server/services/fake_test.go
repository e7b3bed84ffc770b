package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/dbx"
	"github.com/kodasoftware/example-api/internal/logging"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/kodasoftware/example-api/internal/server/models"
	"github.com/kodasoftware/example-api/internal/server/repositories/accounts"
	"github.com/kodasoftware/example-api/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// memState is one snapshot of the whole store.
type memState struct {
	users    map[string]models.User
	accounts map[string]models.Account
	links    map[string]string // user id -> account id
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[string]models.User, len(s.users)),
		accounts: make(map[string]models.Account, len(s.accounts)),
		links:    make(map[string]string, len(s.links)),
	}
	for k, v := range s.users {
		if v.AccountID != nil {
			id := *v.AccountID
			v.AccountID = &id
		}
		c.users[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	return c
}

// memDB is a serializable in-memory database. WithTx works on a private copy
// and publishes it only when the callback succeeds.
type memDB struct {
	mu    sync.Mutex
	state *memState

	// Injected failures, consulted inside transactions.
	linkErr       error
	userUpdateErr error
}

func newMemDB() *memDB {
	return &memDB{state: &memState{
		users:    map[string]models.User{},
		accounts: map[string]models.Account{},
		links:    map[string]string{},
	}}
}

func (db *memDB) Conn() dbx.DBTX { return &memTx{db: db} }

func (db *memDB) WithTx(ctx context.Context, fn dbx.TxFunc) (err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	work := db.state.clone()
	defer func() {
		if p := recover(); p != nil {
			panic(p)
		}
		if err == nil {
			db.state = work
		}
	}()

	return fn(ctx, &memTx{db: db, st: work})
}

// snapshot returns a copy of the committed state.
func (db *memDB) snapshot() *memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

func (db *memDB) seedUser(t *testing.T, email, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := models.User{ID: uuid.NewString(), Email: email, Password: string(hash), Name: "Test"}
	db.mu.Lock()
	db.state.users[u.ID] = u
	db.mu.Unlock()
	return u
}

// memTx is the DBTX handed to the fake repositories. st is nil for
// non-transactional reads.
type memTx struct {
	db *memDB
	st *memState
}

var errNoSQL = errors.New("memTx does not execute SQL")

func (t *memTx) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, errNoSQL }
func (t *memTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) { return nil, errNoSQL }
func (t *memTx) QueryRowContext(context.Context, string, ...any) *sql.Row        { return nil }

func (t *memTx) view(fn func(st *memState)) {
	if t.st != nil {
		fn(t.st)
		return
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	fn(t.db.state)
}

type memUsers struct{ tx *memTx }

func (r *memUsers) get(id string) (*models.User, error) {
	var out *models.User
	r.tx.view(func(st *memState) {
		if u, ok := st.users[id]; ok {
			out = &u
		}
	})
	if out == nil {
		return nil, common.ErrorNotFound
	}
	return out, nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) { return r.get(id) }
func (r *memUsers) GetByIDForUpdate(_ context.Context, id string) (*models.User, error) {
	return r.get(id)
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var out *models.User
	r.tx.view(func(st *memState) {
		for _, u := range st.users {
			if u.Email != email {
				continue
			}
			if out == nil || (out.Deleted && !u.Deleted) {
				u := u
				out = &u
			}
		}
	})
	if out == nil {
		return nil, common.ErrorNotFound
	}
	return out, nil
}

func (r *memUsers) save(u *models.User) (*models.User, error) {
	if r.tx.db.userUpdateErr != nil {
		return nil, r.tx.db.userUpdateErr
	}
	u.UpdatedAt = time.Now()
	r.tx.view(func(st *memState) { st.users[u.ID] = *u })
	return u, nil
}

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	return r.save(u)
}

func (r *memUsers) Update(_ context.Context, u *models.User) (*models.User, error) { return r.save(u) }

func (r *memUsers) Delete(_ context.Context, u *models.User) (*models.User, error) {
	u.Deleted = true
	return r.save(u)
}

type memAccounts struct{ tx *memTx }

func (r *memAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	var out *models.Account
	r.tx.view(func(st *memState) {
		if a, ok := st.accounts[id]; ok {
			out = &a
		}
	})
	if out == nil {
		return nil, common.ErrorNotFound
	}
	return out, nil
}

func (r *memAccounts) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	var accountID string
	r.tx.view(func(st *memState) { accountID = st.links[userID] })
	if accountID == "" {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, accountID)
}

func (r *memAccounts) save(a *models.Account) (*models.Account, error) {
	a.UpdatedAt = time.Now()
	r.tx.view(func(st *memState) { st.accounts[a.ID] = *a })
	return a, nil
}

func (r *memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	return r.save(a)
}

func (r *memAccounts) Update(_ context.Context, a *models.Account) (*models.Account, error) {
	return r.save(a)
}

func (r *memAccounts) Delete(_ context.Context, a *models.Account) (*models.Account, error) {
	a.Deleted = true
	return r.save(a)
}

func (r *memAccounts) Link(_ context.Context, userID, accountID string) error {
	if r.tx.db.linkErr != nil {
		return r.tx.db.linkErr
	}
	r.tx.view(func(st *memState) { st.links[userID] = accountID })
	return nil
}

type memRepoManager struct{}

func (memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (memRepoManager) Users(db dbx.DBTX) users.Repository            { return &memUsers{tx: db.(*memTx)} }
func (memRepoManager) Accounts(db dbx.DBTX) accounts.Repository {
	return &memAccounts{tx: db.(*memTx)}
}

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func newTestIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return auth.NewTokenIssuer(testKey, &testKey.PublicKey, 15*time.Minute, 24*time.Hour)
}

type fixture struct {
	db       *memDB
	auth     *AuthService
	users    *UserService
	accounts *AccountService
	tokens   *auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	tokens := newTestIssuer(t)
	log := logging.Nop()
	return &fixture{
		db:       db,
		auth:     NewAuthService(db, memRepoManager{}, hasher, tokens, nil, log),
		users:    NewUserService(db, memRepoManager{}, hasher, log),
		accounts: NewAccountService(db, memRepoManager{}, nil, log),
		tokens:   tokens,
	}
}

func identityOf(u models.User) auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email, Permissions: auth.DefaultPermissions()}
}
