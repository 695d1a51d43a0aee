package backend

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/skeliit/skeli/backend/data"
	"github.com/stretchr/testify/require"
	log "gopkg.in/inconshreveable/log15.v2"
)

// fakeDB is an in-memory ConnProvider that understands only the statements the handlers issue.
type fakeDB struct {
	mu         sync.Mutex
	comments   map[int32]bool
	users      map[string]*data.User
	acquired   int
	released   int
	acquireErr error
	execErr    error
}

func newFakeDB(commentIDs ...int32) *fakeDB {
	db := &fakeDB{
		comments: make(map[int32]bool),
		users:    make(map[string]*data.User),
	}
	for _, id := range commentIDs {
		db.comments[id] = true
	}
	return db
}

func (db *fakeDB) Acquire(ctx context.Context) (data.Conn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.acquireErr != nil {
		return nil, db.acquireErr
	}
	db.acquired++
	return &fakeConn{db: db}, nil
}

func (db *fakeDB) commentIDs() []int32 {
	db.mu.Lock()
	defer db.mu.Unlock()

	ids := make([]int32, 0, len(db.comments))
	for id := range db.comments {
		ids = append(ids, id)
	}
	return ids
}

func (db *fakeDB) counts() (acquired, released int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.acquired, db.released
}

func (db *fakeDB) addUser(t testing.TB, id int32, name, password string, role Role) {
	user := &data.User{
		ID:   pgtype.Int4{Int32: id, Valid: true},
		Name: pgtype.Text{String: name, Valid: true},
		Role: pgtype.Text{String: string(role), Valid: true},
	}
	require.NoError(t, SetPassword(user, password))

	db.mu.Lock()
	db.users[name] = user
	db.mu.Unlock()
}

type fakeConn struct {
	db       *fakeDB
	released bool
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, fmt.Errorf("fakeConn: unsupported query: %s", sql)
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if strings.Contains(sql, "from users where name=$1") {
		user, ok := c.db.users[args[0].(string)]
		if !ok {
			return fakeUserRow{err: pgx.ErrNoRows}
		}
		return fakeUserRow{user: user}
	}

	return fakeUserRow{err: fmt.Errorf("fakeConn: unsupported query: %s", sql)}
}

func (c *fakeConn) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if c.db.execErr != nil {
		return pgconn.CommandTag{}, c.db.execErr
	}

	if sql != `delete from comments where id=$1` {
		return pgconn.CommandTag{}, fmt.Errorf("fakeConn: unsupported exec: %s", sql)
	}

	id := arguments[0].(int32)
	n := 0
	if c.db.comments[id] {
		delete(c.db.comments, id)
		n = 1
	}
	return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil
}

func (c *fakeConn) Release() {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if c.released {
		panic("fakeConn released twice")
	}
	c.released = true
	c.db.released++
}

type fakeUserRow struct {
	user *data.User
	err  error
}

func (r fakeUserRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*pgtype.Int4) = r.user.ID
	*dest[1].(*pgtype.Text) = r.user.Name
	*dest[2].(*pgtype.Text) = r.user.Role
	*dest[3].(*[]byte) = r.user.PasswordDigest
	*dest[4].(*[]byte) = r.user.PasswordSalt
	return nil
}

type fakeSessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*Principal
	lookupErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*Principal)}
}

func (s *fakeSessionStore) Create(ctx context.Context, p *Principal) ([]byte, error) {
	id, err := genSessionID()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[hex.EncodeToString(id)] = p
	return id, nil
}

func (s *fakeSessionStore) Principal(ctx context.Context, id []byte) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	p, ok := s.sessions[hex.EncodeToString(id)]
	if !ok {
		return nil, data.ErrNotFound
	}
	return p, nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, id []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(id)
	if _, ok := s.sessions[key]; !ok {
		return data.ErrNotFound
	}
	delete(s.sessions, key)
	return nil
}

func (s *fakeSessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// login returns a session id for a principal with role. An empty role yields no session.
func (s *fakeSessionStore) login(t testing.TB, role Role) []byte {
	if role == "" {
		return nil
	}
	id, err := s.Create(context.Background(), &Principal{UserID: 1, Name: "test", Role: role})
	require.NoError(t, err)
	return id
}

var errFakeDB = errors.New("fake database failure")

func testLogger() log.Logger {
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	return logger
}

var testSessionConfig = SessionConfig{
	Store:      "postgres",
	CookieName: "sessionId",
	Lifetime:   time.Hour,
}

func newTestServer(t testing.TB, db ConnProvider, sessions SessionStore) http.Handler {
	handler, err := NewAppServer(HTTPConfig{}, testSessionConfig, db, sessions, testLogger())
	require.NoError(t, err)
	return handler
}

func postForm(handler http.Handler, path string, form url.Values, sessionID []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sessionID != nil {
		req.AddCookie(&http.Cookie{Name: testSessionConfig.CookieName, Value: hex.EncodeToString(sessionID)})
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}
