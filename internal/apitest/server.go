// Package apitest runs an in-memory stand-in for the library REST API so the
// client packages can be tested end to end over real HTTP.
package apitest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"library-client/library"
)

// Secret signs every token the server issues.
const Secret = "apitest-secret-key-that-is-at-least-32-chars"

// Request is what the server saw for one call.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type account struct {
	user         library.User
	passwordHash []byte
}

// Server is a fake library API. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[int64]*account
	books     map[int64]library.Book
	nextUser  int64
	nextBook  int64
	requests  []Request
	failures  map[string]int
	tokenTTL  time.Duration
	now       func() time.Time
	regsToday int64
}

// New starts a server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[int64]*account),
		books:    make(map[int64]library.Book),
		failures: make(map[string]int),
		tokenTTL: time.Hour,
		now:      time.Now,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("GET /books", s.authed(nil, s.handleListBooks))
	mux.HandleFunc("POST /books", s.authed(library.Role.IsLibrarian, s.handleCreateBook))
	mux.HandleFunc("PUT /books/{id}", s.authed(library.Role.IsLibrarian, s.handleUpdateBook))
	mux.HandleFunc("DELETE /books/{id}", s.authed(library.Role.IsLibrarian, s.handleDeleteBook))
	mux.HandleFunc("GET /admin/users", s.authed(library.Role.IsAdmin, s.handleListUsers))
	mux.HandleFunc("PUT /admin/users/{id}/role", s.authed(library.Role.IsSuperAdmin, s.handleChangeRole))
	mux.HandleFunc("PUT /admin/users/{id}/status", s.authed(library.Role.IsAdmin, s.handleSetStatus))
	mux.HandleFunc("GET /admin/stats", s.authed(library.Role.IsAdmin, s.handleStats))

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// AddUser seeds an account and returns its id.
func (s *Server) AddUser(username, email, password string, role library.Role) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	id := s.nextUser
	s.accounts[id] = &account{
		user:         library.User{ID: id, Username: username, Email: email, Role: role, Active: true},
		passwordHash: hash,
	}
	return id
}

// AddBook seeds a book and returns its id.
func (s *Server) AddBook(title, author string, year int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBook++
	s.books[s.nextBook] = library.Book{ID: s.nextBook, Title: title, Author: author, Year: year}
	return s.nextBook
}

// Books returns the current catalog ordered by id.
func (s *Server) Books() []library.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedBooks()
}

// User returns the account with id.
func (s *Server) User(id int64) (library.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return library.User{}, false
	}
	return a.user, true
}

// FailNext makes the next request to "METHOD /path" answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// SetTokenTTL changes the lifetime of tokens issued from now on; a negative
// value issues already-expired tokens.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Token signs a token for username with role, valid for ttl.
func Token(username string, role library.Role, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  username,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(Secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		key := r.Method + " " + r.URL.Path
		status, fail := s.failures[key]
		if fail {
			delete(s.failures, key)
		}
		s.mu.Unlock()

		if fail {
			writeJSON(w, status, map[string]string{"error": "forced failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handlerWithUser func(w http.ResponseWriter, r *http.Request, caller library.User)

func (s *Server) authed(allowed func(library.Role) bool, next handlerWithUser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if header == "" || tokenString == header {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(Secret), nil
		})
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		username, _ := claims.GetSubject()

		caller, ok := s.userByName(username)
		if !ok || !caller.Active {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown or inactive user"})
			return
		}
		if allowed != nil && !allowed(caller.Role) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		next(w, r, caller)
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds library.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}

	s.mu.Lock()
	var (
		found *account
		hash  []byte
		user  library.User
	)
	for _, a := range s.accounts {
		if a.user.Username == creds.Username {
			found, hash, user = a, a.passwordHash, a.user
			break
		}
	}
	s.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(hash, []byte(creds.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
		return
	}
	if !user.Active {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "account disabled"})
		return
	}

	s.mu.Lock()
	found.user.LastLogin = &library.Timestamp{Time: s.now()}
	user = found.user
	ttl := s.tokenTTL
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, authReply(user, Token(user.Username, user.Role, ttl)))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg library.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Username == "" || reg.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	if _, exists := s.userByName(reg.Username); exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "user already exists"})
		return
	}

	id := s.AddUser(reg.Username, reg.Email, reg.Password, library.RoleUser)
	s.mu.Lock()
	s.regsToday++
	user := s.accounts[id].user
	ttl := s.tokenTTL
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, authReply(user, Token(user.Username, user.Role, ttl)))
}

func authReply(u library.User, token string) map[string]any {
	reply := map[string]any{
		"token":    token,
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
		"active":   u.Active,
		"type":     "Bearer",
	}
	if u.LastLogin != nil {
		// Spring sends LocalDateTime without a zone.
		reply["lastLogin"] = u.LastLogin.Local().Format(library.LocalDateTime)
	}
	return reply
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func (s *Server) handleListBooks(w http.ResponseWriter, _ *http.Request, _ library.User) {
	s.mu.Lock()
	books := s.sortedBooks()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, page(books))
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, _ library.User) {
	var in library.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	id := s.AddBook(in.Title, in.Author, in.Year)
	writeJSON(w, http.StatusCreated, library.Book{ID: id, Title: in.Title, Author: in.Author, Year: in.Year})
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, _ library.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in library.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
		return
	}
	s.mu.Lock()
	_, exists := s.books[id]
	book := library.Book{ID: id, Title: in.Title, Author: in.Author, Year: in.Year}
	if exists {
		s.books[id] = book
	}
	s.mu.Unlock()
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "book not found"})
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, _ library.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	_, exists := s.books[id]
	delete(s.books, id)
	s.mu.Unlock()
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "book not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request, _ library.User) {
	s.mu.Lock()
	users := make([]library.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		users = append(users, a.user)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writeJSON(w, http.StatusOK, page(users))
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request, _ library.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	role, err := library.ParseRole(r.URL.Query().Get("newRole"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.updateUser(w, id, func(u *library.User) { u.Role = role })
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request, _ library.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	active, err := strconv.ParseBool(r.URL.Query().Get("active"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "active must be true or false"})
		return
	}
	s.updateUser(w, id, func(u *library.User) { u.Active = active })
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request, _ library.User) {
	s.mu.Lock()
	stats := library.Stats{
		TotalUsers:         int64(len(s.accounts)),
		TotalBooks:         int64(len(s.books)),
		RegistrationsToday: s.regsToday,
	}
	for _, a := range s.accounts {
		if a.user.Active {
			stats.ActiveUsers++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) updateUser(w http.ResponseWriter, id int64, mutate func(*library.User)) {
	s.mu.Lock()
	a, ok := s.accounts[id]
	var user library.User
	if ok {
		mutate(&a.user)
		user = a.user
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) userByName(username string) (library.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Username == username {
			return a.user, true
		}
	}
	return library.User{}, false
}

// sortedBooks must be called with s.mu held.
func (s *Server) sortedBooks() []library.Book {
	books := make([]library.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

func page[T any](items []T) library.Page[T] {
	return library.Page[T]{
		Content:       items,
		TotalElements: int64(len(items)),
		TotalPages:    1,
		Number:        0,
		Size:          len(items),
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func readAll(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
