package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"rsm/internal/response"
	"rsm/internal/service"
)

// RequestIDHeader is the header carrying the client request id.
const RequestIDHeader = "X-Request-ID"

// Recorded is a request seen by FakeServer.
type Recorded struct {
	Method        string
	Path          string
	Query         string
	RequestID     string
	Authorization string
	Body          map[string]any
}

// RawReply replaces the handler of a route with a canned reply.
type RawReply struct {
	Status int
	Body   string
}

type fakeTable struct {
	spec  service.TableSpec
	tasks []service.Task
}

// FakeServer emulates the task service over HTTP.
type FakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]string // username -> password
	sessions map[string]string // token -> username
	tables   map[string]map[string]*fakeTable
	nextID   int64
	requests []Recorded
	raw      map[string]RawReply // "METHOD /path" -> reply

	// TokenTTL is the lifetime of issued session tokens.
	TokenTTL time.Duration

	// SetCookie makes login return the token as an Authorization cookie
	// instead of the res member.
	SetCookie bool
}

// NewFakeServer starts a FakeServer. It is closed when the test ends.
func NewFakeServer(t interface{ Cleanup(func()) }) *FakeServer {
	f := &FakeServer{
		users:     make(map[string]string),
		sessions:  make(map[string]string),
		tables:    make(map[string]map[string]*fakeTable),
		raw:       make(map[string]RawReply),
		TokenTTL:  time.Hour,
		SetCookie: true,
	}

	r := mux.NewRouter()
	r.Use(f.record, f.canned)
	r.HandleFunc("/signup", f.signup).Methods(http.MethodPost)
	r.HandleFunc("/login", f.login).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(f.authenticate)
	authed.HandleFunc("/logout", f.logout).Methods(http.MethodPost)
	authed.HandleFunc("/table/list", f.listTables).Methods(http.MethodGet)
	authed.HandleFunc("/table/{name}", f.createTable).Methods(http.MethodPost)
	authed.HandleFunc("/table/{name}", f.dropTable).Methods(http.MethodDelete)
	authed.HandleFunc("/{table}/clear", f.clearTable).Methods(http.MethodDelete)
	authed.HandleFunc("/{table}/{id:[0-9]+}", f.removeTask).Methods(http.MethodDelete)
	authed.HandleFunc("/{table}/{id:[0-9]+}", f.updateTask).Methods(http.MethodPut)
	authed.HandleFunc("/{table}", f.listTasks).Methods(http.MethodGet)
	authed.HandleFunc("/{table}", f.addTask).Methods(http.MethodPost)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

// AddUser registers an account.
func (f *FakeServer) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// Session issues a token for username without going through login.
func (f *FakeServer) Session(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(username)
}

// AddTable creates a table for username.
func (f *FakeServer) AddTable(username string, spec service.TableSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tablesLocked(username)[spec.Name] = &fakeTable{spec: spec}
}

// AddTask appends a task to a table and returns its id.
func (f *FakeServer) AddTask(username, table string, task service.Task) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	task.ID = &id
	tbl := f.tablesLocked(username)[table]
	tbl.tasks = append(tbl.tasks, task)
	return id
}

// Tasks returns the tasks of a table.
func (f *FakeServer) Tasks(username, table string) []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tablesLocked(username)[table]
	if !ok {
		return nil
	}
	return append([]service.Task(nil), tbl.tasks...)
}

// HasTable reports whether username owns table.
func (f *FakeServer) HasTable(username, table string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tablesLocked(username)[table]
	return ok
}

// Reply makes route ("GET /table/list") answer with a canned reply.
func (f *FakeServer) Reply(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[route] = RawReply{Status: status, Body: body}
}

// Requests returns the requests seen so far.
func (f *FakeServer) Requests() []Recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Recorded(nil), f.requests...)
}

// LastRequest returns the most recent request.
func (f *FakeServer) LastRequest() Recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return Recorded{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *FakeServer) tablesLocked(username string) map[string]*fakeTable {
	tables, ok := f.tables[username]
	if !ok {
		tables = make(map[string]*fakeTable)
		f.tables[username] = tables
	}
	return tables
}

func (f *FakeServer) issueLocked(username string) string {
	token, err := signToken(username, time.Now().Add(f.TokenTTL))
	if err != nil {
		panic(err)
	}
	f.sessions[token] = username
	return token
}

type userKey struct{}

func (f *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Recorded{
			Method:        r.Method,
			Path:          r.URL.EscapedPath(),
			Query:         r.URL.RawQuery,
			RequestID:     r.Header.Get(RequestIDHeader),
			Authorization: r.Header.Get("Authorization"),
		}
		if r.Body != nil && r.ContentLength != 0 {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				rec.Body = body
				data, _ := json.Marshal(body)
				r.Body = readCloser(data)
			}
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) canned(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		reply, ok := f.raw[r.Method+" "+r.URL.EscapedPath()]
		f.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		w.Write([]byte(reply.Body))
	})
}

func (f *FakeServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeFailure(w, r, http.StatusUnauthorized, response.NoAuth)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		f.mu.Lock()
		username, known := f.sessions[token]
		f.mu.Unlock()
		if !ok || !known {
			writeFailure(w, r, http.StatusUnauthorized, response.InvalidAuth)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), username)))
	})
}

func (f *FakeServer) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeFailure(w, r, http.StatusBadRequest, response.InvalidParams)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[req.Username]; exists {
		writeFailure(w, r, http.StatusConflict, response.UsernameAlreadyExists)
		return
	}
	f.users[req.Username] = req.Password
	writeResult(w, http.StatusCreated, "user created")
}

func (f *FakeServer) login(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, response.InvalidParams)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	password, exists := f.users[req.Username]
	if !exists {
		writeFailure(w, r, http.StatusNotFound, response.UserNotFound)
		return
	}
	if password != req.Password {
		writeFailure(w, r, http.StatusUnauthorized, response.LoginFail)
		return
	}

	token := f.issueLocked(req.Username)
	if f.SetCookie {
		http.SetCookie(w, &http.Cookie{Name: "Authorization", Value: "Bearer " + token, Path: "/", HttpOnly: true})
		writeResult(w, http.StatusOK, "logged in")
		return
	}
	writeResult(w, http.StatusOK, token)
}

func (f *FakeServer) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	delete(f.sessions, token)
	f.mu.Unlock()
	writeResult(w, http.StatusOK, "logged out")
}

func (f *FakeServer) listTables(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	specs := []service.TableSpec{}
	for _, tbl := range f.tablesLocked(userOf(r)) {
		specs = append(specs, tbl.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	writeResult(w, http.StatusOK, specs)
}

func (f *FakeServer) createTable(w http.ResponseWriter, r *http.Request) {
	var req service.TableOptions
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, response.InvalidParams)
		return
	}
	name := mux.Vars(r)["name"]

	f.mu.Lock()
	defer f.mu.Unlock()
	tables := f.tablesLocked(userOf(r))
	if _, exists := tables[name]; exists {
		writeFailure(w, r, http.StatusConflict, response.TableAlreadyExists)
		return
	}
	tables[name] = &fakeTable{spec: service.TableSpec{Name: name, HasDue: req.Due, HasGroup: req.Group}}
	writeResult(w, http.StatusCreated, "table created")
}

func (f *FakeServer) dropTable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	f.mu.Lock()
	defer f.mu.Unlock()
	tables := f.tablesLocked(userOf(r))
	if _, exists := tables[name]; !exists {
		writeFailure(w, r, http.StatusNotFound, response.InvalidParams)
		return
	}
	delete(tables, name)
	writeResult(w, http.StatusOK, "table deleted")
}

func (f *FakeServer) listTasks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tableLocked(w, r)
	if !ok {
		return
	}

	group := r.URL.Query().Get("group")
	sortBy := r.URL.Query().Get("sort_by")
	if group != "" && !tbl.spec.HasGroup {
		writeFailure(w, r, http.StatusBadRequest, response.InvalidQueryParams)
		return
	}

	tasks := []service.Task{}
	for _, task := range tbl.tasks {
		if group != "" && (task.Group == nil || *task.Group != group) {
			continue
		}
		tasks = append(tasks, task)
	}

	switch sortBy {
	case "":
	case "description":
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Description < tasks[j].Description })
	case "due":
		sort.SliceStable(tasks, func(i, j int) bool { return dueBefore(tasks[i], tasks[j]) })
	default:
		writeFailure(w, r, http.StatusBadRequest, response.InvalidQueryParams)
		return
	}
	writeResult(w, http.StatusOK, tasks)
}

type taskPayload struct {
	Description *string `json:"description"`
	Due         *string `json:"due"`
	Group       *string `json:"group"`
}

func (f *FakeServer) addTask(w http.ResponseWriter, r *http.Request) {
	var req taskPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Description == nil {
		writeFailure(w, r, http.StatusBadRequest, response.InvalidParams)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tableLocked(w, r)
	if !ok {
		return
	}
	task := service.Task{Description: *req.Description}
	if !applyPayload(w, r, tbl.spec, req, &task) {
		return
	}
	f.nextID++
	id := f.nextID
	task.ID = &id
	tbl.tasks = append(tbl.tasks, task)
	writeResult(w, http.StatusCreated, "task added")
}

func (f *FakeServer) updateTask(w http.ResponseWriter, r *http.Request) {
	var req taskPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, response.InvalidParams)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tableLocked(w, r)
	if !ok {
		return
	}
	i, ok := taskIndex(tbl, mux.Vars(r)["id"])
	if !ok {
		writeFailure(w, r, http.StatusNotFound, response.InvalidParams)
		return
	}
	task := tbl.tasks[i]
	if req.Description != nil {
		task.Description = *req.Description
	}
	if !applyPayload(w, r, tbl.spec, req, &task) {
		return
	}
	tbl.tasks[i] = task
	writeResult(w, http.StatusOK, "task updated")
}

func (f *FakeServer) removeTask(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tableLocked(w, r)
	if !ok {
		return
	}
	i, ok := taskIndex(tbl, mux.Vars(r)["id"])
	if !ok {
		writeFailure(w, r, http.StatusNotFound, response.InvalidParams)
		return
	}
	tbl.tasks = append(tbl.tasks[:i], tbl.tasks[i+1:]...)
	writeResult(w, http.StatusOK, "task removed")
}

func (f *FakeServer) clearTable(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tableLocked(w, r)
	if !ok {
		return
	}
	tbl.tasks = nil
	writeResult(w, http.StatusOK, "table cleared")
}

func (f *FakeServer) tableLocked(w http.ResponseWriter, r *http.Request) (*fakeTable, bool) {
	tbl, ok := f.tablesLocked(userOf(r))[mux.Vars(r)["table"]]
	if !ok {
		writeFailure(w, r, http.StatusNotFound, response.InvalidParams)
	}
	return tbl, ok
}

func applyPayload(w http.ResponseWriter, r *http.Request, spec service.TableSpec, req taskPayload, task *service.Task) bool {
	if req.Due != nil {
		if !spec.HasDue {
			writeFailure(w, r, http.StatusBadRequest, response.DueNotSupported)
			return false
		}
		ts, err := service.ParseTimestamp(*req.Due)
		if err != nil {
			writeFailure(w, r, http.StatusBadRequest, response.InvalidParams)
			return false
		}
		task.Due = &ts
	}
	if req.Group != nil {
		if !spec.HasGroup {
			writeFailure(w, r, http.StatusBadRequest, response.InvalidParams)
			return false
		}
		group := *req.Group
		task.Group = &group
	}
	return true
}

func taskIndex(tbl *fakeTable, rawID string) (int, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, false
	}
	for i, task := range tbl.tasks {
		if task.ID != nil && *task.ID == id {
			return i, true
		}
	}
	return 0, false
}

func dueBefore(a, b service.Task) bool {
	switch {
	case a.Due == nil:
		return false
	case b.Due == nil:
		return true
	default:
		return a.Due.Before(b.Due.Time)
	}
}

func writeResult(w http.ResponseWriter, status int, res any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"res": res})
}

func writeFailure(w http.ResponseWriter, r *http.Request, status int, kind response.Kind) {
	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"req_uuid": reqID, "type": string(kind)},
	})
}
