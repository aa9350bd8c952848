// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sort"
	"sync"

	"rsm/internal/response"
	"rsm/internal/service"
)

// Call is one method invocation seen by FakeService.
type Call struct {
	Method string
	Table  string
	ID     int64
	Args   any
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.Mutex
	tables map[string]*fakeTable
	nextID int64
	calls  []Call

	// Token is returned by Login.
	Token string

	// Err, when set for a method name ("ListTasks"), is returned by that method.
	Err map[string]error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		tables: make(map[string]*fakeTable),
		Err:    make(map[string]error),
		Token:  "fake-token",
	}
}

// AddTable adds a table definition.
func (f *FakeService) AddTable(spec service.TableSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[spec.Name] = &fakeTable{spec: spec}
}

// SeedTask appends task to table as is.
func (f *FakeService) SeedTask(table string, task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl := f.tables[table]
	tbl.tasks = append(tbl.tasks, task)
}

// Calls returns the recorded invocations.
func (f *FakeService) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeService) enter(method, table string, id int64, args any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Table: table, ID: id, Args: args})
	return f.Err[method]
}

func notFound() error {
	return &response.Failure{RequestID: "fake", Kind: response.InvalidParams}
}

// Signup implements service.Service.
func (f *FakeService) Signup(ctx context.Context, s service.Signup) (string, error) {
	if err := f.enter("Signup", "", 0, s); err != nil {
		return "", err
	}
	return "user created", nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, c service.Credentials) (service.Session, error) {
	if err := f.enter("Login", "", 0, c); err != nil {
		return service.Session{}, err
	}
	return service.Session{Token: f.Token, Message: "logged in"}, nil
}

// Logout implements service.Service.
func (f *FakeService) Logout(ctx context.Context) (string, error) {
	if err := f.enter("Logout", "", 0, nil); err != nil {
		return "", err
	}
	return "logged out", nil
}

// CreateTable implements service.Service.
func (f *FakeService) CreateTable(ctx context.Context, name string, opts service.TableOptions) (string, error) {
	if err := f.enter("CreateTable", name, 0, opts); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[name]; ok {
		return "", &response.Failure{RequestID: "fake", Kind: response.TableAlreadyExists}
	}
	f.tables[name] = &fakeTable{spec: service.TableSpec{Name: name, HasDue: opts.Due, HasGroup: opts.Group}}
	return "table created", nil
}

// DropTable implements service.Service.
func (f *FakeService) DropTable(ctx context.Context, name string) (string, error) {
	if err := f.enter("DropTable", name, 0, nil); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[name]; !ok {
		return "", notFound()
	}
	delete(f.tables, name)
	return "table deleted", nil
}

// ListTables implements service.Service.
func (f *FakeService) ListTables(ctx context.Context) ([]service.TableSpec, error) {
	if err := f.enter("ListTables", "", 0, nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var specs []service.TableSpec
	for _, tbl := range f.tables {
		specs = append(specs, tbl.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, table string, q service.Query) ([]service.Task, error) {
	if err := f.enter("ListTasks", table, 0, q); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tables[table]
	if !ok {
		return nil, notFound()
	}
	var tasks []service.Task
	for _, task := range tbl.tasks {
		if q.Group != "" && (task.Group == nil || *task.Group != q.Group) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// AddTask implements service.Service.
func (f *FakeService) AddTask(ctx context.Context, table string, t service.NewTask) (string, error) {
	if err := f.enter("AddTask", table, 0, t); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tbl, ok := f.tables[table]
	if !ok {
		return "", notFound()
	}
	f.nextID++
	id := f.nextID
	task := service.Task{ID: &id, Description: t.Description, Group: t.Group}
	if t.Due != nil {
		task.Due = &service.Timestamp{Time: t.Due.Time}
	}
	tbl.tasks = append(tbl.tasks, task)
	return "task added", nil
}

// RemoveTask implements service.Service.
func (f *FakeService) RemoveTask(ctx context.Context, table string, id int64) (string, error) {
	if err := f.enter("RemoveTask", table, id, nil); err != nil {
		return "", err
	}
	return "task removed", nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, table string, id int64, u service.TaskUpdate) (string, error) {
	if err := f.enter("UpdateTask", table, id, u); err != nil {
		return "", err
	}
	return "task updated", nil
}

// ClearTable implements service.Service.
func (f *FakeService) ClearTable(ctx context.Context, table string) (string, error) {
	if err := f.enter("ClearTable", table, 0, nil); err != nil {
		return "", err
	}
	return "table cleared", nil
}
