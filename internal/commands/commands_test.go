package commands_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"rsm/internal/commands"
	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/response"
	"rsm/internal/service"
	"rsm/internal/testutil"
)

type result struct {
	stdout string
	stderr string
	code   int
	cfg    *config.Config
}

// runCommand parses argv with the command's flags and runs it against svc.
func runCommand(t *testing.T, cmd commands.Command, svc service.Service, argv []string, input string, quiet bool) result {
	t.Helper()
	cfg := &config.Config{
		Dir:   t.TempDir(),
		Quiet: quiet,
	}
	return runWithConfig(t, cmd, svc, cfg, argv, input)
}

// runWithConfig is runCommand with a prepared configuration.
func runWithConfig(t *testing.T, cmd commands.Command, svc service.Service, cfg *config.Config, argv []string, input string) result {
	t.Helper()

	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(argv); err != nil {
		t.Fatalf("parse flags %v: %v", argv, err)
	}

	var outBuf, errBuf bytes.Buffer
	streams := commands.IO{In: strings.NewReader(input), Out: &outBuf, Err: &errBuf}
	code := cmd.Run(context.Background(), cfg, svc, fs.Args(), streams)
	return result{stdout: outBuf.String(), stderr: errBuf.String(), code: code, cfg: cfg}
}

func expectCode(t *testing.T, r result, want int) {
	t.Helper()
	if r.code != want {
		t.Errorf("expected exit code %d, got %d (stderr %q)", want, r.code, r.stderr)
	}
}

func ptr[T any](v T) *T { return &v }

func TestVersionCommand(t *testing.T) {
	r := runCommand(t, &commands.VersionCmd{}, nil, nil, "", false)

	expectCode(t, r, exitcode.Success)
	if r.stdout != "rsm 0.1.0\n" {
		t.Errorf("expected version output, got %q", r.stdout)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{
		"signup", "login", "logout", "whoami", "create", "delete",
		"list", "add", "rm", "update", "clear", "version",
	} {
		if _, ok := commands.DefaultRegistry.Find(name); !ok {
			t.Errorf("command %q not registered", name)
		}
	}

	cmd, ok := commands.DefaultRegistry.Find("ls")
	if !ok || cmd.Name() != "list" {
		t.Errorf("alias ls should resolve to list")
	}

	all := commands.DefaultRegistry.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Name() >= all[i].Name() {
			t.Errorf("All() not sorted: %s before %s", all[i-1].Name(), all[i].Name())
		}
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.ListCmd{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&commands.ListCmd{}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestCreateCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	r := runCommand(t, &commands.CreateCmd{}, svc, []string{"--due", "-g", "chores"}, "", false)
	expectCode(t, r, exitcode.Success)
	if r.stdout != "table created\n" {
		t.Errorf("stdout = %q", r.stdout)
	}

	calls := svc.Calls()
	if len(calls) != 1 || calls[0].Table != "chores" {
		t.Fatalf("calls = %+v", calls)
	}
	if opts := calls[0].Args.(service.TableOptions); !opts.Due || !opts.Group {
		t.Errorf("options = %+v", opts)
	}
}

func TestCreateCommand_AlreadyExists(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTable(service.TableSpec{Name: "chores"})

	r := runCommand(t, &commands.CreateCmd{}, svc, []string{"chores"}, "", false)
	expectCode(t, r, exitcode.BackendError)
	if r.stderr != "error: a table with this name already exists (request fake)\n" {
		t.Errorf("stderr = %q", r.stderr)
	}
}

func TestTableCommands_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  commands.Command
		argv []string
		want string
	}{
		{"create without name", &commands.CreateCmd{}, nil, "error: table name required\n"},
		{"create two names", &commands.CreateCmd{}, []string{"a", "b"}, "error: unexpected argument: b\n"},
		{"delete without name", &commands.DeleteCmd{}, nil, "error: table name required\n"},
		{"clear blank name", &commands.ClearCmd{}, []string{" "}, "error: table name required\n"},
		{"rm without id", &commands.RmCmd{}, []string{"chores"}, "error: task id required\n"},
		{"rm bad id", &commands.RmCmd{}, []string{"chores", "x1"}, "error: invalid task id: x1\n"},
		{"rm zero id", &commands.RmCmd{}, []string{"chores", "0"}, "error: invalid task id: 0\n"},
		{"list two tables", &commands.ListCmd{}, []string{"a", "b"}, "error: unexpected argument: b\n"},
		{"list group without table", &commands.ListCmd{}, []string{"-g", "home"}, "error: --group requires a table name\n"},
		{"list sort without table", &commands.ListCmd{}, []string{"--sort-by", "due"}, "error: --sort-by requires a table name\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			r := runCommand(t, tt.cmd, svc, tt.argv, "", false)
			expectCode(t, r, exitcode.UserError)
			if r.stderr != tt.want {
				t.Errorf("stderr = %q, want %q", r.stderr, tt.want)
			}
			if len(svc.Calls()) != 0 {
				t.Errorf("service called: %+v", svc.Calls())
			}
		})
	}
}

func TestDeleteAndClearCommands(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTable(service.TableSpec{Name: "chores"})

	r := runCommand(t, &commands.ClearCmd{}, svc, []string{"chores"}, "", false)
	expectCode(t, r, exitcode.Success)
	if r.stdout != "table cleared\n" {
		t.Errorf("stdout = %q", r.stdout)
	}

	r = runCommand(t, &commands.DeleteCmd{}, svc, []string{"chores"}, "", true)
	expectCode(t, r, exitcode.Success)
	if r.stdout != "" {
		t.Errorf("quiet output = %q", r.stdout)
	}

	r = runCommand(t, &commands.DeleteCmd{}, svc, []string{"chores"}, "", false)
	expectCode(t, r, exitcode.BackendError)
	if !strings.HasPrefix(r.stderr, "error: invalid parameters") {
		t.Errorf("stderr = %q", r.stderr)
	}
}

func TestListCommand_Tables(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTable(service.TableSpec{Name: "chores", HasDue: true})
	svc.AddTable(service.TableSpec{Name: "reading", HasGroup: true})

	r := runCommand(t, &commands.ListCmd{}, svc, nil, "", false)
	expectCode(t, r, exitcode.Success)
	for _, want := range []string{"NAME", "GROUP SUPPORT", "DUE SUPPORT", "chores", "reading", "Yes", "No"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("output missing %q:\n%s", want, r.stdout)
		}
	}
}

func TestListCommand_Tasks(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTable(service.TableSpec{Name: "errands", HasGroup: true})
	svc.SeedTask("errands", service.Task{ID: ptr(int64(1)), Description: "buy milk", Group: ptr("errands")})

	r := runCommand(t, &commands.ListCmd{}, svc, []string{"errands"}, "", false)
	expectCode(t, r, exitcode.Success)

	lines := strings.Split(r.stdout, "\n")
	if len(lines) < 2 {
		t.Fatalf("output = %q", r.stdout)
	}
	header := lines[1]
	for _, want := range []string{"ID", "DESCRIPTION", "GROUP"} {
		if !strings.Contains(header, want) {
			t.Errorf("header %q missing %s", header, want)
		}
	}
	if strings.Contains(header, "DUE") {
		t.Errorf("header %q should have no due column", header)
	}
	if !strings.Contains(r.stdout, "buy milk") {
		t.Errorf("output = %q", r.stdout)
	}
}

func TestListCommand_PassesQuery(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTable(service.TableSpec{Name: "chores"})

	r := runCommand(t, &commands.ListCmd{}, svc, []string{"chores", "-g", "home", "--sort-by", "due"}, "", false)
	expectCode(t, r, exitcode.Success)
	if r.stdout != "no data to display\n" {
		t.Errorf("stdout = %q", r.stdout)
	}

	calls := svc.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %+v", calls)
	}
	if q := calls[0].Args.(service.Query); q.Group != "home" || q.SortBy != "due" {
		t.Errorf("query = %+v", q)
	}
}

func TestAddCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTable(service.TableSpec{Name: "chores", HasDue: true, HasGroup: true})

	r := runCommand(t, &commands.AddCmd{}, svc,
		[]string{"chores", "water", "the", "plants", "--due", "2030-01-02 09:30", "-g", "home"}, "", false)
	expectCode(t, r, exitcode.Success)
	if r.stdout != "task added\n" {
		t.Errorf("stdout = %q", r.stdout)
	}

	task := svc.Calls()[0].Args.(service.NewTask)
	if task.Description != "water the plants" {
		t.Errorf("description = %q", task.Description)
	}
	if task.Group == nil || *task.Group != "home" {
		t.Errorf("group = %v", task.Group)
	}
	want := time.Date(2030, 1, 2, 9, 30, 0, 0, time.Local)
	if task.Due == nil || !task.Due.Equal(want) {
		t.Errorf("due = %v, want %v", task.Due, want)
	}
}

func TestAddCommand_ResolvesDueBeforeRequest(t *testing.T) {
	for _, input := range []string{"25:00", "tomorrow", "2030-13-01 10:00", "10:00 pm today"} {
		svc := testutil.NewFakeService()
		r := runCommand(t, &commands.AddCmd{}, svc, []string{"chores", "x", "--due", input}, "", false)
		expectCode(t, r, exitcode.UserError)
		if !strings.HasPrefix(r.stderr, "error: ") {
			t.Errorf("%q: stderr = %q", input, r.stderr)
		}
		if len(svc.Calls()) != 0 {
			t.Errorf("%q: service called with an invalid due", input)
		}
	}
}

func TestAddCommand_DescriptionErrors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"no table", nil, "error: table name required\n"},
		{"no description", []string{"chores"}, "error: description required\n"},
		{"blank description", []string{"chores", "  "}, "error: description required\n"},
		{"too long", []string{"chores", strings.Repeat("x", 257)}, "error: description too long: 257 characters, at most 256\n"},
		{"line without file", []string{"chores", "--line", "2"}, "error: --line and --range require --file\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			r := runCommand(t, &commands.AddCmd{}, svc, tt.argv, "", false)
			expectCode(t, r, exitcode.UserError)
			if r.stderr != tt.want {
				t.Errorf("stderr = %q, want %q", r.stderr, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddCommand_FromFile(t *testing.T) {
	path := writeFile(t, "first line\n  second line \nthird line\n")

	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"whole file", []string{"--file", path}, "first line second line third line"},
		{"one line", []string{"--file", path, "--line", "2"}, "second line"},
		{"range", []string{"--file", path, "--range", "2..3"}, "second line third line"},
		{"single line range", []string{"-f", path, "-r", "1"}, "first line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddTable(service.TableSpec{Name: "chores"})
			r := runCommand(t, &commands.AddCmd{}, svc, append([]string{"chores"}, tt.argv...), "", false)
			expectCode(t, r, exitcode.Success)
			if got := svc.Calls()[0].Args.(service.NewTask).Description; got != tt.want {
				t.Errorf("description = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddCommand_FileErrors(t *testing.T) {
	path := writeFile(t, "one\ntwo\n")
	empty := writeFile(t, "")
	long := writeFile(t, strings.Repeat("word ", 60))

	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"missing file", []string{"--file", filepath.Join(t.TempDir(), "nope")}, "file not found"},
		{"empty file", []string{"--file", empty}, "file is empty"},
		{"past end", []string{"--file", path, "--line", "3"}, "past the end"},
		{"reversed range", []string{"--file", path, "--range", "2..1"}, "invalid line range"},
		{"zero range", []string{"--file", path, "--range", "0..1"}, "invalid line range"},
		{"garbage range", []string{"--file", path, "--range", "a..b"}, "invalid line range"},
		{"line and range", []string{"--file", path, "--line", "1", "--range", "1..2"}, "mutually exclusive"},
		{"file and words", []string{"extra", "--file", path}, "not both"},
		{"too long", []string{"--file", long}, "description too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			r := runCommand(t, &commands.AddCmd{}, svc, append([]string{"chores"}, tt.argv...), "", false)
			expectCode(t, r, exitcode.UserError)
			if !strings.Contains(r.stderr, tt.want) {
				t.Errorf("stderr = %q, want it to mention %q", r.stderr, tt.want)
			}
			if len(svc.Calls()) != 0 {
				t.Error("service called")
			}
		})
	}
}

func TestRmCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	r := runCommand(t, &commands.RmCmd{}, svc, []string{"chores", "3"}, "", false)
	expectCode(t, r, exitcode.Success)
	if r.stdout != "task removed\n" {
		t.Errorf("stdout = %q", r.stdout)
	}
	if c := svc.Calls()[0]; c.Method != "RemoveTask" || c.Table != "chores" || c.ID != 3 {
		t.Errorf("call = %+v", c)
	}
}

func TestUpdateCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	r := runCommand(t, &commands.UpdateCmd{}, svc,
		[]string{"chores", "7", "--description", "new text", "--due", "2030-05-06 07:08", "--group", ""}, "", false)
	expectCode(t, r, exitcode.Success)

	c := svc.Calls()[0]
	if c.Method != "UpdateTask" || c.ID != 7 {
		t.Fatalf("call = %+v", c)
	}
	u := c.Args.(service.TaskUpdate)
	if u.Description == nil || *u.Description != "new text" {
		t.Errorf("description = %v", u.Description)
	}
	if u.Due == nil || !u.Due.Equal(time.Date(2030, 5, 6, 7, 8, 0, 0, time.Local)) {
		t.Errorf("due = %v", u.Due)
	}
	if u.Group == nil || *u.Group != "" {
		t.Errorf("explicit empty group should be sent, got %v", u.Group)
	}
}

func TestUpdateCommand_OnlyGivenFields(t *testing.T) {
	svc := testutil.NewFakeService()

	r := runCommand(t, &commands.UpdateCmd{}, svc, []string{"chores", "7", "-g", "home"}, "", false)
	expectCode(t, r, exitcode.Success)

	u := svc.Calls()[0].Args.(service.TaskUpdate)
	if u.Description != nil || u.Due != nil {
		t.Errorf("unexpected fields in %+v", u)
	}
}

func TestUpdateCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"nothing", []string{"chores", "7"}, "nothing to update"},
		{"bad due", []string{"chores", "7", "--due", "7pm"}, "error: "},
		{"blank description", []string{"chores", "7", "-m", " "}, "description required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			r := runCommand(t, &commands.UpdateCmd{}, svc, tt.argv, "", false)
			expectCode(t, r, exitcode.UserError)
			if !strings.Contains(r.stderr, tt.want) {
				t.Errorf("stderr = %q", r.stderr)
			}
			if len(svc.Calls()) != 0 {
				t.Error("service called")
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		stderr string
	}{
		{
			name:   "domain failure",
			err:    &response.Failure{RequestID: "abc", Kind: response.InvalidQueryParams},
			code:   exitcode.BackendError,
			stderr: "error: invalid query parameters (request abc)\n",
		},
		{
			name:   "auth failure",
			err:    &response.Failure{RequestID: "abc", Kind: response.InvalidAuth},
			code:   exitcode.AuthError,
			stderr: "error: invalid or expired authentication token (request abc)\n",
		},
		{
			name:   "unrecognized code",
			err:    &response.Failure{RequestID: "abc", Kind: response.ParseKind("TOTALLY_UNKNOWN")},
			code:   exitcode.BackendError,
			stderr: "error: unrecognized server error: TOTALLY_UNKNOWN (request abc)\n",
		},
		{
			name:   "unknown format",
			err:    &response.FormatError{Excerpt: "{}", Err: errors.New(`missing "res" member`)},
			code:   exitcode.ProtocolError,
			stderr: "error: internal: unexpected response from server\n",
		},
		{
			name:   "network",
			err:    errors.New("connection refused, the server is down"),
			code:   exitcode.BackendError,
			stderr: "error: backend error: connection refused, the server is down\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddTable(service.TableSpec{Name: "chores"})
			svc.Err["ListTasks"] = tt.err

			r := runCommand(t, &commands.ListCmd{}, svc, []string{"chores"}, "", false)
			expectCode(t, r, tt.code)
			if r.stderr != tt.stderr {
				t.Errorf("stderr = %q, want %q", r.stderr, tt.stderr)
			}
			if r.stdout != "" {
				t.Errorf("stdout = %q", r.stdout)
			}
		})
	}
}
