package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"rsm/internal/backend/rsmapi"
	"rsm/internal/cli"
	"rsm/internal/commands"
	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/service"
	"rsm/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService
// and counts its invocations.
func testFactory(svc *testutil.FakeService, calls *int) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		if calls != nil {
			*calls++
		}
		return svc, nil
	}
}

type run struct {
	stdout string
	stderr string
	code   int
}

func dispatch(t *testing.T, factory cli.ServiceFactory, input string, args ...string) run {
	t.Helper()
	var stdout, stderr bytes.Buffer
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code := d.Run(context.Background(), args, commands.IO{
		In:  strings.NewReader(input),
		Out: &stdout,
		Err: &stderr,
	})
	return run{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// loggedIn returns a config directory holding a session that expires in ttl.
func loggedIn(t *testing.T, ttl time.Duration) string {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Dir: dir}
	expiry := time.Now().Add(ttl)
	token := &oauth2.Token{AccessToken: testutil.SignToken(t, "ann", expiry), TokenType: "Bearer", Expiry: expiry}
	if err := cfg.SaveToken(token); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	r := dispatch(t, testFactory(testutil.NewFakeService(), nil), "", "unknowncmd")

	if r.code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, r.code)
	}
	expected := "error: unknown command \"unknowncmd\" for \"rsm\"\n"
	if r.stderr != expected {
		t.Errorf("expected %q, got %q", expected, r.stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	r := dispatch(t, testFactory(testutil.NewFakeService(), nil), "", "help")

	if r.code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, r.code)
	}
	if r.stderr != "" {
		t.Errorf("expected no stderr, got %q", r.stderr)
	}
	for _, want := range []string{"Usage:", "signup", "create", "update", "--config"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	r := dispatch(t, nil, "", "version", "--config", t.TempDir())

	if r.code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, r.code)
	}
	if r.stdout != "rsm 0.1.0\n" {
		t.Errorf("expected 'rsm 0.1.0\\n', got %q", r.stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	r := dispatch(t, nil, "", "version", "--unknown")

	if r.code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, r.code)
	}
	if r.stderr != "error: unknown flag: --unknown\n" {
		t.Errorf("got %q", r.stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	r := dispatch(t, nil, "", "add", "chores", "x", "--due")

	if r.code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, r.code)
	}
	if !strings.Contains(r.stderr, "flag needs an argument") {
		t.Errorf("got %q", r.stderr)
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	calls := 0
	r := dispatch(t, testFactory(testutil.NewFakeService(), &calls), "", "list", "--config", t.TempDir())

	if r.code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, r.code)
	}
	if r.stderr != "error: not logged in (run: rsm login)\n" {
		t.Errorf("got %q", r.stderr)
	}
	if calls != 0 {
		t.Error("backend created without a session")
	}
}

func TestDispatcher_ExpiredSession(t *testing.T) {
	calls := 0
	dir := loggedIn(t, -time.Minute)
	r := dispatch(t, testFactory(testutil.NewFakeService(), &calls), "", "clear", "chores", "--config", dir)

	if r.code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, r.code)
	}
	if !strings.HasPrefix(r.stderr, "error: session expired at ") || !strings.HasSuffix(r.stderr, "(run: rsm login)\n") {
		t.Errorf("got %q", r.stderr)
	}
	if calls != 0 {
		t.Error("backend created for an expired session")
	}
}

func TestDispatcher_NoArgsListsTables(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTable(service.TableSpec{Name: "chores"})
	t.Setenv("RSM_CONFIG_DIR", loggedIn(t, time.Hour))

	r := dispatch(t, testFactory(svc, nil), "")

	if r.code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, r.code, r.stderr)
	}
	if !strings.Contains(r.stdout, "chores") {
		t.Errorf("stdout = %q", r.stdout)
	}
	if calls := svc.Calls(); len(calls) != 1 || calls[0].Method != "ListTables" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestDispatcher_Alias(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := loggedIn(t, time.Hour)

	r := dispatch(t, testFactory(svc, nil), "", "mk", "--due", "chores", "--config", dir)
	if r.code != exitcode.Success {
		t.Fatalf("exit code %d (%s)", r.code, r.stderr)
	}
	if calls := svc.Calls(); len(calls) != 1 || calls[0].Method != "CreateTable" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestDispatcher_QuietFlag(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := loggedIn(t, time.Hour)

	r := dispatch(t, testFactory(svc, nil), "", "create", "-q", "chores", "--config", dir)
	if r.code != exitcode.Success {
		t.Fatalf("exit code %d (%s)", r.code, r.stderr)
	}
	if r.stdout != "" {
		t.Errorf("quiet stdout = %q", r.stdout)
	}
}

func TestDispatcher_FlagStateDoesNotLeak(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := loggedIn(t, time.Hour)

	dispatch(t, testFactory(svc, nil), "", "create", "--due", "a", "--config", dir)
	dispatch(t, testFactory(svc, nil), "", "create", "b", "--config", dir)

	calls := svc.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[1].Args.(service.TableOptions).Due {
		t.Error("--due from the first run leaked into the second")
	}
}

func TestDispatcher_FactoryError(t *testing.T) {
	dir := loggedIn(t, time.Hour)
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, errors.New("bad token file")
	}

	r := dispatch(t, factory, "", "list", "--config", dir)
	if r.code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, r.code)
	}
	if r.stderr != "error: backend error: bad token file\n" {
		t.Errorf("got %q", r.stderr)
	}
}

func TestDispatcher_DebugAndLogFile(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := loggedIn(t, time.Hour)

	r := dispatch(t, testFactory(svc, nil), "", "list", "--debug", "--config", dir)
	if r.code != exitcode.Success {
		t.Fatalf("exit code %d (%s)", r.code, r.stderr)
	}
	if !strings.Contains(r.stderr, "command finished") {
		t.Errorf("debug output missing on stderr: %q", r.stderr)
	}

	data, err := os.ReadFile(filepath.Join(dir, config.LogFile))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"command":"list"`) {
		t.Errorf("log = %s", data)
	}
}

// newServer starts a FakeServer and points the environment at it.
func newServer(t *testing.T) (*testutil.FakeServer, string) {
	t.Helper()
	srv := testutil.NewFakeServer(t)
	t.Setenv("RSM_API_URL", srv.URL)
	t.Setenv("RSM_TIMEOUT", "5s")
	return srv, t.TempDir()
}

func httpFactory(ctx context.Context, cfg *config.Config) (service.Service, error) {
	return rsmapi.New(ctx, cfg)
}

func TestEndToEnd(t *testing.T) {
	srv, dir := newServer(t)

	steps := []struct {
		input string
		args  []string
		code  int
		out   string
	}{
		{"ann\nsecret\nn\n", []string{"signup"}, exitcode.Success, "user created"},
		{"ann\nsecret\n", []string{"login"}, exitcode.Success, "logged in"},
		{"", []string{"whoami"}, exitcode.Success, "ann (session expires"},
		{"", []string{"create", "errands", "--group"}, exitcode.Success, "table created"},
		{"", []string{"create", "errands"}, exitcode.BackendError, ""},
		{"", []string{"add", "errands", "buy", "milk", "-g", "errands"}, exitcode.Success, "task added"},
		{"", []string{"add", "errands", "post", "--due", "2030-01-01 10:00"}, exitcode.BackendError, ""},
		{"", []string{"list", "errands"}, exitcode.Success, "buy milk"},
		{"", []string{"list", "errands", "--sort-by", "color"}, exitcode.BackendError, ""},
		{"", []string{"update", "errands", "1", "-m", "buy oat milk"}, exitcode.Success, "task updated"},
		{"", []string{"list"}, exitcode.Success, "errands"},
		{"", []string{"rm", "errands", "1"}, exitcode.Success, "task removed"},
		{"", []string{"list", "errands"}, exitcode.Success, "no data to display"},
		{"", []string{"delete", "errands"}, exitcode.Success, "table deleted"},
		{"", []string{"logout", "--yes"}, exitcode.Success, "logged out"},
		{"", []string{"list"}, exitcode.AuthError, ""},
	}
	for _, step := range steps {
		args := append(step.args, "--config", dir)
		r := dispatch(t, httpFactory, step.input, args...)
		if r.code != step.code {
			t.Fatalf("%v: exit code %d, want %d (stderr %q)", step.args, r.code, step.code, r.stderr)
		}
		if !strings.Contains(r.stdout, step.out) {
			t.Fatalf("%v: stdout %q does not contain %q", step.args, r.stdout, step.out)
		}
	}

	if srv.HasTable("ann", "errands") {
		t.Error("table survived delete")
	}
}

func TestEndToEnd_DomainFailureMessage(t *testing.T) {
	srv, dir := newServer(t)
	srv.AddUser("ann", "secret")
	srv.AddTable("ann", service.TableSpec{Name: "plain"})
	dispatch(t, httpFactory, "secret\n", "login", "-u", "ann", "--config", dir)

	r := dispatch(t, httpFactory, "", "add", "plain", "x", "--due", "2030-01-01 10:00", "--config", dir)
	if r.code != exitcode.BackendError {
		t.Fatalf("exit code %d (%s)", r.code, r.stderr)
	}
	want := "error: this table does not support due dates (request " + srv.LastRequest().RequestID + ")\n"
	if r.stderr != want {
		t.Errorf("stderr = %q, want %q", r.stderr, want)
	}
}

func TestEndToEnd_ProtocolError(t *testing.T) {
	srv, dir := newServer(t)
	srv.AddUser("ann", "secret")
	dispatch(t, httpFactory, "secret\n", "login", "-u", "ann", "--config", dir)
	srv.Reply("GET /table/list", 200, `{"tables":"nope"}`)

	r := dispatch(t, httpFactory, "", "list", "--config", dir)
	if r.code != exitcode.ProtocolError {
		t.Fatalf("exit code %d, want %d (%s)", r.code, exitcode.ProtocolError, r.stderr)
	}
	if r.stderr != "error: internal: unexpected response from server\n" {
		t.Errorf("stderr = %q", r.stderr)
	}

	data, err := os.ReadFile(filepath.Join(dir, config.LogFile))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "unexpected response format") {
		t.Errorf("protocol fault not logged:\n%s", data)
	}
}

func TestEndToEnd_ServerDown(t *testing.T) {
	srv, dir := newServer(t)
	srv.AddUser("ann", "secret")
	dispatch(t, httpFactory, "secret\n", "login", "-u", "ann", "--config", dir)
	srv.Close()

	r := dispatch(t, httpFactory, "", "list", "--config", dir)
	if r.code != exitcode.BackendError {
		t.Fatalf("exit code %d (%s)", r.code, r.stderr)
	}
	if !strings.HasPrefix(r.stderr, "error: backend error: connection refused, the server is down") {
		t.Errorf("stderr = %q", r.stderr)
	}
}
