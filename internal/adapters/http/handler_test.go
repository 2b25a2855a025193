package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse-bridge/internal/adapters/local"
	"github.com/melih/lighthouse-bridge/internal/adapters/wsl"
	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/services"
)

func newTestApp() *fiber.App {
	svc := services.NewEnvironmentService(nil)
	svc.Register(domain.BackendLocal, local.Constructor(nil))
	svc.Register(domain.BackendWSL, wsl.Constructor(wsl.NewDistribution("Ubuntu", "", "")))

	app := fiber.New()
	NewEnvironmentHandler(svc).Routes(app.Group("/api/v1"))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("%s %s: decoding %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode
}

func TestWSLEnvironmentLifecycle(t *testing.T) {
	app := newTestApp()

	var view environmentView
	status := do(t, app, http.MethodPost, "/api/v1/environments", `{
		"kind": "wsl",
		"upload_volumes": [
			{"local_root": "C:\\Users\\me\\proj"},
			{"local_root": "\\\\wsl$\\Ubuntu\\etc"},
			{"local_root": "\\\\wsl$\\Debian\\home"}
		],
		"target_port_bindings": [{"target": 8080}],
		"local_port_bindings": [{"local": 5000}]
	}`, &view)
	if status != fiber.StatusCreated {
		t.Fatalf("create status %d", status)
	}
	if view.Platform.OS != domain.OSUnix {
		t.Fatalf("platform %+v", view.Platform)
	}
	if len(view.UploadVolumes) != 2 {
		t.Fatalf("upload volumes %+v", view.UploadVolumes)
	}
	targets := map[string]bool{}
	for _, v := range view.UploadVolumes {
		targets[v.TargetRoot] = true
	}
	if !targets["/mnt/c/Users/me/proj"] || !targets["/etc"] {
		t.Fatalf("target roots %v", targets)
	}
	if len(view.TargetPortBindings) != 1 || view.TargetPortBindings[0].Resolved != 8080 {
		t.Fatalf("target bindings %+v", view.TargetPortBindings)
	}
	if len(view.LocalPortBindings) != 1 || view.LocalPortBindings[0].Resolved != "localhost:5000" {
		t.Fatalf("local bindings %+v", view.LocalPortBindings)
	}

	var resolved struct {
		TargetPath string `json:"target_path"`
	}
	status = do(t, app, http.MethodPost, "/api/v1/environments/"+view.ID+"/resolve",
		`{"local_root": "C:\\Users\\me\\proj", "relative_path": "src/main.go"}`, &resolved)
	if status != fiber.StatusOK || resolved.TargetPath != "/mnt/c/Users/me/proj/src/main.go" {
		t.Fatalf("resolve status %d path %q", status, resolved.TargetPath)
	}

	status = do(t, app, http.MethodPost, "/api/v1/environments/"+view.ID+"/resolve",
		`{"local_root": "D:\\elsewhere", "relative_path": "x"}`, nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("unknown root status %d", status)
	}

	if status := do(t, app, http.MethodDelete, "/api/v1/environments/"+view.ID, "", nil); status != fiber.StatusNoContent {
		t.Fatalf("delete status %d", status)
	}
	if status := do(t, app, http.MethodGet, "/api/v1/environments/"+view.ID, "", nil); status != fiber.StatusNotFound {
		t.Fatalf("get after delete status %d", status)
	}
}

func TestCreateRejectsRemappedPort(t *testing.T) {
	app := newTestApp()
	var body map[string]string
	status := do(t, app, http.MethodPost, "/api/v1/environments",
		`{"kind": "wsl", "target_port_bindings": [{"target": 8080, "local": 9090}]}`, &body)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status %d", status)
	}
	if !strings.Contains(body["error"], "not implemented") {
		t.Fatalf("error %q", body["error"])
	}

	var list []environmentView
	if do(t, app, http.MethodGet, "/api/v1/environments", "", &list); len(list) != 0 {
		t.Fatalf("environment was produced: %+v", list)
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	app := newTestApp()
	if status := do(t, app, http.MethodPost, "/api/v1/environments", `{"kind": "vm"}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("unknown kind status %d", status)
	}
	if status := do(t, app, http.MethodPost, "/api/v1/environments", `{"kind": "docker"}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("unregistered kind status %d", status)
	}
}

func TestRunProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	app := newTestApp()
	var view environmentView
	if status := do(t, app, http.MethodPost, "/api/v1/environments", `{"kind": "local"}`, &view); status != fiber.StatusCreated {
		t.Fatalf("create status %d", status)
	}

	var result struct {
		ExitCode int    `json:"exit_code"`
		Stdout   string `json:"stdout"`
	}
	status := do(t, app, http.MethodPost, "/api/v1/environments/"+view.ID+"/processes",
		`{"command": ["sh", "-c", "cat; echo $WHO; exit 4"], "env": {"WHO": "bridge"}, "stdin": "in\n"}`, &result)
	if status != fiber.StatusOK {
		t.Fatalf("run status %d", status)
	}
	if result.ExitCode != 4 || result.Stdout != "in\nbridge\n" {
		t.Fatalf("result %+v", result)
	}

	if status := do(t, app, http.MethodPost, "/api/v1/environments/"+view.ID+"/processes", `{"command": []}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("empty command status %d", status)
	}
	if status := do(t, app, http.MethodPost, "/api/v1/environments/"+view.ID+"/processes",
		`{"command": ["/nonexistent/binary"]}`, nil); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("spawn failure status %d", status)
	}
}

func TestEmptyListsAreArrays(t *testing.T) {
	app := newTestApp()
	var raw map[string]json.RawMessage
	if status := do(t, app, http.MethodPost, "/api/v1/environments", `{"kind": "local"}`, &raw); status != fiber.StatusCreated {
		t.Fatalf("create status %d", status)
	}
	for _, field := range []string{"upload_volumes", "download_volumes", "target_port_bindings", "local_port_bindings"} {
		if got := string(raw[field]); got != "[]" {
			t.Fatalf("%s = %s, want []", field, got)
		}
	}
}
