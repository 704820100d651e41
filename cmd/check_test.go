package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunChecks_ProjectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"host.json", "local.settings.example.json"} {
		data, err := os.ReadFile(filepath.Join("..", name))
		require.NoError(t, err)
		target := name
		if name == "local.settings.example.json" {
			target = "local.settings.json"
		}
		writeFile(t, filepath.Join(dir, target), string(data))
	}
	data, err := os.ReadFile(filepath.Join("..", "RunAgent", "function.json"))
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "RunAgent", "function.json"), string(data))
	writeFile(t, filepath.Join(dir, "agent-runner"), "")

	var out bytes.Buffer
	failed := runChecks(&out, dir, "RunAgent")

	assert.Equal(t, 0, failed, out.String())
	assert.NotContains(t, out.String(), "FAIL")
}

func TestRunChecks_ReportsProblems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "local.settings.json"), `{"Values":{"FUNCTIONS_WORKER_RUNTIME":"python"}}`)
	writeFile(t, filepath.Join(dir, "host.json"), `{
		"version": "2.0",
		"extensionBundle": {"id": "Microsoft.Azure.Functions.ExtensionBundle"},
		"customHandler": {"description": {"defaultExecutablePath": "agent-runner"}}
	}`)

	var out bytes.Buffer
	failed := runChecks(&out, dir, "RunAgent")

	// local settings, host.json, missing executable and missing function.json
	assert.Equal(t, 4, failed)
	assert.Contains(t, out.String(), `FUNCTIONS_WORKER_RUNTIME is "python"`)
	assert.Contains(t, out.String(), "enableForwardingHttpRequest must be true")
	assert.Contains(t, out.String(), "custom handler executable not found")
	assert.Contains(t, out.String(), "function.json")
}

func TestRunChecks_MissingLocalSettingsIsFine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "host.json"), `{
		"version": "2.0",
		"extensionBundle": {"id": "Microsoft.Azure.Functions.ExtensionBundle"},
		"customHandler": {"description": {"defaultExecutablePath": "agent-runner"}, "enableForwardingHttpRequest": true}
	}`)
	writeFile(t, filepath.Join(dir, "agent-runner"), "")
	writeFile(t, filepath.Join(dir, "RunAgent", "function.json"), `{"bindings":[
		{"type":"httpTrigger","direction":"in","name":"req","authLevel":"anonymous","methods":["POST","OPTIONS"]},
		{"type":"http","direction":"out","name":"res"}
	]}`)

	var out bytes.Buffer
	assert.Equal(t, 0, runChecks(&out, dir, "RunAgent"), out.String())
}
