package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sorbet-validators/internal/config"
	"sorbet-validators/internal/server"
)

const gizmoIR = `
title: Gizmo Store
majorVersion: 2
interfaces:
  - name: gizmo
    methods:
      - name: createGizmo
        parameters:
          - name: name
            typeName: string
            isRequired: true
            rules:
              - id: string-max-length
                length: 5
types:
  - name: gizmo
    properties:
      - name: id
        typeName: string
        isRequired: true
`

// execute запускает корневую команду с чистыми значениями флагов.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile, envFile, logLevel, logFormat = "", defaultEnvFile, "error", ""
	generateOut = "."
	checkInput, checkFail = "null", false
	clientAddr, clientToken, clientSource, watchCount = "", "", "", 0
	clientTimeout = 10 * time.Second

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestGenerate(t *testing.T) {
	irPath := writeFile(t, "api.yaml", gizmoIR)
	out := t.TempDir()

	stdout, err := execute(t, "generate", "--ir", irPath, "--out", out)
	require.NoError(t, err)

	validatorsPath := filepath.Join(out, "gizmo_store", "v2", "interfaces", "validators.rb")
	assert.Equal(t, []string{
		filepath.Join(out, "gizmo_store", "v2", "types", "validation_error.rb"),
		validatorsPath,
	}, strings.Split(strings.TrimSpace(stdout), "\n"))

	data, err := os.ReadFile(validatorsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Source: api.yaml\n")
	assert.Contains(t, string(data), "module GizmoStore::V2::Interfaces\n")
	assert.Contains(t, string(data), "def validate_gizmo(gizmo)\n")
}

func TestGenerate_Config(t *testing.T) {
	irPath := writeFile(t, "api.yaml", gizmoIR)
	cfgPath := writeFile(t, "config.yaml", `
basketry:
  subfolder: lib
sorbet:
  namespace: Acme
  runtime: false
  rubocop_disable: [Style/Next]
`)
	out := t.TempDir()

	_, err := execute(t, "--config", cfgPath, "generate", "--ir", irPath, "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "lib", "acme", "interfaces", "validators.rb"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# rubocop:disable Style/Next\n")
	assert.NotContains(t, string(data), "is required")
}

func TestGenerate_Errors(t *testing.T) {
	_, err := execute(t, "generate", "--ir", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	badIR := writeFile(t, "bad.yaml", "title: Bad\ntypes:\n  - name: thing\n    properties:\n      - name: x\n        typeName: string\n        rules:\n          - id: string-palindrome\n")
	_, err = execute(t, "generate", "--ir", badIR, "--out", t.TempDir())
	assert.Error(t, err)

	irPath := writeFile(t, "api.yaml", gizmoIR)
	_, err = execute(t, "--log-level", "loud", "generate", "--ir", irPath, "--out", t.TempDir())
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	irPath := writeFile(t, "api.yaml", gizmoIR)

	tests := []struct {
		name      string
		validator string
		input     string
		want      []string
	}{
		{"valid parameters", "validate_create_gizmo_parameters", `{"name": "abc"}`, nil},
		{"too long", "validate_create_gizmo_parameters", `{"name": "abcdef"}`, []string{"STRING_MAX_LENGTH@name"}},
		{"missing", "validate_create_gizmo_parameters", `{}`, []string{"REQUIRED@name"}},
		{"type from yaml", "validate_gizmo", "id: 5", []string{"TYPE@gizmo.id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, err := execute(t, "check", "--ir", irPath, "--validator", tt.validator, "--input", tt.input)
			require.NoError(t, err)

			var out struct {
				Errors []struct{ Code, Path string }
			}
			require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)

			var got []string
			for _, e := range out.Errors {
				got = append(got, e.Code+"@"+e.Path)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_InputFileAndFail(t *testing.T) {
	irPath := writeFile(t, "api.yaml", gizmoIR)
	inputPath := writeFile(t, "input.json", `{"name": "abcdef"}`)

	stdout, err := execute(t, "check", "--ir", irPath, "--validator", "validate_create_gizmo_parameters", "--input", "@"+inputPath, "--fail")
	assert.True(t, errors.Is(err, errValidationFailed))
	assert.Contains(t, stdout, "STRING_MAX_LENGTH")

	_, err = execute(t, "check", "--ir", irPath, "--validator", "validate_nothing")
	assert.Error(t, err)

	_, err = execute(t, "check", "--ir", irPath, "--validator", "validate_gizmo", "--input", "@"+filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

func TestClient(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv, err := server.NewServer(&config.Config{
		Server:  &config.ConfigServer{GracefulShutdownTimeout: 5, AuthToken: "secret"},
		Gateway: &config.ConfigGateway{CORSAllowedOrigins: "*"},
		IR:      &config.ConfigIR{StrictRules: true},
	}, log)
	require.NoError(t, err)
	require.NoError(t, srv.Initialize())
	srv.Start()
	t.Cleanup(func() { _ = srv.Shutdown() })

	irPath := writeFile(t, "api.yaml", gizmoIR)

	_, err = execute(t, "client", "compile", "--addr", srv.GRPCAddr(), "--ir", irPath)
	assert.Error(t, err, "token is required")

	stdout, err := execute(t, "client", "compile", "--addr", srv.GRPCAddr(), "--token", "secret", "--ir", irPath, "--source", "api.yaml")
	require.NoError(t, err)

	var compiled struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Files []struct {
			Path     string `json:"path"`
			Contents string `json:"contents"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &compiled), stdout)
	assert.Equal(t, "Gizmo Store", compiled.Title)
	require.Len(t, compiled.Files, 2)
	assert.Contains(t, compiled.Files[1].Contents, "# Source: api.yaml\n")

	stdout, err = execute(t, "client", "get", compiled.ID, "--addr", srv.GRPCAddr(), "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, stdout, compiled.ID)

	stdout, err = execute(t, "client", "list", "--addr", srv.GRPCAddr(), "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, stdout, compiled.ID)
}

// TestClient_EnvFile проверяет адрес и токен из --env-file.
func TestClient_EnvFile(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv, err := server.NewServer(&config.Config{
		Server:  &config.ConfigServer{GracefulShutdownTimeout: 5, AuthToken: "secret"},
		Gateway: &config.ConfigGateway{CORSAllowedOrigins: "*"},
		IR:      &config.ConfigIR{StrictRules: true},
	}, log)
	require.NoError(t, err)
	require.NoError(t, srv.Initialize())
	srv.Start()
	t.Cleanup(func() { _ = srv.Shutdown() })

	for _, key := range []string{"SERVER_ADDRESS", "AUTH_TOKEN"} {
		_, exists := os.LookupEnv(key)
		require.False(t, exists, "%s must not be set for this test", key)
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	envPath := writeFile(t, "client.env", "SERVER_ADDRESS="+srv.GRPCAddr()+"\nAUTH_TOKEN=secret\n")

	stdout, err := execute(t, "--env-file", envPath, "client", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "compilations")

	_, err = execute(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "client", "list")
	assert.Error(t, err)
}
