package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/simserver"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sampleState() model.AnalysisState {
	s := model.EmptyAnalysisState()
	s.IsRunning = true
	s.CurrentFrame = 25
	s.TotalFrames = 100
	s.DefectCounter[model.DefectBlob] = 3
	return s
}

func TestWriteStatusYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeStatus(&buf, "yaml", sampleState()); err != nil {
		t.Fatalf("writeStatus: %v", err)
	}
	var got map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not yaml: %v\n%s", err, buf.String())
	}
	if got["status"] != "ANALYZING" || got["total_defects"] != 3 {
		t.Fatalf("report = %v", got)
	}
}

func TestWriteStatusJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeStatus(&buf, "json", sampleState()); err != nil {
		t.Fatalf("writeStatus: %v", err)
	}
	var got statusReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if got.Progress != 25 || got.State.CurrentFrame != 25 {
		t.Fatalf("report = %+v", got)
	}
}

func TestWriteStatusUnknownFormat(t *testing.T) {
	if err := writeStatus(&bytes.Buffer{}, "xml", sampleState()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProbeAndStatusAgainstSimulator(t *testing.T) {
	engine := simserver.NewEngine(simserver.Config{TotalFrames: 50})
	srv := httptest.NewServer(simserver.NewServer("", engine).Handler())
	defer srv.Close()
	base := srv.URL + "/api"

	out, err := execute(t, "probe", "--base-url", base)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !strings.Contains(out, "reachable") {
		t.Fatalf("probe output = %q", out)
	}

	if err := engine.Start("/videos/print.mov"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "status", "--base-url", base, "-o", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("status output: %v\n%s", err, out)
	}
	if !report.State.IsRunning || report.State.TotalFrames != 50 {
		t.Fatalf("state = %+v", report.State)
	}
}

func TestProbeFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	base := srv.URL + "/api"
	srv.Close()

	if _, err := execute(t, "probe", "--base-url", base, "--request-timeout", "500ms"); err == nil {
		t.Fatal("expected probe to fail against a closed server")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Version:") {
		t.Fatalf("version output = %q", out)
	}
}
