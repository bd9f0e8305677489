package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTrace = `{"log":{
  "pages":[{"id":"page_1","title":"Login"}],
  "entries":[
    {"pageref":"page_1","request":{"method":"GET","url":"http://shop.example/login",
      "headers":[{"name":"accept","value":"text/html"}]}},
    {"pageref":"page_1","request":{"method":"POST","url":"http://shop.example/login",
      "headers":[{"name":"content-type","value":"application/x-www-form-urlencoded"}],
      "postData":{"mimeType":"application/x-www-form-urlencoded","params":[{"name":"user","value":"bob"}]}}}
  ]}}`

func writeTrace(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.har")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write trace: %v", err)
	}
	return path
}

func isolateSettings(t *testing.T) {
	t.Helper()
	t.Setenv("HAR2GRINDER_SETTINGS", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("HAR2GRINDER_EXCLUDED_DOMAINS", "")
	t.Setenv("HAR2GRINDER_SLEEP_BETWEEN_PAGES", "")
	t.Setenv("HAR2GRINDER_FIRST_PAGE_NUMBER", "")
}

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"a.har", "b.har"}, {"-h"}, {"--help"}} {
		var stdout, stderr bytes.Buffer
		if code := run(args, &stdout, &stderr); code != exitError {
			t.Fatalf("run(%q) = %d, want %d", args, code, exitError)
		}
		if stdout.Len() != 0 {
			t.Fatalf("run(%q) wrote to stdout", args)
		}
		if !strings.Contains(stderr.String(), "usage: har2grinder") {
			t.Fatalf("run(%q) stderr = %q, want usage", args, stderr.String())
		}
	}
}

func TestRunCompilesTrace(t *testing.T) {
	isolateSettings(t)
	path := writeTrace(t, sampleTrace)

	var stdout, stderr bytes.Buffer
	if code := run([]string{path}, &stdout, &stderr); code != exitOK {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{
		"request1001 = createRequest(Test(1001, 'GET /login'), 'http://shop.example', headers1001)",
		"request1002.POST('login', (NVPair('user', 'bob'),))",
		"Test(1000, 'page_1').record(TestRunner.page1)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("script missing %q:\n%s", want, out)
		}
	}
}

func TestRunHonoursEnvSettings(t *testing.T) {
	isolateSettings(t)
	t.Setenv("HAR2GRINDER_FIRST_PAGE_NUMBER", "5")
	path := writeTrace(t, sampleTrace)

	var stdout, stderr bytes.Buffer
	if code := run([]string{path}, &stdout, &stderr); code != exitOK {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Test(6000, 'page_1')") {
		t.Fatalf("first page base not applied:\n%s", stdout.String())
	}
}

func TestRunErrorsLeaveStdoutEmpty(t *testing.T) {
	isolateSettings(t)
	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.har"), "INPUT_ACCESS"},
		{"not json", writeTrace(t, "not json"), "INPUT_PARSE"},
		{"unknown page", writeTrace(t, `{"log":{"pages":[],"entries":[
			{"pageref":"page_9","request":{"method":"GET","url":"http://a.example/","headers":[]}}]}}`), "UNKNOWN_PAGE_REF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run([]string{tt.path}, &stdout, &stderr); code != exitError {
				t.Fatalf("run() = %d, want %d", code, exitError)
			}
			if stdout.Len() != 0 {
				t.Fatalf("stdout = %q, want empty", stdout.String())
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Fatalf("stderr = %q, want %s", stderr.String(), tt.want)
			}
		})
	}
}
