// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrpackify/mrpackify/internal/issue"
	"github.com/mrpackify/mrpackify/internal/modpack"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
)

// clearEnv blanks every variable the config loader reads so host CI
// settings cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"MRPACKIFY_BEFORE", "GITHUB_EVENT_BEFORE", "BEFORE_SHA",
		"MRPACKIFY_AFTER", "AFTER_SHA", "GITHUB_SHA",
		"MRPACKIFY_EVENT", "GITHUB_EVENT_NAME",
		"MRPACKIFY_MANUAL", "MRPACKIFY_MODPACKS_DIR", "MRPACKIFY_VERBOSE",
	} {
		t.Setenv(name, "")
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("unset %s: %v", name, err)
		}
	}
}

// execute runs a fresh root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	t.Logf("stderr:\n%s", stderr.String())
	return stdout.String(), err
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for member, content := range files {
		w, err := zw.Create(member)
		if err != nil {
			t.Fatalf("create member %s: %v", member, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write member %s: %v", member, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("finish archive: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// initRepo creates a git repository in dir and returns a function that
// writes one file (slash path relative to dir) and commits it.
func initRepo(t *testing.T, dir string) func(name string, data []byte) {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("cannot initialize git repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}

	return func(name string, data []byte) {
		t.Helper()
		writeFile(t, filepath.Join(dir, filepath.FromSlash(name)), data)
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("stage %s: %v", name, err)
		}
		if _, err := wt.Commit("add "+name, &git.CommitOptions{
			Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
		}); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
}

func TestGetVersionString(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	Version = "dev"
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q", got)
	}

	Version = "1.2.3"
	if got := getVersionString(); !strings.HasPrefix(got, "1.2.3 (commit: ") {
		t.Errorf("getVersionString() = %q, want release format", got)
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := error(&ExitError{Code: ExitFailure, Err: inner})
	if !errors.Is(err, inner) {
		t.Error("ExitError should unwrap to its cause")
	}
	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", err.Error(), "boom")
	}
	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() without cause = %q", got)
	}
}

func TestFlagOverrides_OnlyChangedFlags(t *testing.T) {
	t.Parallel()

	opts := &rootOptions{}
	cmd := newRootCmd()
	// Rebind flags onto opts so the test can inspect the parsed values.
	cmd.ResetFlags()
	flags := cmd.Flags()
	flags.BoolVarP(&opts.manual, "manual", "m", false, "")
	flags.StringVar(&opts.modpacksDir, "modpacks-dir", "modpacks", "")
	flags.StringVar(&opts.before, "before", "HEAD~1", "")
	flags.StringVar(&opts.after, "after", "HEAD", "")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "")

	if err := flags.Parse([]string{"-m", "--before", "abc"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := map[string]any{"manual": true, "before": "abc"}
	if diff := cmp.Diff(want, flagOverrides(cmd, opts)); diff != "" {
		t.Errorf("flagOverrides() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoot_NothingToProcess(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "--manual", "--root", t.TempDir())
	if err != nil {
		t.Fatalf("execute() error = %v, want nil", err)
	}
	if !strings.Contains(out, "No modpacks to process") {
		t.Errorf("output = %q, want empty-run message", out)
	}
}

func TestRoot_ManualProcessesArchives(t *testing.T) {
	clearEnv(t)

	root := t.TempDir()
	packDir := filepath.Join(root, "modpacks", "skyblock")
	writeFile(t, filepath.Join(packDir, "upload.mrpack"), zipBytes(t, map[string]string{
		modpack.IndexMember: `{"formatVersion":1,"name":"Skyblock"}`,
	}))

	out, err := execute(t, "-m", "--root", root)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(out, "Processed 1 modpack(s)") || !strings.Contains(out, "skyblock") {
		t.Errorf("output = %q, want one processed instance", out)
	}

	index, err := os.ReadFile(filepath.Join(packDir, modpack.IndexMember))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(index), `"id": "skyblock"`) {
		t.Errorf("index = %s, want id field", index)
	}
	if _, err := os.Stat(filepath.Join(packDir, "instance.mrpack")); err != nil {
		t.Errorf("canonical archive missing: %v", err)
	}
}

func TestRoot_SecondArchiveFailsExitsOne(t *testing.T) {
	clearEnv(t)

	root := t.TempDir()
	good := filepath.Join(root, "modpacks", "a")
	writeFile(t, filepath.Join(good, "first.mrpack"), zipBytes(t, map[string]string{
		modpack.IndexMember: `{"name":"A"}`,
	}))
	writeFile(t, filepath.Join(root, "modpacks", "b", "second.mrpack"), []byte("not a zip"))

	_, err := execute(t, "--manual", "--root", root)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("execute() error = %v, want *ExitError", err)
	}
	if exitErr.Code != ExitFailure {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitFailure)
	}
	for _, name := range []string{"instance.mrpack", modpack.IndexMember} {
		if _, err := os.Stat(filepath.Join(good, name)); err != nil {
			t.Errorf("%s from the first archive should persist: %v", name, err)
		}
	}
}

func TestRoot_InvalidConfigExitsOne(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "--root", t.TempDir(), "--config", "does-not-exist.cue")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitFailure {
		t.Fatalf("execute() error = %v, want ExitError with code %d", err, ExitFailure)
	}
}

func TestRoot_IncrementalProcessesChangedArchive(t *testing.T) {
	clearEnv(t)

	root := t.TempDir()
	commit := initRepo(t, root)

	commit("modpacks/old/instance.mrpack", zipBytes(t, map[string]string{modpack.IndexMember: `{"name":"Old"}`}))
	commit("modpacks/new/pack.mrpack", zipBytes(t, map[string]string{modpack.IndexMember: `{"name":"New"}`}))

	out, err := execute(t, "--root", root)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(out, "Processed 1 modpack(s)") {
		t.Errorf("output = %q, want exactly one processed archive", out)
	}
	if _, err := os.Stat(filepath.Join(root, "modpacks", "new", "instance.mrpack")); err != nil {
		t.Errorf("changed archive not renamed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "modpacks", "old", modpack.IndexMember)); !os.IsNotExist(err) {
		t.Errorf("unchanged archive should be left alone (stat err = %v)", err)
	}
}

func TestRoot_IncrementalFromNestedRoot(t *testing.T) {
	clearEnv(t)

	top := t.TempDir()
	commit := initRepo(t, top)
	commit("README.md", []byte("monorepo"))
	commit("site/modpacks/alpha/pack.mrpack", zipBytes(t, map[string]string{modpack.IndexMember: `{"name":"Alpha"}`}))

	root := filepath.Join(top, "site")
	out, err := execute(t, "--root", root)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(out, "Processed 1 modpack(s)") {
		t.Errorf("output = %q, want the archive below the nested root processed", out)
	}
	if _, err := os.Stat(filepath.Join(root, "modpacks", "alpha", "instance.mrpack")); err != nil {
		t.Errorf("changed archive not renamed: %v", err)
	}
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	summary := &modpack.Summary{
		Results: []*modpack.Result{{Instance: "alpha", SHA1: strings.Repeat("ab", 20)}},
		Skipped: 2,
	}
	got := renderSummary(summary)
	for _, want := range []string{"Processed 1 modpack(s)", "2 skipped", "alpha", "abababababab"} {
		if !strings.Contains(got, want) {
			t.Errorf("renderSummary() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, strings.Repeat("ab", 20)) {
		t.Errorf("renderSummary() should shorten the hash: %q", got)
	}
}

func TestFailure_PrintsSuggestions(t *testing.T) {
	t.Parallel()

	cause := errors.New("zip: not a valid zip file")
	actionable := issue.NewErrorContext().
		WithOperation("extract modrinth.index.json").
		WithResource("modpacks/a/x.mrpack").
		WithSuggestion("Check the archive").
		Wrap(cause).
		BuildError()

	tests := []struct {
		name      string
		err       error
		verbose   bool
		wantParts []string
		wantEmpty bool
	}{
		{name: "suggestions", err: actionable, wantParts: []string{"Details: ", "Check the archive"}},
		{name: "verbose chain", err: actionable, verbose: true, wantParts: []string{"Error chain:", "not a valid zip file"}},
		{name: "plain error", err: cause, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			c := newRootCmd()
			c.SetErr(&stderr)

			err := failure(c, tt.err, tt.verbose)
			var exitErr *ExitError
			if !errors.As(err, &exitErr) || exitErr.Code != ExitFailure || !errors.Is(err, tt.err) {
				t.Fatalf("failure() = %v, want ExitError wrapping the cause", err)
			}
			if tt.wantEmpty {
				if stderr.Len() != 0 {
					t.Errorf("stderr = %q, want nothing for a plain error", stderr.String())
				}
				return
			}
			for _, part := range tt.wantParts {
				if !strings.Contains(stderr.String(), part) {
					t.Errorf("stderr = %q, missing %q", stderr.String(), part)
				}
			}
		})
	}
}
