package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, dir string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"--project", dir, "--no-color", "--log-level", "error"}
	code := cli(append(base, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if code, _, stderr := run(t, dir, "init"); code != 0 {
		t.Fatalf("init exit %d: %s", code, stderr)
	}
	return dir
}

func readData(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "game_data", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(b)
}

func TestInitWritesConfigAndSeededProject(t *testing.T) {
	dir := initProject(t)
	if _, err := os.Stat(filepath.Join(dir, ".tacticsdb.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(readData(t, dir, "levels.json"), `"Prologue"`) {
		t.Fatalf("levels not seeded")
	}
	if _, err := os.Stat(filepath.Join(dir, "game_data", "metadata.json")); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}

	code, _, stderr := run(t, dir, "init")
	if code != 1 || !strings.Contains(stderr, "already exists") {
		t.Fatalf("second init: exit %d, %q", code, stderr)
	}
	if code, _, stderr := run(t, dir, "init", "--force"); code != 0 {
		t.Fatalf("forced init: exit %d, %q", code, stderr)
	}
}

func TestStats(t *testing.T) {
	dir := initProject(t)
	code, stdout, _ := run(t, dir, "stats")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"save ", "schema 1.2.0", "weapon_ranks", "total"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("stats output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRenameCascadesAndSaves(t *testing.T) {
	dir := initProject(t)
	code, stdout, stderr := run(t, dir, "rename", "parties", "eirika", "ephraim")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "renamed parties eirika -> ephraim (1 references, 0 keys)") {
		t.Fatalf("unexpected output %q", stdout)
	}
	if !strings.Contains(readData(t, dir, "levels.json"), `"party": "ephraim"`) {
		t.Fatalf("level party not rewritten:\n%s", readData(t, dir, "levels.json"))
	}

	code, _, stderr = run(t, dir, "rename", "teams", "enemy", "player")
	if code != 1 || !strings.Contains(stderr, "duplicate nid") {
		t.Fatalf("taken rename: exit %d, %q", code, stderr)
	}
	code, stdout, _ = run(t, dir, "rename", "--probe", "teams", "enemy", "player")
	if code != 0 || !strings.Contains(stdout, "-> player (1)") {
		t.Fatalf("probed rename: exit %d, %q", code, stdout)
	}
}

func TestDeleteNeedsSwap(t *testing.T) {
	dir := initProject(t)
	before := readData(t, dir, "weapons.json")
	code, stdout, _ := run(t, dir, "delete", "weapons", "Sword")
	if code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "2 entities reference weapons Sword") || !strings.Contains(stdout, "--swap") {
		t.Fatalf("unexpected output %q", stdout)
	}
	if readData(t, dir, "weapons.json") != before {
		t.Fatalf("refused delete changed weapons.json")
	}

	code, stdout, _ = run(t, dir, "delete", "weapons", "Sword", "--swap", "Lance")
	if code != 0 || !strings.Contains(stdout, "deleted weapons Sword (2 references now point at Lance)") {
		t.Fatalf("swap delete: exit %d, %q", code, stdout)
	}
	if strings.Contains(readData(t, dir, "weapons.json"), `"Sword"`) {
		t.Fatalf("Sword still present")
	}

	code, stdout, _ = run(t, dir, "delete", "weapons", "Default")
	if code != 0 || !strings.Contains(stdout, "deleted weapons Default") {
		t.Fatalf("plain delete: exit %d, %q", code, stdout)
	}
}

func TestCreateDuplicateAndImpact(t *testing.T) {
	dir := initProject(t)
	code, stdout, _ := run(t, dir, "create", "levels")
	if code != 0 || strings.TrimSpace(stdout) != "1" {
		t.Fatalf("create level: exit %d, %q", code, stdout)
	}
	code, stdout, _ = run(t, dir, "create", "units", "--name", "New Unit")
	if code != 0 || strings.TrimSpace(stdout) != "New Unit" {
		t.Fatalf("create unit: exit %d, %q", code, stdout)
	}
	code, stdout, _ = run(t, dir, "duplicate", "ai", "Attack")
	if code != 0 || strings.TrimSpace(stdout) != "Attack (1)" {
		t.Fatalf("duplicate: exit %d, %q", code, stdout)
	}
	code, stdout, _ = run(t, dir, "impact", "parties", "eirika")
	if code != 0 || !strings.Contains(stdout, "levels") || !strings.Contains(stdout, "0 (party)") {
		t.Fatalf("impact: exit %d, %q", code, stdout)
	}
	code, stdout, _ = run(t, dir, "impact", "units", "New Unit")
	if code != 0 || !strings.Contains(stdout, "nothing references units New Unit") {
		t.Fatalf("empty impact: exit %d, %q", code, stdout)
	}
	code, _, stderr := run(t, dir, "impact", "weather", "x")
	if code != 1 || !strings.Contains(stderr, `unknown catalog "weather"`) {
		t.Fatalf("unknown catalog: exit %d, %q", code, stderr)
	}
}

func TestCheckReportsDanglingReferences(t *testing.T) {
	dir := initProject(t)
	code, stdout, _ := run(t, dir, "check")
	if code != 0 || !strings.Contains(stdout, "no problems found") {
		t.Fatalf("clean check: exit %d, %q", code, stdout)
	}

	units := `[{"nid":"Seth","klass":"Paladn"}]`
	if err := os.WriteFile(filepath.Join(dir, "game_data", "units.json"), []byte(units), 0o600); err != nil {
		t.Fatalf("write units: %v", err)
	}
	code, stdout, _ = run(t, dir, "check")
	if code != 1 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `units Seth klass -> classes "Paladn"`) || !strings.Contains(stdout, "1 problems") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestExportImportSQLite(t *testing.T) {
	dir := initProject(t)
	t.Setenv("TACTICSDB_SNAPSHOT_SQLITE_PATH", filepath.Join(dir, "snapshots", "project.db"))
	if code, _, stderr := run(t, dir, "export"); code != 0 {
		t.Fatalf("export: exit %d, %s", code, stderr)
	}
	if code, _, stderr := run(t, dir, "rename", "parties", "eirika", "innes"); code != 0 {
		t.Fatalf("rename: exit %d, %s", code, stderr)
	}
	code, stdout, stderr := run(t, dir, "import")
	if code != 0 || !strings.Contains(stdout, "imported from sqlite") {
		t.Fatalf("import: exit %d, %q %q", code, stdout, stderr)
	}
	if !strings.Contains(readData(t, dir, "parties.json"), `"eirika"`) {
		t.Fatalf("import did not restore parties")
	}
}

func TestUsageAndConfigErrors(t *testing.T) {
	dir := t.TempDir()
	if code, _, _ := run(t, dir, "--bogus"); code != 2 {
		t.Fatalf("unknown flag: exit %d", code)
	}
	var stdout, stderr bytes.Buffer
	code := cli([]string{"--project", dir, "--log-level", "loud", "stats"}, &stdout, &stderr)
	if code != 1 || !strings.Contains(stderr.String(), "log_level") {
		t.Fatalf("bad config: exit %d, %q", code, stderr.String())
	}
	if code, _, stderr := run(t, dir, "rename", "units"); code != 1 || !strings.Contains(stderr, "accepts 3 arg(s)") {
		t.Fatalf("arg count: exit %d, %q", code, stderr)
	}
}

func TestWatchRequiresFilesystemDriver(t *testing.T) {
	t.Setenv("TACTICSDB_BLOB_DRIVER", "memory")
	code, _, stderr := run(t, t.TempDir(), "watch")
	if code != 1 || !strings.Contains(stderr, "watch needs the fs blob driver") {
		t.Fatalf("exit %d, %q", code, stderr)
	}
}

func TestWatchReloadsUntilCancelled(t *testing.T) {
	dir := initProject(t)
	t.Setenv("TACTICSDB_METRICS_ADDR", "127.0.0.1:0")
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr)
	root.SetArgs([]string{"--project", dir, "--no-color", "--log-level", "error", "watch", "--debounce", "10ms"})
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("watch: %v (%s)", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "no problems found") {
		t.Fatalf("initial reload missing: %q", stdout.String())
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	oldArgs, oldExit := os.Args, exitFunc
	t.Cleanup(func() { os.Args, exitFunc = oldArgs, oldExit })
	os.Args = []string{"tacticsdb", "--help"}
	code := -1
	exitFunc = func(c int) { code = c }
	main()
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
}
