package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/internal/scene"
	"github.com/gravitas-games/hexalign/internal/state"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

type cliEnv struct {
	dir      string
	config   string
	stateDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	cfgPath := filepath.Join(dir, "hexalign.toml")
	cfg := "[state]\nbackend = \"file\"\ndir = \"" + filepath.ToSlash(stateDir) + "\"\n\n[log]\nlevel = \"warn\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &cliEnv{dir: dir, config: cfgPath, stateDir: stateDir}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) storedState(t *testing.T, layout, selection string) *align.State {
	t.Helper()
	store, err := state.NewFileStore(e.stateDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	abs, _ := filepath.Abs(layout)
	st, err := store.Get(context.Background(), state.Key(abs, selection))
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	return st
}

func assertOnCenters(t *testing.T, layout string, radius float64) {
	t.Helper()
	sc, err := scene.Load(layout)
	if err != nil {
		t.Fatalf("failed to load layout: %v", err)
	}
	parent, ok := sc.Find("grid")
	if !ok {
		t.Fatalf("grid node missing")
	}
	cells := hex.Disk(hex.Axial{}, 1)
	if len(parent.Children) != len(cells) {
		t.Fatalf("expected %d children, got %d", len(cells), len(parent.Children))
	}
	for i, c := range parent.Children {
		want := hex.AxialToPixel(cells[i], hex.FlatTop, radius)
		if c.Position != (scene.Vec3{X: want.X, Z: want.Y}) {
			t.Fatalf("%s: expected %+v, got %+v", c.Name, want, c.Position)
		}
	}
}

func TestGridAlignExpandContract(t *testing.T) {
	env := newCLIEnv(t)
	layout := filepath.Join(env.dir, "layout.yaml")

	if _, err := env.run(t, "grid", "-o", layout, "--rings", "1", "--jitter", "0.5", "--seed", "3"); err != nil {
		t.Fatalf("grid failed: %v", err)
	}

	out, err := env.run(t, "align", "-f", layout)
	if err != nil {
		t.Fatalf("align failed: %v", err)
	}
	if !strings.Contains(out, "grid") {
		t.Fatalf("expected summary to name the selection, got %q", out)
	}
	assertOnCenters(t, layout, 5)
	if st := env.storedState(t, layout, "grid"); st == nil || st.Radius != 5 {
		t.Fatalf("expected stored radius 5, got %+v", st)
	}

	if _, err := env.run(t, "expand", "-f", layout, "--by", "1"); err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	assertOnCenters(t, layout, 6)
	if st := env.storedState(t, layout, "grid"); st == nil || st.Radius != 6 {
		t.Fatalf("expected stored radius 6, got %+v", st)
	}

	if _, err := env.run(t, "contract", "-f", layout, "--by", "1"); err != nil {
		t.Fatalf("contract failed: %v", err)
	}
	assertOnCenters(t, layout, 5)

	if _, err := env.run(t, "state", "reset", "-f", layout); err != nil {
		t.Fatalf("state reset failed: %v", err)
	}
	if st := env.storedState(t, layout, "grid"); st != nil {
		t.Fatalf("expected no stored state after reset, got %+v", st)
	}
}

func TestAlignWritesOutput(t *testing.T) {
	env := newCLIEnv(t)
	layout := filepath.Join(env.dir, "layout.yaml")
	aligned := filepath.Join(env.dir, "aligned.yaml")

	if _, err := env.run(t, "grid", "-o", layout, "--rings", "1", "--jitter", "0.5"); err != nil {
		t.Fatalf("grid failed: %v", err)
	}
	before, _ := os.ReadFile(layout)

	if _, err := env.run(t, "align", "-f", layout, "-o", aligned, "--axes", "horizontal"); err != nil {
		t.Fatalf("align failed: %v", err)
	}
	after, _ := os.ReadFile(layout)
	if !bytes.Equal(before, after) {
		t.Fatalf("expected input layout untouched")
	}
	if _, err := os.Stat(aligned); err != nil {
		t.Fatalf("expected output layout: %v", err)
	}
	if st := env.storedState(t, layout, "grid"); st == nil || st.Axes != align.HorizontalOnly {
		t.Fatalf("expected horizontal axes stored, got %+v", st)
	}
}

func TestAlignWithoutSelection(t *testing.T) {
	env := newCLIEnv(t)
	layout := filepath.Join(env.dir, "layout.yaml")
	doc := "nodes:\n  - name: board\n    position: {x: 0, y: 0, z: 0}\n    children:\n      - name: a\n        position: {x: 7.2, y: 1, z: 4}\n"
	if err := os.WriteFile(layout, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write layout: %v", err)
	}

	out, err := env.run(t, "expand", "-f", layout)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "nothing selected") {
		t.Fatalf("expected warning, got %q", out)
	}
	after, _ := os.ReadFile(layout)
	if string(after) != doc {
		t.Fatalf("expected layout untouched")
	}
	if st := env.storedState(t, layout, ""); st != nil {
		t.Fatalf("expected nothing stored, got %+v", st)
	}

	if _, err := env.run(t, "align", "-f", layout, "--select", "board"); err != nil {
		t.Fatalf("align failed: %v", err)
	}
	sc, _ := scene.Load(layout)
	n, _ := sc.Find("board/a")
	want := hex.AxialToPixel(hex.Axial{Q: 1, R: 0}, hex.FlatTop, 5)
	if n.Position != (scene.Vec3{X: want.X, Z: want.Y}) {
		t.Fatalf("expected %+v at height 0, got %+v", want, n.Position)
	}
}

func TestSnap(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "snap", "7.2", "4")
	if err != nil {
		t.Fatalf("snap failed: %v", err)
	}
	if !strings.Contains(out, "q=1 r=0 s=-1") {
		t.Fatalf("expected cell (1,0,-1), got %q", out)
	}

	if _, err := env.run(t, "snap", "1", "1", "--orientation", "hexagonal"); err == nil {
		t.Fatalf("expected error for unknown orientation")
	}
	if _, err := env.run(t, "snap", "1", "1", "--radius", "0"); err == nil {
		t.Fatalf("expected error for zero radius")
	}
	if _, err := env.run(t, "snap", "one", "1"); err == nil {
		t.Fatalf("expected error for non-numeric X")
	}
}

func TestVerboseOverridesConfigLevel(t *testing.T) {
	env := newCLIEnv(t)

	for _, verbose := range []bool{false, true} {
		var out, errOut bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetErr(&errOut)
		args := []string{"--config", env.config, "snap", "1", "1"}
		if verbose {
			args = append([]string{"--verbose"}, args...)
		}
		root.SetArgs(args)
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("snap failed: %v", err)
		}
		if got := strings.Contains(errOut.String(), "configuration loaded"); got != verbose {
			t.Fatalf("verbose=%v: unexpected debug output %q", verbose, errOut.String())
		}
	}
}
