package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/voxflow/voxflow/internal/testutil"
	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
	"github.com/voxflow/voxflow/pkg/engine/node"
)

// serialExecutor is a minimal in-package executor so run.go can be tested
// without importing the plugins package (which imports this one).
type serialExecutor struct{}

func (serialExecutor) Execute(ctx context.Context, ex *Execution) error {
	ok := make(map[*Instance]bool)
	for _, inst := range ex.Instances() {
		ready := true
		for _, dep := range inst.Deps() {
			if !ok[dep] {
				ready = false
			}
		}
		if !ready {
			ex.Skip(inst)
			continue
		}
		if err := ex.RunInstance(ctx, inst); err == nil {
			ok[inst] = true
		}
	}
	return nil
}

func init() {
	RegisterExecutor("testserial", serialExecutor{})
}

// recordingSink captures run events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(event any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev, ok := event.(Event); ok {
		s.events = append(s.events, ev)
	}
}

func (s *recordingSink) kinds() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, ev := range s.events {
		out[ev.Kind]++
	}
	return out
}

// passNode builds a node whose interface copies one input to one output and
// drops a marker file into its instance directory.
func passNode(name, in, out string) *node.Node {
	iface := node.NewFunc([]string{in}, []string{out},
		func(_ context.Context, rt node.Runtime, vals node.Values) (node.Values, error) {
			marker := filepath.Join(rt.Dir, "ran.txt")
			if err := os.WriteFile(marker, []byte(fmt.Sprintf("%v", vals[in])), 0o644); err != nil {
				return nil, err
			}
			return node.Values{out: vals[in]}, nil
		})
	return node.New(name, iface)
}

func TestAddRejectsDuplicateName(t *testing.T) {
	wf := New("flow", t.TempDir())
	testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out")))
	testutil.AssertError(t, wf.Add(passNode("a", "in", "out")))
}

func TestConnectValidation(t *testing.T) {
	newWF := func(t *testing.T) *Workflow {
		wf := New("flow", t.TempDir())
		testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out"), passNode("b", "in", "out")))
		return wf
	}

	t.Run("unknown source node", func(t *testing.T) {
		err := newWF(t).Connect("missing", "out", "b", "in")
		if !errors.Is(err, vferrors.ErrUnknownNode) {
			t.Fatalf("want ErrUnknownNode, got %v", err)
		}
	})

	t.Run("unknown output port", func(t *testing.T) {
		err := newWF(t).Connect("a", "nope", "b", "in")
		if !errors.Is(err, vferrors.ErrUnknownPort) {
			t.Fatalf("want ErrUnknownPort, got %v", err)
		}
	})

	t.Run("unknown input port", func(t *testing.T) {
		err := newWF(t).Connect("a", "out", "b", "nope")
		if !errors.Is(err, vferrors.ErrUnknownPort) {
			t.Fatalf("want ErrUnknownPort, got %v", err)
		}
	})

	t.Run("self loop", func(t *testing.T) {
		err := newWF(t).Connect("a", "out", "a", "in")
		if !errors.Is(err, vferrors.ErrCycle) {
			t.Fatalf("want ErrCycle, got %v", err)
		}
	})

	t.Run("duplicate inbound connection", func(t *testing.T) {
		wf := newWF(t)
		testutil.AssertNoError(t, wf.Add(passNode("c", "in", "out")))
		testutil.AssertNoError(t, wf.Connect("a", "out", "b", "in"))
		err := wf.Connect("c", "out", "b", "in")
		if !errors.Is(err, vferrors.ErrPortConnected) {
			t.Fatalf("want ErrPortConnected, got %v", err)
		}
	})

	t.Run("static value clash", func(t *testing.T) {
		wf := New("flow", t.TempDir())
		b := passNode("b", "in", "out")
		b.SetInput("in", "fixed")
		testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out"), b))
		err := wf.Connect("a", "out", "b", "in")
		if !errors.Is(err, vferrors.ErrPortConnected) {
			t.Fatalf("want ErrPortConnected, got %v", err)
		}
	})

	t.Run("iterables clash", func(t *testing.T) {
		wf := New("flow", t.TempDir())
		b := passNode("b", "in", "out")
		b.Iterate("in", 1, 2)
		testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out"), b))
		err := wf.Connect("a", "out", "b", "in")
		if !errors.Is(err, vferrors.ErrPortConnected) {
			t.Fatalf("want ErrPortConnected, got %v", err)
		}
	})
}

func TestValidateRejectsConflictsDeclaredAfterConnect(t *testing.T) {
	t.Run("static value on connected port", func(t *testing.T) {
		wf := New("flow", t.TempDir())
		b := passNode("b", "in", "out")
		testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out"), b))
		testutil.AssertNoError(t, wf.Connect("a", "out", "b", "in"))

		// Declared after Connect, so only Validate can catch it.
		b.SetInput("in", "fixed")

		err := wf.Validate()
		if !errors.Is(err, vferrors.ErrPortConnected) {
			t.Fatalf("want ErrPortConnected, got %v", err)
		}
	})

	t.Run("iterables on connected port", func(t *testing.T) {
		wf := New("flow", t.TempDir())
		b := passNode("b", "in", "out")
		testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out"), b))
		testutil.AssertNoError(t, wf.Connect("a", "out", "b", "in"))

		b.Iterate("in", 1, 2)

		err := wf.Validate()
		if !errors.Is(err, vferrors.ErrPortConnected) {
			t.Fatalf("want ErrPortConnected, got %v", err)
		}
	})
}

func TestValidateDetectsCycle(t *testing.T) {
	wf := New("flow", t.TempDir())
	a := node.New("a", node.NewFunc([]string{"in"}, []string{"out"}, echo))
	b := node.New("b", node.NewFunc([]string{"in"}, []string{"out"}, echo))
	c := node.New("c", node.NewFunc([]string{"in"}, []string{"out"}, echo))
	testutil.AssertNoError(t, wf.Add(a, b, c))
	testutil.AssertNoError(t, wf.Connect("a", "out", "b", "in"))
	testutil.AssertNoError(t, wf.Connect("b", "out", "c", "in"))
	testutil.AssertNoError(t, wf.Connect("c", "out", "a", "in"))

	err := wf.Validate()
	if !errors.Is(err, vferrors.ErrCycle) {
		t.Fatalf("want ErrCycle, got %v", err)
	}
}

func echo(_ context.Context, _ node.Runtime, in node.Values) (node.Values, error) {
	return node.Values{"out": in["in"]}, nil
}

func TestExpandNoIterables(t *testing.T) {
	wf := New("flow", t.TempDir())
	testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out"), passNode("b", "in", "out")))
	testutil.AssertNoError(t, wf.Connect("a", "out", "b", "in"))

	instances, err := wf.expand()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(instances), 2)
	for _, inst := range instances {
		testutil.AssertEqual(t, inst.Branch().Dir(), "")
	}
}

func TestExpandSingleIterable(t *testing.T) {
	wf := New("flow", t.TempDir())
	strip := passNode("strip", "in_file", "out_file")
	smooth := node.New("smooth", node.NewFunc([]string{"in_file", "fwhm"}, []string{"out_file"},
		func(_ context.Context, _ node.Runtime, in node.Values) (node.Values, error) {
			return node.Values{"out_file": in["in_file"]}, nil
		}))
	smooth.Iterate("fwhm", 4.0, 8.0, 16.0)

	testutil.AssertNoError(t, wf.Add(strip, smooth))
	testutil.AssertNoError(t, wf.Connect("strip", "out_file", "smooth", "in_file"))

	instances, err := wf.expand()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(instances), 4) // 1 strip + 3 smooth

	var dirs []string
	for _, inst := range instances {
		if inst.Node().Name() == "smooth" {
			dirs = append(dirs, inst.Branch().Dir())
			testutil.AssertEqual(t, len(inst.Deps()), 1)
			testutil.AssertEqual(t, inst.Deps()[0].Node().Name(), "strip")
		}
	}
	testutil.AssertEqual(t, len(dirs), 3)
	testutil.AssertEqual(t, dirs[0], "_fwhm_4")
	testutil.AssertEqual(t, dirs[1], "_fwhm_8")
	testutil.AssertEqual(t, dirs[2], "_fwhm_16")
}

func TestExpandCartesianProduct(t *testing.T) {
	wf := New("flow", t.TempDir())

	source := node.New("infosource", node.Identity("subject_id"))
	source.Iterate("subject_id", "sub01", "sub02")

	smooth := node.New("smooth", node.NewFunc([]string{"in_file", "fwhm"}, []string{"out_file"},
		func(_ context.Context, _ node.Runtime, in node.Values) (node.Values, error) {
			return node.Values{"out_file": in["in_file"]}, nil
		}))
	smooth.Iterate("fwhm", 4, 8, 16)

	testutil.AssertNoError(t, wf.Add(source, smooth))
	testutil.AssertNoError(t, wf.Connect("infosource", "subject_id", "smooth", "in_file"))

	instances, err := wf.expand()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(instances), 2+2*3)

	var smoothDirs []string
	for _, inst := range instances {
		if inst.Node().Name() == "smooth" {
			smoothDirs = append(smoothDirs, inst.Branch().Dir())
		}
	}
	testutil.AssertEqual(t, len(smoothDirs), 6)
	// Upstream parameter first (owner insertion order), own parameter after.
	testutil.AssertEqual(t, smoothDirs[0], "_subject_id_sub01_fwhm_4")
	testutil.AssertEqual(t, smoothDirs[5], "_subject_id_sub02_fwhm_16")
}

func TestExpandDiamondSharesAncestorBranch(t *testing.T) {
	wf := New("flow", t.TempDir())

	a := node.New("a", node.Identity("p"))
	a.Iterate("p", 1, 2)
	b := passNode("b", "in", "out")
	c := passNode("c", "in", "out")
	d := node.New("d", node.NewFunc([]string{"x", "y"}, []string{"out"},
		func(_ context.Context, _ node.Runtime, in node.Values) (node.Values, error) {
			return node.Values{"out": in["x"]}, nil
		}))

	testutil.AssertNoError(t, wf.Add(a, b, c, d))
	testutil.AssertNoError(t, wf.Connect("a", "p", "b", "in"))
	testutil.AssertNoError(t, wf.Connect("a", "p", "c", "in"))
	testutil.AssertNoError(t, wf.Connect("b", "out", "d", "x"))
	testutil.AssertNoError(t, wf.Connect("c", "out", "d", "y"))

	instances, err := wf.expand()
	testutil.AssertNoError(t, err)
	// Every node is downstream of the sweep: 2 instances each.
	testutil.AssertEqual(t, len(instances), 8)

	for _, inst := range instances {
		if inst.Node().Name() == "d" {
			testutil.AssertEqual(t, len(inst.Deps()), 2)
			// Both deps must carry the same branch as d itself.
			for _, dep := range inst.Deps() {
				if !dep.Branch().subsetOf(inst.Branch()) {
					t.Fatalf("dep %s branch does not match %s", dep.ID(), inst.ID())
				}
			}
		}
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{4, "4"},
		{int64(16), "16"},
		{4.0, "4"},
		{0.5, "0.5"},
		{float32(8), "8"},
		{"sub01", "sub01"},
		{"a/b c", "a-b-c"},
		{true, "true"},
	}
	for _, tc := range cases {
		testutil.AssertEqual(t, formatValue(tc.in), tc.want)
	}
}

func TestRunProducesBranchDirectories(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	workdir := t.TempDir()
	wf := New("smoothflow", workdir)

	strip := passNode("strip", "in_file", "out_file")
	strip.SetInput("in_file", "anat.nii.gz")
	smooth := node.New("smooth", node.NewFunc([]string{"in_file", "fwhm"}, []string{"out_file"},
		func(_ context.Context, rt node.Runtime, in node.Values) (node.Values, error) {
			out := filepath.Join(rt.Dir, "smoothed.txt")
			data := fmt.Sprintf("%v fwhm=%v", in["in_file"], in["fwhm"])
			if err := os.WriteFile(out, []byte(data), 0o644); err != nil {
				return nil, err
			}
			return node.Values{"out_file": out}, nil
		}))
	smooth.Iterate("fwhm", 4.0, 8.0)

	testutil.AssertNoError(t, wf.Add(strip, smooth))
	testutil.AssertNoError(t, wf.Connect("strip", "out_file", "smooth", "in_file"))

	sink := &recordingSink{}
	report, err := wf.Run(ctx, RunConfig{Plugin: "testserial", Trace: sink})
	testutil.AssertNoError(t, err)

	if report.RunID == "" {
		t.Fatal("report should carry a run ID")
	}
	testutil.AssertEqual(t, report.Workflow, "smoothflow")
	testutil.AssertEqual(t, len(report.Results), 3)
	testutil.AssertEqual(t, len(report.Failed()), 0)

	for _, dir := range []string{
		filepath.Join(workdir, "smoothflow", "strip", "ran.txt"),
		filepath.Join(workdir, "smoothflow", "_fwhm_4", "smooth", "smoothed.txt"),
		filepath.Join(workdir, "smoothflow", "_fwhm_8", "smooth", "smoothed.txt"),
	} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("expected output %s: %v", dir, err)
		}
	}

	// The swept value must reach the instance's inputs.
	data, err := os.ReadFile(filepath.Join(workdir, "smoothflow", "_fwhm_8", "smooth", "smoothed.txt"))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, string(data), "anat.nii.gz fwhm=8")

	kinds := sink.kinds()
	testutil.AssertEqual(t, kinds[EventRunStarted], 1)
	testutil.AssertEqual(t, kinds[EventRunFinished], 1)
	testutil.AssertEqual(t, kinds[EventInstanceStarted], 3)
	testutil.AssertEqual(t, kinds[EventInstanceFinished], 3)
}

func TestRunReportsFailures(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	wf := New("failing", t.TempDir())
	boom := node.New("boom", node.NewFunc(nil, []string{"out"},
		func(_ context.Context, _ node.Runtime, _ node.Values) (node.Values, error) {
			return nil, errors.New("no brain found")
		}))
	after := passNode("after", "in", "out")

	testutil.AssertNoError(t, wf.Add(boom, after))
	testutil.AssertNoError(t, wf.Connect("boom", "out", "after", "in"))

	report, err := wf.Run(ctx, RunConfig{Plugin: "testserial"})
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, len(report.Failed()), 1)
	testutil.AssertEqual(t, len(report.Skipped()), 1)
	testutil.AssertEqual(t, report.Failed()[0].Node, "boom")
	testutil.AssertEqual(t, report.Skipped()[0].Node, "after")
}

func TestRunRejectsMissingOutput(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	wf := New("incomplete", t.TempDir())
	bad := node.New("bad", node.NewFunc(nil, []string{"out_file"},
		func(_ context.Context, _ node.Runtime, _ node.Values) (node.Values, error) {
			return node.Values{}, nil // declared output never produced
		}))
	testutil.AssertNoError(t, wf.Add(bad))

	report, err := wf.Run(ctx, RunConfig{Plugin: "testserial"})
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, len(report.Failed()), 1)
}

func TestRunUnknownPlugin(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	wf := New("flow", t.TempDir())
	testutil.AssertNoError(t, wf.Add(passNode("a", "in", "out")))

	_, err := wf.Run(ctx, RunConfig{Plugin: "hypercluster"})
	if !errors.Is(err, vferrors.ErrUnknownPlugin) {
		t.Fatalf("want ErrUnknownPlugin, got %v", err)
	}
}
