// Package integration contains integration tests that verify cross-package
// functionality: the full pipeline from NIfTI input through branch expansion
// to on-disk outputs.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxflow/voxflow/internal/testutil"
	"github.com/voxflow/voxflow/pkg/engine/node"
	_ "github.com/voxflow/voxflow/pkg/engine/plugins"
	"github.com/voxflow/voxflow/pkg/engine/trace"
	"github.com/voxflow/voxflow/pkg/engine/workflow"
	"github.com/voxflow/voxflow/pkg/imaging/interfaces"
	"github.com/voxflow/voxflow/pkg/imaging/volume"
)

// TestFullSweepOnDisk runs skullstrip -> smooth over three kernel widths with
// the multiproc executor and verifies the branch directory layout and the
// NIfTI outputs it produces.
func TestFullSweepOnDisk(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	workdir := t.TempDir()
	anat := testutil.WriteSphereNIfTI(t, workdir, 16, 16, 16, 5)

	strip := node.New("skullstrip", interfaces.NewSkullStrip())
	strip.SetInput("in_file", anat)
	strip.SetInput("frac", 0.5)

	smooth := node.New("smooth", interfaces.NewSmooth())
	smooth.Iterate("fwhm", 0.0, 4.0, 8.0)

	wf := workflow.New("smoothflow", workdir)
	testutil.AssertNoError(t, wf.Add(strip, smooth))
	testutil.AssertNoError(t, wf.Connect("skullstrip", "out_file", "smooth", "in_file"))

	tracePath := filepath.Join(workdir, "run.jsonl")
	tw, err := trace.New(tracePath)
	testutil.AssertNoError(t, err)

	report, err := wf.Run(ctx, workflow.RunConfig{
		Plugin: "multiproc",
		Procs:  2,
		Trace:  tw,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, tw.Close())

	// One skullstrip instance plus one smooth instance per fwhm value.
	testutil.AssertEqual(t, len(report.Results), 4)
	testutil.AssertEqual(t, len(report.Failed()), 0)

	// The unswept node writes without a branch directory level.
	stripDir := filepath.Join(workdir, "smoothflow", "skullstrip")
	if _, err := os.Stat(filepath.Join(stripDir, "anat_brain.nii.gz")); err != nil {
		t.Fatalf("skullstrip output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stripDir, "anat_brain_mask.nii.gz")); err != nil {
		t.Fatalf("skullstrip mask missing: %v", err)
	}

	// Each swept value gets its own _fwhm_<value> directory.
	for _, branch := range []string{"_fwhm_0", "_fwhm_4", "_fwhm_8"} {
		out := filepath.Join(workdir, "smoothflow", branch, "smooth", "anat_brain_smooth.nii.gz")
		if _, err := os.Stat(out); err != nil {
			t.Fatalf("smooth output for %s missing: %v", branch, err)
		}
	}

	// Smoothing spreads the bright sphere: the wider the kernel, the dimmer
	// the center voxel.
	center := func(branch string) float32 {
		t.Helper()
		v, err := volume.Load(filepath.Join(workdir, "smoothflow", branch, "smooth", "anat_brain_smooth.nii.gz"))
		testutil.AssertNoError(t, err)
		return v.At(8, 8, 8)
	}
	c0, c4, c8 := center("_fwhm_0"), center("_fwhm_4"), center("_fwhm_8")
	if !(c0 > c4 && c4 > c8) {
		t.Fatalf("center intensities not decreasing with fwhm: %g, %g, %g", c0, c4, c8)
	}

	// The trace recorded the whole run.
	info, err := os.Stat(tracePath)
	testutil.AssertNoError(t, err)
	if info.Size() == 0 {
		t.Fatal("trace file is empty")
	}
}

// TestSubjectByFwhmSweep verifies cartesian expansion across two iterables
// owned by different nodes, mirroring a multi-subject study sweep.
func TestSubjectByFwhmSweep(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	workdir := t.TempDir()
	scans := map[string]string{}
	for _, subject := range []string{"sub01", "sub02"} {
		dir := filepath.Join(workdir, subject)
		testutil.AssertNoError(t, os.MkdirAll(dir, 0o755))
		scans[subject] = testutil.WriteSphereNIfTI(t, dir, 12, 12, 12, 4)
	}

	infosource := node.New("infosource", node.Identity("subject_id"))
	infosource.Iterate("subject_id", "sub01", "sub02")

	datasource := node.New("datasource", node.NewFunc(
		[]string{"subject_id"}, []string{"anat"},
		func(_ context.Context, _ node.Runtime, in node.Values) (node.Values, error) {
			return node.Values{"anat": scans[in["subject_id"].(string)]}, nil
		}))

	smooth := node.New("smooth", interfaces.NewSmooth())
	smooth.Iterate("fwhm", 4.0, 8.0)

	wf := workflow.New("preproc", workdir)
	testutil.AssertNoError(t, wf.Add(infosource, datasource, smooth))
	testutil.AssertNoError(t, wf.Connect("infosource", "subject_id", "datasource", "subject_id"))
	testutil.AssertNoError(t, wf.Connect("datasource", "anat", "smooth", "in_file"))

	report, err := wf.Run(ctx, workflow.RunConfig{Plugin: "multiproc", Procs: 4})
	testutil.AssertNoError(t, err)

	// 2 infosource + 2 datasource + 4 smooth instances.
	testutil.AssertEqual(t, len(report.Results), 8)

	for _, branch := range []string{
		"_subject_id_sub01_fwhm_4",
		"_subject_id_sub01_fwhm_8",
		"_subject_id_sub02_fwhm_4",
		"_subject_id_sub02_fwhm_8",
	} {
		out := filepath.Join(workdir, "preproc", branch, "smooth", "anat_smooth.nii.gz")
		if _, err := os.Stat(out); err != nil {
			t.Fatalf("smooth output for %s missing: %v", branch, err)
		}
	}
}
