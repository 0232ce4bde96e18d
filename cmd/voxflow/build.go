package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/voxflow/voxflow/pkg/config"
	"github.com/voxflow/voxflow/pkg/engine/node"
	"github.com/voxflow/voxflow/pkg/engine/workflow"
	"github.com/voxflow/voxflow/pkg/imaging/interfaces"
)

// buildWorkflow assembles the canonical preprocessing sweep from a config:
//
//	infosource -> datasource -> skullstrip -> smooth [-> slicer]
//
// Subjects, frac, and fwhm become iterables when more than one value is
// configured, so the engine expands one branch directory per combination.
func buildWorkflow(cfg config.Sweep) (*workflow.Workflow, error) {
	subjects := make([]string, 0, len(cfg.Inputs))
	for subject := range cfg.Inputs {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	infosource := node.New("infosource", node.Identity("subject_id"))
	if len(subjects) == 1 {
		infosource.SetInput("subject_id", subjects[0])
	} else {
		infosource.Iterate("subject_id", toAny(subjects)...)
	}

	datasource := node.New("datasource", node.NewFunc(
		[]string{"subject_id"}, []string{"anat"},
		func(_ context.Context, _ node.Runtime, in node.Values) (node.Values, error) {
			subject, _ := in["subject_id"].(string)
			path, ok := cfg.Inputs[subject]
			if !ok {
				return nil, fmt.Errorf("no input image configured for subject %q", subject)
			}
			return node.Values{"anat": path}, nil
		}))

	skullstrip := node.New("skullstrip", interfaces.NewSkullStrip())
	if len(cfg.Frac) == 1 {
		skullstrip.SetInput("frac", cfg.Frac[0])
	} else {
		skullstrip.Iterate("frac", toAny(cfg.Frac)...)
	}

	smooth := node.New("smooth", interfaces.NewSmooth())
	if len(cfg.FWHM) == 1 {
		smooth.SetInput("fwhm", cfg.FWHM[0])
	} else {
		smooth.Iterate("fwhm", toAny(cfg.FWHM)...)
	}

	wf := workflow.New(cfg.Name, cfg.Workdir)
	if err := wf.Add(infosource, datasource, skullstrip, smooth); err != nil {
		return nil, err
	}

	connections := [][4]string{
		{"infosource", "subject_id", "datasource", "subject_id"},
		{"datasource", "anat", "skullstrip", "in_file"},
		{"skullstrip", "out_file", "smooth", "in_file"},
	}

	if cfg.Mosaic {
		slicer := node.New("slicer", interfaces.NewSlicer())
		if err := wf.Add(slicer); err != nil {
			return nil, err
		}
		connections = append(connections, [4]string{"smooth", "out_file", "slicer", "in_file"})
	}

	for _, c := range connections {
		if err := wf.Connect(c[0], c[1], c[2], c[3]); err != nil {
			return nil, err
		}
	}
	return wf, nil
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
