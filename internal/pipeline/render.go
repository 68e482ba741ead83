package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/thanadol-git/plate-planner/internal/export"
	"github.com/thanadol-git/plate-planner/internal/plate"
	"github.com/thanadol-git/plate-planner/internal/sdrf"
	"github.com/thanadol-git/plate-planner/internal/sequence"
)

// RenderInput holds the tables a set of export files is rendered from.
// Nil tables are skipped.
type RenderInput struct {
	Namer   export.Namer
	Layout  *plate.Layout
	Records []sequence.Record
	Evosep  *sequence.EvosepTable
	SDRF    *sdrf.Table
}

type renderJob struct {
	kind  export.Kind
	write func(w io.Writer) error
}

func (in RenderInput) jobs() []renderJob {
	var jobs []renderJob
	if in.Layout != nil {
		jobs = append(jobs,
			renderJob{export.KindLayoutCSV, func(w io.Writer) error { return export.WriteLayoutCSV(w, in.Layout) }},
			renderJob{export.KindLayoutXLSX, func(w io.Writer) error { return export.WriteLayoutXLSX(w, in.Layout) }},
		)
	}
	if in.Records != nil {
		jobs = append(jobs, renderJob{export.KindSampleOrder, func(w io.Writer) error { return export.WriteSampleOrder(w, in.Records) }})
	}
	if in.Evosep != nil {
		jobs = append(jobs,
			renderJob{export.KindEvosepCSV, func(w io.Writer) error { return export.WriteEvosepCSV(w, in.Evosep) }},
			renderJob{export.KindEvosepXML, func(w io.Writer) error { return export.WriteEvosepXML(w, in.Evosep) }},
		)
	}
	if in.SDRF != nil {
		jobs = append(jobs,
			renderJob{export.KindSDRF, func(w io.Writer) error { return export.WriteSDRF(w, in.SDRF) }},
			renderJob{export.KindSkyline, func(w io.Writer) error { return export.WriteSkyline(w, sdrf.SkylineAnnotations(in.SDRF)) }},
		)
	}
	return jobs
}

// RenderFiles renders every export the input has tables for. Files are
// rendered in parallel and returned in a fixed order.
func RenderFiles(ctx context.Context, in RenderInput) ([]export.File, error) {
	jobs := in.jobs()
	files := make([]export.File, len(jobs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := job.write(&buf); err != nil {
				return fmt.Errorf("rendering %s failed: %w", job.kind, err)
			}
			// each goroutine owns its slot
			files[i] = export.File{
				Kind:        job.kind,
				Name:        in.Namer.Name(job.kind),
				ContentType: export.ContentType(job.kind),
				Data:        buf.Bytes(),
				Size:        buf.Len(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// FindFile returns the rendered file of the given kind.
func FindFile(files []export.File, kind export.Kind) (export.File, bool) {
	for _, f := range files {
		if f.Kind == kind {
			return f, true
		}
	}
	return export.File{}, false
}
