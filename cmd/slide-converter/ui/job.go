package ui

import (
	"fmt"

	"github.com/spherical/slide-converter/internal/domain"
)

var stageLabels = map[string]string{
	"download":  "Downloading source",
	"normalize": "Converting to PDF",
	"count":     "Counting pages",
	"split":     "Splitting pages",
	"render":    "Rendering and extracting",
	"extract":   "Rendering and extracting",
	"upload":    "Uploading pages",
}

// stageLabel returns the human label of a pipeline stage
func stageLabel(stage string) string {
	if label, ok := stageLabels[stage]; ok {
		return label
	}
	return stage
}

// WatchJob renders pipeline events until the channel is closed: a spinner for the
// sequential stages, then one bar for render plus extract and one for uploads.
func WatchJob(events <-chan domain.Event) {
	spin := NewSpinner("Starting")
	spin.Start()

	var pages, uploads *ProgressBar
	finishBar := func(bar **ProgressBar) {
		if *bar != nil {
			(*bar).Finish()
			*bar = nil
		}
	}

	for ev := range events {
		switch ev.Type {
		case domain.EventStageStarted:
			switch ev.Stage {
			case "render", "extract":
				spin.Stop()
				if pages == nil {
					pages = NewProgressBar(int64(2*ev.Total), stageLabel(ev.Stage))
				}
			case "upload":
				finishBar(&pages)
				uploads = NewProgressBar(int64(ev.Total), stageLabel(ev.Stage))
			default:
				spin.UpdateMessage(stageLabel(ev.Stage))
				spin.Start()
			}

		case domain.EventStageFinished:
			Info("%s done", stageLabel(ev.Stage))
			if ev.Stage == "split" {
				spin.Stop()
				Success("Split %d pages", ev.Total)
			}

		case domain.EventPageRendered, domain.EventPageExtracted:
			if pages != nil {
				pages.Add(1)
			}

		case domain.EventPageUploaded:
			if uploads != nil {
				uploads.Add(1)
			}

		case domain.EventJobFinished:
			spin.Stop()
			finishBar(&pages)
			finishBar(&uploads)
			Info("Job %s finished: %s", ev.JobID, fmt.Sprint(ev.Payload))
		}
	}

	spin.Stop()
}
