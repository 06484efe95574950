package stages

import (
	"fmt"

	"github.com/dino-ds/laneqc/internal/progress"
	"github.com/dino-ds/laneqc/internal/qc"
)

// progressObserver renders qc stage events through a ProgressDisplay.
type progressObserver struct {
	display *progress.ProgressDisplay
}

func stageInfo(ev qc.StageEvent) progress.StageInfo {
	return progress.StageInfo{
		Name:        ev.Name,
		Number:      ev.Number,
		TotalStages: ev.Total,
		Fatals:      ev.Fatals,
		Warns:       ev.Warns,
	}
}

func (o progressObserver) StageStarted(ev qc.StageEvent) {
	// Invalid stage info only suppresses the spinner line.
	_ = o.display.StartStage(stageInfo(ev))
}

func (o progressObserver) StageFinished(ev qc.StageEvent) {
	if ev.Fatals > 0 {
		_ = o.display.FailStage(stageInfo(ev),
			fmt.Errorf("fatals=%d, warns=%d", ev.Fatals, ev.Warns))
		return
	}
	_ = o.display.CompleteStage(stageInfo(ev))
}
