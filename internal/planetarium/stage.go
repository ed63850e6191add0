package planetarium

// Stage is a step of the pipeline.
type Stage int

const (
	StageValidate Stage = iota
	StageFetch
	StageProject
	StagePlan
	StageBuild
	StageWrite
	StagePublish
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageValidate, StageFetch, StageProject, StagePlan, StageBuild, StageWrite, StagePublish}

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageFetch:
		return "fetch"
	case StageProject:
		return "project"
	case StagePlan:
		return "plan"
	case StageBuild:
		return "build"
	case StageWrite:
		return "write"
	case StagePublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Reporter observes pipeline progress. Calls come from the goroutine
// running the pipeline, one stage at a time.
type Reporter interface {
	StageStarted(s Stage)
	StageFinished(s Stage, summary string)
}

type nopReporter struct{}

func (nopReporter) StageStarted(Stage)          {}
func (nopReporter) StageFinished(Stage, string) {}
