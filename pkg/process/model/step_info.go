package model

type StepType string

const (
	NormalStepType    StepType = "step"
	AssignStepType    StepType = "assign"
	TransformStepType StepType = "transform"
	ModifyStepType    StepType = "modify"
	DispatchStepType  StepType = "dispatch"
	RetryStepType     StepType = "retry"
	BatchStepType     StepType = "batch"
	ForEachStepType   StepType = "foreach"
)

// StepInfo describes a step at a given position of a pipeline.
type StepInfo struct {
	Type  StepType
	Name  string
	Index int
}

var (
	StartStep = &StepInfo{Name: "start", Index: -1}
	EndStep   = &StepInfo{Name: "end", Index: -1}
)
