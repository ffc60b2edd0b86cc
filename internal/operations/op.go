package operations

// Op is a typed handle on a registered operation. The engine works on
// descriptors; Op only fixes the Go types callers send and receive.
type Op[In, Out any] struct {
	name Name
}

func (o Op[In, Out]) Name() Name { return o.name }

// Descriptor returns the registered descriptor. Every Op declared here is
// registered, so the lookup cannot fail.
func (o Op[In, Out]) Descriptor() Descriptor {
	d, err := Lookup(o.name)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	JobDescriptionOp   = Op[JobDescriptionInput, JobDescription]{name: GenerateJobDescription}
	HiringStrategyOp   = Op[HiringStrategyInput, HiringStrategy]{name: GenerateHiringStrategy}
	CandidateProfileOp = Op[CandidateProfileInput, CandidateProfile]{name: GenerateCandidateProfile}
	StagesOp           = Op[StagesInput, Stages]{name: GenerateStages}
	QuestionsOp        = Op[QuestionsInput, Questions]{name: GenerateQuestions}
	CoverageOp         = Op[CoverageInput, Coverage]{name: AnalyzeCoverage}
	FeedbackOp         = Op[FeedbackInput, FeedbackSynthesis]{name: SynthesizeFeedback}
)
