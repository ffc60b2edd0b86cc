package operations

type JobDescriptionInput struct {
	Role           string   `json:"role"`
	Level          string   `json:"level"`
	Department     string   `json:"department,omitempty"`
	Location       string   `json:"location,omitempty"`
	EmploymentType string   `json:"employment_type,omitempty"`
	CompanyContext string   `json:"company_context,omitempty"`
	KeySkills      []string `json:"key_skills,omitempty"`
}

type JobDescription struct {
	Title            string   `json:"title"`
	Summary          string   `json:"summary"`
	Responsibilities []string `json:"responsibilities"`
	Requirements     []string `json:"requirements"`
	NiceToHave       []string `json:"nice_to_have"`
	Benefits         []string `json:"benefits"`
}

type HiringStrategyInput struct {
	Role          string `json:"role"`
	Level         string `json:"level"`
	Location      string `json:"location,omitempty"`
	Urgency       string `json:"urgency,omitempty"`
	BudgetNotes   string `json:"budget_notes,omitempty"`
	MarketContext string `json:"market_context,omitempty"`
}

type HiringStrategy struct {
	Summary          string   `json:"summary"`
	SourcingChannels []string `json:"sourcing_channels"`
	TargetCompanies  []string `json:"target_companies"`
	TimelineWeeks    int      `json:"timeline_weeks"`
	SalaryMin        float64  `json:"salary_min,omitempty"`
	SalaryMax        float64  `json:"salary_max,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	KeyChallenges    []string `json:"key_challenges"`
	Recommendations  []string `json:"recommendations"`
}

type CandidateProfileInput struct {
	Role           string   `json:"role"`
	Level          string   `json:"level"`
	JobDescription string   `json:"job_description,omitempty"`
	MustHaveSkills []string `json:"must_have_skills,omitempty"`
}

type CandidateProfile struct {
	IdealBackground     string   `json:"ideal_background"`
	MustHaveSkills      []string `json:"must_have_skills"`
	NiceToHaveSkills    []string `json:"nice_to_have_skills"`
	MinYearsExperience  int      `json:"min_years_experience"`
	RedFlags            []string `json:"red_flags"`
	InterviewFocusAreas []string `json:"interview_focus_areas"`
}

type StagesInput struct {
	Role           string `json:"role"`
	Level          string `json:"level"`
	HiringStrategy string `json:"hiring_strategy,omitempty"`
	MaxStages      int    `json:"max_stages,omitempty"`
}

// Stage is one step of an interview process.
type Stage struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	DurationMinutes int      `json:"duration_minutes"`
	Description     string   `json:"description,omitempty"`
	FocusAreas      []string `json:"focus_areas"`
}

type Stages struct {
	Stages []Stage `json:"stages"`
}

type QuestionsInput struct {
	Role                 string `json:"role"`
	Level                string `json:"level"`
	FocusArea            string `json:"focus_area"`
	FocusAreaDescription string `json:"focus_area_description,omitempty"`
	StageType            string `json:"stage_type"`
}

type Questions struct {
	Questions []string `json:"questions"`
}

// StageSummary is the part of a stage that coverage analysis looks at.
type StageSummary struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

type CoverageInput struct {
	Role                 string         `json:"role"`
	Level                string         `json:"level"`
	RequiredCompetencies []string       `json:"required_competencies"`
	Stages               []StageSummary `json:"stages"`
}

type Coverage struct {
	CoverageScore       float64  `json:"coverage_score"`
	CoveredCompetencies []string `json:"covered_competencies"`
	Gaps                []string `json:"gaps"`
	Redundancies        []string `json:"redundancies"`
	Recommendations     []string `json:"recommendations"`
}

// FeedbackEntry is one interviewer's assessment of a candidate.
type FeedbackEntry struct {
	Interviewer string `json:"interviewer"`
	Stage       string `json:"stage"`
	Rating      int    `json:"rating"`
	Notes       string `json:"notes,omitempty"`
}

type FeedbackInput struct {
	CandidateName string          `json:"candidate_name"`
	Role          string          `json:"role"`
	Entries       []FeedbackEntry `json:"entries"`
}

type FeedbackSynthesis struct {
	Summary        string   `json:"summary"`
	Strengths      []string `json:"strengths"`
	Concerns       []string `json:"concerns"`
	OverallRating  float64  `json:"overall_rating"`
	Recommendation string   `json:"recommendation"`
	Disagreements  []string `json:"disagreements"`
}
