package operations

import "github.com/spigell/hiring-pipeline/internal/schema"

// StageTypes lists the interview stage kinds understood by every operation.
var StageTypes = []string{"screening", "technical", "behavioral", "culture", "take_home", "panel", "final"}

// Recommendations lists the hiring verdicts of a feedback synthesis.
var Recommendations = []string{"strong_hire", "hire", "no_hire", "strong_no_hire", "needs_more_information"}

func stringList(opts ...schema.Option) *schema.Schema {
	return schema.Array(schema.String(), opts...)
}

func definitions() []definition {
	return []definition{
		{
			name:        GenerateJobDescription,
			description: "Draft a job description for a role.",
			input: schema.Object(
				schema.Required("role", schema.Text(schema.MaxLen(200))),
				schema.Required("level", schema.Text(schema.MaxLen(100))),
				schema.Optional("department", schema.String()),
				schema.Optional("location", schema.String()),
				schema.Optional("employment_type", schema.String()),
				schema.Optional("company_context", schema.String()),
				schema.Optional("key_skills", stringList()),
			),
			output: schema.Object(
				schema.Required("title", schema.Text()),
				schema.Required("summary", schema.Text()),
				schema.Required("responsibilities", stringList(schema.NonEmpty())),
				schema.Required("requirements", stringList(schema.NonEmpty())),
				schema.Optional("nice_to_have", stringList()),
				schema.Optional("benefits", stringList()),
			),
		},
		{
			name:        GenerateHiringStrategy,
			description: "Plan sourcing, timeline and budget for filling a role.",
			input: schema.Object(
				schema.Required("role", schema.Text(schema.MaxLen(200))),
				schema.Required("level", schema.Text(schema.MaxLen(100))),
				schema.Optional("location", schema.String()),
				schema.Optional("urgency", schema.Enum("low", "medium", "high")),
				schema.Optional("budget_notes", schema.String()),
				schema.Optional("market_context", schema.String()),
			),
			output: schema.Object(
				schema.Required("summary", schema.Text()),
				schema.Required("sourcing_channels", stringList(schema.NonEmpty())),
				schema.Optional("target_companies", stringList()),
				schema.Required("timeline_weeks", schema.Integer(schema.Between(1, 52))),
				schema.Optional("salary_min", schema.Number(schema.AtLeast(0))),
				schema.Optional("salary_max", schema.Number(schema.AtLeast(0))),
				schema.Optional("currency", schema.String()),
				schema.Optional("key_challenges", stringList()),
				schema.Required("recommendations", stringList(schema.NonEmpty())),
			),
		},
		{
			name:        GenerateCandidateProfile,
			description: "Describe the ideal candidate for a role.",
			input: schema.Object(
				schema.Required("role", schema.Text(schema.MaxLen(200))),
				schema.Required("level", schema.Text(schema.MaxLen(100))),
				schema.Optional("job_description", schema.String()),
				schema.Optional("must_have_skills", stringList()),
			),
			output: schema.Object(
				schema.Required("ideal_background", schema.Text()),
				schema.Required("must_have_skills", stringList(schema.NonEmpty())),
				schema.Optional("nice_to_have_skills", stringList()),
				schema.Optional("min_years_experience", schema.Integer(schema.Between(0, 40))),
				schema.Optional("red_flags", stringList()),
				schema.Required("interview_focus_areas", stringList(schema.NonEmpty())),
			),
		},
		{
			name:        GenerateStages,
			description: "Design the interview stages of a hiring process.",
			input: schema.Object(
				schema.Required("role", schema.Text(schema.MaxLen(200))),
				schema.Required("level", schema.Text(schema.MaxLen(100))),
				schema.Optional("hiring_strategy", schema.String()),
				schema.Optional("max_stages", schema.Integer(schema.Between(1, 10))),
			),
			output: schema.Object(
				schema.Required("stages", schema.Array(schema.Object(
					schema.Required("name", schema.Text()),
					schema.Required("type", schema.Enum(StageTypes...)),
					schema.Required("duration_minutes", schema.Integer(schema.Between(15, 480))),
					schema.Optional("description", schema.String()),
					schema.Optional("focus_areas", stringList()),
				), schema.Len(1, 10))),
			),
		},
		{
			name:        GenerateQuestions,
			description: "Write interview questions for one focus area of a stage.",
			input: schema.Object(
				schema.Required("role", schema.Text(schema.MaxLen(200))),
				schema.Required("level", schema.Text(schema.MaxLen(100))),
				schema.Required("focus_area", schema.Text(schema.MaxLen(200))),
				schema.Optional("focus_area_description", schema.String()),
				schema.Required("stage_type", schema.Enum(StageTypes...)),
			),
			output: schema.Object(
				schema.Required("questions", schema.Array(schema.Text(), schema.NonEmpty())),
			),
		},
		{
			name:        AnalyzeCoverage,
			description: "Check how well interview stages cover the required competencies.",
			input: schema.Object(
				schema.Required("role", schema.Text(schema.MaxLen(200))),
				schema.Required("level", schema.Text(schema.MaxLen(100))),
				schema.Required("required_competencies", schema.Array(schema.Text(), schema.NonEmpty())),
				schema.Required("stages", schema.Array(schema.Object(
					schema.Required("name", schema.Text()),
					schema.Required("type", schema.Enum(StageTypes...)),
					schema.Optional("focus_areas", stringList()),
				), schema.NonEmpty())),
			),
			output: schema.Object(
				schema.Required("coverage_score", schema.Number(schema.Between(0, 100))),
				schema.Required("covered_competencies", stringList()),
				schema.Required("gaps", stringList()),
				schema.Optional("redundancies", stringList()),
				schema.Optional("recommendations", stringList()),
			),
		},
		{
			name:        SynthesizeFeedback,
			description: "Summarise interviewer feedback into a hiring recommendation.",
			input: schema.Object(
				schema.Required("candidate_name", schema.Text(schema.MaxLen(200))),
				schema.Required("role", schema.Text(schema.MaxLen(200))),
				schema.Required("entries", schema.Array(schema.Object(
					schema.Required("interviewer", schema.Text()),
					schema.Required("stage", schema.Text()),
					schema.Required("rating", schema.Integer(schema.Between(1, 5))),
					schema.Optional("notes", schema.String()),
				), schema.NonEmpty())),
			),
			output: schema.Object(
				schema.Required("summary", schema.Text()),
				schema.Required("strengths", stringList()),
				schema.Required("concerns", stringList()),
				schema.Required("overall_rating", schema.Number(schema.Between(1, 5))),
				schema.Required("recommendation", schema.Enum(Recommendations...)),
				schema.Optional("disagreements", stringList()),
			),
		},
	}
}
