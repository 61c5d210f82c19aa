package prompts

// Criterion is one scored dimension of a rubric, with level descriptions for
// scores 1 and 3 (2 is the midpoint between them).
type Criterion struct {
	Key         string
	Description string
	Level1      string
	Level3      string
}

// Rubric describes how a phase component is evaluated.
type Rubric struct {
	Name        string
	Description string
	Criteria    []Criterion
}

var taskAnalysisRubric = Rubric{
	Name:        "Task Analysis & Resource Planning",
	Description: "Evaluates the quality of learning task definition and resource planning",
	Criteria: []Criterion{
		{
			Key:         "Specificity",
			Description: "How specific and measurable the learning objective is",
			Level1:      "General topic without clear action or measurement",
			Level3:      "Complete with specific topic, action verb, and measurable outcome",
		},
		{
			Key:         "Knowledge Alignment",
			Description: "How well the task aligns with existing knowledge",
			Level1:      "No reference to prior knowledge or skill level",
			Level3:      "Explicit connection to specific prior knowledge and skill level",
		},
		{
			Key:         "Resource Planning",
			Description: "Quality of resource identification and planning",
			Level1:      "No specific resources identified or generic mentions only",
			Level3:      "Multiple specific resources with clear access plan tied to learning goals",
		},
	},
}

var longTermGoalRubric = Rubric{
	Name:        "Long-Term Goal",
	Description: "Evaluates the quality of long-term learning goals",
	Criteria: []Criterion{
		{
			Key:         "Specificity",
			Description: "Clarity and detail of the goal",
			Level1:      "Vague direction without concrete outcomes",
			Level3:      "Specific outcome with clear scope and context",
		},
		{
			Key:         "Timeline",
			Description: "Clarity of timeframe and milestones",
			Level1:      "No timeframe mentioned",
			Level3:      "Clear end date with intermediate milestones",
		},
		{
			Key:         "Measurement",
			Description: "Measurability of success criteria",
			Level1:      "No way to tell when the goal is reached",
			Level3:      "Concrete, observable indicators of success",
		},
	},
}

var shortTermGoalsRubric = Rubric{
	Name:        "Short-Term Goals",
	Description: "Evaluates the quality of short-term learning goals",
	Criteria: []Criterion{
		{
			Key:         "SMART Elements",
			Description: "SMART goal elements (Specific, Measurable, Achievable, Relevant, Time-bound)",
			Level1:      "Missing most SMART elements",
			Level3:      "All SMART elements clearly present",
		},
		{
			Key:         "Sequencing",
			Description: "Progressive sequence of goals",
			Level1:      "Disconnected goals with no ordering",
			Level3:      "Logical progression building toward the long-term goal",
		},
		{
			Key:         "Alignment",
			Description: "Alignment with long-term goals",
			Level1:      "No visible connection to the long-term goal",
			Level3:      "Each short-term goal clearly advances the long-term goal",
		},
	},
}

var contingencyStrategiesRubric = Rubric{
	Name:        "Contingency Strategies",
	Description: "Evaluates the quality of contingency planning",
	Criteria: []Criterion{
		{
			Key:         "Challenge Specificity",
			Description: "Specificity of anticipated challenges",
			Level1:      "Generic obstacles with no personal relevance",
			Level3:      "Concrete, personally likely challenges",
		},
		{
			Key:         "Response Clarity",
			Description: "Clarity of responses to challenges",
			Level1:      "No planned response",
			Level3:      "Clear if-then response for each challenge",
		},
		{
			Key:         "Feasibility",
			Description: "Feasibility of responses",
			Level1:      "Unrealistic or unavailable responses",
			Level3:      "Realistic responses using available resources",
		},
	},
}

var progressMonitoringRubric = Rubric{
	Name:        "Progress Monitoring & Adaptation",
	Description: "Evaluates the quality of progress monitoring and adaptation strategies",
	Criteria: []Criterion{
		{
			Key:         "Monitoring Methods",
			Description: "Quality and frequency of monitoring methods",
			Level1:      "No regular check on progress",
			Level3:      "Scheduled, specific progress checks",
		},
		{
			Key:         "Adaptation Triggers",
			Description: "Clarity of adaptation triggers",
			Level1:      "No conditions for changing approach",
			Level3:      "Explicit thresholds that trigger a change",
		},
		{
			Key:         "Alternative Strategies",
			Description: "Quality of alternative strategies",
			Level1:      "No alternatives identified",
			Level3:      "Concrete alternatives matched to likely problems",
		},
		{
			Key:         "Success Criteria",
			Description: "Measurability of success criteria",
			Level1:      "Subjective or missing criteria",
			Level3:      "Fully objective, measurable success criteria",
		},
	},
}

// rubricsByPhase maps phase → component → rubric. Components not listed fall
// back to the phase's "general" entry.
var rubricsByPhase = map[string]map[string]Rubric{
	"phase2": {
		"general":                 taskAnalysisRubric,
		"task_analysis":           taskAnalysisRubric,
		"learning_objective":      taskAnalysisRubric,
		"resource_identification": taskAnalysisRubric,
	},
	"phase4": {
		"general":                longTermGoalRubric,
		"long_term_goals":        longTermGoalRubric,
		"longtermgoal":           longTermGoalRubric,
		"short_term_goals":       shortTermGoalsRubric,
		"shorttermgoal":          shortTermGoalsRubric,
		"contingency_strategies": contingencyStrategiesRubric,
		"ifthen":                 contingencyStrategiesRubric,
	},
	"phase5": {
		"general":             progressMonitoringRubric,
		"progress_monitoring": progressMonitoringRubric,
		"adaptation_strategy": progressMonitoringRubric,
		"success_criteria":    progressMonitoringRubric,
	},
}

// GetRubric returns the rubric for a phase/component, falling back to the
// phase's general rubric, or nil when the phase carries no rubric at all.
func GetRubric(phase, component string) *Rubric {
	byComponent, ok := rubricsByPhase[phase]
	if !ok {
		return nil
	}
	if r, ok := byComponent[component]; ok {
		return &r
	}
	r := byComponent["general"]
	return &r
}
