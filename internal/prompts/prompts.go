// Package prompts assembles the phase-specific system prompts sent to the
// model and owns the curriculum tables: phase progression, per-phase
// excellence thresholds, and the congratulation phrase each template emits
// when the student is ready to advance.
package prompts

import (
	"fmt"
	"strings"
)

// Scaffolding levels. 1 is the most guidance, 3 the most autonomy.
const (
	LevelHighSupport   = 1
	LevelMediumSupport = 2
	LevelLowSupport    = 3
)

// MetadataSentinel and MetadataCloser delimit the canonical machine-readable
// block every active-phase template instructs the model to append. This pair
// is a compatibility contract with the metadata extractor; do not change it.
const (
	MetadataSentinel = "<!-- INSTRUCTOR_METADATA"
	MetadataCloser   = "-->"
)

// Template carries the per-phase parameters that are not prompt text:
// the score at which the phase counts as complete and the exact phrase the
// template tells the model to emit at that score. Thresholds intentionally
// differ between phases (2.5 for phase2/phase5, 2.0 for phase4).
type Template struct {
	Phase               string
	ExcellenceThreshold float64
	ExcellencePhrase    string
}

var defaultTemplate = Template{
	Phase:               "general",
	ExcellenceThreshold: 2.0,
	ExcellencePhrase:    "You're ready to move to the next phase. Click the Continue button when you're ready to proceed.",
}

var templates = map[string]Template{
	"phase2": {
		Phase:               "phase2",
		ExcellenceThreshold: 2.5,
		ExcellencePhrase:    "Your learning objective framework is excellent! Please click the Continue button below to proceed to the next step in your learning journey.",
	},
	"phase4": {
		Phase:               "phase4",
		ExcellenceThreshold: 2.0,
		ExcellencePhrase:    "Your goal framework is excellent! Please click the Continue button below to proceed to the next step in your learning journey.",
	},
	"phase5": {
		Phase:               "phase5",
		ExcellenceThreshold: 2.5,
		ExcellencePhrase:    "Your monitoring and adaptation framework is excellent! Please click the Continue button below to proceed to the next step in your learning journey.",
	},
}

// TemplateFor returns the template parameters for a phase, falling back to a
// generic template for phases without their own definition.
func TemplateFor(phase string) Template {
	if t, ok := templates[strings.ToLower(phase)]; ok {
		return t
	}
	return defaultTemplate
}

// phaseProgression drives the curriculum state machine.
var phaseProgression = map[string]string{
	"intro":  "phase1",
	"phase1": "phase2",
	"phase2": "phase3",
	"phase3": "phase4",
	"phase4": "phase5",
	"phase5": "phase6",
	"phase6": "summary",
}

// NextPhase returns the phase that follows the given one, or "" when the
// curriculum ends (summary) or the phase is unknown.
func NextPhase(phase string) string {
	return phaseProgression[strings.ToLower(phase)]
}

const basePrompt = `You are SoLBot, an AI tutor for teaching self-regulated learning (SRL).
Provide scaffolding based on the student's needs and respond in an engaging, visual way:
- Use markdown formatting, including headings (##), lists, bold for key terms
- Create tables and step-by-step guides when helpful
- Include 4-5 emojis for enthusiasm and emphasis
- Keep responses concise (2-4 paragraphs)
- Begin with a warm, personalized acknowledgment, then answer directly
- End with a reflection question that prompts deeper thinking
- Use a conversational, enthusiastic tone with occasional humor
- Be empathetic and supportive of the student's emotion and motivation`

// phasePrompts holds the short phase-specific guidance appended to the base
// prompt. Phases without an entry fall through to a generic SRL instruction.
var phasePrompts = map[string]string{
	"phase2": `Help the student analyze existing course learning objectives and identify available resources.
- Guide them to locate and analyze specific course learning objectives from their course materials
- Help them identify the topic each objective addresses and required level of understanding
- Assist in analyzing what knowledge they already have vs. what they need to learn
- Ask about specific offline resources available (textbooks, handouts, tutors, peers, notes)
- Guide them to explore digital learning resources for their course
- Focus on ANALYZING the task and personal resources rather than SETTING new goals`,
	"phase3": `Analyze learning environment and external factors.
- Discuss study spaces and optimization
- Explore helpful digital tools
- Address time and social factors`,
	"phase4": `Guide strategic planning.
- Help connect course to personal goals
- Create actionable goals
- Develop contingency plans
- Establish measurable success criteria`,
	"phase5": `Develop monitoring and adaptation systems.
- Create progress check schedules
- Establish adaptation triggers
- Develop alternative approaches
- Connect monitoring to adaptation`,
}

// metadataInstructions is appended to every active-phase prompt. It is the
// only metadata format new prompts ever ask the model to emit; the extractor
// still accepts two older formats found in historical transcripts.
const metadataInstructions = `
SCORING AND EVALUATION INSTRUCTIONS (NOT VISIBLE TO STUDENTS):
Score the student's response on a scale of 1.0-3.0 for each criterion and
calculate an overall score as the average of the criteria scores.

CRITICAL INSTRUCTION: DO NOT include any scoring information in the visible
response text. DO NOT mention "scaffolding" or "support levels".

Instead, ALWAYS end your response with a technical note using EXACTLY this
HTML comment format:
<!-- INSTRUCTOR_METADATA
Score: [1.0-3.0]
Scaffolding: [1-3]
Rationale: [brief explanation]
-->`

// supportInstructions returns the condensed scaffolding guidance used for
// phases that carry no rubric.
func supportInstructions(level int) string {
	switch level {
	case LevelHighSupport:
		return `Provide HIGH support:
- Clear step-by-step guidance with examples
- Explicit templates and frameworks
- Direct questions with limited choices`
	case LevelLowSupport:
		return `Provide LOW support:
- Thought-provoking questions over explanations
- Student-generated examples
- Complex, open-ended questions`
	default:
		return `Provide MEDIUM support:
- Balance explanations with guiding questions
- Some examples while encouraging personal ones
- Open-ended questions with structure`
	}
}

// ClampLevel bounds a scaffolding level to the valid [1,3] range.
func ClampLevel(level int) int {
	if level < LevelHighSupport {
		return LevelHighSupport
	}
	if level > LevelLowSupport {
		return LevelLowSupport
	}
	return level
}

// GetSystemPrompt builds the full system prompt for a phase, component and
// scaffolding level. The phase is normalized to lowercase and the level is
// clamped to [1,3]. Unknown phases get the generic template rather than an
// error; the intro and summary phases never reach the model, so their prompts
// are not defined here.
func GetSystemPrompt(phase, component string, scaffoldingLevel int) string {
	phase = strings.ToLower(phase)
	scaffoldingLevel = ClampLevel(scaffoldingLevel)

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n")

	if p, ok := phasePrompts[phase]; ok {
		b.WriteString(p)
	} else {
		b.WriteString("Respond about self-regulated learning.")
	}

	rubric := GetRubric(phase, component)
	if rubric != nil {
		tmpl := TemplateFor(phase)

		b.WriteString("\n\nEVALUATION CRITERIA:\n")
		for _, c := range rubric.Criteria {
			fmt.Fprintf(&b, "- %s: %s (L1=%s; L3=%s)\n", c.Key, c.Description, c.Level1, c.Level3)
		}
		fmt.Fprintf(&b, `
Score response 1-3 (1=needs improvement, 2=satisfactory, 3=excellent).
Average >= %.1f indicates readiness to progress.

SCAFFOLDING APPROACH:
- Score <1.5: HIGH support (detailed guidance, examples, templates)
- Score 1.5-2.0: MEDIUM support (balanced guidance, some examples)
- Score >=2.0: LOW support (thought-provoking questions, student-led)

IMPORTANT: When the student's score is %.1f or higher, end your visible response with:
"%s"
`, tmpl.ExcellenceThreshold, tmpl.ExcellenceThreshold, tmpl.ExcellencePhrase)
	} else {
		b.WriteString("\n\n")
		b.WriteString(supportInstructions(scaffoldingLevel))
	}

	b.WriteString("\n")
	b.WriteString(metadataInstructions)

	return b.String()
}

// SubmissionSuffix is appended to the system prompt when a request is a
// formal submission, steering the model toward careful rubric evaluation.
func SubmissionSuffix(phase, submissionType string) string {
	return fmt.Sprintf("\n\nThis is a student submission for %s, %s. Please evaluate it carefully against the rubric criteria.", phase, submissionType)
}
