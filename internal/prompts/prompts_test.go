package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPhaseProgression(t *testing.T) {
	order := []string{"intro", "phase1", "phase2", "phase3", "phase4", "phase5", "phase6", "summary"}
	for i := 0; i < len(order)-1; i++ {
		assert.Equal(t, order[i+1], NextPhase(order[i]))
	}
	assert.Equal(t, "", NextPhase("summary"), "curriculum ends at summary")
	assert.Equal(t, "", NextPhase("bogus"))
}

func TestNextPhaseIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "phase3", NextPhase("Phase2"))
}

func TestTemplateThresholds(t *testing.T) {
	assert.Equal(t, 2.5, TemplateFor("phase2").ExcellenceThreshold)
	assert.Equal(t, 2.0, TemplateFor("phase4").ExcellenceThreshold)
	assert.Equal(t, 2.5, TemplateFor("phase5").ExcellenceThreshold)
	assert.Equal(t, 2.0, TemplateFor("phase3").ExcellenceThreshold, "phases without their own template use the default")
}

func TestTemplatePhrasesAreDistinct(t *testing.T) {
	phrases := map[string]bool{}
	for _, phase := range []string{"phase2", "phase4", "phase5"} {
		p := TemplateFor(phase).ExcellencePhrase
		require.NotEmpty(t, p)
		phrases[p] = true
	}
	assert.Len(t, phrases, 3)
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 1, ClampLevel(0))
	assert.Equal(t, 1, ClampLevel(1))
	assert.Equal(t, 2, ClampLevel(2))
	assert.Equal(t, 3, ClampLevel(3))
	assert.Equal(t, 3, ClampLevel(10))
	assert.Equal(t, 1, ClampLevel(-5))
}

func TestGetSystemPromptRubricPhase(t *testing.T) {
	p := GetSystemPrompt("phase2", "general", 2)

	assert.True(t, strings.HasPrefix(p, "You are SoLBot"))
	assert.Contains(t, p, "EVALUATION CRITERIA")
	assert.Contains(t, p, "Specificity")
	assert.Contains(t, p, "Resource Planning")
	assert.Contains(t, p, "2.5", "phase2 threshold appears in the prompt")
	assert.Contains(t, p, TemplateFor("phase2").ExcellencePhrase)
	assert.Contains(t, p, MetadataSentinel)
	assert.NotContains(t, p, "Provide MEDIUM support", "rubric phases do not use the condensed support text")
}

func TestGetSystemPromptRubriclessPhase(t *testing.T) {
	p := GetSystemPrompt("phase3", "general", 1)

	assert.Contains(t, p, "Provide HIGH support")
	assert.NotContains(t, p, "EVALUATION CRITERIA")
	assert.Contains(t, p, MetadataSentinel, "every active phase requests the metadata block")
}

func TestGetSystemPromptNormalizesInput(t *testing.T) {
	assert.Equal(t, GetSystemPrompt("phase2", "general", 2), GetSystemPrompt("PHASE2", "general", 2))
	assert.Contains(t, GetSystemPrompt("phase3", "general", 99), "Provide LOW support", "out-of-range level is clamped")
}

func TestGetSystemPromptComponentSelectsRubric(t *testing.T) {
	p := GetSystemPrompt("phase4", "contingency_strategies", 2)
	assert.Contains(t, p, "Challenge Specificity")

	general := GetSystemPrompt("phase4", "unknown_component", 2)
	assert.Contains(t, general, "Timeline", "unknown component falls back to the phase's general rubric")
}

func TestGetRubricUnknownPhase(t *testing.T) {
	assert.Nil(t, GetRubric("phase1", "general"))
	assert.Nil(t, GetRubric("intro", "general"))
}

func TestSubmissionSuffix(t *testing.T) {
	s := SubmissionSuffix("phase4", "long_term_goals")
	assert.Contains(t, s, "phase4")
	assert.Contains(t, s, "long_term_goals")
	assert.Contains(t, s, "rubric")
}
