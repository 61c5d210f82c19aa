// Package extraction parses the machine-readable evaluation block out of raw
// model replies. Three formats occur in the wild: the canonical
// INSTRUCTOR_METADATA comment that current prompts request, plus two legacy
// formats still produced when the model imitates older transcript history.
// Strategies are tried in order and the first match wins.
package extraction

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"solbot-backend/internal/models"
	"solbot-backend/internal/prompts"
	"solbot-backend/internal/scaffolding"
)

var (
	canonicalBlockRe = regexp.MustCompile(`(?s)<!--\s*INSTRUCTOR_METADATA\s*(.*?)-->`)
	legacyNoteRe     = regexp.MustCompile(`(?s)<!--\s*INSTRUCTOR NOTE:\s*(.*?)-->`)
	legacyBracketRe  = regexp.MustCompile(`(?s)\[Evaluation Scores:\s*(.*?)\]`)

	scoreLineRe       = regexp.MustCompile(`(?i)Score:\s*([0-9]+(?:\.[0-9]+)?)`)
	scaffoldingLineRe = regexp.MustCompile(`(?i)Scaffolding:\s*([0-9]+)`)
	rationaleLineRe   = regexp.MustCompile(`(?i)Rationale:\s*(.+)`)
	criterionLineRe   = regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z ]*?):\s*([0-9]+)\s*$`)

	goalScoreRe      = regexp.MustCompile(`(?i)Goal Score:\s*([0-9]+(?:\.[0-9]+)?)\s*/\s*3(?:\.0)?`)
	scaffoldLevelRe  = regexp.MustCompile(`(?i)Scaffolding:\s*Level\s*([0-9]+)`)
	overallScoreRe   = regexp.MustCompile(`(?i)Overall Score:\s*([0-9]+(?:\.[0-9]+)?)`)
	criterionScoreRe = regexp.MustCompile(`(?i)(Alignment|Timeframe|Measurability|Specificity|Timeline|Measurement):\s*([0-9]+)`)
	supportPhraseRe  = regexp.MustCompile(`(?i)Providing\s+(HIGH|MEDIUM|LOW)\s+support`)
)

// strategy attempts one metadata format. On a match it returns the reply with
// the block removed (or left in place for the canonical format), the parsed
// fields, and true.
type strategy func(raw string) (string, models.ExtractedMetadata, bool)

var strategies = []strategy{
	parseCanonicalBlock,
	parseLegacyNote,
	parseLegacyBracket,
}

// Extract splits a raw model reply into the student-visible text and the
// structured evaluation. When no format matches, the reply is returned
// unchanged with empty metadata.
func Extract(raw string) (string, models.ExtractedMetadata) {
	for _, s := range strategies {
		if visible, meta, ok := s(raw); ok {
			return strings.TrimSpace(visible), meta
		}
	}
	return strings.TrimSpace(raw), models.ExtractedMetadata{}
}

// parseCanonicalBlock handles the format current prompts request:
//
//	<!-- INSTRUCTOR_METADATA
//	Score: 2.5
//	Scaffolding: 1
//	Rationale: ...
//	-->
//
// The block is an HTML comment, invisible when rendered, so it stays in the
// returned text and the frontend strips nothing.
func parseCanonicalBlock(raw string) (string, models.ExtractedMetadata, bool) {
	m := canonicalBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return "", models.ExtractedMetadata{}, false
	}

	body := m[1]
	meta := models.ExtractedMetadata{RawBlock: strings.TrimSpace(m[0])}

	if sm := scoreLineRe.FindStringSubmatch(body); sm != nil {
		if v, err := strconv.ParseFloat(sm[1], 64); err == nil {
			meta.Score = &v
		} else {
			log.Printf("WARN [Extraction] Unparseable score %q in metadata block", sm[1])
		}
	}
	if lm := scaffoldingLineRe.FindStringSubmatch(body); lm != nil {
		if v, err := strconv.Atoi(lm[1]); err == nil {
			level := prompts.ClampLevel(v)
			meta.ScaffoldingLevel = &level
		} else {
			log.Printf("WARN [Extraction] Unparseable scaffolding level %q in metadata block", lm[1])
		}
	}
	if rm := rationaleLineRe.FindStringSubmatch(body); rm != nil {
		meta.Rationale = strings.TrimSpace(rm[1])
	}

	// Criterion lines ("Specificity: 2") feed score reconstruction when the
	// overall Score line is missing.
	for _, cm := range criterionLineRe.FindAllStringSubmatch(body, -1) {
		key := strings.TrimSpace(cm[1])
		lower := strings.ToLower(key)
		if lower == "score" || lower == "scaffolding" || lower == "rationale" {
			continue
		}
		v, err := strconv.Atoi(cm[2])
		if err != nil {
			continue
		}
		if meta.Criteria == nil {
			meta.Criteria = make(map[string]int)
		}
		meta.Criteria[titleWord(key)] = v
	}

	return raw, meta, true
}

// parseLegacyNote handles the older INSTRUCTOR NOTE comment with
// "Goal Score: X/3.0" and "Scaffolding: Level N" lines. The note is stripped
// from the visible reply.
func parseLegacyNote(raw string) (string, models.ExtractedMetadata, bool) {
	m := legacyNoteRe.FindStringSubmatch(raw)
	if m == nil {
		return "", models.ExtractedMetadata{}, false
	}

	body := m[1]
	meta := models.ExtractedMetadata{RawBlock: strings.TrimSpace(m[0])}

	if sm := goalScoreRe.FindStringSubmatch(body); sm != nil {
		if v, err := strconv.ParseFloat(sm[1], 64); err == nil {
			meta.Score = &v
		} else {
			log.Printf("WARN [Extraction] Unparseable goal score %q in instructor note", sm[1])
		}
	}
	if lm := scaffoldLevelRe.FindStringSubmatch(body); lm != nil {
		if v, err := strconv.Atoi(lm[1]); err == nil {
			level := prompts.ClampLevel(v)
			meta.ScaffoldingLevel = &level
		}
	}

	visible := strings.Replace(raw, m[0], "", 1)
	return visible, meta, true
}

// parseLegacyBracket handles the oldest format, an inline bracket such as
//
//	[Evaluation Scores: Alignment: 2, Timeframe: 3, Measurability: 2.
//	 Overall Score: 2.3. Providing MEDIUM support]
//
// Individual criterion scores are kept so a missing overall score can be
// reconstructed later. The bracket is stripped from the visible reply.
func parseLegacyBracket(raw string) (string, models.ExtractedMetadata, bool) {
	m := legacyBracketRe.FindStringSubmatch(raw)
	if m == nil {
		return "", models.ExtractedMetadata{}, false
	}

	body := m[1]
	meta := models.ExtractedMetadata{RawBlock: strings.TrimSpace(m[0])}

	if sm := overallScoreRe.FindStringSubmatch(body); sm != nil {
		if v, err := strconv.ParseFloat(sm[1], 64); err == nil {
			meta.Score = &v
		} else {
			log.Printf("WARN [Extraction] Unparseable overall score %q in evaluation bracket", sm[1])
		}
	}

	for _, cm := range criterionScoreRe.FindAllStringSubmatch(body, -1) {
		v, err := strconv.Atoi(cm[2])
		if err != nil {
			continue
		}
		if meta.Criteria == nil {
			meta.Criteria = make(map[string]int)
		}
		meta.Criteria[titleWord(cm[1])] = v
	}

	if pm := supportPhraseRe.FindStringSubmatch(body); pm != nil {
		var level int
		switch strings.ToUpper(pm[1]) {
		case "HIGH":
			level = prompts.LevelHighSupport
		case "MEDIUM":
			level = prompts.LevelMediumSupport
		case "LOW":
			level = prompts.LevelLowSupport
		}
		meta.ScaffoldingLevel = &level
	}

	visible := strings.Replace(raw, m[0], "", 1)
	return visible, meta, true
}

// titleWord normalizes a criterion name to "Capitalized" form.
func titleWord(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Finalize fills derivable gaps in extracted metadata and computes the
// advancement signal for the given phase:
//
//   - A missing overall score is reconstructed as the mean of the
//     Specificity/Timeline/Measurement criterion scores when all three exist.
//   - A missing scaffolding level is derived from the score, defaulting to
//     medium support when there is no score either.
//   - ReadyToAdvance is set when the score meets the phase's excellence
//     threshold.
func Finalize(meta models.ExtractedMetadata, phase string) models.ExtractedMetadata {
	if meta.Score == nil && meta.Criteria != nil {
		spec, okS := meta.Criteria["Specificity"]
		timeline, okT := meta.Criteria["Timeline"]
		measurement, okM := meta.Criteria["Measurement"]
		if okS && okT && okM {
			mean := float64(spec+timeline+measurement) / 3.0
			meta.Score = &mean
		}
	}

	if meta.ScaffoldingLevel == nil {
		level := prompts.LevelMediumSupport
		if meta.Score != nil {
			level = scaffolding.LevelForScore(*meta.Score)
		}
		meta.ScaffoldingLevel = &level
	}

	if meta.Score != nil {
		meta.ReadyToAdvance = *meta.Score >= prompts.TemplateFor(phase).ExcellenceThreshold
	}

	return meta
}
