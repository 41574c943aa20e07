package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SkillExtraction is one skill pulled out of evaluation text by the model.
type SkillExtraction struct {
	SkillName   string `json:"skillName"`
	Proficiency string `json:"proficiency"`
	Evidence    string `json:"evidence"`
}

// skillResponse is the schema the extraction prompt asks for.
type skillResponse struct {
	Skills []SkillExtraction `json:"skills"`
}

// ProfileSummary is the bilingual profile the synthesis prompt asks for.
type ProfileSummary struct {
	SummaryZH string   `json:"summaryZh"`
	SummaryEN string   `json:"summaryEn"`
	TagsZH    []string `json:"tagsZh"`
	TagsEN    []string `json:"tagsEn"`
}

// ExtractJSON pulls a JSON object out of a model response. Models routinely
// wrap output in markdown fences or add prose around the object, so we strip
// fences and cut from the first '{' to the last '}'.
func ExtractJSON(response string) (string, bool) {
	s := strings.TrimSpace(response)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseSkills decodes an extraction response into skill entries. A response
// with no JSON object or an unmarshalable body is an error; a well-formed
// response with an empty or missing skills array yields an empty slice.
func ParseSkills(response string) ([]SkillExtraction, error) {
	raw, ok := ExtractJSON(response)
	if !ok {
		return nil, fmt.Errorf("no JSON object in extraction response")
	}

	var parsed skillResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	skills := make([]SkillExtraction, 0, len(parsed.Skills))
	for _, s := range parsed.Skills {
		if strings.TrimSpace(s.SkillName) == "" {
			continue
		}
		skills = append(skills, s)
	}
	return skills, nil
}

// ParseProfileSummary decodes a synthesis response into a bilingual profile.
func ParseProfileSummary(response string) (*ProfileSummary, error) {
	raw, ok := ExtractJSON(response)
	if !ok {
		return nil, fmt.Errorf("no JSON object in synthesis response")
	}

	var parsed ProfileSummary
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode synthesis response: %w", err)
	}
	return &parsed, nil
}
