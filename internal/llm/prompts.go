package llm

import (
	"fmt"
	"strings"
)

// BuildExtractionPrompt asks the model to pull structured skills out of raw
// evaluation text for one employee. The merged text may span several
// evaluations of the same person.
func BuildExtractionPrompt(employee, content string) string {
	return fmt.Sprintf(`You are a professional talent analyst. Extract skills from the following evaluation of employee "%s":

%s

Rules:
1. Extract both technical skills and soft skills.
2. proficiency must be one of: novice, competent, proficient, expert.
3. evidence must quote the original text (keep its language).

Respond with ONLY a JSON object in this exact format:
{"skills": [{"skillName": "...", "proficiency": "...", "evidence": "..."}]}

If no skills can be identified, respond with {"skills": []}.`, employee, content)
}

// BuildSynthesisPrompt asks the model to produce a bilingual talent profile
// from an employee's accumulated skill evidence.
func BuildSynthesisPrompt(employee, evidence string) string {
	return fmt.Sprintf(`You are a professional talent analyst. Generate a BILINGUAL talent profile for employee "%s" from these evaluation records:

%s

Produce both Chinese and English versions:
1. summaryZh: Chinese career summary (about 200 characters) highlighting core strengths, working style and value.
2. summaryEn: English career summary (about 150 words) matching the Chinese content.
3. tagsZh: 5-10 Chinese skill tags (e.g. Java开发, 问题解决, 团队协作).
4. tagsEn: the corresponding English skill tags (e.g. Java Development, Problem Solving, Teamwork).

The Chinese and English tag lists must have the same length and correspond one to one.

Respond with ONLY a JSON object in this exact format:
{"summaryZh": "...", "summaryEn": "...", "tagsZh": ["..."], "tagsEn": ["..."]}`, employee, evidence)
}

// BuildExpansionPrompt asks the model to rewrite a terse search query into a
// richer description for embedding. The output is used verbatim as the text
// to embed, so the prompt demands plain text with no framing.
func BuildExpansionPrompt(query string) string {
	return fmt.Sprintf(`Rewrite this talent search query into a fuller description of the skills and qualities being sought, suitable for semantic matching against employee profiles.

Query: %s

Respond with the expanded description only. No explanations, no quotes, no markdown.`, query)
}

// BuildRecommendationPrompt asks the model to explain, in natural language,
// which of the matched employees best fits the original query. The original
// query is used here, not the expanded one, so the answer speaks the user's
// language.
func BuildRecommendationPrompt(query string, matches []string) string {
	var sb strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, m)
	}
	return fmt.Sprintf(`You are a talent recommendation assistant. A user is searching for: "%s"

These employee profiles matched the search:
%s
Recommend the best fit and briefly explain why, citing the profile content. If none of the profiles genuinely matches the need, say so honestly instead of forcing a recommendation. Answer in the language of the user's query.`, query, sb.String())
}

// BuildClassifyPrompt asks the model to map a free-form evaluation tag onto
// one of the standard competencies.
func BuildClassifyPrompt(rawTag, context string, competencies []string) string {
	return fmt.Sprintf(`Classify this evaluation tag into a standard competency:
Tag: "%s"
Context: "%s"

Standard competency list:
%s

Return only the enum value, nothing else.`, rawTag, context, strings.Join(competencies, "\n"))
}
