package openai

import (
	"fmt"
	"strings"

	"github.com/communitywatch/communitywatch/ai"
)

const classificationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "category": {
      "type": "string"
    },
    "severity": {
      "type": "string",
      "enum": ["low", "medium", "high"]
    }
  },
  "required": ["category", "severity"],
  "additionalProperties": false
}`

const classificationPromptTemplate = `Classify the given civic issue report and return the result as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Category must match exactly one of the listed values: %s.
- Severity estimates urgency: "high" for safety hazards (deep potholes on busy roads, dark streets at night), "medium" for quality-of-life problems, "low" for cosmetic issues.
- Base the classification only on what the report describes. Do not hallucinate.
- If the report fits no specific category, use "Other".
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.



Example (formal):
Input: "There is a large pothole in the middle of Main Street that has damaged two car tires this week."
Output:
{"category":"Pothole","severity":"high"}

---  // informal / chat-style examples

Example (missing capitalization, no punctuation):
Input: "someone sprayed paint all over the library wall"
Output:
{"category":"Graffiti","severity":"low"}

Example (shortened, no punctuation):
Input: "street lamp by the park flickers all nite"
Output:
{"category":"Streetlight","severity":"medium"}

Example (vague report):
Input: "trash bags piling up at the corner again"
Output:
{"category":"Litter","severity":"medium"}

Example (unclassifiable):
Input: "loud construction noise every morning"
Output:
{"category":"Other","severity":"low"}`

// buildSystemPrompt creates the system prompt with issue categories embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(classificationPromptTemplate,
		classificationResponseSchema,
		strings.Join(ai.IssueCategories, ", "))
}
