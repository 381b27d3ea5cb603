package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const SystemPrompt = "You are an expert HR interviewer and career coach. Provide constructive evaluation of interview responses."

// BuildPrompt renders the evaluation instructions for a single answer.
func BuildPrompt(req Request) string {
	jobDescription := strings.TrimSpace(req.JobDescription)
	if jobDescription == "" {
		jobDescription = "Not provided"
	}

	var sb strings.Builder
	sb.WriteString("Evaluate this interview answer for the given question and job context:\n\n")
	sb.WriteString("Job Description Context:\n" + jobDescription + "\n\n")
	sb.WriteString("Question: " + req.Question + "\n\n")
	sb.WriteString("Candidate's Answer: " + req.Transcript + "\n\n")
	sb.WriteString("Please provide:\n")
	sb.WriteString("1. A score from 1-10 (10 being excellent)\n")
	sb.WriteString("2. 2-3 key strengths of the answer\n")
	sb.WriteString("3. 2-3 areas for improvement\n")
	sb.WriteString("4. 2-3 specific suggestions for better answers\n\n")
	sb.WriteString("Return your evaluation as JSON in this exact format:\n")
	sb.WriteString(`{"score": 7, "strengths": ["strength1", "strength2", "strength3"], "weaknesses": ["weakness1", "weakness2"], "suggestions": ["suggestion1", "suggestion2", "suggestion3"]}`)
	sb.WriteString("\n")
	return sb.String()
}

// ParseContent decodes a model reply into a Result. Replies
// wrapped in markdown code fences are accepted.
func ParseContent(content string) (Result, error) {
	content = StripCodeFence(content)
	if content == "" {
		return Result{}, Failed(fmt.Errorf("empty evaluation response"))
	}

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Result{}, Failed(fmt.Errorf("failed to decode evaluation response: %w", err))
	}
	return result, nil
}

// StripCodeFence returns the body of the first markdown code block in
// content, or content itself when there is none.
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	split := strings.Split(content, "```")
	if len(split) < 3 {
		return content
	}

	body := split[1]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 && !strings.ContainsAny(body[:newline], "{[") {
		// language tag
		body = body[newline+1:]
	}
	return strings.TrimSpace(body)
}
