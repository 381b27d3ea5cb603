package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MinGenerated = 8
	MaxGenerated = 10

	systemPrompt = "You are an expert HR interviewer. Generate thoughtful, relevant interview questions based on the job description provided."
)

var fallbackQuestions = []string{
	"Tell me about a challenging project you've worked on recently.",
	"How do you handle working under pressure and tight deadlines?",
}

// Generator writes interview questions for a job description with an OpenAI
// compatible chat model.
type Generator struct {
	api   *openai.Client
	model string
}

type generatorConfig struct {
	apiKey  string
	baseURL string
	model   string
}

type GeneratorOption func(*generatorConfig)

func WithAPIKey(apiKey string) GeneratorOption {
	return func(c *generatorConfig) { c.apiKey = apiKey }
}

func WithBaseURL(baseURL string) GeneratorOption {
	return func(c *generatorConfig) { c.baseURL = baseURL }
}

func WithModel(model string) GeneratorOption {
	return func(c *generatorConfig) {
		if model != "" {
			c.model = model
		}
	}
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	cfg := generatorConfig{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  openai.GPT4oMini,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	config := openai.DefaultConfig(cfg.apiKey)
	if cfg.baseURL != "" {
		config.BaseURL = cfg.baseURL
	}
	config.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	return &Generator{api: openai.NewClientWithConfig(config), model: cfg.model}
}

func (g *Generator) Generate(ctx context.Context, jobDescription string) (Set, error) {
	ctx, span := tracer.Start(ctx, "generate questions")
	defer span.End()

	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		err := fmt.Errorf("job description is empty")
		span.RecordError(err)
		return Set{}, err
	}
	span.SetAttributes(attribute.String("request.model", g.model))

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(jobDescription)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		err = fmt.Errorf("failed to generate questions: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Set{}, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("failed to generate questions: no choices returned")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Set{}, err
	}

	set := Set{
		JobDescription: jobDescription,
		Questions:      ParseGenerated(resp.Choices[0].Message.Content),
	}
	if err := set.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Set{}, err
	}
	span.SetAttributes(attribute.Int("response.questions", len(set.Questions)))
	return set, nil
}

func buildPrompt(jobDescription string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following job description, generate 8-10 diverse interview questions that would effectively assess a candidate's suitability for this role.\n\n")
	sb.WriteString("Job Description:\n" + jobDescription + "\n\n")
	sb.WriteString("Please generate questions that cover:\n")
	sb.WriteString("- Technical skills and experience\n")
	sb.WriteString("- Behavioral and situational scenarios\n")
	sb.WriteString("- Problem-solving abilities\n")
	sb.WriteString("- Cultural fit and motivation\n")
	sb.WriteString("- Role-specific competencies\n\n")
	sb.WriteString("Return only the questions as a JSON array of strings, no additional text or formatting.\n")
	return sb.String()
}

// ParseGenerated extracts questions from a model reply. A JSON array is used
// as is; anything else is read line by line and padded with generic
// questions when too short. At most MaxGenerated questions are returned.
func ParseGenerated(content string) []string {
	var questions []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &questions); err != nil {
		logger.Debug("generated questions are not a json array, parsing lines", "error", err)
		questions = parseLines(content)
		if len(questions) < MinGenerated {
			questions = append(questions, fallbackQuestions...)
		}
	}

	if len(questions) > MaxGenerated {
		questions = questions[:MaxGenerated]
	}
	return questions
}

func parseLines(content string) []string {
	var questions []string
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}
		if _, rest, found := strings.Cut(line, ". "); found {
			line = rest
		}
		questions = append(questions, strings.Trim(line, `"`))
	}
	return questions
}
