package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classmark",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classmark",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"model"})

	aiGradeMissing = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classmark",
		Subsystem: "ai",
		Name:      "evaluation_grade_missing_total",
		Help:      "Number of responses missing a parseable grade header",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI evaluator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	tracer := otel.Tracer("github.com/classmark/classmark-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIEvaluator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Evaluate sends the grading request to OpenAI and parses the sectioned
// response. An error is returned only when no usable candidate was produced;
// formatting shortfalls in an otherwise successful response degrade instead.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, input EvaluationInput) (EvaluationResult, error) {
	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Bool("evaluation.has_image", input.Image != nil),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: gradingSystemPrompt(),
			},
			buildUserMessage(input),
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, fmt.Errorf("openai evaluate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no candidates returned from openai")
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, err
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		err := fmt.Errorf("evaluation response blocked by content filter")
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, err
	}

	content := strings.TrimSpace(choice.Message.Content)
	result := ParseEvaluation(content)
	if result.Grade == nil {
		aiGradeMissing.WithLabelValues(e.cfg.Model).Inc()
		e.logger.Warn().
			Str("model", e.cfg.Model).
			Str("finish_reason", string(choice.FinishReason)).
			Msg("evaluation response missing grade header")
	}

	span.SetAttributes(attribute.Bool("evaluation.grade_found", result.Grade != nil))

	return result, nil
}

func gradingSystemPrompt() string {
	return "You are an experienced educator grading student work. Respond using exactly this structure:\n\n" +
		"OVERALL GRADE:\n<integer 0-100>\n\n" +
		"STRENGTHS:\n- ...\n\n" +
		"AREAS FOR IMPROVEMENT:\n- ...\n\n" +
		"DETAILED FEEDBACK:\n<prose>\n\n" +
		"RECOMMENDATIONS:\n- ...\n\n" +
		"CONCLUDING REMARKS:\n<prose>\n\n" +
		"Be constructive and specific. Grade against the assignment instructions only."
}

func buildUserMessage(input EvaluationInput) openai.ChatCompletionMessage {
	prompt := buildGradingPrompt(input)

	if input.Image == nil {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}
	}

	dataURL := "data:" + input.Image.MimeType + ";base64," + input.Image.Base64

	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: dataURL,
				},
			},
		},
	}
}

func buildGradingPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Assignment\n")
	builder.WriteString(input.AssignmentTitle)
	builder.WriteString("\n\n## Instructions\n")
	builder.WriteString(input.Instructions)
	builder.WriteString("\n\n## Maximum Points\n")
	builder.WriteString(strconv.Itoa(input.MaxPoints))
	builder.WriteString("\n\n## Student Submission\n")
	builder.WriteString(input.Text)
	return builder.String()
}
