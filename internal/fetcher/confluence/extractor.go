package confluence

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"canteen-menu/internal/common/calendar"
	fetcherrors "canteen-menu/internal/common/errors"
	commonhttp "canteen-menu/internal/common/http"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/common/validation"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	DefaultModel   = "google/gemini-2.0-flash-001"
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	toolName = "process_menu"
	prompt   = "This is a weekly lunch menu. Extract meals for each day with their categories. " +
		"Return the structured data using the provided function."
)

// DayMeals is the payload of one process_menu tool call.
type DayMeals struct {
	Weekday string   `json:"weekday"`
	Meals   []string `json:"meals"`
}

// MenuExtractor reads the per-day meal lists out of a menu image.
type MenuExtractor interface {
	Extract(ctx context.Context, image []byte, mediaType string) ([]DayMeals, error)
}

type ExtractorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// processMenuSchema is both the tool's parameter schema and the contract its
// arguments are validated against.
var processMenuSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"weekday": {
			Type:        jsonschema.String,
			Description: "The weekday for these meals",
			Enum:        calendar.Workdays,
		},
		"meals": {
			Type:        jsonschema.Array,
			Description: "List of meals available for this weekday",
			Items: &jsonschema.Definition{
				Type:        jsonschema.String,
				Description: "Name of the meal",
			},
		},
	},
	Required: []string{"weekday", "meals"},
}

// OpenAIExtractor asks an OpenAI-compatible chat completion endpoint to call
// the process_menu tool once per weekday.
type OpenAIExtractor struct {
	client    *openai.Client
	model     string
	validator *validation.Validator
	logger    logger.Logger
}

func NewOpenAIExtractor(cfg ExtractorConfig, log logger.Logger) (*OpenAIExtractor, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = commonhttp.NewClient(timeout).HTTPClient()

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	validator, err := validation.NewValidator(processMenuSchema)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", toolName, err)
	}

	return &OpenAIExtractor{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		validator: validator,
		logger:    log,
	}, nil
}

func (e *OpenAIExtractor) Extract(ctx context.Context, image []byte, mediaType string) ([]DayMeals, error) {
	e.logger.Info("starting menu image analysis", map[string]interface{}{"model": e.model, "bytes": len(image)})

	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(image))
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        toolName,
					Description: "Process the weekly menu data",
					Parameters:  processMenuSchema,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: toolName},
		},
	})
	if err != nil {
		return nil, fetcherrors.NewExtractionFailed("Failed to analyze image with OpenAI", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fetcherrors.NewExtractionFailed("No tool calls received", nil)
	}

	var days []DayMeals
	for _, call := range resp.Choices[0].Message.ToolCalls {
		day, ok := e.parseCall(call)
		if ok {
			days = append(days, day)
		}
	}
	return days, nil
}

func (e *OpenAIExtractor) parseCall(call openai.ToolCall) (DayMeals, bool) {
	fields := map[string]interface{}{"toolCallId": call.ID, "function": call.Function.Name}

	if call.Function.Name != toolName || call.Function.Arguments == "" {
		e.logger.Warn("skipping unexpected tool call", fields)
		return DayMeals{}, false
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		fields["error"] = err
		e.logger.Warn("skipping malformed tool call arguments", fields)
		return DayMeals{}, false
	}
	// Weekday names are matched case-insensitively; the schema sees the canonical form.
	if name, ok := args["weekday"].(string); ok {
		if idx, known := calendar.WeekdayIndex(name); known {
			args["weekday"] = calendar.Workdays[idx]
		}
	}

	result, err := e.validator.Validate(args)
	if err != nil {
		fields["error"] = err
		e.logger.Warn("skipping malformed tool call arguments", fields)
		return DayMeals{}, false
	}
	if !result.Valid {
		fields["violations"] = result.Error()
		e.logger.Warn("skipping tool call that violates the schema", fields)
		return DayMeals{}, false
	}

	var day DayMeals
	if err := json.Unmarshal([]byte(call.Function.Arguments), &day); err != nil {
		fields["error"] = err
		e.logger.Warn("skipping undecodable tool call arguments", fields)
		return DayMeals{}, false
	}
	day.Weekday = args["weekday"].(string)
	e.logger.Debug("processing menu data", map[string]interface{}{"weekday": day.Weekday, "meals": len(day.Meals)})
	return day, true
}
