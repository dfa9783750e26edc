package synthesis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
)

// DefaultMaxContextChars bounds the passage sent to the model. Rough
// estimate of 4 characters per token against a 16k-token budget.
const DefaultMaxContextChars = 16000 * 4

// OpenAISynthesizer produces abstractive answers with a chat completion.
// The model is asked for a JSON object carrying both the answer text and its
// own confidence estimate.
type OpenAISynthesizer struct {
	client          *openai.Client
	model           openai.ChatModel
	maxContextChars int
}

// NewOpenAISynthesizer creates a synthesizer on an existing client (shared
// with the embedding provider). An empty model selects GPT-4o.
func NewOpenAISynthesizer(client *openai.Client, model string) *OpenAISynthesizer {
	m := openai.ChatModelGPT4o
	if model != "" {
		m = openai.ChatModel(model)
	}
	return &OpenAISynthesizer{
		client:          client,
		model:           m,
		maxContextChars: DefaultMaxContextChars,
	}
}

type completionPayload struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Answer asks the model to answer the question strictly from the passage.
func (s *OpenAISynthesizer) Answer(ctx context.Context, question, passage string) (Result, error) {
	if len(passage) > s.maxContextChars {
		passage = passage[:s.maxContextChars]
	}

	prompt := fmt.Sprintf(`Answer the question using only the provided context. If the context does not contain the answer, say so plainly.

Question: %s

Context:
%s

Respond in JSON format:
{"answer": "The answer grounded in the context", "confidence": 0.0}

Set confidence between 0 and 1 to reflect how well the context supports the answer.`, question, passage)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: s.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return Result{}, fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}
	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 1 {
		payload.Confidence = 1
	}
	return Result{Text: payload.Answer, Confidence: payload.Confidence}, nil
}
