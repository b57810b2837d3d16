package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// openAICompletionRequest represents the payload for /v1/completions.
type openAICompletionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// Not standard OpenAI; llama.cpp accepts it, other servers ignore it.
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
}

func newCompletionRequest(model, prompt string, p InferParams) openAICompletionRequest {
	return openAICompletionRequest{
		Model:         model,
		Prompt:        prompt,
		MaxTokens:     p.MaxTokens,
		Temperature:   p.Temperature,
		TopP:          p.TopP,
		TopK:          p.TopK,
		Stop:          p.Stop,
		Seed:          p.Seed,
		Stream:        true,
		RepeatPenalty: p.RepeatPenalty,
	}
}

// openAIStreamChoice covers both the completions ("text") and chat ("delta")
// chunk shapes.
type openAIStreamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Object  string               `json:"object"`
	Choices []openAIStreamChoice `json:"choices"`
	Usage   *Usage               `json:"usage,omitempty"`
	// llama.cpp native streaming field.
	Content string `json:"content"`
}

// streamCompletion posts req to baseURL/v1/completions and forwards every text
// fragment to onToken. The returned FinalResult carries the concatenated text.
func streamCompletion(ctx context.Context, cli *http.Client, baseURL, apiKey string, payload openAICompletionRequest, onToken func(string) error) (FinalResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return FinalResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return FinalResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := cli.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return FinalResult{}, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var (
		final FinalResult
		text  strings.Builder
	)
	emit := func(frag string) error {
		if frag == "" {
			return nil
		}
		text.WriteString(frag)
		return onToken(frag)
	}
	r := bufio.NewReader(resp.Body)
	for {
		line, rerr := r.ReadString('\n')
		if l := strings.TrimSpace(line); l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				break
			}
			var msg openAIStreamResponse
			if err := json.Unmarshal([]byte(data), &msg); err != nil {
				return final, fmt.Errorf("decode stream chunk: %w", err)
			}
			if msg.Usage != nil {
				final.Usage = *msg.Usage
			}
			if len(msg.Choices) > 0 {
				c := msg.Choices[0]
				if err := emit(c.Text + c.Delta.Content); err != nil {
					return final, err
				}
				if c.FinishReason != "" {
					final.FinishReason = c.FinishReason
				}
			} else if err := emit(msg.Content); err != nil {
				return final, err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			return final, rerr
		}
	}
	final.Content = text.String()
	return final, nil
}
