package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// locatePrompt 是发给多模态模型的固定指令。
// 要求只回答 "City, Country"，无法识别时回答字面量 "Unknown"。
const locatePrompt = "Where was this photo taken? Reply with ONLY the city and country name, " +
	"like 'Paris, France' or 'New York, USA'. If you cannot identify the location, reply with 'Unknown'."

// unknownMarkers 是模型拒绝或无法识别时常见的回答片段 (不区分大小写)。
var unknownMarkers = []string{"unknown", "i cannot", "i'm sorry", "unable to determine"}

// OpenAI 是一个用于 OpenAI 多模态 API 的 VisionModel 客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称 (例如: "gpt-4o")。
}

// NewOpenAI 创建一个新的 OpenAI 视觉客户端。baseURL 为空时使用官方端点。
func NewOpenAI(model, apiKey, baseURL string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// LocatePhoto 用一次 chat completion 调用识别照片的拍摄地点。
// 单次尝试，从不重试；如何处理失败由调用方决定。
func (o *OpenAI) LocatePhoto(ctx context.Context, data []byte, contentType string) (string, error) {
	b64 := base64.StdEncoding.EncodeToString(data)
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, b64)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: locatePrompt,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		MaxTokens: 50,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	place := strings.TrimSpace(resp.Choices[0].Message.Content)
	if IsUnknownPlace(place) {
		return "", ErrUnknownPlace
	}
	return place, nil
}

// IsUnknownPlace 判断模型回答是否为"无法识别"类响应而非可用地名。
func IsUnknownPlace(reply string) bool {
	lower := strings.ToLower(reply)
	for _, marker := range unknownMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
