package advice

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Generator produces advice text for a program.
type Generator interface {
	Generate(ctx context.Context, programName string) (string, error)
}

// GeminiGenerator calls the Gemini API through the Gen AI SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, programName string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(programName)), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Prompt asks for a short facilitation tip in the voice of a senior manager.
func Prompt(programName string) string {
	return fmt.Sprintf(
		"당신은 BnO 컴퍼니의 시니어 운영 매니저입니다. 신입 인턴에게 '%s' 프로그램의 원활한 퍼실리테이션(진행)을 위한 팁을 3줄 내외로 조언해주세요. 말투는 친절하고 전문적인 사수 느낌으로 한국어로 조언해주세요.",
		programName,
	)
}
