package llm

import (
	"context"

	"voxnow-backend/internal/llm/chatapi"
	"voxnow-backend/internal/llm/gemini"
)

// chatAPIProvider adapts a chatapi.Client to the Provider interface.
type chatAPIProvider struct {
	client *chatapi.Client
}

func (p *chatAPIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	text, err := p.client.Complete(ctx, req.System, req.User, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, err
	}
	name, version := p.client.ModelInfo()
	return &Completion{Text: text, ModelName: name, ModelVersion: version}, nil
}

func (p *chatAPIProvider) Close() error {
	return p.client.Close()
}

func (p *chatAPIProvider) ModelInfo() (string, string) {
	return p.client.ModelInfo()
}

// geminiProvider adapts a gemini.Client to the Provider interface.
type geminiProvider struct {
	client *gemini.Client
}

func (p *geminiProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	text, err := p.client.Complete(ctx, req.System, req.User, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, err
	}
	name, version := p.client.ModelInfo()
	return &Completion{Text: text, ModelName: name, ModelVersion: version}, nil
}

func (p *geminiProvider) Close() error {
	return p.client.Close()
}

func (p *geminiProvider) ModelInfo() (string, string) {
	return p.client.ModelInfo()
}
