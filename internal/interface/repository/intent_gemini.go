package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
	"taxibot-service/pkg/logger"
)

const intentPrompt = `Você é o classificador de intenções de um assistente de táxi por WhatsApp.
Analise a mensagem do cliente e o contexto da conversa e responda SOMENTE com um JSON neste formato:
{"hasOrigin":bool,"hasDestination":bool,"originText":string,"destinationText":string,"category":string,"isConfirmation":bool,"isCancellation":bool,"isGreeting":bool}

Regras:
- "category" deve ser um de: CARRO_PEQUENO, CARRO_GRANDE, MOTO, ou vazio.
- "isConfirmation" apenas para um sim explícito (sim, pode, confirmo, ok).
- "isCancellation" apenas para desistência explícita (cancelar, deixa, não quero mais).
- Endereços parciais contam como origem/destino.

<contexto>
%s
</contexto>

<mensagem>
%s
</mensagem>`

// GeminiIntentRepository classifies utterances with the Gemini API
type GeminiIntentRepository struct {
	logger logger.Logger
	client *genai.Client
	model  string
}

// NewGeminiIntentRepository creates a new Gemini intent classifier
func NewGeminiIntentRepository(ctx context.Context, logger logger.Logger, apiKey, model string) (repository.IntentRepository, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiIntentRepository{
		logger: logger,
		client: client,
		model:  model,
	}, nil
}

// Classify extracts a structured intent from free text. Any error here is
// recoverable: the caller degrades to the keyword classifier.
func (r *GeminiIntentRepository) Classify(ctx context.Context, text string, contextJSON string) (*entity.Intent, error) {
	prompt := fmt.Sprintf(intentPrompt, contextJSON, text)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(float32(0)),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	// the model occasionally wraps JSON in a code fence despite the mime type
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var intent entity.Intent
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &intent); err != nil {
		return nil, fmt.Errorf("gemini response parse: %w", err)
	}

	r.logger.Debug("Intent classified",
		"hasOrigin", intent.HasOrigin,
		"hasDestination", intent.HasDestination,
		"isConfirmation", intent.IsConfirmation,
		"isCancellation", intent.IsCancellation)

	return &intent, nil
}
