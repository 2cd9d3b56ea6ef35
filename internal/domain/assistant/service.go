package assistant

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/greennepal/agrihealth/internal/infra/llm/gemini"
	apperrors "github.com/greennepal/agrihealth/pkg/errors"
	"github.com/greennepal/agrihealth/pkg/wav"
)

// Service exposes the conversational assistant and speech synthesis.
type Service interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Speak(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// GenerateClient is the slice of the Gemini client the domain needs.
type GenerateClient interface {
	GenerateContent(ctx context.Context, model string, req gemini.Request) (gemini.Response, error)
}

type service struct {
	cfg    Config
	client GenerateClient
	logger *slog.Logger
}

// NewService wires up the assistant domain.
func NewService(cfg Config, client GenerateClient, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "assistant.service"),
	}
}

// BuildChatPrompt embeds the user message into the assistant instruction.
// The reply language follows the script the farmer wrote in.
func BuildChatPrompt(persona, message string) string {
	language := "Reply in English."
	if containsDevanagari(message) {
		language = "Reply in Nepali (Devanagari script)."
	}
	return fmt.Sprintf("%s\nThe user is asking: %q\nProvide a helpful, concise, and expert answer suitable for a farmer. %s", persona, message, language)
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatResponse{}, apperrors.Wrap("invalid_input", "message cannot be empty", nil)
	}

	resp, err := s.client.GenerateContent(ctx, s.cfg.Model, gemini.NewTextRequest(BuildChatPrompt(s.cfg.Persona, message)))
	if err != nil {
		return ChatResponse{}, apperrors.Wrap(gemini.ErrorCode(err), "AI chat request failed", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		reply = "No response generated."
	}
	return ChatResponse{Reply: reply}, nil
}

// Speak synthesizes the text into a playable WAV container. A response with
// no audio payload yields an empty result, not an error.
func (s *service) Speak(ctx context.Context, req SpeechRequest) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperrors.Wrap("invalid_input", "text cannot be empty", nil)
	}

	resp, err := s.client.GenerateContent(ctx, s.cfg.TTSModel, gemini.NewSpeechRequest(text, s.cfg.Voice))
	if err != nil {
		return nil, apperrors.Wrap(gemini.ErrorCode(err), "AI speech request failed", err)
	}

	encoded := resp.InlineAudio()
	if encoded == "" {
		s.logger.Warn("speech response carried no audio payload")
		return nil, nil
	}
	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.Wrap("parse_error", "speech payload is not valid base64", err)
	}
	return wav.EncodePCM(pcm), nil
}

func containsDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}
