// Package tts turns episode scripts into audio through pluggable providers.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Provider names accepted by New.
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
	ProviderGoogle     = "google"
	ProviderMock       = "mock"
)

const defaultRequestTimeout = 90 * time.Second

var (
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("text is empty")
	// ErrMissingAPIKey is returned when a hosted provider has no credentials.
	ErrMissingAPIKey = errors.New("api key is required")
)

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
	// Ext is the file extension without the dot: mp3, wav, flac.
	Ext string
}

// Synthesizer converts text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// Config selects and configures a provider. Empty fields take the provider's
// defaults.
type Config struct {
	Provider string
	APIKey   string
	Voice    string
	Model    string
	Format   string
	Language string
	// BaseURL overrides the provider endpoint for the REST providers.
	BaseURL    string
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// New creates the provider named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Synthesizer, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderElevenLabs:
		return NewElevenLabs(cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderGoogle:
		return NewGoogle(ctx, cfg)
	case ProviderMock, "":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unsupported tts provider: %s", cfg.Provider)
	}
}

// splitIntoChunks splits text into pieces of at most limit bytes, breaking
// on whitespace when possible and never inside a UTF-8 sequence.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(text[cut]) {
			cut--
		}
		if i := strings.LastIndexAny(text[:cut], " \n\t"); i > limit/2 {
			cut = i
		}
		if chunk := strings.TrimSpace(text[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = text[cut:]
	}
	if chunk := strings.TrimSpace(text); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func readError(provider string, resp *http.Response, body []byte) error {
	return fmt.Errorf("%s error %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
}
