package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	elevenLabsBaseURL       = "https://api.elevenlabs.io"
	elevenLabsDefaultVoice  = "JBFqnCBsd6RMkjVDRZzb"
	elevenLabsDefaultModel  = "eleven_multilingual_v2"
	elevenLabsDefaultFormat = "mp3_44100_128"
)

// ElevenLabs synthesizes through the ElevenLabs text-to-speech REST API.
type ElevenLabs struct {
	client  *http.Client
	baseURL string
	apiKey  string
	voice   string
	model   string
	format  string
	log     logrus.FieldLogger
}

// NewElevenLabs creates an ElevenLabs synthesizer.
func NewElevenLabs(cfg Config) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	e := &ElevenLabs{
		client:  cfg.HTTPClient,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		voice:   cfg.Voice,
		model:   cfg.Model,
		format:  cfg.Format,
		log:     cfg.Logger,
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: defaultRequestTimeout}
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.baseURL == "" {
		e.baseURL = elevenLabsBaseURL
	}
	if e.voice == "" {
		e.voice = elevenLabsDefaultVoice
	}
	if e.model == "" {
		e.model = elevenLabsDefaultModel
	}
	if e.format == "" {
		e.format = elevenLabsDefaultFormat
	}
	return e, nil
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize converts text to audio in the configured output format.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: e.model})
	if err != nil {
		return nil, err
	}
	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(e.voice) +
		"?output_format=" + url.QueryEscape(e.format)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")
	req.Header.Set("xi-api-key", e.apiKey)

	log := e.log.WithFields(logrus.Fields{"provider": ProviderElevenLabs, "voice": e.voice, "model": e.model})
	start := time.Now()

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readError(ProviderElevenLabs, resp, data)
	}

	ext, contentType := elevenLabsFormat(e.format)
	log.WithFields(logrus.Fields{
		"size":    humanize.Bytes(uint64(len(data))),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("synthesized")
	return &Audio{Data: data, ContentType: contentType, Ext: ext}, nil
}

// elevenLabsFormat maps an output format such as mp3_44100_128 or
// pcm_16000 to a file extension and MIME type.
func elevenLabsFormat(format string) (ext, contentType string) {
	codec, _, _ := strings.Cut(format, "_")
	switch codec {
	case "mp3":
		return "mp3", "audio/mpeg"
	case "wav":
		return "wav", "audio/wav"
	default:
		return codec, "application/octet-stream"
	}
}
