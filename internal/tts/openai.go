package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	openAIBaseURL       = "https://api.openai.com"
	openAIDefaultVoice  = "alloy"
	openAIDefaultModel  = "gpt-4o-mini-tts"
	openAIDefaultFormat = "mp3"
)

// OpenAI synthesizes through the OpenAI audio speech endpoint.
type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	voice   string
	model   string
	format  string
	log     logrus.FieldLogger
}

// NewOpenAI creates an OpenAI synthesizer.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	o := &OpenAI{
		client:  cfg.HTTPClient,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		voice:   cfg.Voice,
		model:   cfg.Model,
		format:  cfg.Format,
		log:     cfg.Logger,
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: defaultRequestTimeout}
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	if o.baseURL == "" {
		o.baseURL = openAIBaseURL
	}
	if o.voice == "" {
		o.voice = openAIDefaultVoice
	}
	if o.model == "" {
		o.model = openAIDefaultModel
	}
	if o.format == "" {
		o.format = openAIDefaultFormat
	}
	return o, nil
}

type openAIRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize converts text to audio.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(openAIRequest{Model: o.model, Input: text, Voice: o.voice, ResponseFormat: o.format})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readError(ProviderOpenAI, resp, data)
	}

	o.log.WithFields(logrus.Fields{
		"provider": ProviderOpenAI,
		"voice":    o.voice,
		"model":    o.model,
		"size":     humanize.Bytes(uint64(len(data))),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("synthesized")

	contentType := "audio/mpeg"
	switch o.format {
	case "wav":
		contentType = "audio/wav"
	case "flac":
		contentType = "audio/flac"
	}
	return &Audio{Data: data, ContentType: contentType, Ext: o.format}, nil
}
