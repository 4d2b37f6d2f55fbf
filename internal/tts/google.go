package tts

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"
)

const (
	// googleChunkLimit stays under the 5000 byte request limit.
	googleChunkLimit      = 4800
	googleDefaultVoice    = "en-US-Chirp3-HD-Charon"
	googleDefaultLanguage = "en-US"
)

type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Google synthesizes through Google Cloud Text-to-Speech. Credentials come
// from the environment (GOOGLE_APPLICATION_CREDENTIALS).
type Google struct {
	client   speechClient
	voice    string
	language string
	log      logrus.FieldLogger
}

// NewGoogle creates a Google Cloud synthesizer.
func NewGoogle(ctx context.Context, cfg Config) (*Google, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return newGoogle(client, cfg), nil
}

func newGoogle(client speechClient, cfg Config) *Google {
	g := &Google{
		client:   client,
		voice:    cfg.Voice,
		language: cfg.Language,
		log:      cfg.Logger,
	}
	if g.voice == "" {
		g.voice = googleDefaultVoice
	}
	if g.language == "" {
		g.language = googleDefaultLanguage
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	return g
}

// Close releases the client connection.
func (g *Google) Close() error {
	return g.client.Close()
}

// Synthesize converts text to MP3, one request per chunk. MP3 frames are
// self-delimiting so the chunks are concatenated as is.
func (g *Google) Synthesize(ctx context.Context, text string) (*Audio, error) {
	chunks := splitIntoChunks(strings.TrimSpace(text), googleChunkLimit)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}

	audioCfg := &texttospeechpb.AudioConfig{AudioEncoding: texttospeechpb.AudioEncoding_MP3}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: g.language,
				Name:         g.voice,
			},
			AudioConfig: audioCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}
		buf.Write(resp.GetAudioContent())
		g.log.WithFields(logrus.Fields{
			"provider": ProviderGoogle,
			"chunk":    fmt.Sprintf("%d/%d", i+1, len(chunks)),
		}).Debug("synthesized chunk")
	}

	return &Audio{Data: buf.Bytes(), ContentType: "audio/mpeg", Ext: "mp3"}, nil
}
