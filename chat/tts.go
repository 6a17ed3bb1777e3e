package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/llm"
	"github.com/agromitra/agromitra/model"
)

// Modulation selects how synthesized speech is phrased.
type Modulation string

const (
	ModulationGeneral         Modulation = "general"
	ModulationDataExplanation Modulation = "data_explanation"
)

var modulationStyles = map[Modulation]string{
	ModulationGeneral:         "Say clearly little faster",
	ModulationDataExplanation: "Explain the given data clearly to a layman",
}

// VoiceKore is the default synthesis voice.
const VoiceKore = "Kore"

// Speech synthesizes spoken audio from text and stores it as a blob.
type Speech struct {
	client ModelClient
	blobs  BlobStore
	logger *slog.Logger
}

// NewSpeech creates a synthesizer.
func NewSpeech(client ModelClient, blobs BlobStore, logger *slog.Logger) *Speech {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speech{client: client, blobs: blobs, logger: logger}
}

// SpeechRequest describes one synthesis: what to say, how, and where the
// audio lands.
type SpeechRequest struct {
	// Container is the blob container; empty means ai-chat.
	Container string
	// Text is the text or raw data to speak.
	Text string
	// Language the audio should be in; empty keeps the text's language.
	Language string
	// Modulation selects the speaking style; empty means general.
	Modulation Modulation
	// BlobName names the stored audio file, extension added from the MIME
	// type.
	BlobName string
	// PathPrefix is the user-scoped path inside the container.
	PathPrefix string
}

// SynthesizeToBlob converts text to speech and stores the audio under
// "<container>/<path_prefix>/<blob_name><ext>", returning the blob
// reference. The data_explanation modulation first rewrites raw data into a
// layman's narration before synthesis.
func (s *Speech) SynthesizeToBlob(ctx context.Context, req SpeechRequest) (string, error) {
	if req.Modulation == "" {
		req.Modulation = ModulationGeneral
	}
	style, ok := modulationStyles[req.Modulation]
	if !ok {
		return "", apperr.BadRequest("Invalid voice modulation.")
	}
	if req.Container == "" {
		req.Container = blob.ContainerAIChat
	}
	if req.Language == "" {
		req.Language = "same as text"
	}

	spoken := req.Text
	if req.Modulation == ModulationDataExplanation {
		rewritten, err := s.explainData(ctx, req.Text, req.Language)
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "Text to speech conversion failed.", err)
		}
		spoken = rewritten
	}

	prompt := fmt.Sprintf("%s in the language %s: %s", style, req.Language, spoken)
	audio, mimeType, err := s.client.SynthesizeSpeech(ctx, prompt, VoiceKore)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "Text to speech conversion failed.", err)
	}
	if len(audio) == 0 {
		return "", apperr.Internal(fmt.Errorf("speech response has no audio data"))
	}

	name := normalizeBlobName(req.BlobName) + audioExtension(mimeType)
	reference := strings.Join([]string{req.Container, strings.Trim(req.PathPrefix, "/"), name}, "/")
	if _, err := s.blobs.Put(ctx, reference, audio, mimeType); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "Text to speech conversion failed.", err)
	}
	return reference, nil
}

// explainData rewrites raw data into narration suitable for synthesis.
func (s *Speech) explainData(ctx context.Context, data, language string) (string, error) {
	system := fmt.Sprintf(
		"Explain the given data clearly to a layman, fully in language %s. "+
			"The generated text will be used for TTS. If data is not provided return nothing.",
		language)
	resp, err := s.client.Complete(ctx, llm.Request{
		Capability: model.CapabilityConversation.String(),
		System:     system,
		Contents:   []llm.Content{llm.TextContent("user", data)},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeBlobName collapses whitespace inside each path segment without
// altering the separators.
func normalizeBlobName(name string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(name), "/"), "/")
	cleaned := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		cleaned = append(cleaned, whitespaceRun.ReplaceAllString(segment, "-"))
	}
	return strings.Join(cleaned, "/")
}

func audioExtension(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}
