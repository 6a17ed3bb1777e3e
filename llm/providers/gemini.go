// Package providers contains concrete model provider implementations.
package providers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/agromitra/agromitra/llm"
)

// defaultGeminiBase is the Generative Language API base URL.
const defaultGeminiBase = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements the Google Generative Language API: text and
// multimodal generation, the files API for media input, and TTS models.
type GeminiProvider struct{}

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// GenerateURL constructs the generateContent endpoint for a model.
func (g *GeminiProvider) GenerateURL(baseURL, model string) string {
	if baseURL == "" {
		baseURL = defaultGeminiBase
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent", baseURL, model)
}

// SetHeaders adds the API key header.
func (g *GeminiProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	FileData   *geminiFileData `json:"file_data,omitempty"`
	InlineData *geminiBlob     `json:"inline_data,omitempty"`
}

type geminiFileData struct {
	FileURI  string `json:"file_uri"`
	MIMEType string `json:"mime_type,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature        *float64            `json:"temperature,omitempty"`
	MaxOutputTokens    int                 `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType   string              `json:"responseMimeType,omitempty"`
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeechConfig `json:"speechConfig,omitempty"`
}

type geminiSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// BuildRequestBody creates the generateContent JSON body.
func (g *GeminiProvider) BuildRequestBody(model string, req llm.Request) ([]byte, error) {
	body := geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Contents)),
	}

	if req.System != "" {
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		}
	}

	for _, content := range req.Contents {
		gc := geminiContent{Role: content.Role}
		for _, part := range content.Parts {
			gp := geminiPart{Text: part.Text}
			if part.FileData != nil {
				gp.FileData = &geminiFileData{
					FileURI:  part.FileData.FileURI,
					MIMEType: part.FileData.MIMEType,
				}
			}
			gc.Parts = append(gc.Parts, gp)
		}
		body.Contents = append(body.Contents, gc)
	}

	cfg := &geminiGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
	}
	body.GenerationConfig = cfg

	return json.Marshal(body)
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponse extracts the generated text from a generateContent body.
func (g *GeminiProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("parse gemini response: %w", err))
	}

	if resp.Error != nil {
		return nil, llm.NewFatalError(fmt.Errorf("gemini error %d: %s", resp.Error.Code, resp.Error.Message))
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.NewTransientError(fmt.Errorf("gemini returned no candidates"))
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	return &llm.Response{
		Content: text.String(),
		Model:   model,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		FinishReason: candidate.FinishReason,
	}, nil
}

// BuildUploadRequest creates a raw media upload to the files API.
func (g *GeminiProvider) BuildUploadRequest(baseURL string, data []byte, mimeType, displayName string) (*http.Request, error) {
	if baseURL == "" {
		baseURL = defaultGeminiBase
	}
	// The upload endpoint lives under /upload, not under the versioned base.
	uploadURL := strings.Replace(strings.TrimSuffix(baseURL, "/"), "/v1beta", "/upload/v1beta", 1) + "/files"

	req, err := http.NewRequest(http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", displayName)
	req.Header.Set("Content-Type", mimeType)
	g.SetHeaders(req)
	return req, nil
}

type geminiFileResponse struct {
	File struct {
		Name     string `json:"name"`
		URI      string `json:"uri"`
		MIMEType string `json:"mimeType"`
	} `json:"file"`
}

// ParseUploadResponse extracts the hosted file reference.
func (g *GeminiProvider) ParseUploadResponse(body []byte) (*llm.FileData, error) {
	var resp geminiFileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("parse file upload response: %w", err))
	}
	if resp.File.URI == "" {
		return nil, llm.NewFatalError(fmt.Errorf("file upload response missing uri"))
	}
	return &llm.FileData{
		FileURI:  resp.File.URI,
		MIMEType: resp.File.MIMEType,
		Name:     resp.File.Name,
	}, nil
}

// BuildDeleteRequest creates a files API delete for a hosted file name
// ("files/abc123").
func (g *GeminiProvider) BuildDeleteRequest(baseURL, name string) (*http.Request, error) {
	if baseURL == "" {
		baseURL = defaultGeminiBase
	}
	url := strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(name, "/")

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return nil, err
	}
	g.SetHeaders(req)
	return req, nil
}

// BuildSpeechBody creates a TTS generateContent body.
func (g *GeminiProvider) BuildSpeechBody(model, text, voice string) ([]byte, error) {
	speech := &geminiSpeechConfig{}
	speech.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: text}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       speech,
		},
	}
	return json.Marshal(body)
}

// ParseSpeechResponse extracts base64 audio from a TTS response.
func (g *GeminiProvider) ParseSpeechResponse(body []byte) ([]byte, string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", llm.NewTransientError(fmt.Errorf("parse TTS response: %w", err))
	}
	if resp.Error != nil {
		return nil, "", llm.NewFatalError(fmt.Errorf("gemini error %d: %s", resp.Error.Code, resp.Error.Message))
	}

	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, "", llm.NewFatalError(fmt.Errorf("decode TTS audio: %w", err))
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "audio/wav"
			}
			return audio, mime, nil
		}
	}
	return nil, "", llm.NewTransientError(fmt.Errorf("TTS response contained no audio"))
}
