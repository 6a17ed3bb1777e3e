package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/farm"
	"github.com/agromitra/agromitra/llm"
	"github.com/agromitra/agromitra/workflow"
)

type memMessages struct {
	sessions map[string]*Session
	messages []*Message
}

func newMemMessages() *memMessages {
	return &memMessages{sessions: make(map[string]*Session)}
}

func (m *memMessages) SaveChatSession(_ context.Context, session *Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *memMessages) GetChatSession(_ context.Context, id string) (*Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound("entity not found")
	}
	return session, nil
}

func (m *memMessages) SaveChatMessage(_ context.Context, msg *Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memMessages) ListChatMessages(_ context.Context, chatID string, _ int) ([]*Message, error) {
	out := make([]*Message, 0)
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memFarms struct {
	saved []*farm.Profile
}

func (m *memFarms) SaveFarmProfile(_ context.Context, p *farm.Profile) error {
	m.saved = append(m.saved, p)
	return nil
}

type memBlob struct {
	data []byte
	mime string
}

type memBlobs struct {
	files map[string]memBlob
}

func newMemBlobs() *memBlobs {
	return &memBlobs{files: make(map[string]memBlob)}
}

func (m *memBlobs) Get(_ context.Context, reference string) ([]byte, string, error) {
	f, ok := m.files[reference]
	if !ok {
		return nil, "", apperr.NotFound("file not found")
	}
	return f.data, f.mime, nil
}

func (m *memBlobs) Put(_ context.Context, reference string, data []byte, mimeType string) (*blob.Object, error) {
	m.files[reference] = memBlob{data: data, mime: mimeType}
	return &blob.Object{Reference: reference, MIMEType: mimeType, Size: int64(len(data))}, nil
}

type fakeModel struct {
	replyJSON     string
	structuredErr error
	requests      []llm.Request
	uploads       []string
	speechTexts   []string
	speechAudio   []byte
	speechErr     error
	completeText  string
}

func (f *fakeModel) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	return &llm.Response{Content: f.completeText}, nil
}

func (f *fakeModel) CompleteStructured(_ context.Context, req llm.Request, out any) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.structuredErr != nil {
		return nil, f.structuredErr
	}
	if err := json.Unmarshal([]byte(f.replyJSON), out); err != nil {
		return nil, err
	}
	return &llm.Response{Content: f.replyJSON}, nil
}

func (f *fakeModel) UploadMedia(_ context.Context, _ string, _ []byte, mimeType, displayName string) (*llm.FileData, error) {
	f.uploads = append(f.uploads, displayName)
	return &llm.FileData{
		FileURI:  "https://provider.example/files/" + fmt.Sprint(len(f.uploads)),
		MIMEType: mimeType,
		Name:     "files/" + fmt.Sprint(len(f.uploads)),
	}, nil
}

func (f *fakeModel) SynthesizeSpeech(_ context.Context, text, _ string) ([]byte, string, error) {
	f.speechTexts = append(f.speechTexts, text)
	if f.speechErr != nil {
		return nil, "", f.speechErr
	}
	audio := f.speechAudio
	if audio == nil {
		audio = []byte("RIFFwav")
	}
	return audio, "audio/wav", nil
}

type memEvents struct {
	events []*workflow.Event
}

func (m *memEvents) AppendEvent(_ context.Context, event *workflow.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memEvents) types() []string {
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

type memRuns struct {
	last *workflow.Run
}

func (m *memRuns) SaveRun(_ context.Context, run *workflow.Run) error {
	m.last = run
	return nil
}

type agentFixture struct {
	agent    *Agent
	messages *memMessages
	farms    *memFarms
	blobs    *memBlobs
	model    *fakeModel
	events   *memEvents
	runs     *memRuns
}

func newAgentFixture(replyJSON string) *agentFixture {
	f := &agentFixture{
		messages: newMemMessages(),
		farms:    &memFarms{},
		blobs:    newMemBlobs(),
		model:    &fakeModel{replyJSON: replyJSON},
		events:   &memEvents{},
		runs:     &memRuns{},
	}
	f.agent = NewAgent(f.messages, f.farms, f.blobs, f.model, f.runs, f.events)
	return f
}

func textTurn(text string) Turn {
	return Turn{
		UserID:   "user-1",
		ChatID:   "chat-1",
		Language: "te",
		Content:  Content{Role: "user", Parts: []Part{{Text: text}}},
	}
}

func TestGeneralChatTurn(t *testing.T) {
	f := newAgentFixture(`{"command":"continue","message_to_user":"Rotate with pulses.","user_query":""}`)
	ctx := context.Background()

	exchange, err := f.agent.General(ctx, textTurn("What should I grow after paddy?"), workflow.Correlation{UserID: "user-1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, CommandContinue, exchange.Command)
	require.NotNil(t, exchange.UserMessage)
	require.NotNil(t, exchange.ModelMessage)
	assert.Equal(t, "What should I grow after paddy?", exchange.UserMessage.Text())
	assert.Equal(t, "Rotate with pulses.", exchange.ModelMessage.Text())
	assert.Equal(t, string(RoleModel), exchange.ModelMessage.Content.Role)

	// Both turns are persisted to the session.
	require.Len(t, f.messages.messages, 2)
	assert.Equal(t, "chat-1", f.messages.messages[0].ChatID)

	// The session is created on first contact.
	session, ok := f.messages.sessions["chat-1"]
	require.True(t, ok)
	assert.Equal(t, TypeGeneral, session.Type)
	assert.Equal(t, "user-1", session.UserID)

	assert.Equal(t, []string{
		workflow.EventWorkflowStarted,
		workflow.EventStepStarted, workflow.EventStepCompleted,
		workflow.EventStepStarted, workflow.EventStepCompleted,
		workflow.EventStepStarted, workflow.EventStepCompleted,
		workflow.EventResult,
		workflow.EventWorkflowCompleted,
	}, f.events.types())
	assert.Equal(t, workflow.StatusCompleted, f.runs.last.Status)

	// The system instruction carries the user's language.
	require.NotEmpty(t, f.model.requests)
	assert.Contains(t, f.model.requests[0].System, "User specified language: te")
}

func TestGeneralChatVoiceNoteFallbackText(t *testing.T) {
	f := newAgentFixture(`{"command":"continue","message_to_user":"Okay.","user_query":"my soil looks red"}`)
	f.blobs.files["user-content/user-1/chat-1/note"] = memBlob{data: []byte("opus"), mime: "audio/ogg"}
	ctx := context.Background()

	turn := Turn{
		UserID:   "user-1",
		ChatID:   "chat-1",
		Language: "te",
		Content: Content{Role: "user", Parts: []Part{
			{FileData: &FileRef{FileURI: "user-content/user-1/chat-1/note", MIMEType: "audio/ogg"}},
		}},
	}
	exchange, err := f.agent.General(ctx, turn, workflow.Correlation{UserID: "user-1"}, nil)
	require.NoError(t, err)

	// The audio-only turn is stored with the model's transcription.
	assert.Equal(t, "my soil looks red", exchange.UserMessage.Text())
	assert.True(t, exchange.UserMessage.HasText())

	// The blob was pushed to the provider for the generation call.
	assert.Equal(t, []string{"user-content/user-1/chat-1/note"}, f.model.uploads)
}

func TestHistoryAudioSkippedWhenTextExists(t *testing.T) {
	f := newAgentFixture(`{"command":"continue","message_to_user":"Noted."}`)
	ctx := context.Background()

	// An earlier turn that has both a transcript and its voice note.
	prior := NewMessage("chat-1", Content{Role: "user", Parts: []Part{
		{Text: "hello"},
		{FileData: &FileRef{FileURI: "user-content/user-1/chat-1/old-note", MIMEType: "audio/wav"}},
	}})
	require.NoError(t, f.messages.SaveChatMessage(ctx, prior))
	require.NoError(t, f.messages.SaveChatSession(ctx, &Session{ID: "chat-1", UserID: "user-1", Type: TypeGeneral}))

	_, err := f.agent.General(ctx, textTurn("next question"), workflow.Correlation{UserID: "user-1"}, nil)
	require.NoError(t, err)

	// The history audio is never downloaded or uploaded: the text stands in.
	assert.Empty(t, f.model.uploads)

	// Generation input: history turn plus the current turn.
	genReq := f.model.requests[0]
	require.Len(t, genReq.Contents, 2)
	assert.Equal(t, "hello", genReq.Contents[0].Parts[0].Text)
	require.Len(t, genReq.Contents[0].Parts, 1)
}

func TestSurveyExitSavesFarmProfile(t *testing.T) {
	f := newAgentFixture(`{
		"command": "exit",
		"message_to_user": "Thank you, your details are saved.",
		"farm_profile": {"name": "Green Acres", "soil_type": "Red soil", "total_area_acres": 4},
		"user_language_farm_profile": {"name": "పచ్చని పొలాలు", "soil_type": "Red soil", "total_area_acres": 4}
	}`)
	ctx := context.Background()

	exchange, err := f.agent.Survey(ctx, textTurn("yes that is everything"), workflow.Correlation{UserID: "user-1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, CommandExit, exchange.Command)
	require.NotNil(t, exchange.FarmProfile)
	assert.Equal(t, "పచ్చని పొలాలు", exchange.FarmProfile.Name)

	// The English profile is persisted and bound to the surveyed user.
	require.Len(t, f.farms.saved, 1)
	saved := f.farms.saved[0]
	assert.Equal(t, "user-1", saved.FarmerID)
	assert.Equal(t, "Green Acres", saved.Name)
	assert.NotEmpty(t, saved.ID)

	chunkTypes := make([]string, 0)
	for _, e := range f.events.events {
		if e.EventType == workflow.EventChunk {
			chunkTypes = append(chunkTypes, fmt.Sprint(e.Payload["chunk_type"]))
		}
	}
	assert.Contains(t, chunkTypes, "farm_profile_saved")
}

func TestSurveyContinueDoesNotSaveProfile(t *testing.T) {
	f := newAgentFixture(`{"command":"continue","message_to_user":"What is your water source?"}`)
	ctx := context.Background()

	exchange, err := f.agent.Survey(ctx, textTurn("four acres"), workflow.Correlation{UserID: "user-1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, CommandContinue, exchange.Command)
	assert.Nil(t, exchange.FarmProfile)
	assert.Empty(t, f.farms.saved)

	session := f.messages.sessions["chat-1"]
	require.NotNil(t, session)
	assert.Equal(t, TypeFarmSurvey, session.Type)
}

func TestAudioResponseStoresSynthesizedSpeech(t *testing.T) {
	f := newAgentFixture(`{"command":"continue","message_to_user":"Use drip irrigation."}`)
	ctx := context.Background()

	turn := textTurn("how do I water chillies")
	turn.AudioResponse = true
	exchange, err := f.agent.General(ctx, turn, workflow.Correlation{UserID: "user-1"}, nil)
	require.NoError(t, err)

	// The model reply carries the audio file part alongside the text.
	require.Len(t, exchange.ModelMessage.Content.Parts, 2)
	audioPart := exchange.ModelMessage.Content.Parts[1]
	require.NotNil(t, audioPart.FileData)
	assert.Equal(t, "audio/wav", audioPart.FileData.MIMEType)

	// Stored under the user and chat scoped prefix, named after the user
	// message.
	wantRef := "ai-chat/user-1/chat-1/" + exchange.UserMessage.ID + ".wav"
	assert.Equal(t, wantRef, audioPart.FileData.FileURI)
	_, ok := f.blobs.files[wantRef]
	assert.True(t, ok)

	require.Len(t, f.model.speechTexts, 1)
	assert.Contains(t, f.model.speechTexts[0], "Use drip irrigation.")
	assert.Contains(t, f.model.speechTexts[0], "in the language te")
}

func TestChatSessionOwnership(t *testing.T) {
	f := newAgentFixture(`{"command":"continue","message_to_user":"hi"}`)
	ctx := context.Background()
	require.NoError(t, f.messages.SaveChatSession(ctx, &Session{ID: "chat-1", UserID: "someone-else", Type: TypeGeneral}))

	_, err := f.agent.General(ctx, textTurn("hello"), workflow.Correlation{UserID: "user-1"}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Nothing was persisted and the run is failed.
	assert.Empty(t, f.messages.messages)
	assert.Equal(t, workflow.StatusFailed, f.runs.last.Status)
	assert.Contains(t, f.events.types(), workflow.EventWorkflowFailed)
}

func TestChatModelFailureIsUnavailable(t *testing.T) {
	f := newAgentFixture("")
	f.model.structuredErr = fmt.Errorf("all endpoints failed")
	ctx := context.Background()

	_, err := f.agent.General(ctx, textTurn("hello"), workflow.Correlation{UserID: "user-1"}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnavailable))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, workflow.EventWorkflowFailed, last.EventType)
	assert.Equal(t, 503, last.Payload["status_code"])
}

func TestChatEmptyReplyRejected(t *testing.T) {
	f := newAgentFixture(`{"command":"continue","message_to_user":"   "}`)
	ctx := context.Background()

	_, err := f.agent.General(ctx, textTurn("hello"), workflow.Correlation{UserID: "user-1"}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnprocessable))
}

func TestSpeechDataExplanation(t *testing.T) {
	model := &fakeModel{completeText: "Your soil nitrogen is low, add urea in splits."}
	blobs := newMemBlobs()
	speech := NewSpeech(model, blobs, nil)
	ctx := context.Background()

	ref, err := speech.SynthesizeToBlob(ctx, SpeechRequest{
		Text:       `{"nitrogen_kg_per_acre": 34}`,
		Language:   "hi",
		Modulation: ModulationDataExplanation,
		BlobName:   "soil report",
		PathPrefix: "user-1/chat-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "ai-chat/user-1/chat-9/soil-report.wav", ref)

	// The explainer rewrite runs before synthesis and its output is spoken.
	require.Len(t, model.requests, 1)
	assert.Contains(t, model.requests[0].System, "layman")
	require.Len(t, model.speechTexts, 1)
	assert.Contains(t, model.speechTexts[0], "add urea in splits")
	assert.True(t, strings.HasPrefix(model.speechTexts[0], "Explain the given data"))
}

func TestSpeechInvalidModulation(t *testing.T) {
	speech := NewSpeech(&fakeModel{}, newMemBlobs(), nil)

	_, err := speech.SynthesizeToBlob(context.Background(), SpeechRequest{
		Text:       "hello",
		Language:   "te",
		Modulation: Modulation("whisper"),
		BlobName:   "m",
		PathPrefix: "u/c",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}
