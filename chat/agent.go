package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/farm"
	"github.com/agromitra/agromitra/llm"
	"github.com/agromitra/agromitra/model"
	"github.com/agromitra/agromitra/workflow"
)

// Business action names of the conversational workflows.
const (
	ActionFarmSurvey   = "farm_survey_agent"
	ActionGeneralChat  = "general_chat"
	ActionTextToSpeech = "text_to_speech_url"
)

// Step names of the conversational workflows, in execution order.
const (
	StepPrepareContext   = "prepare_context"
	StepGenerateResponse = "generate_response"
	StepPersistMessages  = "persist_messages"
)

// FarmSaver persists the farm profile a completed survey produced.
type FarmSaver interface {
	SaveFarmProfile(ctx context.Context, p *farm.Profile) error
}

// Turn is one user turn of a conversation.
type Turn struct {
	UserID        string
	ChatID        string
	Language      string
	Content       Content
	AudioResponse bool
}

// SurveyReply is the structured response of the survey agent: the
// conversational reply plus, on exit, the collected farm profile in English
// and in the farmer's language.
type SurveyReply struct {
	ModelReply
	FarmProfile             *farm.Profile `json:"farm_profile,omitempty"`
	UserLanguageFarmProfile *farm.Profile `json:"user_language_farm_profile,omitempty"`
}

// SurveyExchange is the survey outcome returned to the client. FarmProfile
// is the user-language profile, present only on the exit turn.
type SurveyExchange struct {
	Exchange
	FarmProfile *farm.Profile `json:"farm_profile,omitempty"`
}

// Agent runs the farm survey and general chat workflows.
type Agent struct {
	messages MessageStore
	farms    FarmSaver
	blobs    BlobStore
	client   ModelClient
	speech   *Speech
	runs     workflow.RunStore
	events   workflow.EventStore
	logger   *slog.Logger
	now      func() time.Time
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithAgentLogger sets the logger.
func WithAgentLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) { a.logger = logger }
}

// WithAgentClock overrides the time source.
func WithAgentClock(now func() time.Time) AgentOption {
	return func(a *Agent) { a.now = now }
}

// NewAgent creates the conversational orchestrator.
func NewAgent(messages MessageStore, farms FarmSaver, blobs BlobStore, client ModelClient, runs workflow.RunStore, events workflow.EventStore, opts ...AgentOption) *Agent {
	a := &Agent{
		messages: messages,
		farms:    farms,
		blobs:    blobs,
		client:   client,
		runs:     runs,
		events:   events,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.speech = NewSpeech(client, blobs, a.logger)
	return a
}

// Speech returns the synthesizer sharing the agent's model client and blob
// store, for standalone text-to-speech requests.
func (a *Agent) Speech() *Speech {
	return a.speech
}

// Survey runs one turn of the farm survey conversation. On the exit turn the
// collected profile is persisted for the user and the user-language copy is
// returned in the exchange.
func (a *Agent) Survey(ctx context.Context, turn Turn, corr workflow.Correlation, emitter workflow.Emitter) (*SurveyExchange, error) {
	corr.ChatID = turn.ChatID
	rt := workflow.NewRuntime(ActionFarmSurvey, workflow.TypeFarmSurvey, a.runs, a.events, corr,
		map[string]any{"language": turn.Language},
		workflow.WithEmitter(emitter), workflow.WithLogger(a.logger))

	if err := rt.Start(ctx); err != nil {
		return nil, apperr.Internal(err)
	}

	exchange, err := a.runSurvey(ctx, rt, turn)
	if err != nil {
		return nil, a.failRun(ctx, rt, err)
	}
	return exchange, nil
}

// General runs one turn of the general chat conversation.
func (a *Agent) General(ctx context.Context, turn Turn, corr workflow.Correlation, emitter workflow.Emitter) (*Exchange, error) {
	corr.ChatID = turn.ChatID
	rt := workflow.NewRuntime(ActionGeneralChat, workflow.TypeGeneralChat, a.runs, a.events, corr,
		map[string]any{"language": turn.Language},
		workflow.WithEmitter(emitter), workflow.WithLogger(a.logger))

	if err := rt.Start(ctx); err != nil {
		return nil, apperr.Internal(err)
	}

	exchange, err := a.runGeneral(ctx, rt, turn)
	if err != nil {
		return nil, a.failRun(ctx, rt, err)
	}
	return exchange, nil
}

func (a *Agent) runSurvey(ctx context.Context, rt *workflow.Runtime, turn Turn) (*SurveyExchange, error) {
	contents, err := a.prepareContext(ctx, rt, turn, TypeFarmSurvey)
	if err != nil {
		return nil, err
	}

	reply := &SurveyReply{}
	if err := a.generate(ctx, rt, surveySystemPrompt, turn.Language, contents, reply); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply.MessageToUser) == "" {
		return nil, apperr.Unprocessable("Received an invalid response from the AI service.")
	}
	if reply.Command == "" {
		reply.Command = CommandContinue
	}
	if err := rt.CompleteStep(ctx, StepGenerateResponse, map[string]any{"command": string(reply.Command)}); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepPersistMessages, nil); err != nil {
		return nil, err
	}
	userMsg, err := saveUserMessage(ctx, a.messages, turn.ChatID, turn.Content, reply.UserQuery)
	if err != nil {
		return nil, err
	}

	if reply.Command == CommandExit && reply.FarmProfile != nil {
		profile := reply.FarmProfile
		profile.FarmerID = turn.UserID
		if profile.ID == "" {
			profile.ID = farm.NewID()
		}
		if err := a.farms.SaveFarmProfile(ctx, profile); err != nil {
			return nil, err
		}
		if err := rt.EmitChunk(ctx, StepPersistMessages, "farm_profile_saved", map[string]any{"farm_id": profile.ID}); err != nil {
			return nil, err
		}
	}

	modelMsg, err := a.persistReply(ctx, turn, userMsg.ID, reply.MessageToUser)
	if err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepPersistMessages, nil); err != nil {
		return nil, err
	}

	exchange := &SurveyExchange{
		Exchange: Exchange{
			Command:      reply.Command,
			UserMessage:  userMsg,
			ModelMessage: modelMsg,
		},
		FarmProfile: reply.UserLanguageFarmProfile,
	}
	result := map[string]any{
		"command":       string(reply.Command),
		"user_message":  userMsg,
		"model_message": modelMsg,
	}
	if exchange.FarmProfile != nil {
		result["farm_profile"] = exchange.FarmProfile
	}
	if err := rt.EmitResult(ctx, result); err != nil {
		return nil, err
	}
	return exchange, rt.Complete(ctx, map[string]any{"command": string(reply.Command)})
}

func (a *Agent) runGeneral(ctx context.Context, rt *workflow.Runtime, turn Turn) (*Exchange, error) {
	contents, err := a.prepareContext(ctx, rt, turn, TypeGeneral)
	if err != nil {
		return nil, err
	}

	reply := &ModelReply{}
	if err := a.generate(ctx, rt, generalSystemPrompt, turn.Language, contents, reply); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply.MessageToUser) == "" {
		return nil, apperr.Unprocessable("Received an invalid response from the AI service.")
	}
	if reply.Command == "" {
		reply.Command = CommandContinue
	}
	if err := rt.CompleteStep(ctx, StepGenerateResponse, map[string]any{"command": string(reply.Command)}); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepPersistMessages, nil); err != nil {
		return nil, err
	}
	userMsg, err := saveUserMessage(ctx, a.messages, turn.ChatID, turn.Content, reply.UserQuery)
	if err != nil {
		return nil, err
	}
	modelMsg, err := a.persistReply(ctx, turn, userMsg.ID, reply.MessageToUser)
	if err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepPersistMessages, nil); err != nil {
		return nil, err
	}

	exchange := &Exchange{
		Command:      reply.Command,
		UserMessage:  userMsg,
		ModelMessage: modelMsg,
	}
	if err := rt.EmitResult(ctx, map[string]any{
		"command":       string(reply.Command),
		"user_message":  userMsg,
		"model_message": modelMsg,
	}); err != nil {
		return nil, err
	}
	return exchange, rt.Complete(ctx, map[string]any{"command": string(reply.Command)})
}

// prepareContext validates the session and converts the history plus the
// current turn into model input.
func (a *Agent) prepareContext(ctx context.Context, rt *workflow.Runtime, turn Turn, chatType Type) ([]llm.Content, error) {
	if err := rt.StartStep(ctx, StepPrepareContext, nil); err != nil {
		return nil, err
	}
	if turn.ChatID == "" {
		return nil, apperr.BadRequest("chat_id is required.")
	}

	if err := a.ensureSession(ctx, turn, chatType); err != nil {
		return nil, err
	}

	contents, err := prepareModelInput(ctx, a.messages, a.blobs, a.client, turn.ChatID, turn.Content)
	if err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepPrepareContext, map[string]any{"message_count": len(contents)}); err != nil {
		return nil, err
	}
	return contents, nil
}

// ensureSession creates the session on first contact and rejects turns
// against a session owned by someone else.
func (a *Agent) ensureSession(ctx context.Context, turn Turn, chatType Type) error {
	session, err := a.messages.GetChatSession(ctx, turn.ChatID)
	if err != nil {
		if !apperr.IsKind(err, apperr.KindNotFound) {
			return err
		}
		session = &Session{
			ID:        turn.ChatID,
			UserID:    turn.UserID,
			Type:      chatType,
			CreatedAt: a.now().UTC(),
		}
		return a.messages.SaveChatSession(ctx, session)
	}
	if session.UserID != turn.UserID {
		return apperr.Forbidden("Chat does not belong to the user.")
	}
	return nil
}

// generate runs the structured conversation call for the current step.
func (a *Agent) generate(ctx context.Context, rt *workflow.Runtime, basePrompt, language string, contents []llm.Content, out any) error {
	if err := rt.StartStep(ctx, StepGenerateResponse, nil); err != nil {
		return err
	}
	req := llm.Request{
		Capability:   model.CapabilityConversation.String(),
		System:       systemInstruction(basePrompt, language),
		Contents:     contents,
		JSONResponse: true,
	}
	if _, err := a.client.CompleteStructured(ctx, req, out); err != nil {
		return apperr.Wrap(apperr.KindUnavailable,
			"The AI service is currently unavailable. Please try again later.", err)
	}
	return nil
}

// persistReply stores the model's reply, synthesizing audio for it when the
// turn asked for an audio response.
func (a *Agent) persistReply(ctx context.Context, turn Turn, userMessageID, text string) (*Message, error) {
	audioReference := ""
	if turn.AudioResponse {
		ref, err := a.speech.SynthesizeToBlob(ctx, SpeechRequest{
			Text:       text,
			Language:   turn.Language,
			BlobName:   userMessageID,
			PathPrefix: turn.UserID + "/" + turn.ChatID,
		})
		if err != nil {
			return nil, err
		}
		audioReference = ref
	}
	return saveModelMessage(ctx, a.messages, turn.ChatID, text, audioReference)
}

// failRun records the failure on the run and returns the classified error.
func (a *Agent) failRun(ctx context.Context, rt *workflow.Runtime, err error) error {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		a.logger.Error("Chat workflow failed",
			"workflow_id", rt.ID(),
			"action", rt.Action(),
			"step", rt.CurrentStep(),
			"error", err)
	}
	payload := map[string]any{"status_code": apperr.HTTPStatus(appErr.Kind)}
	if failErr := rt.Fail(ctx, appErr.Message, "", payload); failErr != nil {
		a.logger.Error("Recording workflow failure failed",
			"workflow_id", rt.ID(),
			"error", failErr)
	}
	return appErr
}
