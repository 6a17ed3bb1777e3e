package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/agronomy"
	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/auth"
	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/chat"
	"github.com/agromitra/agromitra/pesticide"
	"github.com/agromitra/agromitra/workflow"
)

// wsConn adapts a raw WebSocket connection to the hub's Sender. Writes are
// serialized; the hub fans out concurrently.
type wsConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (w *wsConn) Send(_ context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return wsutil.WriteServerText(w.conn, data)
}

// actionEnvelope is one inbound client message.
type actionEnvelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// handleWebSocket upgrades the connection, authenticates it from the
// Authorization header, registers it with the hub and serves the action
// loop until the client disconnects.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
	if err != nil {
		return nil
	}
	defer conn.Close()

	claims, err := s.auth.VerifyToken(bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)))
	if err != nil {
		frame := ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusPolicyViolation, ""))
		_ = ws.WriteFrame(conn, frame)
		return nil
	}

	userID := claims.UserID()
	sender := &wsConn{conn: conn}
	handle := s.hub.Register(userID, sender)
	defer s.hub.Unregister(handle)

	ctx := c.Request().Context()
	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return nil
		}

		var envelope actionEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			s.sendActionError(ctx, sender, "", apperr.BadRequest("Invalid JSON"))
			continue
		}
		s.dispatchAction(ctx, sender, claims, envelope)
	}
}

// dispatchAction routes one client message to its workflow. Errors are
// reported back on the same connection in the per-action error envelope;
// they never tear the connection down.
func (s *Server) dispatchAction(ctx context.Context, sender *wsConn, claims *auth.Claims, envelope actionEnvelope) {
	userID := claims.UserID()
	language := claims.Language
	if language == "" {
		language = "en"
	}
	emitter := s.hub.Emitter(userID)

	var err error
	switch envelope.Action {
	case agronomy.ActionCropRecommendation:
		err = s.runCropRecommendation(ctx, userID, language, envelope.Data, emitter)
	case agronomy.ActionCropSelection:
		err = s.runCropSelection(ctx, userID, language, envelope.Data, emitter)
	case pesticide.ActionPesticideRecommendation:
		err = s.runPesticideRecommendation(ctx, userID, language, envelope.Data, emitter)
	case chat.ActionFarmSurvey, chat.ActionGeneralChat:
		err = s.runChatTurn(ctx, userID, language, envelope.Action, envelope.Data, emitter)
	case chat.ActionTextToSpeech:
		err = s.runTextToSpeech(ctx, sender, userID, language, envelope.Data)
	default:
		err = apperr.BadRequest(fmt.Sprintf("Unknown action: %s", envelope.Action))
	}

	if err != nil {
		s.sendActionError(ctx, sender, envelope.Action, err)
	}
}

// sendActionError writes the per-action error envelope to the connection.
func (s *Server) sendActionError(ctx context.Context, sender *wsConn, action string, err error) {
	appErr := apperr.From(err)
	payload := map[string]any{
		"action": action,
		"error": map[string]any{
			"status_code": apperr.HTTPStatus(appErr.Kind),
			"message":     appErr.Message,
		},
	}
	if sendErr := sender.Send(ctx, payload); sendErr != nil {
		s.logger.Debug("Action error delivery failed", "action", action, "error", sendErr)
	}
}

type cropRecommendationParams struct {
	FarmID    string `json:"farm_id"`
	RequestID string `json:"request_id"`
}

func (s *Server) runCropRecommendation(ctx context.Context, userID, language string, data json.RawMessage, emitter workflow.Emitter) error {
	var p cropRecommendationParams
	if err := unmarshalParams(data, &p); err != nil {
		return err
	}

	corr := workflow.Correlation{UserID: userID, RequestID: orRequestID(p.RequestID)}
	_, err := s.recommender.Recommend(ctx, p.FarmID, language, corr, emitter)
	return err
}

type cropSelectionParams struct {
	FarmID           string `json:"farm_id"`
	RecommendationID string `json:"crop_recommendation_response_id"`
	SelectedCropID   string `json:"selected_crop_id"`
	RequestID        string `json:"request_id"`
}

func (s *Server) runCropSelection(ctx context.Context, userID, language string, data json.RawMessage, emitter workflow.Emitter) error {
	var p cropSelectionParams
	if err := unmarshalParams(data, &p); err != nil {
		return err
	}

	corr := workflow.Correlation{UserID: userID, RequestID: orRequestID(p.RequestID)}
	_, err := s.selector.Select(ctx, p.FarmID, p.RecommendationID, p.SelectedCropID, language, corr, emitter)
	return err
}

type pesticideParams struct {
	CropID      string   `json:"crop_id"`
	FarmID      string   `json:"farm_id"`
	Description string   `json:"pest_or_disease_description"`
	Files       []string `json:"files"`
	RequestID   string   `json:"request_id"`
}

func (s *Server) runPesticideRecommendation(ctx context.Context, userID, language string, data json.RawMessage, emitter workflow.Emitter) error {
	var p pesticideParams
	if err := unmarshalParams(data, &p); err != nil {
		return err
	}

	corr := workflow.Correlation{UserID: userID, RequestID: orRequestID(p.RequestID)}
	_, err := s.pesticides.Recommend(ctx, p.CropID, p.FarmID, p.Description, language, p.Files, corr, emitter)
	return err
}

type chatTurnParams struct {
	Content       chat.Content `json:"content"`
	ChatID        string       `json:"chat_id"`
	RequestID     string       `json:"request_id"`
	AudioResponse bool         `json:"audio_response"`
}

func (s *Server) runChatTurn(ctx context.Context, userID, language, action string, data json.RawMessage, emitter workflow.Emitter) error {
	var p chatTurnParams
	if err := unmarshalParams(data, &p); err != nil {
		return err
	}
	if p.ChatID == "" {
		return apperr.BadRequest("chat_id is required for " + action)
	}
	if p.RequestID == "" {
		return apperr.BadRequest("request_id is required for " + action)
	}

	turn := chat.Turn{
		UserID:        userID,
		ChatID:        p.ChatID,
		Language:      language,
		Content:       p.Content,
		AudioResponse: p.AudioResponse,
	}
	corr := workflow.Correlation{UserID: userID, RequestID: p.RequestID}

	if action == chat.ActionFarmSurvey {
		_, err := s.agent.Survey(ctx, turn, corr, emitter)
		return err
	}
	_, err := s.agent.General(ctx, turn, corr, emitter)
	return err
}

type textToSpeechParams struct {
	TextOrData json.RawMessage `json:"text_or_data"`
	BlobName   string          `json:"blob_name"`
	Modulation string          `json:"modulation"`
	PathPrefix string          `json:"path_prefix"`
}

func (s *Server) runTextToSpeech(ctx context.Context, sender *wsConn, userID, language string, data json.RawMessage) error {
	var p textToSpeechParams
	if err := unmarshalParams(data, &p); err != nil {
		return err
	}

	modulation := chat.Modulation(p.Modulation)
	if _, known := map[chat.Modulation]bool{
		chat.ModulationGeneral:         true,
		chat.ModulationDataExplanation: true,
	}[modulation]; !known {
		modulation = chat.ModulationGeneral
	}

	// Data explanations speak the raw JSON; plain requests carry a string.
	var text string
	if modulation == chat.ModulationDataExplanation {
		text = string(p.TextOrData)
	} else if err := json.Unmarshal(p.TextOrData, &text); err != nil {
		text = string(p.TextOrData)
	}

	pathPrefix, err := blob.UserScopedPath(userID, p.PathPrefix)
	if err != nil {
		return err
	}
	blobName := p.BlobName
	if blobName == "" {
		blobName = newRequestID()
	}

	reference, err := s.agent.Speech().SynthesizeToBlob(ctx, chat.SpeechRequest{
		Text:       text,
		Language:   language,
		Modulation: modulation,
		BlobName:   blobName,
		PathPrefix: pathPrefix,
	})
	if err != nil {
		return err
	}
	return sender.Send(ctx, map[string]any{
		"action": chat.ActionTextToSpeech,
		"data":   map[string]string{"url": reference},
	})
}

func unmarshalParams(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.BadRequest("Invalid action data.")
	}
	return nil
}

func orRequestID(requestID string) string {
	if requestID != "" {
		return requestID
	}
	return newRequestID()
}

func newRequestID() string {
	return uuid.NewString()
}
