package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mentor-chat-service/internal/delivery"
	"mentor-chat-service/internal/middleware"
	"mentor-chat-service/internal/mocks"
	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/repositories"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID, accountType string) string {
	t.Helper()
	claims := middleware.Claims{
		UserID:      userID,
		AccountType: accountType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func dialWS(t *testing.T, serverURL, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.ChatEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event models.ChatEvent
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func setupWSServer(t *testing.T, links repositories.LinkRepository, messages repositories.MessageRepository, typing repositories.TypingRepository) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	authorizer := delivery.NewAuthorizer(links)
	coalescer := delivery.NewCoalescer(messages)
	dispatcher := delivery.NewDispatcher(authorizer, coalescer, hub)
	typingSync := delivery.NewTypingSynchronizer(typing, hub)
	seenSync := delivery.NewSeenSynchronizer(messages, hub)
	handler := NewChatWebSocketHandler(hub, dispatcher, typingSync, seenSync, testSecret)

	router := gin.New()
	router.GET("/ws", handler.Handle)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func TestWebSocketSendMessageAckAndBroadcast(t *testing.T) {
	links := new(mocks.LinkRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	server, _ := setupWSServer(t, links, messages, new(mocks.TypingRepositoryMock))

	stored := models.Message{ID: 1, SenderID: "s1", ReceiverID: "m1", Message: "hi", CreatedAt: time.Now()}
	links.On("Approved", mock.Anything, "m1", "s1").Return(true, nil).Once()
	messages.On("LatestFrom", mock.Anything, "s1", "m1").Return(models.Message{}, repositories.ErrMessageNotFound).Once()
	messages.On("Create", mock.Anything, "s1", "m1", "hi").Return(stored, nil).Once()

	conn := dialWS(t, server.URL, signToken(t, "s1", "student"))
	defer conn.Close()

	connected := readEvent(t, conn)
	require.Equal(t, "connected", connected.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "send_message",
		"receiver_id": "m1",
		"message":     "hi",
	}))

	// The sender's own room gets the broadcast plus the ack.
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		event := readEvent(t, conn)
		got[event.Type] = true
		if event.Type == "new_message" {
			require.NotNil(t, event.Message)
			assert.Equal(t, "hi", event.Message.Message)
		}
	}
	assert.True(t, got["new_message"])
	assert.True(t, got["send_ack"])
	messages.AssertExpectations(t)
}

func TestWebSocketForbiddenSendEmitsError(t *testing.T) {
	links := new(mocks.LinkRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	server, _ := setupWSServer(t, links, messages, new(mocks.TypingRepositoryMock))

	links.On("Approved", mock.Anything, "m1", "u9").Return(false, nil).Once()

	conn := dialWS(t, server.URL, signToken(t, "u9", "student"))
	defer conn.Close()

	require.Equal(t, "connected", readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "send_message",
		"receiver_id": "m1",
		"message":     "hi",
	}))

	event := readEvent(t, conn)
	require.Equal(t, "error", event.Type)
	assert.Equal(t, "not authorized", event.Error)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebSocketTypingReachesRecipientOnly(t *testing.T) {
	links := new(mocks.LinkRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	typing := new(mocks.TypingRepositoryMock)
	server, _ := setupWSServer(t, links, messages, typing)

	typing.On("Upsert", mock.Anything, models.TypingStatus{FromID: "s1", ToID: "m1", IsTyping: true}).Return(nil).Once()

	sender := dialWS(t, server.URL, signToken(t, "s1", "student"))
	defer sender.Close()
	recipient := dialWS(t, server.URL, signToken(t, "m1", "mentor"))
	defer recipient.Close()

	require.Equal(t, "connected", readEvent(t, sender).Type)
	require.Equal(t, "connected", readEvent(t, recipient).Type)

	require.NoError(t, sender.WriteJSON(map[string]any{
		"type":      "typing",
		"to_id":     "m1",
		"is_typing": true,
	}))

	update := readEvent(t, recipient)
	require.Equal(t, "typing_update", update.Type)

	ack := readEvent(t, sender)
	require.Equal(t, "typing_ack", ack.Type)
	typing.AssertExpectations(t)
}

func TestWebSocketMarkSeenAck(t *testing.T) {
	links := new(mocks.LinkRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	server, _ := setupWSServer(t, links, messages, new(mocks.TypingRepositoryMock))

	messages.On("MarkSeen", mock.Anything, "m1", "s1").Return(int64(2), nil).Once()

	conn := dialWS(t, server.URL, signToken(t, "m1", "mentor"))
	defer conn.Close()
	require.Equal(t, "connected", readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "mark_seen",
		"other_id": "s1",
	}))

	ack := readEvent(t, conn)
	require.Equal(t, "mark_seen_ack", ack.Type)
	messages.AssertExpectations(t)
}

// ctxSensitiveMessageRepo behaves like the real sqlx repository with regard
// to context state: any call on a done context fails with ctx.Err().
type ctxSensitiveMessageRepo struct {
	mu      sync.Mutex
	created []models.Message
}

func (r *ctxSensitiveMessageRepo) Create(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := models.Message{
		ID:         len(r.created) + 1,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    text,
		CreatedAt:  time.Now(),
	}
	r.created = append(r.created, msg)
	return msg, nil
}

func (r *ctxSensitiveMessageRepo) LatestFrom(ctx context.Context, senderID, receiverID string) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	return models.Message{}, repositories.ErrMessageNotFound
}

func (r *ctxSensitiveMessageRepo) UpdateContent(ctx context.Context, messageID int, text string) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	return models.Message{}, repositories.ErrMessageNotFound
}

func (r *ctxSensitiveMessageRepo) MarkSeen(ctx context.Context, viewerID, otherID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 0, nil
}

func (r *ctxSensitiveMessageRepo) ListBetween(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

type ctxSensitiveLinkRepo struct{}

func (ctxSensitiveLinkRepo) Approved(ctx context.Context, mentorID, studentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (ctxSensitiveLinkRepo) GetForStudent(ctx context.Context, studentID string) (models.MentorStudentLink, error) {
	return models.MentorStudentLink{}, repositories.ErrLinkNotFound
}

func (ctxSensitiveLinkRepo) ListForMentor(ctx context.Context, mentorID string) ([]models.MentorStudentLink, error) {
	return nil, nil
}

func (ctxSensitiveLinkRepo) Approve(ctx context.Context, mentorID, studentID string) error {
	return nil
}

// The upgrade handler returns long before the socket closes, taking the
// request context with it. Events arriving after that must still reach the
// store with a live context.
func TestWebSocketDeliveryOutlivesRequestContext(t *testing.T) {
	messages := &ctxSensitiveMessageRepo{}
	server, _ := setupWSServer(t, ctxSensitiveLinkRepo{}, messages, new(mocks.TypingRepositoryMock))

	conn := dialWS(t, server.URL, signToken(t, "s1", "student"))
	defer conn.Close()
	require.Equal(t, "connected", readEvent(t, conn).Type)

	// Give the handler time to return and the server time to cancel the
	// request context.
	time.Sleep(150 * time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "send_message",
		"receiver_id": "m1",
		"message":     "hi",
	}))

	got := map[string]models.ChatEvent{}
	for i := 0; i < 2; i++ {
		event := readEvent(t, conn)
		got[event.Type] = event
	}
	require.NotContains(t, got, "error")
	require.Contains(t, got, "send_ack")
	require.Contains(t, got, "new_message")

	messages.mu.Lock()
	created := len(messages.created)
	messages.mu.Unlock()
	assert.Equal(t, 1, created)
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	server, _ := setupWSServer(t, new(mocks.LinkRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.TypingRepositoryMock))

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
