package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/huddle/internal/auth"
	"github.com/zfogg/huddle/internal/chat"
	"github.com/zfogg/huddle/internal/database"
	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/social"
	ws "github.com/zfogg/huddle/internal/websocket"
	"gorm.io/gorm"
)

// HandlersTestSuite drives the full router against an in-memory database
type HandlersTestSuite struct {
	suite.Suite
	db     *gorm.DB
	hub    *ws.Hub
	router *gin.Engine

	alice, bob *dto.AuthResponse
}

func (suite *HandlersTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := database.OpenMemory(suite.T().Name())
	require.NoError(suite.T(), err)
	suite.db = db

	suite.hub = ws.NewHub()
	go suite.hub.Run()

	authService := auth.NewService(db, []byte("handlers-test-secret"), time.Hour)
	chatService := chat.NewService(db, suite.hub)
	suite.hub.RegisterHandler(ws.MessageTypeChatMessage, chatService.RelayHandler())

	h := NewHandlers(social.NewService(db, suite.hub, nil), chatService)
	h.SetWebSocketHandler(ws.NewHandler(suite.hub, authService, []string{"*"}))

	suite.router = gin.New()
	RegisterRoutes(suite.router.Group("/api/v1"), h, NewAuthHandlers(authService), nil)

	suite.alice = suite.register("alice")
	suite.bob = suite.register("bob")
}

func (suite *HandlersTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = suite.hub.Shutdown(ctx)

	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *HandlersTestSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *HandlersTestSuite) register(username string) *dto.AuthResponse {
	w := suite.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    username + "@example.com",
		"username": username,
		"password": "password123",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var resp dto.AuthResponse
	suite.decode(w, &resp)
	return &resp
}

func (suite *HandlersTestSuite) createPost(token, content string) dto.PostResponse {
	w := suite.do(http.MethodPost, "/api/v1/posts", token, map[string]string{"content": content})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var post dto.PostResponse
	suite.decode(w, &post)
	return post
}

func (suite *HandlersTestSuite) TestRequiresToken() {
	w := suite.do(http.MethodGet, "/api/v1/posts", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/posts", "not-a-jwt", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.JSONEq(suite.T(), `{"error":"Invalid token"}`, w.Body.String())
}

func (suite *HandlersTestSuite) TestLoginAndMe() {
	w := suite.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"login":    "alice",
		"password": "password123",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var session dto.AuthResponse
	suite.decode(w, &session)

	w = suite.do(http.MethodGet, "/api/v1/auth/me", session.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"username":"alice"`)

	w = suite.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"login":    "alice",
		"password": "wrong-password",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.JSONEq(suite.T(), `{"error":"Invalid credentials"}`, w.Body.String())
}

func (suite *HandlersTestSuite) TestCommentValidation() {
	post := suite.createPost(suite.alice.Token, "hello")
	path := "/api/v1/posts/" + post.ID + "/comment"

	w := suite.do(http.MethodPost, path, suite.bob.Token, map[string]string{"content": ""})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.JSONEq(suite.T(), `{"error":"Content required"}`, w.Body.String())

	w = suite.do(http.MethodPost, path, suite.bob.Token, map[string]string{"content": "nice!"})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Comments []dto.CommentResponse `json:"comments"`
	}
	suite.decode(w, &resp)
	require.Len(suite.T(), resp.Comments, 1)
	assert.Equal(suite.T(), "nice!", resp.Comments[0].Content)
	assert.Equal(suite.T(), "bob", resp.Comments[0].Author.Username)
	assert.NotContains(suite.T(), w.Body.String(), "email")
	assert.NotContains(suite.T(), w.Body.String(), "password")
}

func (suite *HandlersTestSuite) TestReplyRoute() {
	post := suite.createPost(suite.alice.Token, "thread")
	w := suite.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/comment", suite.bob.Token, map[string]string{"content": "c"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var comments struct {
		Comments []dto.CommentResponse `json:"comments"`
	}
	suite.decode(w, &comments)

	path := "/api/v1/posts/" + post.ID + "/comment/" + comments.Comments[0].ID + "/reply"
	w = suite.do(http.MethodPost, path, suite.alice.Token, map[string]string{"content": "thanks"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"thanks"`)

	w = suite.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/comment/nope/reply", suite.alice.Token, map[string]string{"content": "x"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.JSONEq(suite.T(), `{"error":"Comment not found"}`, w.Body.String())
}

func (suite *HandlersTestSuite) TestLikeTwiceIsConflict() {
	post := suite.createPost(suite.alice.Token, "like me")
	path := "/api/v1/posts/" + post.ID + "/like"

	w := suite.do(http.MethodPost, path, suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var likes dto.LikeResponse
	suite.decode(w, &likes)
	assert.Equal(suite.T(), 1, likes.LikeCount)

	w = suite.do(http.MethodPost, path, suite.bob.Token, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.JSONEq(suite.T(), `{"error":"Post already liked"}`, w.Body.String())

	w = suite.do(http.MethodDelete, path, suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &likes)
	assert.Zero(suite.T(), likes.LikeCount)

	w = suite.do(http.MethodPost, "/api/v1/posts/missing/like", suite.bob.Token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestFeedSorts() {
	first := suite.createPost(suite.alice.Token, "first")
	second := suite.createPost(suite.bob.Token, "second")
	require.Equal(suite.T(), http.StatusOK, suite.do(http.MethodPost, "/api/v1/posts/"+first.ID+"/like", suite.bob.Token, nil).Code)

	var feed struct {
		Posts []dto.PostResponse `json:"posts"`
	}

	w := suite.do(http.MethodGet, "/api/v1/posts", suite.alice.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &feed)
	require.Len(suite.T(), feed.Posts, 2)
	assert.Equal(suite.T(), second.ID, feed.Posts[0].ID)

	w = suite.do(http.MethodGet, "/api/v1/posts?sort=recommended", suite.alice.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &feed)
	assert.Equal(suite.T(), first.ID, feed.Posts[0].ID)

	w = suite.do(http.MethodGet, "/api/v1/posts?user="+suite.bob.User.ID, suite.alice.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &feed)
	require.Len(suite.T(), feed.Posts, 1)
	assert.Equal(suite.T(), second.ID, feed.Posts[0].ID)

	w = suite.do(http.MethodGet, "/api/v1/posts/"+first.ID, suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestFollowAndNotifications() {
	path := "/api/v1/users/" + suite.bob.User.ID + "/follow"

	w := suite.do(http.MethodPost, path, suite.alice.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"following":true,"changed":true}`, w.Body.String())

	w = suite.do(http.MethodPost, path, suite.alice.Token, nil)
	assert.JSONEq(suite.T(), `{"following":true,"changed":false}`, w.Body.String())

	w = suite.do(http.MethodPost, "/api/v1/users/"+suite.alice.User.ID+"/follow", suite.alice.Token, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.JSONEq(suite.T(), `{"error":"Cannot follow yourself"}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/v1/notifications/unread-count", suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"unread_count":1}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/v1/notifications", suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var list struct {
		Notifications []dto.NotificationResponse `json:"notifications"`
	}
	suite.decode(w, &list)
	require.Len(suite.T(), list.Notifications, 1)
	assert.Equal(suite.T(), "alice", list.Notifications[0].Sender.Username)

	w = suite.do(http.MethodPost, "/api/v1/notifications/"+list.Notifications[0].ID+"/read", suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/notifications/unread-count", suite.bob.Token, nil)
	assert.JSONEq(suite.T(), `{"unread_count":0}`, w.Body.String())

	w = suite.do(http.MethodPost, "/api/v1/notifications/read-all", suite.bob.Token, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodDelete, path, suite.alice.Token, nil)
	assert.JSONEq(suite.T(), `{"following":false,"changed":true}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/v1/users/"+suite.bob.User.ID, suite.alice.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"follower_count":0`)
}

func (suite *HandlersTestSuite) TestChatRoom() {
	w := suite.do(http.MethodPost, "/api/v1/chat/lobby", suite.alice.Token, map[string]string{"content": "hey"})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	w = suite.do(http.MethodPost, "/api/v1/chat/lobby", suite.alice.Token, map[string]string{"content": ""})
	assert.JSONEq(suite.T(), `{"error":"Content required"}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/v1/chat/lobby", suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var room struct {
		Messages []dto.ChatMessageResponse `json:"messages"`
	}
	suite.decode(w, &room)
	require.Len(suite.T(), room.Messages, 1)
	assert.Equal(suite.T(), "hey", room.Messages[0].Content)

	w = suite.do(http.MethodPost, "/api/v1/chat/lobby/read", suite.bob.Token, nil)
	assert.JSONEq(suite.T(), `{"updated":1}`, w.Body.String())
}

func (suite *HandlersTestSuite) dialRelay(srv *httptest.Server, token string) *websocket.Conn {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(suite.T(), err)

	welcome := suite.readFrame(conn)
	require.Equal(suite.T(), ws.MessageTypeSystem, welcome.Type)
	return conn
}

func (suite *HandlersTestSuite) readFrame(conn *websocket.Conn) *ws.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg ws.Message
	require.NoError(suite.T(), wsjson.Read(ctx, conn, &msg))
	return &msg
}

func (suite *HandlersTestSuite) writeFrame(conn *websocket.Conn, msg *ws.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(suite.T(), wsjson.Write(ctx, conn, msg))
}

func (suite *HandlersTestSuite) joinFeed(conn *websocket.Conn) {
	suite.writeFrame(conn, ws.NewMessage(ws.MessageTypeJoin, ws.TopicPayload{Topic: ws.FeedTopic}))
	joined := suite.readFrame(conn)
	require.Equal(suite.T(), ws.MessageTypeSystem, joined.Type)
}

func (suite *HandlersTestSuite) TestShareReachesEarlierFeedSubscribersOnly() {
	srv := httptest.NewServer(suite.router)
	defer srv.Close()

	post := suite.createPost(suite.alice.Token, "share me")

	early := suite.dialRelay(srv, suite.alice.Token)
	defer early.Close(websocket.StatusNormalClosure, "")
	suite.joinFeed(early)

	w := suite.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/share", suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var share dto.ShareResponse
	suite.decode(w, &share)
	assert.Equal(suite.T(), 1, share.Shares)

	frame := suite.readFrame(early)
	require.Equal(suite.T(), ws.MessageTypeNewPost, frame.Type)
	var pushed dto.PostResponse
	require.NoError(suite.T(), frame.ParsePayload(&pushed))
	assert.Equal(suite.T(), share.Repost.ID, pushed.ID)

	late := suite.dialRelay(srv, suite.bob.Token)
	defer late.Close(websocket.StatusNormalClosure, "")
	suite.joinFeed(late)

	// The late subscriber's next frame is its own pong, not the earlier repost
	ping := ws.NewMessage(ws.MessageTypePing, ws.PingPayload{ClientTime: time.Now().UnixMilli()})
	suite.writeFrame(late, ping)
	assert.Equal(suite.T(), ws.MessageTypePong, suite.readFrame(late).Type)
}

func (suite *HandlersTestSuite) TestChatOverRelay() {
	srv := httptest.NewServer(suite.router)
	defer srv.Close()

	listener := suite.dialRelay(srv, suite.bob.Token)
	defer listener.Close(websocket.StatusNormalClosure, "")
	suite.writeFrame(listener, ws.NewMessage(ws.MessageTypeJoin, ws.TopicPayload{Topic: ws.ChatTopic("jam")}))
	require.Equal(suite.T(), ws.MessageTypeSystem, suite.readFrame(listener).Type)

	sender := suite.dialRelay(srv, suite.alice.Token)
	defer sender.Close(websocket.StatusNormalClosure, "")
	suite.writeFrame(sender, ws.NewMessage(ws.MessageTypeChatMessage, ws.ChatSendPayload{Room: "jam", Content: "over the wire"}))

	frame := suite.readFrame(listener)
	require.Equal(suite.T(), ws.MessageTypeChatMessage, frame.Type)
	assert.Equal(suite.T(), ws.ChatTopic("jam"), frame.Topic)

	var msg dto.ChatMessageResponse
	require.NoError(suite.T(), frame.ParsePayload(&msg))
	assert.Equal(suite.T(), "over the wire", msg.Content)
	assert.Equal(suite.T(), "alice", msg.Sender.Username)
}

func (suite *HandlersTestSuite) TestRelayMetricsListsOwnConnections() {
	srv := httptest.NewServer(suite.router)
	defer srv.Close()

	conn := suite.dialRelay(srv, suite.alice.Token)
	defer conn.Close(websocket.StatusNormalClosure, "")
	suite.writeFrame(conn, ws.NewMessage(ws.MessageTypePing, ws.PingPayload{ClientTime: time.Now().UnixMilli()}))
	require.Equal(suite.T(), ws.MessageTypePong, suite.readFrame(conn).Type)

	var body struct {
		OnlineUsers int             `json:"online_users"`
		Connections []ws.ClientInfo `json:"connections"`
	}
	require.Eventually(suite.T(), func() bool {
		w := suite.do(http.MethodGet, "/api/v1/ws/metrics", suite.alice.Token, nil)
		if w.Code != http.StatusOK {
			return false
		}
		suite.decode(w, &body)
		return len(body.Connections) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(suite.T(), suite.alice.User.ID, body.Connections[0].UserID)
	assert.Equal(suite.T(), "alice", body.Connections[0].Username)
	assert.False(suite.T(), body.Connections[0].LastPingAt.IsZero())
	assert.Equal(suite.T(), 1, body.OnlineUsers)

	w := suite.do(http.MethodGet, "/api/v1/ws/metrics", suite.bob.Token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &body)
	assert.Empty(suite.T(), body.Connections)
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
