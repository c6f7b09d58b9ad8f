package social

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/zfogg/huddle/internal/database"
	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/repository"
	"github.com/zfogg/huddle/internal/websocket"
	"gorm.io/gorm"
)

type published struct {
	Target  string
	Type    string
	Payload interface{}
}

type recordingRelay struct {
	mu      sync.Mutex
	topics  []published
	unicast []published
}

func (r *recordingRelay) PublishToTopic(topic, msgType string, payload interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, published{topic, msgType, payload})
	return 1
}

func (r *recordingRelay) SendToUser(userID, msgType string, payload interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unicast = append(r.unicast, published{userID, msgType, payload})
	return 1
}

type mapUnread struct {
	mu          sync.Mutex
	values      map[string]int64
	versions    map[string]int64
	invalidated []string

	// beforeSet runs outside the lock at the start of Set
	beforeSet func()
}

func (m *mapUnread) Get(_ context.Context, userID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[userID]
	return v, ok
}

func (m *mapUnread) Version(_ context.Context, userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[userID]
}

func (m *mapUnread) Set(_ context.Context, userID string, count, version int64) {
	if hook := m.beforeSet; hook != nil {
		m.beforeSet = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[userID] != version {
		return
	}
	m.values[userID] = count
}

func (m *mapUnread) Invalidate(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, userID)
	m.versions[userID]++
	m.invalidated = append(m.invalidated, userID)
}

type SocialServiceTestSuite struct {
	suite.Suite
	db     *gorm.DB
	relay  *recordingRelay
	unread *mapUnread
	svc    *Service
	ctx    context.Context

	alice, bob, carol *models.User
}

func (suite *SocialServiceTestSuite) SetupTest() {
	db, err := database.OpenMemory(suite.T().Name())
	suite.Require().NoError(err)
	suite.db = db
	suite.relay = &recordingRelay{}
	suite.unread = &mapUnread{values: map[string]int64{}, versions: map[string]int64{}}
	suite.svc = NewService(db, suite.relay, suite.unread)
	suite.ctx = context.Background()

	suite.alice = suite.createUser("alice")
	suite.bob = suite.createUser("bob")
	suite.carol = suite.createUser("carol")
}

func (suite *SocialServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	_ = sqlDB.Close()
}

func (suite *SocialServiceTestSuite) createUser(username string) *models.User {
	u := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
	}
	suite.Require().NoError(suite.db.Create(u).Error)
	return u
}

func (suite *SocialServiceTestSuite) createPost(author *models.User, content string) *dto.PostResponse {
	p, err := suite.svc.CreatePost(suite.ctx, author.ID, dto.CreatePostRequest{Content: content})
	suite.Require().NoError(err)
	return p
}

func (suite *SocialServiceTestSuite) notificationsFor(userID string) []models.Notification {
	var out []models.Notification
	suite.Require().NoError(suite.db.Where("recipient_id = ?", userID).Find(&out).Error)
	return out
}

func (suite *SocialServiceTestSuite) TestCreatePostPublishesToFeed() {
	post := suite.createPost(suite.alice, "  hello world  ")
	suite.Equal("hello world", post.Content)
	suite.Equal("alice", post.Author.Username)
	suite.Empty(post.Likes)

	suite.Require().Len(suite.relay.topics, 1)
	suite.Equal(websocket.FeedTopic, suite.relay.topics[0].Target)
	suite.Equal(websocket.MessageTypeNewPost, suite.relay.topics[0].Type)

	_, err := suite.svc.CreatePost(suite.ctx, suite.alice.ID, dto.CreatePostRequest{Content: "   "})
	suite.Equal(ErrContentRequired, err)

	img := "https://img.example/cat.png"
	withImage, err := suite.svc.CreatePost(suite.ctx, suite.alice.ID, dto.CreatePostRequest{ImageURL: &img})
	suite.Require().NoError(err)
	suite.Equal(img, *withImage.ImageURL)
}

func (suite *SocialServiceTestSuite) TestLikeIsASet() {
	post := suite.createPost(suite.alice, "like me")

	resp, err := suite.svc.Like(suite.ctx, suite.bob.ID, post.ID)
	suite.Require().NoError(err)
	suite.Equal(1, resp.LikeCount)
	suite.Equal([]string{suite.bob.ID}, resp.Likes)

	_, err = suite.svc.Like(suite.ctx, suite.bob.ID, post.ID)
	suite.Equal(ErrAlreadyLiked, err)

	resp, err = suite.svc.Like(suite.ctx, suite.carol.ID, post.ID)
	suite.Require().NoError(err)
	suite.Equal(2, resp.LikeCount)

	got, err := suite.svc.GetPost(suite.ctx, post.ID)
	suite.Require().NoError(err)
	suite.Equal(2, got.LikeCount)
	suite.Len(got.Likes, 2)

	_, err = suite.svc.Like(suite.ctx, suite.bob.ID, "missing")
	suite.Equal(ErrPostNotFound, err)
}

func (suite *SocialServiceTestSuite) TestLikeNotifiesAuthorOnly() {
	post := suite.createPost(suite.alice, "mine")

	_, err := suite.svc.Like(suite.ctx, suite.alice.ID, post.ID)
	suite.Require().NoError(err)
	suite.Empty(suite.notificationsFor(suite.alice.ID), "self-likes never notify")

	_, err = suite.svc.Like(suite.ctx, suite.bob.ID, post.ID)
	suite.Require().NoError(err)

	notes := suite.notificationsFor(suite.alice.ID)
	suite.Require().Len(notes, 1)
	suite.Equal(models.NotificationLike, notes[0].Type)
	suite.Equal(suite.bob.ID, *notes[0].SenderID)
	suite.Equal(post.ID, *notes[0].PostID)
	suite.False(notes[0].Read)

	suite.Require().Len(suite.relay.unicast, 1)
	suite.Equal(suite.alice.ID, suite.relay.unicast[0].Target)
	suite.Equal(websocket.MessageTypeNotification, suite.relay.unicast[0].Type)
	suite.Contains(suite.unread.invalidated, suite.alice.ID)
}

func (suite *SocialServiceTestSuite) TestUnlike() {
	post := suite.createPost(suite.alice, "x")

	_, err := suite.svc.Unlike(suite.ctx, suite.bob.ID, post.ID)
	suite.Equal(ErrLikeNotFound, err)
	suite.Equal("Like not found", ErrLikeNotFound.Message)

	_, err = suite.svc.Like(suite.ctx, suite.bob.ID, post.ID)
	suite.Require().NoError(err)
	resp, err := suite.svc.Unlike(suite.ctx, suite.bob.ID, post.ID)
	suite.Require().NoError(err)
	suite.Zero(resp.LikeCount)
	suite.NotNil(resp.Likes)
}

func (suite *SocialServiceTestSuite) TestCommentAppendsLast() {
	post := suite.createPost(suite.alice, "discuss")

	_, err := suite.svc.Comment(suite.ctx, suite.bob.ID, post.ID, "")
	suite.Equal(ErrContentRequired, err)

	comments, err := suite.svc.Comment(suite.ctx, suite.bob.ID, post.ID, "first")
	suite.Require().NoError(err)
	suite.Len(comments, 1)

	comments, err = suite.svc.Comment(suite.ctx, suite.carol.ID, post.ID, "nice!")
	suite.Require().NoError(err)
	suite.Require().Len(comments, 2)
	last := comments[len(comments)-1]
	suite.Equal("nice!", last.Content)
	suite.Equal(suite.carol.ID, last.Author.ID)
	suite.NotNil(last.Replies)
	suite.Empty(last.Replies)

	notes := suite.notificationsFor(suite.alice.ID)
	suite.Len(notes, 2)
}

func (suite *SocialServiceTestSuite) TestReplyNotifiesCommentAuthor() {
	post := suite.createPost(suite.alice, "thread")
	comments, err := suite.svc.Comment(suite.ctx, suite.bob.ID, post.ID, "comment")
	suite.Require().NoError(err)
	commentID := comments[0].ID

	replies, err := suite.svc.Reply(suite.ctx, suite.carol.ID, post.ID, commentID, "reply one")
	suite.Require().NoError(err)
	suite.Require().Len(replies, 1)

	replies, err = suite.svc.Reply(suite.ctx, suite.alice.ID, post.ID, commentID, "reply two")
	suite.Require().NoError(err)
	suite.Require().Len(replies, 2)
	suite.Equal("reply two", replies[1].Content)
	suite.Equal(suite.alice.ID, replies[1].Author.ID)

	bobNotes := suite.notificationsFor(suite.bob.ID)
	suite.Require().Len(bobNotes, 2)
	for _, n := range bobNotes {
		suite.Equal(models.NotificationReply, n.Type)
	}

	_, err = suite.svc.Reply(suite.ctx, suite.carol.ID, post.ID, "missing", "x")
	suite.Equal(ErrCommentNotFound, err)

	other := suite.createPost(suite.bob, "other")
	_, err = suite.svc.Reply(suite.ctx, suite.carol.ID, other.ID, commentID, "wrong post")
	suite.Equal(ErrCommentNotFound, err)

	_, err = suite.svc.Reply(suite.ctx, suite.carol.ID, post.ID, commentID, "  ")
	suite.Equal(ErrContentRequired, err)
}

func (suite *SocialServiceTestSuite) TestShareCreatesRepost() {
	post := suite.createPost(suite.alice, "share me")
	suite.relay.topics = nil

	resp, err := suite.svc.Share(suite.ctx, suite.bob.ID, post.ID, "so good")
	suite.Require().NoError(err)
	suite.Equal(1, resp.Shares)
	suite.Equal(suite.bob.ID, resp.Repost.Author.ID)
	suite.Equal("so good", resp.Repost.Content)
	suite.Require().NotNil(resp.Repost.SharedFrom)
	suite.Equal(post.ID, resp.Repost.SharedFrom.ID)

	suite.Require().Len(suite.relay.topics, 1)
	suite.Equal(websocket.MessageTypeNewPost, suite.relay.topics[0].Type)

	// Sharing the repost shares the original
	again, err := suite.svc.Share(suite.ctx, suite.carol.ID, resp.Repost.ID, "")
	suite.Require().NoError(err)
	suite.Equal(2, again.Shares)
	suite.Equal(post.ID, *again.Repost.SharedFromID)

	_, err = suite.svc.Share(suite.ctx, suite.carol.ID, "missing", "")
	suite.Equal(ErrPostNotFound, err)
}

func (suite *SocialServiceTestSuite) TestFollowIsIdempotent() {
	resp, err := suite.svc.Follow(suite.ctx, suite.alice.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(resp.Following)
	suite.True(resp.Changed)

	resp, err = suite.svc.Follow(suite.ctx, suite.alice.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(resp.Following)
	suite.False(resp.Changed)

	notes := suite.notificationsFor(suite.bob.ID)
	suite.Require().Len(notes, 1)
	suite.Equal(models.NotificationFollow, notes[0].Type)

	profile, err := suite.svc.GetProfile(suite.ctx, suite.alice.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), profile.FollowerCount)
	suite.True(profile.IsFollowing)

	resp, err = suite.svc.Unfollow(suite.ctx, suite.alice.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.False(resp.Following)
	suite.True(resp.Changed)

	resp, err = suite.svc.Unfollow(suite.ctx, suite.alice.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.False(resp.Changed)

	_, err = suite.svc.Follow(suite.ctx, suite.alice.ID, suite.alice.ID)
	suite.Equal(ErrCannotFollowSelf, err)
	_, err = suite.svc.Follow(suite.ctx, suite.alice.ID, "nobody")
	suite.Equal(ErrUserNotFound, err)
}

func (suite *SocialServiceTestSuite) TestFollowersAndFollowing() {
	_, err := suite.svc.Follow(suite.ctx, suite.alice.ID, suite.carol.ID)
	suite.Require().NoError(err)
	_, err = suite.svc.Follow(suite.ctx, suite.bob.ID, suite.carol.ID)
	suite.Require().NoError(err)

	followers, err := suite.svc.GetFollowers(suite.ctx, suite.carol.ID, 1, 20)
	suite.Require().NoError(err)
	suite.Len(followers, 2)

	following, err := suite.svc.GetFollowing(suite.ctx, suite.alice.ID, 1, 20)
	suite.Require().NoError(err)
	suite.Require().Len(following, 1)
	suite.Equal("carol", following[0].Username)
}

func (suite *SocialServiceTestSuite) TestRecommendedFeed() {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mk := func(content string, at time.Time, likes int) string {
		p := &models.Post{UserID: suite.alice.ID, Content: content, CreatedAt: at}
		suite.Require().NoError(suite.db.Create(p).Error)
		for i := 0; i < likes; i++ {
			liker := suite.createUser(content + string(rune('a'+i)))
			_, err := suite.svc.Like(suite.ctx, liker.ID, p.ID)
			suite.Require().NoError(err)
		}
		return p.ID
	}
	a := mk("A", base.Add(10*time.Second), 5)
	b := mk("B", base.Add(20*time.Second), 5)
	c := mk("C", base.Add(30*time.Second), 3)

	posts, err := suite.svc.ListPosts(suite.ctx, FeedQuery{Sort: repository.SortRecommended, Page: 1, Limit: 10})
	suite.Require().NoError(err)
	suite.Require().Len(posts, 3)
	suite.Equal([]string{b, a, c}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	posts, err = suite.svc.ListPosts(suite.ctx, FeedQuery{Page: 1, Limit: 10})
	suite.Require().NoError(err)
	suite.Equal([]string{c, b, a}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	posts, err = suite.svc.ListPosts(suite.ctx, FeedQuery{Page: 2, Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(posts, 1)
	suite.Equal(a, posts[0].ID)
}

func (suite *SocialServiceTestSuite) TestUnreadCountUsesCache() {
	post := suite.createPost(suite.alice, "p")
	_, err := suite.svc.Like(suite.ctx, suite.bob.ID, post.ID)
	suite.Require().NoError(err)

	count, err := suite.svc.UnreadCount(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)
	suite.Equal(int64(1), suite.unread.values[suite.alice.ID])

	// A cached value wins until something invalidates it
	suite.unread.values[suite.alice.ID] = 7
	count, err = suite.svc.UnreadCount(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(7), count)

	_, err = suite.svc.Comment(suite.ctx, suite.carol.ID, post.ID, "hi")
	suite.Require().NoError(err)
	count, err = suite.svc.UnreadCount(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(2), count)
}

func (suite *SocialServiceTestSuite) TestUnreadCountNotCachedAcrossInvalidation() {
	post := suite.createPost(suite.alice, "p")

	// The like and its notification land after the count but before the Set
	suite.unread.beforeSet = func() {
		_, err := suite.svc.Like(suite.ctx, suite.bob.ID, post.ID)
		suite.Require().NoError(err)
	}

	count, err := suite.svc.UnreadCount(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), count)
	_, cached := suite.unread.values[suite.alice.ID]
	suite.False(cached)

	count, err = suite.svc.UnreadCount(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)
}

func (suite *SocialServiceTestSuite) TestMarkRead() {
	post := suite.createPost(suite.alice, "p")
	_, err := suite.svc.Like(suite.ctx, suite.bob.ID, post.ID)
	suite.Require().NoError(err)
	_, err = suite.svc.Like(suite.ctx, suite.carol.ID, post.ID)
	suite.Require().NoError(err)

	list, err := suite.svc.ListNotifications(suite.ctx, suite.alice.ID, 1, 20)
	suite.Require().NoError(err)
	suite.Require().Len(list, 2)
	suite.Require().NotNil(list[0].Sender)

	suite.Require().NoError(suite.svc.MarkRead(suite.ctx, suite.alice.ID, list[0].ID))
	suite.Require().NoError(suite.svc.MarkRead(suite.ctx, suite.alice.ID, list[0].ID))
	suite.Equal(ErrNotificationNotFound, suite.svc.MarkRead(suite.ctx, suite.bob.ID, list[0].ID))

	count, err := suite.svc.UnreadCount(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)

	n, err := suite.svc.MarkAllRead(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), n)

	count, err = suite.svc.UnreadCount(suite.ctx, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Zero(count)
}

func (suite *SocialServiceTestSuite) TestDeletePost() {
	post := suite.createPost(suite.alice, "temp")

	suite.Equal(ErrPostNotFound, suite.svc.DeletePost(suite.ctx, suite.bob.ID, post.ID))
	suite.Require().NoError(suite.svc.DeletePost(suite.ctx, suite.alice.ID, post.ID))

	_, err := suite.svc.GetPost(suite.ctx, post.ID)
	suite.Equal(ErrPostNotFound, err)
}

func TestSocialServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SocialServiceTestSuite))
}
