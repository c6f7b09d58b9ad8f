package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/huddle/internal/database"
	"github.com/zfogg/huddle/internal/models"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	users UserRepository
	posts PostRepository
	inbox NotificationRepository
	ctx   context.Context
}

func (suite *RepositoryTestSuite) SetupTest() {
	db, err := database.OpenMemory(suite.T().Name())
	suite.Require().NoError(err)
	suite.db = db
	suite.users = NewUserRepository(db)
	suite.posts = NewPostRepository(db)
	suite.inbox = NewNotificationRepository(db)
	suite.ctx = context.Background()
}

func (suite *RepositoryTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	_ = sqlDB.Close()
}

func (suite *RepositoryTestSuite) createUser(username string) *models.User {
	u := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
	}
	suite.Require().NoError(suite.db.Create(u).Error)
	return u
}

func (suite *RepositoryTestSuite) createPost(author *models.User, content string, at time.Time) *models.Post {
	p := &models.Post{UserID: author.ID, Content: content, CreatedAt: at}
	suite.Require().NoError(suite.posts.CreatePost(suite.ctx, p))
	return p
}

func (suite *RepositoryTestSuite) likeN(post *models.Post, n int) {
	for i := 0; i < n; i++ {
		liker := suite.createUser(post.ID[:8] + string(rune('a'+i)))
		suite.Require().NoError(suite.posts.AddLike(suite.ctx, post.ID, liker.ID))
	}
}

func (suite *RepositoryTestSuite) TestRecommendedOrdersByLikesThenRecency() {
	author := suite.createUser("author")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := suite.createPost(author, "A", base.Add(10*time.Second))
	b := suite.createPost(author, "B", base.Add(20*time.Second))
	c := suite.createPost(author, "C", base.Add(30*time.Second))
	suite.likeN(a, 5)
	suite.likeN(b, 5)
	suite.likeN(c, 3)

	posts, err := suite.posts.ListPosts(suite.ctx, FeedQuery{Sort: SortRecommended, Limit: 20})
	suite.Require().NoError(err)
	suite.Require().Len(posts, 3)
	suite.Equal([]string{b.ID, a.ID, c.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	suite.Len(posts[0].Likes, 5)

	latest, err := suite.posts.ListPosts(suite.ctx, FeedQuery{Sort: SortLatest, Limit: 20})
	suite.Require().NoError(err)
	suite.Equal([]string{c.ID, b.ID, a.ID}, []string{latest[0].ID, latest[1].ID, latest[2].ID})
}

func (suite *RepositoryTestSuite) TestListPostsFiltersAndPages() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		suite.createPost(alice, "a", base.Add(time.Duration(i)*time.Minute))
	}
	suite.createPost(bob, "b", base)

	mine, err := suite.posts.ListPosts(suite.ctx, FeedQuery{AuthorID: alice.ID, Limit: 20})
	suite.Require().NoError(err)
	suite.Len(mine, 3)
	for _, p := range mine {
		suite.Equal("alice", p.User.Username)
	}

	page, err := suite.posts.ListPosts(suite.ctx, FeedQuery{Limit: 2, Offset: 2})
	suite.Require().NoError(err)
	suite.Len(page, 2)
}

func (suite *RepositoryTestSuite) TestLikeSet() {
	author := suite.createUser("author")
	fan := suite.createUser("fan")
	post := suite.createPost(author, "hello", time.Now())

	suite.Require().NoError(suite.posts.AddLike(suite.ctx, post.ID, fan.ID))
	suite.ErrorIs(suite.posts.AddLike(suite.ctx, post.ID, fan.ID), ErrAlreadyLiked)

	ids, err := suite.posts.GetLikerIDs(suite.ctx, post.ID)
	suite.Require().NoError(err)
	suite.Equal([]string{fan.ID}, ids)

	suite.Require().NoError(suite.posts.RemoveLike(suite.ctx, post.ID, fan.ID))
	suite.ErrorIs(suite.posts.RemoveLike(suite.ctx, post.ID, fan.ID), ErrLikeNotFound)
}

func (suite *RepositoryTestSuite) TestThreadOrdering() {
	author := suite.createUser("author")
	post := suite.createPost(author, "thread", time.Now())

	first := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "first"}
	suite.Require().NoError(suite.posts.CreateComment(suite.ctx, first))
	second := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "second"}
	suite.Require().NoError(suite.posts.CreateComment(suite.ctx, second))
	suite.Require().NoError(suite.posts.CreateReply(suite.ctx, &models.Reply{CommentID: first.ID, UserID: author.ID, Content: "r1"}))
	suite.Require().NoError(suite.posts.CreateReply(suite.ctx, &models.Reply{CommentID: first.ID, UserID: author.ID, Content: "r2"}))

	got, err := suite.posts.GetPost(suite.ctx, post.ID)
	suite.Require().NoError(err)
	suite.Require().Len(got.Comments, 2)
	suite.Equal("first", got.Comments[0].Content)
	suite.Equal("second", got.Comments[1].Content)
	suite.Require().Len(got.Comments[0].Replies, 2)
	suite.Equal("r2", got.Comments[0].Replies[1].Content)
	suite.Equal("author", got.Comments[0].Replies[0].User.Username)

	_, err = suite.posts.GetComment(suite.ctx, "other-post", first.ID)
	suite.ErrorIs(err, ErrCommentNotFound)
}

func (suite *RepositoryTestSuite) TestCreateRepostIncrementsShares() {
	author := suite.createUser("author")
	sharer := suite.createUser("sharer")
	post := suite.createPost(author, "original", time.Now())

	repost, shares, err := suite.posts.CreateRepost(suite.ctx, post, sharer.ID, "look")
	suite.Require().NoError(err)
	suite.Equal(1, shares)
	suite.Equal(post.ID, *repost.SharedFromID)
	suite.Require().NotNil(repost.SharedFrom)
	suite.Equal("author", repost.SharedFrom.User.Username)

	_, shares, err = suite.posts.CreateRepost(suite.ctx, post, sharer.ID, "")
	suite.Require().NoError(err)
	suite.Equal(2, shares)
}

func (suite *RepositoryTestSuite) TestDeletePost() {
	author := suite.createUser("author")
	other := suite.createUser("other")
	post := suite.createPost(author, "bye", time.Now())
	suite.Require().NoError(suite.posts.AddLike(suite.ctx, post.ID, other.ID))
	repost, _, err := suite.posts.CreateRepost(suite.ctx, post, other.ID, "")
	suite.Require().NoError(err)

	suite.ErrorIs(suite.posts.DeletePost(suite.ctx, post.ID, other.ID), ErrPostNotFound)
	suite.Require().NoError(suite.posts.DeletePost(suite.ctx, post.ID, author.ID))

	_, err = suite.posts.GetPost(suite.ctx, post.ID)
	suite.ErrorIs(err, ErrPostNotFound)

	kept, err := suite.posts.GetPost(suite.ctx, repost.ID)
	suite.Require().NoError(err)
	suite.Nil(kept.SharedFromID)
}

func (suite *RepositoryTestSuite) TestFollowEdges() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")

	changed, err := suite.users.CreateFollow(suite.ctx, alice.ID, bob.ID)
	suite.Require().NoError(err)
	suite.True(changed)

	changed, err = suite.users.CreateFollow(suite.ctx, alice.ID, bob.ID)
	suite.Require().NoError(err)
	suite.False(changed)

	_, err = suite.users.CreateFollow(suite.ctx, alice.ID, alice.ID)
	suite.ErrorIs(err, ErrInvalidInput)

	following, err := suite.users.IsFollowing(suite.ctx, alice.ID, bob.ID)
	suite.Require().NoError(err)
	suite.True(following)

	followers, err := suite.users.GetFollowers(suite.ctx, bob.ID, 10, 0)
	suite.Require().NoError(err)
	suite.Require().Len(followers, 1)
	suite.Equal(alice.ID, followers[0].ID)

	count, err := suite.users.GetFollowingCount(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)

	changed, err = suite.users.DeleteFollow(suite.ctx, alice.ID, bob.ID)
	suite.Require().NoError(err)
	suite.True(changed)
	changed, err = suite.users.DeleteFollow(suite.ctx, alice.ID, bob.ID)
	suite.Require().NoError(err)
	suite.False(changed)
}

func (suite *RepositoryTestSuite) TestUserLookup() {
	alice := suite.createUser("Alice")

	got, err := suite.users.GetUserByUsername(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.Equal(alice.ID, got.ID)

	_, err = suite.users.GetUser(suite.ctx, "missing")
	suite.ErrorIs(err, ErrUserNotFound)
}

func (suite *RepositoryTestSuite) TestNotificationInbox() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")

	for i := 0; i < 3; i++ {
		suite.Require().NoError(suite.inbox.Create(suite.ctx, &models.Notification{
			RecipientID: alice.ID,
			SenderID:    &bob.ID,
			Type:        models.NotificationLike,
		}))
	}

	unread, err := suite.inbox.CountUnread(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(3), unread)

	list, err := suite.inbox.List(suite.ctx, alice.ID, 10, 0)
	suite.Require().NoError(err)
	suite.Require().Len(list, 3)
	suite.Require().NotNil(list[0].Sender)
	suite.Equal("bob", list[0].Sender.Username)

	suite.Require().NoError(suite.inbox.MarkRead(suite.ctx, list[0].ID, alice.ID))
	suite.Require().NoError(suite.inbox.MarkRead(suite.ctx, list[0].ID, alice.ID))
	suite.ErrorIs(suite.inbox.MarkRead(suite.ctx, list[0].ID, bob.ID), ErrNotificationNotFound)

	n, err := suite.inbox.MarkAllRead(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(2), n)

	unread, err = suite.inbox.CountUnread(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Zero(unread)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestParseFeedSort(t *testing.T) {
	require.Equal(t, SortRecommended, ParseFeedSort("popular"))
	require.Equal(t, SortRecommended, ParseFeedSort("recommendation"))
	require.Equal(t, SortLatest, ParseFeedSort(""))
	require.Equal(t, SortLatest, ParseFeedSort("bogus"))
}
