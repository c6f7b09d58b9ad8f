package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account gets
const DefaultPassword = "password123"

// DevCounts sizes a development seed
type DevCounts struct {
	Users    int
	Posts    int
	Comments int
	Replies  int
	Reposts  int
	Messages int
}

// DefaultDevCounts is what `huddle-seed dev` creates
var DefaultDevCounts = DevCounts{
	Users:    40,
	Posts:    200,
	Comments: 400,
	Replies:  150,
	Reposts:  30,
	Messages: 120,
}

// Seeder handles database seeding operations
type Seeder struct {
	db           *gorm.DB
	passwordHash string
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	// Seed returns an error only for invalid sources
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	return s.SeedDevWith(DefaultDevCounts)
}

// SeedDevWith seeds a development dataset of the given size
func (s *Seeder) SeedDevWith(counts DevCounts) error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(counts.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating follows...")
	if err := s.seedFollows(users); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	log("Creating posts...")
	posts, err := s.seedPosts(users, counts.Posts)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log("Creating likes...")
	if err := s.seedLikes(users, posts); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	log("Creating comments...")
	comments, err := s.seedComments(users, posts, counts.Comments)
	if err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating replies...")
	if err := s.seedReplies(users, comments, counts.Replies); err != nil {
		return fmt.Errorf("failed to seed replies: %w", err)
	}

	log("Creating reposts...")
	if err := s.seedReposts(users, posts, counts.Reposts); err != nil {
		return fmt.Errorf("failed to seed reposts: %w", err)
	}

	log("Creating chat messages...")
	if err := s.seedChat(users, []string{"lobby", "random", "help"}, counts.Messages); err != nil {
		return fmt.Errorf("failed to seed chat: %w", err)
	}

	return nil
}

// SeedTest seeds five fixed accounts (alice, bob, charlie, diana, eve) with a
// handful of posts and interactions. Re-running it reuses existing accounts.
func (s *Seeder) SeedTest() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating test users...")
	testAccounts := []struct {
		username    string
		email       string
		displayName string
	}{
		{"alice", "alice@example.com", "Alice Smith"},
		{"bob", "bob@example.com", "Bob Johnson"},
		{"charlie", "charlie@example.com", "Charlie Brown"},
		{"diana", "diana@example.com", "Diana Prince"},
		{"eve", "eve@example.com", "Eve Wilson"},
	}

	var users []models.User
	for _, acct := range testAccounts {
		var user models.User
		err := s.db.Where("username = ? OR email = ?", acct.username, acct.email).First(&user).Error
		if err == nil {
			users = append(users, user)
			continue
		}

		hash, err := s.hash()
		if err != nil {
			return err
		}

		user = models.User{
			Email:        acct.email,
			Username:     acct.username,
			DisplayName:  acct.displayName,
			AvatarURL:    avatarURL(acct.username),
			PasswordHash: hash,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", acct.username, err)
		}
		users = append(users, user)
	}

	log("Creating test follows...")
	// alice follows everyone; everyone follows alice back except eve
	for _, u := range users[1:] {
		if err := s.follow(users[0], u); err != nil {
			return err
		}
		if u.Username != "eve" {
			if err := s.follow(u, users[0]); err != nil {
				return err
			}
		}
	}

	log("Creating test posts...")
	posts, err := s.seedPosts(users, 5)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log("Creating test comments...")
	if _, err := s.seedComments(users, posts, 10); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	return nil
}

// Clean removes every Huddle row. Deletes run child tables first.
func (s *Seeder) Clean() error {
	tables := []string{
		"chat_messages",
		"notifications",
		"replies",
		"comments",
		"post_likes",
		"posts",
		"follows",
		"users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) hash() (string, error) {
	if s.passwordHash != "" {
		return s.passwordHash, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	s.passwordHash = string(hashed)
	return s.passwordHash, nil
}

func avatarURL(username string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username)
}

// seedUsers creates count users with unique usernames and emails
func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)

	hash, err := s.hash()
	if err != nil {
		return nil, err
	}

	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		email := strings.ToLower(gofakeit.Email())

		// Retry on collisions with earlier seeds
		for attempts := 0; attempts < 10; attempts++ {
			var existing int64
			s.db.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&existing)
			if existing == 0 {
				break
			}
			username = fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), rand.Intn(10000))
			email = strings.ToLower(gofakeit.Email())
		}

		user := models.User{
			Email:        email,
			Username:     username,
			DisplayName:  gofakeit.Name(),
			AvatarURL:    avatarURL(username),
			PasswordHash: hash,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	logger.Log.Info("Created seed users", zap.Int("count", len(users)))
	return users, nil
}

// seedFollows gives every user between one and a quarter of the others to follow
func (s *Seeder) seedFollows(users []models.User) error {
	if len(users) < 2 {
		return nil
	}

	created := 0
	for _, follower := range users {
		n := rand.Intn(len(users)/4+1) + 1
		for _, idx := range rand.Perm(len(users))[:n] {
			followee := users[idx]
			if followee.ID == follower.ID {
				continue
			}
			if err := s.follow(follower, followee); err != nil {
				return err
			}
			created++
		}
	}

	logger.Log.Info("Created seed follows", zap.Int("count", created))
	return nil
}

func (s *Seeder) follow(follower, followee models.User) error {
	var existing int64
	s.db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", follower.ID, followee.ID).
		Count(&existing)
	if existing > 0 {
		return nil
	}

	if err := s.db.Create(&models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}).Error; err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return s.notify(followee.ID, follower.ID, models.NotificationFollow, nil, time.Now().UTC())
}

// seedPosts spreads count posts across users over the last 30 days.
// Every user gets at least one post when count allows it.
func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	var posts []models.Post
	if len(users) == 0 {
		return posts, nil
	}

	for i := 0; i < count; i++ {
		author := users[i%len(users)]
		if i >= len(users) {
			author = users[rand.Intn(len(users))]
		}

		post := models.Post{
			UserID:    author.ID,
			Content:   gofakeit.HipsterSentence(),
			CreatedAt: gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now()).UTC(),
		}
		// About a fifth of posts carry an image
		if rand.Float32() < 0.2 {
			url := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())
			post.ImageURL = &url
		}

		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, post)
	}

	logger.Log.Info("Created seed posts", zap.Int("count", len(posts)))
	return posts, nil
}

// seedLikes gives each post a random set of likers, skewed toward few
func (s *Seeder) seedLikes(users []models.User, posts []models.Post) error {
	created := 0
	for _, post := range posts {
		n := rand.Intn(len(users)/3 + 1)
		for _, idx := range rand.Perm(len(users))[:n] {
			liker := users[idx]
			like := models.PostLike{
				PostID:    post.ID,
				UserID:    liker.ID,
				CreatedAt: gofakeit.DateRange(post.CreatedAt, time.Now()).UTC(),
			}
			if err := s.db.Create(&like).Error; err != nil {
				return fmt.Errorf("failed to create like: %w", err)
			}
			if liker.ID != post.UserID {
				postID := post.ID
				if err := s.notify(post.UserID, liker.ID, models.NotificationLike, &postID, like.CreatedAt); err != nil {
					return err
				}
			}
			created++
		}
	}

	logger.Log.Info("Created seed likes", zap.Int("count", created))
	return nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) ([]models.Comment, error) {
	var comments []models.Comment
	if len(users) == 0 || len(posts) == 0 {
		return comments, nil
	}

	templates := []string{
		"Love this!",
		"So true",
		"Where was this taken?",
		"Made my day",
		"Couldn't agree more",
		"Saving this for later",
		"Ha! Classic",
		"Tell me more",
	}

	for i := 0; i < count; i++ {
		post := posts[rand.Intn(len(posts))]
		author := users[rand.Intn(len(users))]

		content := templates[rand.Intn(len(templates))]
		if rand.Float32() < 0.5 {
			content = gofakeit.HipsterSentence()
		}

		comment := models.Comment{
			PostID:    post.ID,
			UserID:    author.ID,
			Content:   content,
			CreatedAt: gofakeit.DateRange(post.CreatedAt, time.Now()).UTC(),
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return nil, fmt.Errorf("failed to create comment: %w", err)
		}
		if author.ID != post.UserID {
			postID := post.ID
			if err := s.notify(post.UserID, author.ID, models.NotificationComment, &postID, comment.CreatedAt); err != nil {
				return nil, err
			}
		}
		comments = append(comments, comment)
	}

	logger.Log.Info("Created seed comments", zap.Int("count", len(comments)))
	return comments, nil
}

func (s *Seeder) seedReplies(users []models.User, comments []models.Comment, count int) error {
	if len(users) == 0 || len(comments) == 0 {
		return nil
	}

	for i := 0; i < count; i++ {
		comment := comments[rand.Intn(len(comments))]
		author := users[rand.Intn(len(users))]

		reply := models.Reply{
			CommentID: comment.ID,
			UserID:    author.ID,
			Content:   gofakeit.HipsterSentence(),
			CreatedAt: gofakeit.DateRange(comment.CreatedAt, time.Now()).UTC(),
		}
		if err := s.db.Create(&reply).Error; err != nil {
			return fmt.Errorf("failed to create reply: %w", err)
		}
		if author.ID != comment.UserID {
			postID := comment.PostID
			if err := s.notify(comment.UserID, author.ID, models.NotificationReply, &postID, reply.CreatedAt); err != nil {
				return err
			}
		}
	}

	logger.Log.Info("Created seed replies", zap.Int("count", count))
	return nil
}

// seedReposts shares random originals. The original's share count grows by one per repost.
func (s *Seeder) seedReposts(users []models.User, posts []models.Post, count int) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	for i := 0; i < count; i++ {
		original := posts[rand.Intn(len(posts))]
		sharer := users[rand.Intn(len(users))]
		originalID := original.ID

		repost := models.Post{
			UserID:       sharer.ID,
			SharedFromID: &originalID,
			CreatedAt:    gofakeit.DateRange(original.CreatedAt, time.Now()).UTC(),
		}
		if rand.Float32() < 0.3 {
			repost.Content = gofakeit.HipsterSentence()
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&repost).Error; err != nil {
				return err
			}
			return tx.Model(&models.Post{}).Where("id = ?", originalID).
				UpdateColumn("shares", gorm.Expr("shares + 1")).Error
		})
		if err != nil {
			return fmt.Errorf("failed to create repost: %w", err)
		}
	}

	logger.Log.Info("Created seed reposts", zap.Int("count", count))
	return nil
}

func (s *Seeder) seedChat(users []models.User, rooms []string, count int) error {
	if len(users) == 0 || len(rooms) == 0 {
		return nil
	}

	start := time.Now().Add(-48 * time.Hour)
	step := 48 * time.Hour / time.Duration(count+1)

	for i := 0; i < count; i++ {
		msg := models.ChatMessage{
			Room:      rooms[rand.Intn(len(rooms))],
			SenderID:  users[rand.Intn(len(users))].ID,
			Content:   gofakeit.HipsterSentence(),
			Read:      rand.Float32() < 0.7,
			CreatedAt: start.Add(step * time.Duration(i+1)).UTC(),
		}
		if err := s.db.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to create chat message: %w", err)
		}
	}

	logger.Log.Info("Created seed chat messages",
		zap.Int("count", count),
		zap.Int("rooms", len(rooms)))
	return nil
}

func (s *Seeder) notify(recipientID, senderID string, kind models.NotificationType, postID *string, at time.Time) error {
	sender := senderID
	n := models.Notification{
		RecipientID: recipientID,
		SenderID:    &sender,
		Type:        kind,
		PostID:      postID,
		Read:        rand.Float32() < 0.5,
		CreatedAt:   at,
	}
	if err := s.db.Create(&n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
