package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/huddle/internal/database"
	"github.com/zfogg/huddle/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SeederTestSuite struct {
	suite.Suite
	db     *gorm.DB
	seeder *Seeder
}

func TestSeederSuite(t *testing.T) {
	suite.Run(t, new(SeederTestSuite))
}

func (suite *SeederTestSuite) SetupTest() {
	db, err := database.OpenMemory(suite.T().Name())
	suite.Require().NoError(err)
	suite.db = db
	suite.seeder = NewSeeder(db)
}

func (suite *SeederTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *SeederTestSuite) count(model interface{}) int64 {
	var n int64
	suite.Require().NoError(suite.db.Model(model).Count(&n).Error)
	return n
}

func (suite *SeederTestSuite) TestSeedTestCreatesFixedAccounts() {
	suite.Require().NoError(suite.seeder.SeedTest())

	var alice models.User
	suite.Require().NoError(suite.db.Where("username = ?", "alice").First(&alice).Error)
	suite.NoError(bcrypt.CompareHashAndPassword([]byte(alice.PasswordHash), []byte(DefaultPassword)))

	suite.Equal(int64(5), suite.count(&models.User{}))
	suite.Equal(int64(5), suite.count(&models.Post{}))
	suite.Equal(int64(10), suite.count(&models.Comment{}))
	// alice -> 4 others, 3 follow back
	suite.Equal(int64(7), suite.count(&models.Follow{}))
}

func (suite *SeederTestSuite) TestSeedTestIsRerunnable() {
	suite.Require().NoError(suite.seeder.SeedTest())
	suite.Require().NoError(suite.seeder.SeedTest())

	suite.Equal(int64(5), suite.count(&models.User{}))
	suite.Equal(int64(7), suite.count(&models.Follow{}))
}

func (suite *SeederTestSuite) TestSeedDevWith() {
	counts := DevCounts{Users: 8, Posts: 20, Comments: 15, Replies: 6, Reposts: 4, Messages: 10}
	suite.Require().NoError(suite.seeder.SeedDevWith(counts))

	suite.Equal(int64(8), suite.count(&models.User{}))
	suite.Equal(int64(24), suite.count(&models.Post{}))
	suite.Equal(int64(15), suite.count(&models.Comment{}))
	suite.Equal(int64(6), suite.count(&models.Reply{}))
	suite.Equal(int64(10), suite.count(&models.ChatMessage{}))

	var shares int64
	suite.Require().NoError(suite.db.Model(&models.Post{}).Select("COALESCE(SUM(shares), 0)").Scan(&shares).Error)
	suite.Equal(int64(4), shares)

	var selfNotified int64
	suite.db.Model(&models.Notification{}).Where("sender_id = recipient_id").Count(&selfNotified)
	suite.Zero(selfNotified)
}

func (suite *SeederTestSuite) TestClean() {
	suite.Require().NoError(suite.seeder.SeedDevWith(DevCounts{Users: 3, Posts: 3, Comments: 3, Replies: 1, Reposts: 1, Messages: 2}))
	suite.Require().NoError(suite.seeder.Clean())

	for _, m := range models.AllModels() {
		suite.Zero(suite.count(m))
	}
}

func TestAvatarURL(t *testing.T) {
	url := avatarURL("alice")
	require.NotEmpty(t, url)
	assert.Contains(t, url, "seed=alice")
}
