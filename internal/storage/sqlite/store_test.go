package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/suite"

	"social_watch/internal/domain"
)

type StoreTestSuite struct {
	suite.Suite
	ctx context.Context
	db  *sqlx.DB

	accounts *AccountStore
	posts    *PostStore
	likes    *LikeStore
	tx       *TransactionManager
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	s.Require().NoError(err)
	// One connection: each pool connection would otherwise get its own
	// private in-memory database.
	db.SetMaxOpenConns(1)
	s.db = db

	s.Require().NoError(Init(s.ctx, db))

	s.accounts = NewAccountStore(db)
	s.posts = NewPostStore(db)
	s.likes = NewLikeStore(db)
	s.tx = NewTransactionManager(db)
}

func (s *StoreTestSuite) TearDownTest() {
	_ = s.db.Close()
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) newPost(postID string) *domain.Post {
	created := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	return &domain.Post{
		Platform:          "x",
		PostID:            postID,
		URL:               "https://x.com/acct/status/" + postID,
		Category:          "government",
		AuthorHandle:      "acct",
		AuthorDisplayName: "Account",
		Text:              "post " + postID,
		Lang:              "en",
		CreatedAt:         &created,
		RetrievedAt:       time.Now().UTC(),
		MediaJSON:         `[]`,
		MetricsJSON:       `{"favorite_count":1}`,
		RawJSON:           fmt.Sprintf(`{"id":%q}`, postID),
	}
}

func (s *StoreTestSuite) TestInsert_Idempotent() {
	post := s.newPost("100")

	inserted, err := s.posts.Insert(s.ctx, post)
	s.NoError(err)
	s.True(inserted)

	again, err := s.posts.Insert(s.ctx, post)
	s.NoError(err)
	s.False(again)

	var n int
	s.NoError(s.db.Get(&n, `SELECT COUNT(*) FROM posts WHERE platform = 'x' AND post_id = '100'`))
	s.Equal(1, n)
}

func (s *StoreTestSuite) TestInsert_MissingMandatoryFieldFailsLoudly() {
	post := s.newPost("100")
	post.URL = ""

	_, err := s.posts.Insert(s.ctx, post)
	s.Error(err)
	s.True(errors.Is(err, domain.ErrMissingField))
}

func (s *StoreTestSuite) TestInsert_ReplyAndQuoteColumnsLandCorrectly() {
	post := s.newPost("100")
	reply, quoted := "55", "66"
	post.ReplyToPostID = &reply
	post.QuotedPostID = &quoted

	inserted, err := s.posts.Insert(s.ctx, post)
	s.NoError(err)
	s.True(inserted)

	// Read the columns back directly: the reply id must land in
	// reply_to_post_id and the quote id in quoted_post_id, with no
	// neighboring column shifted.
	var row struct {
		URL     string         `db:"url"`
		Lang    string         `db:"lang"`
		Reply   sql.NullString `db:"reply_to_post_id"`
		Quoted  sql.NullString `db:"quoted_post_id"`
		RawJSON string         `db:"raw_json"`
	}
	s.NoError(s.db.Get(&row, `
		SELECT url, lang, reply_to_post_id, quoted_post_id, raw_json
		FROM posts WHERE post_id = '100'`))

	s.Equal(post.URL, row.URL)
	s.Equal("en", row.Lang)
	s.Equal("55", row.Reply.String)
	s.Equal("66", row.Quoted.String)
	s.Equal(post.RawJSON, row.RawJSON)
}

func (s *StoreTestSuite) TestList_JoinsLikeCounts() {
	first := s.newPost("1")
	second := s.newPost("2")
	later := first.CreatedAt.Add(time.Hour)
	second.CreatedAt = &later

	for _, p := range []*domain.Post{first, second} {
		_, err := s.posts.Insert(s.ctx, p)
		s.Require().NoError(err)
	}
	_, err := s.likes.Like(s.ctx, "2")
	s.Require().NoError(err)

	posts, err := s.posts.List(s.ctx, PostFilter{Platform: "x", Limit: 50})
	s.NoError(err)
	s.Require().Len(posts, 2)

	// Newest first; liked post carries its count, the other zero.
	s.Equal("2", posts[0].PostID)
	s.Equal(int64(1), posts[0].LikeCount)
	s.Equal("1", posts[1].PostID)
	s.Equal(int64(0), posts[1].LikeCount)
}

func (s *StoreTestSuite) TestList_ClampsLimitAndOffset() {
	for i := 0; i < 5; i++ {
		_, err := s.posts.Insert(s.ctx, s.newPost(fmt.Sprintf("%d", i)))
		s.Require().NoError(err)
	}

	// Zero/negative limits clamp to 1, not to an error or a full scan.
	posts, err := s.posts.List(s.ctx, PostFilter{Platform: "x", Limit: -3})
	s.NoError(err)
	s.Len(posts, 1)

	posts, err = s.posts.List(s.ctx, PostFilter{Platform: "x", Limit: 1_000_000})
	s.NoError(err)
	s.Len(posts, 5)

	posts, err = s.posts.List(s.ctx, PostFilter{Platform: "x", Limit: 10, Offset: -5})
	s.NoError(err)
	s.Len(posts, 5)
}

func (s *StoreTestSuite) TestList_FiltersByCategory() {
	gov := s.newPost("1")
	indep := s.newPost("2")
	indep.Category = "independent"

	for _, p := range []*domain.Post{gov, indep} {
		_, err := s.posts.Insert(s.ctx, p)
		s.Require().NoError(err)
	}

	posts, err := s.posts.List(s.ctx, PostFilter{Platform: "x", Category: "independent", Limit: 50})
	s.NoError(err)
	s.Require().Len(posts, 1)
	s.Equal("2", posts[0].PostID)
}

func (s *StoreTestSuite) TestGetByPostID_RoundTrip() {
	post := s.newPost("100")
	_, err := s.posts.Insert(s.ctx, post)
	s.Require().NoError(err)

	got, err := s.posts.GetByPostID(s.ctx, "100")
	s.NoError(err)
	s.Equal(post.PostID, got.PostID)
	s.Equal(post.Text, got.Text)
	s.Equal(post.MetricsJSON, got.MetricsJSON)
	s.Require().NotNil(got.CreatedAt)
	s.True(post.CreatedAt.Equal(*got.CreatedAt))

	_, err = s.posts.GetByPostID(s.ctx, "missing")
	s.True(errors.Is(err, sql.ErrNoRows))
}

func (s *StoreTestSuite) TestLikes_IncrementAndFloor() {
	count, err := s.likes.Like(s.ctx, "100")
	s.NoError(err)
	s.Equal(int64(1), count)

	count, err = s.likes.Like(s.ctx, "100")
	s.NoError(err)
	s.Equal(int64(2), count)

	count, err = s.likes.Unlike(s.ctx, "100")
	s.NoError(err)
	s.Equal(int64(1), count)

	count, err = s.likes.Unlike(s.ctx, "100")
	s.NoError(err)
	s.Equal(int64(0), count)

	// Decrement at zero stays at zero, never negative.
	count, err = s.likes.Unlike(s.ctx, "100")
	s.NoError(err)
	s.Equal(int64(0), count)
}

func (s *StoreTestSuite) TestLikes_UnlikeUnknownPostStartsAtZero() {
	count, err := s.likes.Unlike(s.ctx, "never-liked")
	s.NoError(err)
	s.Equal(int64(0), count)
}

func (s *StoreTestSuite) TestAccounts_ListEnabledOrdering() {
	for _, a := range []domain.Account{
		{Platform: "x", Handle: "charlie", DisplayName: "C", Category: "government", Enabled: true},
		{Platform: "x", Handle: "alpha", DisplayName: "A", Category: "independent", Enabled: true},
		{Platform: "x", Handle: "bravo", DisplayName: "B", Category: "government", Enabled: false},
	} {
		account := a
		s.Require().NoError(s.accounts.Upsert(s.ctx, &account))
	}

	accounts, err := s.accounts.ListEnabled(s.ctx, "x")
	s.NoError(err)
	s.Require().Len(accounts, 2)
	s.Equal("alpha", accounts[0].Handle)
	s.Equal("charlie", accounts[1].Handle)
}

func (s *StoreTestSuite) TestAccounts_UpsertRefreshes() {
	account := &domain.Account{Platform: "x", Handle: "alpha", DisplayName: "Old", Category: "government", Enabled: true}
	s.Require().NoError(s.accounts.Upsert(s.ctx, account))

	account.DisplayName = "New"
	account.Enabled = false
	s.Require().NoError(s.accounts.Upsert(s.ctx, account))

	accounts, err := s.accounts.List(s.ctx, "x", false)
	s.NoError(err)
	s.Require().Len(accounts, 1)
	s.Equal("New", accounts[0].DisplayName)
	s.False(accounts[0].Enabled)
}

func (s *StoreTestSuite) TestTransaction_RollbackDiscardsAccountBatch() {
	err := s.tx.WithTransaction(s.ctx, func(txCtx context.Context) error {
		inserted, err := s.posts.Insert(txCtx, s.newPost("1"))
		s.NoError(err)
		s.True(inserted)
		return errors.New("simulated mid-account failure")
	})
	s.Error(err)

	var n int
	s.NoError(s.db.Get(&n, `SELECT COUNT(*) FROM posts`))
	s.Equal(0, n)
}

func (s *StoreTestSuite) TestTransaction_CommitSurvivesLaterFailure() {
	// Account A commits; a later account's transaction failing must
	// not disturb A's rows.
	s.Require().NoError(s.tx.WithTransaction(s.ctx, func(txCtx context.Context) error {
		_, err := s.posts.Insert(txCtx, s.newPost("1"))
		return err
	}))

	_ = s.tx.WithTransaction(s.ctx, func(txCtx context.Context) error {
		_, err := s.posts.Insert(txCtx, s.newPost("2"))
		s.NoError(err)
		return errors.New("account B failed")
	})

	posts, err := s.posts.List(s.ctx, PostFilter{Platform: "x", Limit: 50})
	s.NoError(err)
	s.Require().Len(posts, 1)
	s.Equal("1", posts[0].PostID)
}
