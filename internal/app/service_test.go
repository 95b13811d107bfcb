package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-chatbot/internal/cache"
	"portfolio-chatbot/internal/model"
	"portfolio-chatbot/internal/pkg/jwtutil"
	"portfolio-chatbot/internal/pkg/pdfextract"
	"portfolio-chatbot/internal/repository"
	"portfolio-chatbot/internal/storage"
	"portfolio-chatbot/internal/testutil"
)

const resumeText = "Ada Lovelace\nAnalyst, Analytical Engine"

type recordSink struct {
	records []model.GenerationRecord
	err     error
}

func (r *recordSink) PublishGenerationRecord(_ context.Context, record model.GenerationRecord) error {
	r.records = append(r.records, record)
	return r.err
}

type brokenStore struct{}

func (brokenStore) Store(context.Context, string, []byte, string) (string, error) {
	return "", storage.ErrStorageUnavailable
}

func (brokenStore) Fetch(context.Context, string) ([]byte, error) {
	return nil, storage.ErrStorageUnavailable
}

type fixture struct {
	users    *repository.UserRepository
	chats    *repository.ChatRepository
	messages *repository.MessageRepository
	store    *storage.MemoryStore
	invoker  *testutil.Invoker
	records  *recordSink
	redis    *miniredis.Miniredis
	history  *cache.HistoryCache
	auth     *AuthService
	chat     *ChatService
	deploy   *DeployService
}

func newFixture(t *testing.T, replies ...testutil.Reply) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	srv := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		users:    repository.NewUserRepository(db),
		chats:    repository.NewChatRepository(db),
		messages: repository.NewMessageRepository(db),
		store:    storage.NewMemoryStore("portfolio-bucket", ""),
		invoker:  testutil.NewInvoker(replies...),
		records:  &recordSink{},
		redis:    srv,
		history:  cache.NewHistoryCache(client, time.Minute, 5*time.Second),
	}
	f.auth = NewAuthService(f.users, jwtutil.NewIssuer("secret", "portfolio-chatbot", time.Hour), cache.NewTokenRevoker(client))
	f.chat = NewChatService(f.chats, f.messages, f.store, f.invoker, f.history, f.records)
	f.chat.extractText = func([]byte) (string, error) { return resumeText, nil }
	f.deploy = NewDeployService(f.chats, f.messages, f.store)
	return f
}

func (f *fixture) signup(t *testing.T, email string) *model.User {
	t.Helper()
	res, err := f.auth.Register(RegisterInput{Name: "Ada", Email: email, Password: "password123"})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) createChat(t *testing.T, userID uint) *model.Chat {
	t.Helper()
	res, err := f.chat.CreateChat(context.Background(), CreateChatInput{
		UserID:      userID,
		Title:       "T",
		Description: "dark theme",
		Filename:    "cv.pdf",
		Resume:      []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	return res.Chat
}

func TestSignupTokenResolvesToUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(RegisterInput{Name: " Ada ", Email: "A@X.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.NotEqual(t, "password123", res.User.PasswordHash)

	claims, err := f.auth.Resolve(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	count, err := f.users.CountByEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@x.com")

	_, err := f.auth.Register(RegisterInput{Name: "Other", Email: " a@X.COM", Password: "password456"})
	assert.ErrorIs(t, err, ErrEmailExists)

	count, err := f.users.CountByEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	cases := []RegisterInput{
		{Name: "", Email: "a@x.com", Password: "password123"},
		{Name: "Ada", Email: "", Password: "password123"},
		{Name: "Ada", Email: "a@x.com", Password: "short"},
		{Name: "Ada", Email: "a@x.com", Password: strings.Repeat("p", 73)},
		{Name: "Ada", Email: "a@x.com", Password: strings.Repeat("é", 40)},
	}
	for _, input := range cases {
		_, err := f.auth.Register(input)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestLoginDoesNotRevealWhichPartFailed(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@x.com")

	res, err := f.auth.Login(LoginInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	_, wrongPassword := f.auth.Login(LoginInput{Email: "a@x.com", Password: "password124"})
	_, unknownEmail := f.auth.Login(LoginInput{Email: "b@x.com", Password: "password123"})
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredential)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredential)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestResolveRejectsBadAndRevokedTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.auth.Resolve(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	other := jwtutil.NewIssuer("other-secret", "portfolio-chatbot", time.Hour)
	forged, err := other.GenerateToken(1)
	require.NoError(t, err)
	_, err = f.auth.Resolve(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	res, err := f.auth.Register(RegisterInput{Name: "Ada", Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	claims, err := f.auth.Resolve(ctx, res.Token)
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(ctx, claims))

	_, err = f.auth.Resolve(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateChatScenario(t *testing.T) {
	f := newFixture(t, testutil.Reply{Text: "<html>v1</html>"})
	user := f.signup(t, "a@x.com")
	_, err := f.auth.Login(LoginInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)

	res, err := f.chat.CreateChat(context.Background(), CreateChatInput{
		UserID:      user.ID,
		Title:       "T",
		Description: "dark theme",
		Filename:    "../cv.pdf",
		Resume:      []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "", res.Chat.PageURL)
	assert.Equal(t, model.SenderBot, res.Message.Sender)
	assert.Equal(t, "<html>v1</html>", res.Message.Text)

	wantURL := "https://portfolio-bucket.s3.amazonaws.com/resumes/1/cv.pdf"
	assert.Equal(t, wantURL, res.Chat.ResumeURL)
	stored, err := f.store.Fetch(context.Background(), wantURL)
	require.NoError(t, err)
	assert.Equal(t, resumeText, string(stored))
	assert.Equal(t, storage.ContentTypeText, f.store.ContentType("resumes/1/cv.pdf"))

	require.Len(t, f.invoker.Prompts, 1)
	assert.Equal(t, InitialPrompt("dark theme", resumeText), f.invoker.Prompts[0])
	assert.Equal(t, wantURL, f.invoker.Refs[0])

	messages, err := f.chat.ListMessages(context.Background(), user.ID, res.Chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, model.SenderBot, messages[0].Sender)

	require.Len(t, f.records.records, 1)
	assert.Equal(t, model.TriggerCreateChat, f.records.records[0].Trigger)
	assert.True(t, f.records.records[0].Succeeded)
	assert.Equal(t, "fake", f.records.records[0].Driver)
}

func TestCreateChatWithRealPDF(t *testing.T) {
	f := newFixture(t)
	f.chat.extractText = pdfextract.ExtractText
	user := f.signup(t, "a@x.com")

	res, err := f.chat.CreateChat(context.Background(), CreateChatInput{
		UserID:   user.ID,
		Title:    "T",
		Filename: "cv.pdf",
		Resume:   testutil.PDF("Grace Hopper, compilers"),
	})
	require.NoError(t, err)
	stored, err := f.store.Fetch(context.Background(), res.Chat.ResumeURL)
	require.NoError(t, err)
	assert.Contains(t, string(stored), "Grace Hopper, compilers")

	_, err = f.chat.CreateChat(context.Background(), CreateChatInput{
		UserID: user.ID, Title: "T", Filename: "cv.pdf", Resume: []byte("plain text"),
	})
	assert.ErrorIs(t, err, ErrInvalidResume)
}

func TestCreateChatValidation(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@x.com")
	ctx := context.Background()

	_, err := f.chat.CreateChat(ctx, CreateChatInput{UserID: user.ID, Title: " ", Resume: []byte("x")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.chat.CreateChat(ctx, CreateChatInput{UserID: user.ID, Title: "T"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.chat.CreateChat(ctx, CreateChatInput{UserID: user.ID, Title: strings.Repeat("x", 101), Resume: []byte("x")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.invoker.Calls())
}

func TestCreateChatUploadFailureCreatesNothing(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@x.com")
	f.chat.documents = brokenStore{}

	_, err := f.chat.CreateChat(context.Background(), CreateChatInput{UserID: user.ID, Title: "T", Resume: []byte("x")})
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)

	chats, err := f.chat.ListChats(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.Zero(t, f.invoker.Calls())
}

func TestCreateChatGenerationFailureKeepsChat(t *testing.T) {
	f := newFixture(t, testutil.Reply{Err: testutil.ErrTimeout})
	user := f.signup(t, "a@x.com")

	_, err := f.chat.CreateChat(context.Background(), CreateChatInput{UserID: user.ID, Title: "T", Resume: []byte("x")})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, testutil.ErrTimeout)

	chats, err := f.chat.ListChats(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, model.ChatStatusCreated, chats[0].Status)
	assert.Nil(t, chats[0].LastUpdated)

	require.Len(t, f.records.records, 1)
	assert.False(t, f.records.records[0].Succeeded)
	assert.Contains(t, f.records.records[0].Error, "timed out")
}

func TestSendMessageScenario(t *testing.T) {
	f := newFixture(t, testutil.Reply{Text: "<html>v1</html>"}, testutil.Reply{Text: "<html>blue</html>"})
	user := f.signup(t, "a@x.com")
	chat := f.createChat(t, user.ID)
	ctx := context.Background()

	reply, err := f.chat.SendMessage(ctx, SendMessageInput{UserID: user.ID, ChatID: chat.ID, Text: "  make it blue "})
	require.NoError(t, err)
	assert.Equal(t, model.SenderBot, reply.Sender)
	assert.Equal(t, "<html>blue</html>", reply.Text)

	messages, err := f.chat.ListMessages(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, []string{model.SenderBot, model.SenderUser, model.SenderBot},
		[]string{messages[0].Sender, messages[1].Sender, messages[2].Sender})
	assert.Equal(t, "make it blue", messages[1].Text)

	require.Len(t, f.invoker.Prompts, 2)
	prompt := f.invoker.Prompts[1]
	assert.True(t, strings.HasPrefix(prompt, "bot: <html>v1</html>\nuser: make it blue\n\n"))
	assert.True(t, strings.HasSuffix(prompt, pageInstruction))
	assert.Equal(t, 1, strings.Count(prompt, "user: make it blue"))
	assert.Equal(t, chat.ResumeURL, f.invoker.Refs[1])
}

// staleFillCache replays a concurrent reader that loaded the history before an
// append and wrote it back right after the writer invalidated the key.
type staleFillCache struct {
	*cache.HistoryCache
	stale []model.Message
}

func (c *staleFillCache) Invalidate(ctx context.Context, chatID uint) error {
	if err := c.HistoryCache.Invalidate(ctx, chatID); err != nil {
		return err
	}
	return c.HistoryCache.SetHistory(ctx, chatID, c.stale)
}

func TestSendMessagePromptIncludesOwnMessageDespiteStaleCache(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@x.com")
	chat := f.createChat(t, user.ID)
	ctx := context.Background()

	snapshot, err := f.messages.ListByChatID(chat.ID)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	svc := NewChatService(f.chats, f.messages, f.store, f.invoker, &staleFillCache{HistoryCache: f.history, stale: snapshot}, f.records)
	_, err = svc.SendMessage(ctx, SendMessageInput{UserID: user.ID, ChatID: chat.ID, Text: "make it blue"})
	require.NoError(t, err)

	require.Len(t, f.invoker.Prompts, 2)
	assert.Contains(t, f.invoker.Prompts[1], "user: make it blue\n")

	messages, err := svc.ListMessages(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 3, "dirty chats are read from the database")
}

func TestListMessagesDoesNotFillCacheWhileDirty(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@x.com")
	chat := f.createChat(t, user.ID)
	ctx := context.Background()

	dirty, err := f.history.IsDirty(ctx, chat.ID)
	require.NoError(t, err)
	require.True(t, dirty)

	messages, err := f.chat.ListMessages(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	_, hit, err := f.history.GetHistory(ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, hit)

	f.redis.FastForward(10 * time.Second)

	messages, err = f.chat.ListMessages(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	cached, hit, err := f.history.GetHistory(ctx, chat.ID)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Len(t, cached, 1)
}

func TestSendMessageGenerationTimeoutKeepsUserMessage(t *testing.T) {
	f := newFixture(t, testutil.Reply{Text: "<html>v1</html>"}, testutil.Reply{Err: testutil.ErrTimeout})
	user := f.signup(t, "a@x.com")
	chat := f.createChat(t, user.ID)
	ctx := context.Background()

	_, err := f.chat.SendMessage(ctx, SendMessageInput{UserID: user.ID, ChatID: chat.ID, Text: "make it blue"})
	assert.ErrorIs(t, err, ErrGenerationFailed)

	messages, err := f.chat.ListMessages(ctx, user.ID, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, model.SenderUser, messages[1].Sender)
	assert.Equal(t, "make it blue", messages[1].Text)
	assert.Equal(t, 2, f.invoker.Calls(), "no retry")

	chats, err := f.chat.ListChats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChatStatusAwaitingReply, chats[0].Status)
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@x.com")
	chat := f.createChat(t, user.ID)

	_, err := f.chat.SendMessage(context.Background(), SendMessageInput{UserID: user.ID, ChatID: chat.ID, Text: "  "})
	assert.ErrorIs(t, err, ErrMessageEmpty)
}

func TestForeignChatIsForbidden(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "a@x.com")
	intruder := f.signup(t, "b@x.com")
	chat := f.createChat(t, owner.ID)
	ctx := context.Background()

	_, err := f.chat.SendMessage(ctx, SendMessageInput{UserID: intruder.ID, ChatID: chat.ID, Text: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)
	msgs, err := f.chat.ListMessages(ctx, intruder.ID, chat.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, msgs)
	_, err = f.deploy.Deploy(ctx, DeployInput{UserID: intruder.ID, ChatID: chat.ID, Content: "<html></html>"})
	assert.ErrorIs(t, err, ErrForbidden)

	owned, err := f.chat.ListMessages(ctx, owner.ID, chat.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1, "the rejected message was never stored")

	_, err = f.chat.ListMessages(ctx, owner.ID, chat.ID+100)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestListChatsSummaries(t *testing.T) {
	f := newFixture(t, testutil.Reply{Text: "<html>one</html>"}, testutil.Reply{Text: "<html>two</html>"})
	user := f.signup(t, "a@x.com")
	first := f.createChat(t, user.ID)
	second := f.createChat(t, user.ID)
	ctx := context.Background()

	_, err := f.deploy.Deploy(ctx, DeployInput{UserID: user.ID, ChatID: first.ID, Content: "<html>one</html>"})
	require.NoError(t, err)

	chats, err := f.chat.ListChats(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	assert.Equal(t, second.ID, chats[0].Chat.ID)
	assert.Equal(t, "<html>two</html>", chats[0].LastMessage)
	assert.NotNil(t, chats[0].LastUpdated)
	assert.False(t, chats[0].Deployed)
	assert.Equal(t, model.ChatStatusConversing, chats[0].Status)

	assert.Equal(t, first.ID, chats[1].Chat.ID)
	assert.True(t, chats[1].Deployed)
	assert.NotEmpty(t, chats[1].Chat.PageURL)
}

func TestDeployOverwritesPageURL(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@x.com")
	chat := f.createChat(t, user.ID)
	ctx := context.Background()

	url1, err := f.deploy.Deploy(ctx, DeployInput{UserID: user.ID, ChatID: chat.ID, Content: "<html>a</html>"})
	require.NoError(t, err)
	url2, err := f.deploy.Deploy(ctx, DeployInput{UserID: user.ID, ChatID: chat.ID, Content: "<html>b</html>"})
	require.NoError(t, err)

	want := "https://portfolio-bucket.s3.amazonaws.com/pages/1/pages-1/index.html"
	assert.Equal(t, want, url1)
	assert.Equal(t, want, url2)

	page, err := f.store.Fetch(ctx, url2)
	require.NoError(t, err)
	assert.Equal(t, "<html>b</html>", string(page))
	assert.Equal(t, storage.ContentTypeHTML, f.store.ContentType("pages/1/pages-1/index.html"))

	stored, err := f.chats.GetByID(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored.PageURL)
}

func TestDeployPreconditions(t *testing.T) {
	f := newFixture(t, testutil.Reply{Err: testutil.ErrTimeout})
	user := f.signup(t, "a@x.com")
	ctx := context.Background()

	_, err := f.chat.CreateChat(ctx, CreateChatInput{UserID: user.ID, Title: "T", Resume: []byte("x")})
	require.ErrorIs(t, err, ErrGenerationFailed)
	chats, err := f.chat.ListChats(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	chatID := chats[0].Chat.ID

	_, err = f.deploy.Deploy(ctx, DeployInput{UserID: user.ID, ChatID: chatID, Content: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.deploy.Deploy(ctx, DeployInput{UserID: user.ID, ChatID: 999, Content: "<html></html>"})
	assert.ErrorIs(t, err, ErrChatNotFound)
	_, err = f.deploy.Deploy(ctx, DeployInput{UserID: user.ID, ChatID: chatID, Content: "<html></html>"})
	assert.ErrorIs(t, err, ErrNothingToDeploy)

	f.chat.invoker = testutil.NewInvoker()
	_, err = f.chat.SendMessage(ctx, SendMessageInput{UserID: user.ID, ChatID: chatID, Text: "try again"})
	require.NoError(t, err)

	f.deploy.pages = brokenStore{}
	_, err = f.deploy.Deploy(ctx, DeployInput{UserID: user.ID, ChatID: chatID, Content: "<html></html>"})
	assert.ErrorIs(t, err, ErrDeployFailed)
	stored, err := f.chats.GetByID(chatID)
	require.NoError(t, err)
	assert.Equal(t, "", stored.PageURL)
}

func TestRecordPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.records.err = errors.New("channel closed")
	user := f.signup(t, "a@x.com")

	chat := f.createChat(t, user.ID)
	assert.NotZero(t, chat.ID)
	assert.Len(t, f.records.records, 1)
}
