package players

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/features/auth"
)

// memStore эмулирует уникальные индексы players: занятый username даёт ErrUsernameTaken,
// занятый telegram_chat_id - common.ErrConflict.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	players map[int64]*Player
	creates int
}

func newMemStore() *memStore {
	return &memStore{players: make(map[int64]*Player)}
}

func clonePlayer(p *Player) *Player {
	c := *p
	if p.TelegramChatID != nil {
		id := *p.TelegramChatID
		c.TelegramChatID = &id
	}
	return &c
}

func (m *memStore) Create(_ context.Context, p *Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.players {
		if strings.EqualFold(existing.Username, p.Username) {
			return ErrUsernameTaken
		}
		if p.TelegramChatID != nil && existing.TelegramChatID != nil && *existing.TelegramChatID == *p.TelegramChatID {
			return common.ErrConflict
		}
	}
	m.nextID++
	m.creates++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	m.players[p.ID] = clonePlayer(p)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[id]; ok {
		return clonePlayer(p), nil
	}
	return nil, common.NotFound("id=%d", id)
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if strings.EqualFold(p.Username, username) {
			return clonePlayer(p), nil
		}
	}
	return nil, common.NotFound("username=%s", username)
}

func (m *memStore) GetByChatID(_ context.Context, chatID int64) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.TelegramChatID != nil && *p.TelegramChatID == chatID {
			return clonePlayer(p), nil
		}
	}
	return nil, common.NotFound("chat_id=%d", chatID)
}

func (m *memStore) LinkChat(_ context.Context, telegramUsername string, chatID int64) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var target *Player
	for _, p := range m.players {
		if p.TelegramChatID == nil && p.TelegramUsername != "" && strings.EqualFold(p.TelegramUsername, telegramUsername) {
			if target == nil || p.ID < target.ID {
				target = p
			}
		}
	}
	if target == nil {
		return nil, common.NotFound("telegram_username=%s", telegramUsername)
	}
	for _, p := range m.players {
		if p.ID != target.ID && p.TelegramChatID != nil && *p.TelegramChatID == chatID {
			return nil, common.ErrConflict
		}
	}
	target.TelegramChatID = &chatID
	return clonePlayer(target), nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

type fakeSessions struct {
	mu       sync.Mutex
	locked   bool
	attempts []bool
}

func (f *fakeSessions) CheckLockout(context.Context, string) error {
	if f.locked {
		return common.ErrTooManyAttempts
	}
	return nil
}

func (f *fakeSessions) RecordAttempt(_ context.Context, _ string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, success)
}

func (f *fakeSessions) StartSession(_ context.Context, playerID int64) (*auth.TokenPair, error) {
	return &auth.TokenPair{Refresh: "refresh", Access: "access"}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	emails []string
}

func (f *fakeNotifier) Welcome(email, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
}

var testDefaults = Defaults{Balance: decimal.NewFromInt(1000), Level: 1}

func newTestService() (*Service, *memStore, *fakeSessions, *fakeNotifier) {
	store := newMemStore()
	sessions := &fakeSessions{}
	notifier := &fakeNotifier{}
	return NewService(store, sessions, notifier, testDefaults), store, sessions, notifier
}

func TestResolveCreatesAccountOnceAndReturnsItAfterwards(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	id := ChatIdentity{ChatID: 555, UserID: 555, Username: "ghost", FirstName: "Simon"}

	first, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, id)
	require.NoError(t, err)
	require.Equal(t, LinkCreated, outcome)
	require.Equal(t, "cod_ghost_555", first.Username)
	require.True(t, first.Coins.Equal(decimal.NewFromInt(1000)))
	require.Equal(t, 1, first.Level)

	second, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, id)
	require.NoError(t, err)
	require.Equal(t, LinkExisting, outcome)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, store.count())
}

func TestResolveLinksWebAccountByTelegramUsername(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	web := &Player{Username: "soap", TelegramUsername: "SoapMacTavish", Coins: decimal.NewFromInt(250), Level: 3}
	require.NoError(t, store.Create(ctx, web))

	linked, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{
		ChatID: 77, UserID: 77, Username: "soapmactavish", FirstName: "John",
	})
	require.NoError(t, err)
	require.Equal(t, LinkAttached, outcome)
	require.Equal(t, web.ID, linked.ID)
	require.NotNil(t, linked.TelegramChatID)
	require.EqualValues(t, 77, *linked.TelegramChatID)

	again, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 77, UserID: 77})
	require.NoError(t, err)
	require.Equal(t, LinkExisting, outcome)
	require.Equal(t, web.ID, again.ID)
	require.Equal(t, 1, store.count())
}

func TestResolveUsesFirstNameWithoutUsername(t *testing.T) {
	svc, _, _, _ := newTestService()

	p, outcome, err := svc.ResolveOrCreateLinkedAccount(context.Background(), ChatIdentity{
		ChatID: 9, UserID: 9, FirstName: "Price",
	})
	require.NoError(t, err)
	require.Equal(t, LinkCreated, outcome)
	require.Equal(t, "cod_Price_9", p.Username)
	require.Equal(t, "Price", p.TelegramUsername)
}

func TestResolveKeepsNamesakesOnSeparateAccounts(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	first, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 100, UserID: 100, FirstName: "Ivan"})
	require.NoError(t, err)
	require.Equal(t, LinkCreated, outcome)

	second, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 200, UserID: 200, FirstName: "Ivan"})
	require.NoError(t, err)
	require.Equal(t, LinkCreated, outcome)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, store.count())

	byFirst, err := svc.GetByChatID(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, first.ID, byFirst.ID)

	bySecond, err := svc.GetByChatID(ctx, 200)
	require.NoError(t, err)
	require.Equal(t, second.ID, bySecond.ID)
}

func TestResolveDoesNotTakeOverLinkedWebAccount(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	owner := int64(10)
	web := &Player{Username: "soap", TelegramUsername: "soap", TelegramChatID: &owner, Coins: decimal.NewFromInt(900)}
	require.NoError(t, store.Create(ctx, web))

	p, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 11, UserID: 11, Username: "soap"})
	require.NoError(t, err)
	require.Equal(t, LinkCreated, outcome)
	require.NotEqual(t, web.ID, p.ID)

	stillOwner, err := svc.GetByChatID(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, web.ID, stillOwner.ID)
	require.True(t, stillOwner.Coins.Equal(decimal.NewFromInt(900)))
}

func TestResolvePicksFreeUsernameWhenTaken(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Player{Username: "cod_ghost_42"}))

	p, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 42, UserID: 42, Username: "ghost"})
	require.NoError(t, err)
	require.Equal(t, LinkCreated, outcome)
	require.Equal(t, "cod_ghost_42_2", p.Username)

	again, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 42, UserID: 42, Username: "ghost"})
	require.NoError(t, err)
	require.Equal(t, LinkExisting, outcome)
	require.Equal(t, p.ID, again.ID)
}

func TestResolveGivesUpAfterUsernameAttempts(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Player{Username: "cod_ghost_7"}))
	for i := 2; i <= maxUsernameAttempts; i++ {
		require.NoError(t, store.Create(ctx, &Player{Username: fmt.Sprintf("cod_ghost_7_%d", i)}))
	}

	_, _, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 7, UserID: 7, Username: "ghost"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterDoesNotBindChat(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	web, _, err := svc.Register(ctx, RegisterInput{
		Username:         "soap",
		Password:         "bravo-six",
		PasswordConfirm:  "bravo-six",
		TelegramUsername: "@SoapMac",
	})
	require.NoError(t, err)
	require.Nil(t, web.TelegramChatID)
	require.Equal(t, "SoapMac", web.TelegramUsername)

	linked, outcome, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 5, UserID: 5, Username: "soapmac"})
	require.NoError(t, err)
	require.Equal(t, LinkAttached, outcome)
	require.Equal(t, web.ID, linked.ID)
}

func TestResolveConcurrentFirstContactCreatesOneAccount(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	id := ChatIdentity{ChatID: 4242, UserID: 4242, Username: "ghost"}

	const workers = 16
	ids := make([]int64, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := svc.ResolveOrCreateLinkedAccount(ctx, id)
			errs[i] = err
			if err == nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, store.count())
	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"short username", RegisterInput{Username: "ab", Password: "password1", PasswordConfirm: "password1"}},
		{"bad chars", RegisterInput{Username: "no spaces", Password: "password1", PasswordConfirm: "password1"}},
		{"short password", RegisterInput{Username: "price", Password: "short", PasswordConfirm: "short"}},
		{"mismatch", RegisterInput{Username: "price", Password: "password1", PasswordConfirm: "password2"}},
		{"bad email", RegisterInput{Username: "price", Email: "nope", Password: "password1", PasswordConfirm: "password1"}},
		{"bot prefix", RegisterInput{Username: "cod_ghost_42", Password: "password1", PasswordConfirm: "password1"}},
		{"bot prefix upper", RegisterInput{Username: "COD_ghost", Password: "password1", PasswordConfirm: "password1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, _ := newTestService()
			_, _, err := svc.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, common.ErrInvalidArgument)
			require.Zero(t, store.count())
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store, sessions, notifier := newTestService()
	ctx := context.Background()

	player, tokens, err := svc.Register(ctx, RegisterInput{
		Username:        "price",
		Email:           "price@tf141.example",
		Password:        "bravo-six",
		PasswordConfirm: "bravo-six",
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)
	require.True(t, player.Coins.Equal(decimal.NewFromInt(1000)))
	require.True(t, player.HasPassword())
	require.Equal(t, []string{"price@tf141.example"}, notifier.emails)

	_, _, err = svc.Register(ctx, RegisterInput{
		Username: "PRICE", Password: "bravo-six", PasswordConfirm: "bravo-six",
	})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
	require.Equal(t, 1, store.count())

	_, _, err = svc.Login(ctx, "price", "wrong-password")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "nobody", "bravo-six")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	loggedIn, tokens, err := svc.Login(ctx, "price", "bravo-six")
	require.NoError(t, err)
	require.Equal(t, player.ID, loggedIn.ID)
	require.Equal(t, "access", tokens.Access)
	require.Equal(t, []bool{false, false, true}, sessions.attempts)

	sessions.locked = true
	_, _, err = svc.Login(ctx, "price", "bravo-six")
	require.ErrorIs(t, err, common.ErrTooManyAttempts)
}

func TestLoginRejectsBotAccountWithoutPassword(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p, _, err := svc.ResolveOrCreateLinkedAccount(ctx, ChatIdentity{ChatID: 1, UserID: 1, Username: "roach"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, p.Username, "")
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	_, _, err = svc.Login(ctx, p.Username, "anything-at-all")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, msg.Text)
	}
	return tgbotapi.Message{}, f.err
}

func TestHandlersStartAndProfile(t *testing.T) {
	svc, _, _, _ := newTestService()
	sender := &fakeSender{}
	h := NewHandler(svc, sender)
	ctx := context.Background()

	h.HandleProfile(ctx, 31)
	require.Equal(t, NotLinkedText, sender.texts[0])

	h.HandleStart(ctx, 31, &tgbotapi.User{ID: 31, UserName: "gaz", FirstName: "Kyle"})
	require.Contains(t, sender.texts[1], "cod_gaz_31")
	require.Contains(t, sender.texts[1], "1000 монет")

	h.HandleStart(ctx, 31, &tgbotapi.User{ID: 31, UserName: "gaz"})
	require.Contains(t, sender.texts[2], "С возвращением, cod_gaz_31")

	h.HandleProfile(ctx, 31)
	require.Contains(t, sender.texts[3], "Логин: cod_gaz_31")
	require.Contains(t, sender.texts[3], "Имя: Kyle")
}

func TestHandleStartReportsStoreFailure(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(NewService(failingStore{newMemStore()}, &fakeSessions{}, nil, testDefaults), sender)

	h.HandleStart(context.Background(), 5, &tgbotapi.User{ID: 5, UserName: "x"})
	require.Len(t, sender.texts, 1)
	require.Contains(t, sender.texts[0], "Не удалось")
}

type failingStore struct{ *memStore }

var errDown = errors.New("db down")

func (failingStore) GetByChatID(context.Context, int64) (*Player, error) { return nil, errDown }

func (m *memStore) GrantStaff(_ context.Context, playerID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return common.NotFound("id=%d", playerID)
	}
	p.IsStaff = true
	p.PasswordHash = passwordHash
	return nil
}

func TestEnsureStaffCreatesAccount(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	p, created, err := EnsureStaff(ctx, store, "admin", "admin@example.com", "supersecret", testDefaults)
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, p.IsStaff)
	require.True(t, auth.VerifyPassword("supersecret", p.PasswordHash))

	stored, err := store.GetByUsername(ctx, "ADMIN")
	require.NoError(t, err)
	require.True(t, stored.IsStaff)
}

func TestEnsureStaffPromotesExisting(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Create(ctx, &Player{Username: "ghost", Coins: decimal.NewFromInt(5)}))

	p, created, err := EnsureStaff(ctx, store, "ghost", "", "newpassword", testDefaults)
	require.NoError(t, err)
	require.False(t, created)
	require.True(t, p.IsStaff)
	require.Equal(t, 1, store.count())

	stored, err := store.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	require.True(t, stored.IsStaff)
	require.True(t, auth.VerifyPassword("newpassword", stored.PasswordHash))
	require.True(t, stored.Coins.Equal(decimal.NewFromInt(5)))
}

func TestEnsureStaffValidates(t *testing.T) {
	store := newMemStore()

	_, _, err := EnsureStaff(context.Background(), store, "a", "", "supersecret", testDefaults)
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	_, _, err = EnsureStaff(context.Background(), store, "admin", "", "short", testDefaults)
	require.ErrorIs(t, err, common.ErrInvalidArgument)
	require.Zero(t, store.count())
}
