package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/types"
)

// memStore is an in-memory stand-in for the storage layer. It backs the
// conversation repo, the message repo, and the favorability repo so one
// harness covers the whole exchange.
type memStore struct {
	mu        sync.Mutex
	conv      *types.Conversation
	messages  []types.Message
	state     *favorability.State
	nextMsgID int
	// failAppendAfter makes the Nth append and later fail; 0 disables.
	failAppendAfter int
	appends         int
}

func newMemStore() *memStore {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return &memStore{
		conv: &types.Conversation{
			ID:          7,
			SessionID:   "session-7",
			UserID:      1,
			CharacterID: 2,
			CreatedAt:   now,
		},
		state: &favorability.State{
			ConversationID: 7,
			CurrentLevel:   favorability.LevelUnfamiliar,
		},
	}
}

func (m *memStore) GetByParticipants(ctx context.Context, userID, characterID int) (*types.Conversation, error) {
	if m.conv == nil || m.conv.UserID != userID || m.conv.CharacterID != characterID {
		return nil, fmt.Errorf("conversation for user %d and character %d: %w", userID, characterID, types.ErrNotFound)
	}
	copied := *m.conv
	return &copied, nil
}

func (m *memStore) Append(ctx context.Context, msg *types.Message, embedding []float32) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.failAppendAfter > 0 && m.appends >= m.failAppendAfter {
		return 0, errors.New("disk full")
	}
	m.nextMsgID++
	stored := *msg
	stored.ID = m.nextMsgID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(m.nextMsgID) * time.Minute)
	}
	m.messages = append(m.messages, stored)
	return stored.ID, nil
}

func (m *memStore) ListRecent(ctx context.Context, conversationID, limit int) ([]types.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Message
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if m.messages[i].ConversationID == conversationID {
			out = append(out, m.messages[i])
		}
	}
	return out, nil
}

func (m *memStore) Get(ctx context.Context, conversationID int) (*favorability.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil || m.state.ConversationID != conversationID {
		return nil, fmt.Errorf("favorability record for conversation %d: %w", conversationID, types.ErrNotFound)
	}
	copied := *m.state
	return &copied, nil
}

func (m *memStore) Update(ctx context.Context, state *favorability.State, expectedCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.MessageCount != expectedCount {
		return fmt.Errorf("stale favorability update: have %d, expected %d", m.state.MessageCount, expectedCount)
	}
	copied := *state
	m.state = &copied
	return nil
}

func (m *memStore) FirstMessageAt(ctx context.Context, conversationID int) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			return msg.CreatedAt, true, nil
		}
	}
	return time.Time{}, false, nil
}

type fakeCharacterRepo struct{ character *types.Character }

func (r *fakeCharacterRepo) GetByID(ctx context.Context, id int) (*types.Character, error) {
	if r.character == nil || r.character.ID != id {
		return nil, fmt.Errorf("character %d: %w", id, types.ErrNotFound)
	}
	return r.character, nil
}

type fakeUserRepo struct{ user *types.User }

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*types.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	return r.user, nil
}

type fakeResponder struct {
	mu      sync.Mutex
	err     error
	calls   int
	lastReq ReplyRequest
}

func (r *fakeResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastReq = req
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("回覆 #%d", r.calls), nil
}

func newTestService(store *memStore, responder *fakeResponder) *Service {
	tracker := favorability.NewTracker(store, favorability.DefaultConfig())
	characters := &fakeCharacterRepo{character: &types.Character{ID: 2, UserID: 1, Name: "小雨", Gender: "女"}}
	users := &fakeUserRepo{user: &types.User{ID: 1, Username: "阿明"}}
	return NewService(store, store, characters, users, tracker, responder)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeResponder{})

	_, err := svc.SendMessage(context.Background(), 99, 2, "你好")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendMessageEmptyText(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeResponder{})

	if _, err := svc.SendMessage(context.Background(), 1, 2, "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSendMessageProgressionScenario(t *testing.T) {
	store := newMemStore()
	responder := &fakeResponder{}
	svc := newTestService(store, responder)
	ctx := context.Background()

	// 19 exchanges stay at level 1 with no flags.
	for i := 1; i <= 19; i++ {
		reply, err := svc.SendMessage(ctx, 1, 2, fmt.Sprintf("訊息 %d", i))
		if err != nil {
			t.Fatalf("exchange %d failed: %v", i, err)
		}
		if reply.Level != favorability.LevelUnfamiliar || reply.LevelIncreased {
			t.Fatalf("exchange %d: expected level 1 without increase, got %+v", i, reply)
		}
		if reply.MilestoneReached || reply.AnniversaryReached {
			t.Fatalf("exchange %d: unexpected flags: %+v", i, reply)
		}
		if reply.MessageCount != i {
			t.Fatalf("exchange %d: expected count %d, got %d", i, i, reply.MessageCount)
		}
	}

	// The 20th crosses into level 2.
	reply, err := svc.SendMessage(ctx, 1, 2, "訊息 20")
	if err != nil {
		t.Fatalf("exchange 20 failed: %v", err)
	}
	if reply.Level != favorability.LevelFamiliar || !reply.LevelIncreased {
		t.Fatalf("expected level 2 with increase at count 20, got %+v", reply)
	}

	// Continue to 50: level 3 plus the 50-message milestone.
	for i := 21; i <= 50; i++ {
		reply, err = svc.SendMessage(ctx, 1, 2, fmt.Sprintf("訊息 %d", i))
		if err != nil {
			t.Fatalf("exchange %d failed: %v", i, err)
		}
	}
	if reply.Level != favorability.LevelIntimate {
		t.Fatalf("expected level 3 at count 50, got %d", reply.Level)
	}
	if !reply.MilestoneReached || reply.MilestoneNumber != 50 {
		t.Fatalf("expected milestone 50, got %+v", reply)
	}
	if reply.LevelName != "親密期" {
		t.Fatalf("unexpected level name %q", reply.LevelName)
	}
}

func TestSendMessageStampsLevels(t *testing.T) {
	store := newMemStore()
	store.state.MessageCount = 19
	store.state.CurrentLevel = favorability.LevelUnfamiliar
	svc := newTestService(store, &fakeResponder{})

	if _, err := svc.SendMessage(context.Background(), 1, 2, "你好"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if len(store.messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(store.messages))
	}
	userMsg, charMsg := store.messages[0], store.messages[1]
	if userMsg.Speaker != types.SpeakerUser || userMsg.FavorabilityLevel != 1 {
		t.Fatalf("user message stamped incorrectly: %+v", userMsg)
	}
	// The exchange crossed the threshold, so the reply carries level 2.
	if charMsg.Speaker != types.SpeakerCharacter || charMsg.FavorabilityLevel != 2 {
		t.Fatalf("character message stamped incorrectly: %+v", charMsg)
	}
}

func TestSendMessageResponderFailure(t *testing.T) {
	store := newMemStore()
	responder := &fakeResponder{err: errors.New("connection timed out")}
	svc := newTestService(store, responder)

	_, err := svc.SendMessage(context.Background(), 1, 2, "你好")
	if !errors.Is(err, types.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	// The user message stays; nothing else moved.
	if len(store.messages) != 1 || store.messages[0].Speaker != types.SpeakerUser {
		t.Fatalf("expected only the user message stored, got %+v", store.messages)
	}
	if store.state.MessageCount != 0 {
		t.Fatalf("expected message count unchanged, got %d", store.state.MessageCount)
	}
}

func TestSendMessageReplyAppendFailureIsPersistenceError(t *testing.T) {
	store := newMemStore()
	store.failAppendAfter = 2 // user append succeeds, reply append fails
	svc := newTestService(store, &fakeResponder{})

	_, err := svc.SendMessage(context.Background(), 1, 2, "你好")
	if !errors.Is(err, types.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestSendMessageResponderSeesPriorHistory(t *testing.T) {
	store := newMemStore()
	responder := &fakeResponder{}
	svc := newTestService(store, responder)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, 1, 2, "第一句"); err != nil {
		t.Fatalf("first exchange failed: %v", err)
	}
	if _, err := svc.SendMessage(ctx, 1, 2, "第二句"); err != nil {
		t.Fatalf("second exchange failed: %v", err)
	}

	req := responder.lastReq
	if req.UserText != "第二句" {
		t.Fatalf("unexpected user text %q", req.UserText)
	}
	// History excludes the just-appended user message and is chronological.
	if len(req.History) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(req.History))
	}
	if req.History[0].Content != "第一句" || req.History[1].Speaker != types.SpeakerCharacter {
		t.Fatalf("history out of order: %+v", req.History)
	}
}

func TestSendMessageConcurrentSameConversation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeResponder{})
	ctx := context.Background()

	const callers = 25
	var wg sync.WaitGroup
	errCh := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := svc.SendMessage(ctx, 1, 2, fmt.Sprintf("並發 %d", n)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent SendMessage failed: %v", err)
	}

	if store.state.MessageCount != callers {
		t.Fatalf("lost updates: expected count %d, got %d", callers, store.state.MessageCount)
	}
	if len(store.messages) != callers*2 {
		t.Fatalf("expected %d stored messages, got %d", callers*2, len(store.messages))
	}
}

func TestFavorabilityStatusProgress(t *testing.T) {
	store := newMemStore()
	store.state.MessageCount = 35
	store.state.CurrentLevel = favorability.LevelFamiliar
	svc := newTestService(store, &fakeResponder{})

	status, err := svc.FavorabilityStatus(context.Background(), 1, 2, favorability.DefaultConfig())
	if err != nil {
		t.Fatalf("FavorabilityStatus failed: %v", err)
	}
	if status.Level != favorability.LevelFamiliar || status.LevelName != "熟悉期" {
		t.Fatalf("unexpected level: %+v", status)
	}
	if status.ProgressPercent != 50.0 {
		t.Fatalf("expected 50%% progress, got %v", status.ProgressPercent)
	}
	if status.NextLevelAt == nil || *status.NextLevelAt != 50 {
		t.Fatalf("expected next level at 50, got %v", status.NextLevelAt)
	}
}

func TestFavorabilityStatusFinalLevel(t *testing.T) {
	store := newMemStore()
	store.state.MessageCount = 80
	store.state.CurrentLevel = favorability.LevelIntimate
	svc := newTestService(store, &fakeResponder{})

	status, err := svc.FavorabilityStatus(context.Background(), 1, 2, favorability.DefaultConfig())
	if err != nil {
		t.Fatalf("FavorabilityStatus failed: %v", err)
	}
	if status.ProgressPercent != 100 || status.NextLevelAt != nil {
		t.Fatalf("expected completed progress, got %+v", status)
	}
}

func TestConversationSummary(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeResponder{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.SendMessage(ctx, 1, 2, "哈囉"); err != nil {
			t.Fatalf("exchange failed: %v", err)
		}
	}

	summary, err := svc.ConversationSummary(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ConversationSummary failed: %v", err)
	}
	if summary.TotalMessages != 6 || summary.UserMessages != 3 || summary.CharacterMessages != 3 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.ConversationDays != 1 {
		t.Fatalf("expected 1 conversation day, got %d", summary.ConversationDays)
	}
	if summary.FirstMessageAt == nil || summary.LastMessageAt == nil {
		t.Fatal("expected first/last message times")
	}
}
