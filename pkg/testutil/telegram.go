package testutil

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/questx-lab/referral/internal/client"
)

type SentMessage struct {
	ChatID   int64
	Text     string
	Choices  []client.Choice
	Prompt   bool
	Filename string
	Data     []byte
}

// MockTelegramCaller answers every account as a channel member without a
// profile photo unless the Func fields say otherwise. Sent messages are
// recorded in order and get increasing message ids.
type MockTelegramCaller struct {
	IsMemberFunc        func(ctx context.Context, channelID, accountID int64) (bool, error)
	HasProfilePhotoFunc func(ctx context.Context, accountID int64) (bool, error)
	SendErr             error

	mutex       sync.Mutex
	nextID      int
	Sent        []SentMessage
	Callbacks   []string
	MemberCalls int
	PhotoCalls  int
	updates     chan tgbotapi.Update
}

func NewMockTelegramCaller() *MockTelegramCaller {
	return &MockTelegramCaller{nextID: 1000, updates: make(chan tgbotapi.Update, 16)}
}

func (m *MockTelegramCaller) IsMember(ctx context.Context, channelID, accountID int64) (bool, error) {
	m.mutex.Lock()
	m.MemberCalls++
	m.mutex.Unlock()

	if m.IsMemberFunc != nil {
		return m.IsMemberFunc(ctx, channelID, accountID)
	}

	return true, nil
}

func (m *MockTelegramCaller) HasProfilePhoto(ctx context.Context, accountID int64) (bool, error) {
	m.mutex.Lock()
	m.PhotoCalls++
	m.mutex.Unlock()

	if m.HasProfilePhotoFunc != nil {
		return m.HasProfilePhotoFunc(ctx, accountID)
	}

	return false, nil
}

func (m *MockTelegramCaller) record(msg SentMessage) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.SendErr != nil {
		return 0, m.SendErr
	}

	m.nextID++
	m.Sent = append(m.Sent, msg)
	return m.nextID, nil
}

func (m *MockTelegramCaller) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	return m.record(SentMessage{ChatID: chatID, Text: text})
}

func (m *MockTelegramCaller) SendChoices(
	ctx context.Context, chatID int64, text string, choices []client.Choice,
) (int, error) {
	return m.record(SentMessage{ChatID: chatID, Text: text, Choices: choices})
}

func (m *MockTelegramCaller) SendPrompt(ctx context.Context, chatID int64, text string) (int, error) {
	return m.record(SentMessage{ChatID: chatID, Text: text, Prompt: true})
}

func (m *MockTelegramCaller) SendDocument(
	ctx context.Context, chatID int64, filename string, data []byte, caption string,
) error {
	_, err := m.record(SentMessage{ChatID: chatID, Text: caption, Filename: filename, Data: data})
	return err
}

func (m *MockTelegramCaller) AnswerCallback(ctx context.Context, callbackID, text string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Callbacks = append(m.Callbacks, callbackID)
	return nil
}

func (m *MockTelegramCaller) Updates(ctx context.Context) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *MockTelegramCaller) StopUpdates() {
	close(m.updates)
}

func (m *MockTelegramCaller) Username() string {
	return "referral_bot"
}

// Push queues an inbound update for the bot loop.
func (m *MockTelegramCaller) Push(u tgbotapi.Update) {
	m.updates <- u
}

// SentTo returns the messages delivered to chatID.
func (m *MockTelegramCaller) SentTo(chatID int64) []SentMessage {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	result := []SentMessage{}
	for _, msg := range m.Sent {
		if msg.ChatID == chatID {
			result = append(result, msg)
		}
	}

	return result
}

// LastID returns the id given to the latest sent message.
func (m *MockTelegramCaller) LastID() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.nextID
}
