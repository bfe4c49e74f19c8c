package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gapwatch/internal/domain"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

type fakeMessenger struct {
	sent      []sentMessage
	callbacks int
}

func (m *fakeMessenger) SendHTML(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (m *fakeMessenger) AnswerCallback(string, string) error {
	m.callbacks++
	return nil
}

func (m *fakeMessenger) last(t *testing.T) sentMessage {
	t.Helper()
	if len(m.sent) == 0 {
		t.Fatal("ответ не отправлен")
	}
	return m.sent[len(m.sent)-1]
}

type fakeSession struct {
	list      domain.RankedGapList
	err       error
	highlight bool
	rebuilds  int
	gapTitles map[string]bool
}

func (s *fakeSession) Ranked(context.Context) (domain.RankedGapList, error) {
	return s.list, s.err
}

func (s *fakeSession) Rebuild(context.Context) (domain.RankedGapList, error) {
	s.rebuilds++
	return s.list, s.err
}

func (s *fakeSession) IsGapTitle(_ context.Context, title string) (bool, error) {
	return s.gapTitles[title], s.err
}

func (s *fakeSession) SetHighlight(on bool) { s.highlight = on }

func (s *fakeSession) HighlightEnabled() bool { return s.highlight }

type fakeOutlets struct {
	outlets []domain.Outlet
}

func (o *fakeOutlets) List(context.Context) ([]domain.Outlet, error) { return o.outlets, nil }

func (o *fakeOutlets) SetEnabled(_ context.Context, id string, enabled bool) (domain.Outlet, error) {
	for i := range o.outlets {
		if o.outlets[i].ID == id {
			o.outlets[i].Enabled = enabled
			return o.outlets[i], nil
		}
	}
	return domain.Outlet{}, domain.ErrOutletNotFound
}

const adminID = 100

func newTestHandler() (*Handler, *fakeMessenger, *fakeSession, *fakeOutlets) {
	out := &fakeMessenger{}
	session := &fakeSession{highlight: true, gapTitles: map[string]bool{}}
	registry := &fakeOutlets{outlets: []domain.Outlet{
		{ID: "nyt", Name: "New York Times", Enabled: true},
		{ID: "wsj", Name: "Wall Street Journal", Enabled: false},
	}}
	return NewHandler(out, zerolog.Nop(), session, registry, []int64{adminID}, 10), out, session, registry
}

func message(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: 1},
		From: &tgbotapi.User{ID: userID},
	}}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
	}}
}

func TestSplitCommand(t *testing.T) {
	cmd, payload := splitCommand("  /Check@gapwatch_bot   Fed cuts rates ")
	if cmd != "/check" || payload != "Fed cuts rates" {
		t.Fatalf("неверный разбор: %q %q", cmd, payload)
	}
	cmd, payload = splitCommand("/gaps")
	if cmd != "/gaps" || payload != "" {
		t.Fatalf("неверный разбор: %q %q", cmd, payload)
	}
}

func TestGapsCommandFormatsList(t *testing.T) {
	h, out, session, _ := newTestHandler()
	session.list = domain.RankedGapList{Groups: []domain.GapGroup{{
		Title:      "Fed cuts rates",
		Link:       "https://example.com/fed",
		Publishers: []string{"NYT"},
		Stories:    []domain.Story{{Title: "Fed cuts rates", Link: "https://example.com/fed"}},
	}}}
	h.HandleUpdate(context.Background(), message(5, "/gaps"))
	if !strings.Contains(out.last(t).text, "Fed cuts rates") {
		t.Fatalf("в ответе нет группы: %s", out.last(t).text)
	}
}

func TestGapsCommandEmptySnapshot(t *testing.T) {
	h, out, session, _ := newTestHandler()
	session.err = domain.ErrEmptySnapshot
	h.HandleUpdate(context.Background(), message(5, "/gaps"))
	if !strings.Contains(out.last(t).text, "не загружен") {
		t.Fatalf("неожиданный ответ: %s", out.last(t).text)
	}
}

func TestCheckCommand(t *testing.T) {
	h, out, session, _ := newTestHandler()
	session.gapTitles["Fed cuts rates"] = true

	h.HandleUpdate(context.Background(), message(5, "/check Fed cuts rates"))
	if !strings.Contains(out.last(t).text, "входит в верхние") {
		t.Fatalf("ожидали положительный ответ: %s", out.last(t).text)
	}

	h.HandleUpdate(context.Background(), message(5, "/check Local team wins"))
	if !strings.Contains(out.last(t).text, "не относится") {
		t.Fatalf("ожидали отрицательный ответ: %s", out.last(t).text)
	}

	session.highlight = false
	h.HandleUpdate(context.Background(), message(5, "/check Fed cuts rates"))
	if !strings.Contains(out.last(t).text, "отключена") {
		t.Fatalf("ожидали сообщение об отключенной подсветке: %s", out.last(t).text)
	}
}

func TestHighlightRequiresAdmin(t *testing.T) {
	h, out, session, _ := newTestHandler()

	h.HandleUpdate(context.Background(), message(5, "/highlight off"))
	if !session.highlight {
		t.Fatal("обычный пользователь не должен менять подсветку")
	}
	if !strings.Contains(out.last(t).text, "Недостаточно прав") {
		t.Fatalf("неожиданный ответ: %s", out.last(t).text)
	}

	h.HandleUpdate(context.Background(), message(adminID, "/highlight off"))
	if session.highlight {
		t.Fatal("администратор должен выключить подсветку")
	}
}

func TestRefreshRebuildsForAdmin(t *testing.T) {
	h, _, session, _ := newTestHandler()
	h.HandleUpdate(context.Background(), message(5, "/refresh"))
	h.HandleUpdate(context.Background(), message(adminID, "/refresh"))
	if session.rebuilds != 1 {
		t.Fatalf("ожидали одну пересборку, получили %d", session.rebuilds)
	}
}

func TestOutletCallbacks(t *testing.T) {
	h, out, _, registry := newTestHandler()

	h.HandleUpdate(context.Background(), message(5, "/outlets"))
	if out.last(t).keyboard != nil {
		t.Fatal("обычному пользователю кнопки управления не показываются")
	}

	h.HandleUpdate(context.Background(), callback(adminID, "enable:wsj"))
	if !registry.outlets[1].Enabled {
		t.Fatal("издание должно быть включено")
	}
	last := out.last(t)
	if last.keyboard == nil || !strings.Contains(last.text, "Wall Street Journal") {
		t.Fatalf("ожидали обновлённый список с кнопками: %s", last.text)
	}

	h.HandleUpdate(context.Background(), callback(5, "disable:nyt"))
	if !registry.outlets[0].Enabled {
		t.Fatal("обычный пользователь не должен выключать издания")
	}

	h.HandleUpdate(context.Background(), callback(adminID, "disable:bbc"))
	if !strings.Contains(out.last(t).text, "не найдено") {
		t.Fatalf("неожиданный ответ: %s", out.last(t).text)
	}
	if out.callbacks != 3 {
		t.Fatalf("каждый callback должен подтверждаться, получили %d", out.callbacks)
	}
}
