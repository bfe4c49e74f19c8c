package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gapwatch/internal/adapters/telegram"
	"gapwatch/internal/domain"
	"gapwatch/internal/usecase/gaps"
	"gapwatch/internal/usecase/outlets"
)

// Messenger отправляет ответы пользователю.
type Messenger interface {
	SendHTML(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string) error
}

// GapSession описывает кэшированный список пробелов.
type GapSession interface {
	Ranked(ctx context.Context) (domain.RankedGapList, error)
	Rebuild(ctx context.Context) (domain.RankedGapList, error)
	IsGapTitle(ctx context.Context, title string) (bool, error)
	SetHighlight(on bool)
	HighlightEnabled() bool
}

// OutletManager управляет списком изданий.
type OutletManager interface {
	List(ctx context.Context) ([]domain.Outlet, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (domain.Outlet, error)
}

var (
	_ Messenger     = (*telegram.Sender)(nil)
	_ GapSession    = (*gaps.Service)(nil)
	_ OutletManager = (*outlets.Service)(nil)
)

// Handler обслуживает вебхук бота.
type Handler struct {
	out      Messenger
	log      zerolog.Logger
	gaps     GapSession
	outlets  OutletManager
	adminIDs []int64
	topN     int
}

// NewHandler создаёт обработчик.
func NewHandler(out Messenger, log zerolog.Logger, gapUC GapSession, outletUC OutletManager, adminIDs []int64, topN int) *Handler {
	return &Handler{
		out:      out,
		log:      log,
		gaps:     gapUC,
		outlets:  outletUC,
		adminIDs: adminIDs,
		topN:     topN,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	command, payload := splitCommand(msg.Text)
	switch command {
	case "/start":
		h.reply(chatID, buildStartMessage(), mainKeyboard())
	case "/help":
		h.reply(chatID, buildHelpMessage(), mainKeyboard())
	case "/gaps":
		h.handleGaps(ctx, chatID)
	case "/check":
		h.handleCheck(ctx, chatID, payload)
	case "/outlets":
		h.handleOutlets(ctx, chatID, userID)
	case "/highlight":
		h.handleHighlight(chatID, userID, payload)
	case "/refresh":
		h.handleRefresh(ctx, chatID, userID)
	default:
		h.reply(chatID, "Неизвестная команда. Используйте /help", nil)
	}
}

// splitCommand отделяет команду (без @botname) от аргументов.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	command, payload, _ := strings.Cut(text, " ")
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(payload)
}

func (h *Handler) handleGaps(ctx context.Context, chatID int64) {
	list, err := h.gaps.Ranked(ctx)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, gaps.FormatRankedGaps(list, h.topN), nil)
}

func (h *Handler) handleCheck(ctx context.Context, chatID int64, title string) {
	if title == "" {
		h.reply(chatID, "Укажите заголовок: /check Fed cuts rates again", nil)
		return
	}
	if !h.gaps.HighlightEnabled() {
		h.reply(chatID, "Подсветка пробелов отключена. Включите её командой /highlight on", nil)
		return
	}
	gap, err := h.gaps.IsGapTitle(ctx, title)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, gaps.FormatMembership(title, gap), nil)
}

func (h *Handler) handleOutlets(ctx context.Context, chatID, userID int64) {
	list, err := h.outlets.List(ctx)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	var keyboard *tgbotapi.InlineKeyboardMarkup
	if h.role(userID).CanManageOutlets() {
		keyboard = outletsKeyboard(list)
	}
	h.reply(chatID, buildOutletsMessage(list), keyboard)
}

func (h *Handler) handleToggle(ctx context.Context, chatID, userID int64, id string, enabled bool) {
	if !h.role(userID).CanManageOutlets() {
		h.reply(chatID, "Недостаточно прав для изменения списка изданий", nil)
		return
	}
	outlet, err := h.outlets.SetEnabled(ctx, id, enabled)
	if err != nil {
		if errors.Is(err, domain.ErrOutletNotFound) {
			h.reply(chatID, "Издание не найдено", nil)
			return
		}
		h.replyError(chatID, err)
		return
	}
	h.log.Info().Str("outlet", outlet.ID).Bool("enabled", enabled).Int64("user_id", userID).Msg("bot: изменён статус издания")
	h.handleOutlets(ctx, chatID, userID)
}

func (h *Handler) handleHighlight(chatID, userID int64, payload string) {
	var on bool
	switch strings.ToLower(payload) {
	case "on", "вкл":
		on = true
	case "off", "выкл":
		on = false
	case "":
		state := "выключена"
		if h.gaps.HighlightEnabled() {
			state = "включена"
		}
		h.reply(chatID, fmt.Sprintf("Подсветка пробелов %s. Используйте /highlight on|off", state), nil)
		return
	default:
		h.reply(chatID, "Используйте /highlight on или /highlight off", nil)
		return
	}
	if !h.role(userID).CanManageOutlets() {
		h.reply(chatID, "Недостаточно прав для изменения настроек", nil)
		return
	}
	h.gaps.SetHighlight(on)
	if on {
		h.reply(chatID, "Подсветка пробелов включена", nil)
		return
	}
	h.reply(chatID, "Подсветка пробелов выключена", nil)
}

func (h *Handler) handleRefresh(ctx context.Context, chatID, userID int64) {
	if !h.role(userID).CanManageOutlets() {
		h.reply(chatID, "Недостаточно прав для пересборки", nil)
		return
	}
	list, err := h.gaps.Rebuild(ctx)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, gaps.FormatRankedGaps(list, h.topN), nil)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	data := cb.Data
	switch {
	case data == "gaps":
		h.handleGaps(ctx, chatID)
	case data == "outlets":
		h.handleOutlets(ctx, chatID, userID)
	case data == "help_menu":
		h.reply(chatID, buildHelpMessage(), mainKeyboard())
	case strings.HasPrefix(data, "enable:"):
		h.handleToggle(ctx, chatID, userID, strings.TrimPrefix(data, "enable:"), true)
	case strings.HasPrefix(data, "disable:"):
		h.handleToggle(ctx, chatID, userID, strings.TrimPrefix(data, "disable:"), false)
	}
	_ = h.out.AnswerCallback(cb.ID, "")
}

func (h *Handler) role(userID int64) domain.UserRole {
	return domain.RoleForUser(h.adminIDs, userID)
}

func (h *Handler) replyError(chatID int64, err error) {
	if errors.Is(err, domain.ErrEmptySnapshot) {
		h.reply(chatID, "Эталонный список ещё не загружен. Попробуйте позже.", nil)
		return
	}
	h.log.Error().Err(err).Msg("bot: ошибка обработки команды")
	h.reply(chatID, "Не удалось выполнить команду, попробуйте позже", nil)
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if err := h.out.SendHTML(chatID, text, keyboard); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("bot: ответ не отправлен")
	}
}

func mainKeyboard() *tgbotapi.InlineKeyboardMarkup {
	buttons := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕳 Пробелы", "gaps"),
			tgbotapi.NewInlineKeyboardButtonData("📰 Издания", "outlets"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Помощь", "help_menu"),
		),
	)
	return &buttons
}

func outletsKeyboard(list []domain.Outlet) *tgbotapi.InlineKeyboardMarkup {
	if len(list) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for _, o := range list {
		label, data := "✅ "+o.Name, "disable:"+o.ID
		if !o.Enabled {
			label, data = "▫️ "+o.Name, "enable:"+o.ID
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func buildOutletsMessage(list []domain.Outlet) string {
	if len(list) == 0 {
		return "Список изданий пуст"
	}
	lines := []string{"📰 <b>Издания</b>", ""}
	for _, o := range list {
		status := "выключено"
		if o.Enabled {
			status = "включено"
		}
		lines = append(lines, fmt.Sprintf("• %s (<code>%s</code>) — %s, лент: %d", html.EscapeString(o.Name), o.ID, status, len(o.Feeds)))
	}
	return strings.Join(lines, "\n")
}

func buildStartMessage() string {
	lines := []string{
		"👋 Добро пожаловать в Gapwatch!",
		"",
		"Бот сравнивает эталонный список главных новостей с лентами изданий и показывает истории, которые ни одно издание не осветило.",
		"",
		"1. 🕳 Пробелы — кнопка \"Пробелы\" или команда /gaps.",
		"2. 🔎 Проверить заголовок — /check Fed cuts rates again.",
		"3. 📰 Список изданий — /outlets.",
		"",
		"Под кнопкой \"ℹ️ Помощь\" вы найдёте полный список команд.",
	}
	return strings.Join(lines, "\n")
}

func buildHelpMessage() string {
	sections := []string{
		"📖 Команды:",
		"",
		"• /gaps — верхние пробелы в покрытии.",
		"• /check &lt;заголовок&gt; — входит ли заголовок в верхние пробелы.",
		"• /outlets — издания и их статус.",
		"",
		"Для администраторов:",
		"• /highlight on|off — включить или выключить подсветку пробелов.",
		"• /refresh — пересобрать список немедленно.",
		"• Кнопки под /outlets включают и выключают издания.",
	}
	return strings.Join(sections, "\n")
}
