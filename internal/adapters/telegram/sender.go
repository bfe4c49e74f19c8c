package telegram

import (
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gapwatch/internal/infra/metrics"
)

// API описывает используемую часть клиента Bot API.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Sender отправляет HTML-сообщения с разбиением по лимиту Telegram.
type Sender struct {
	api API
	log zerolog.Logger
}

// NewSender создаёт отправителя.
func NewSender(api API, logger zerolog.Logger) *Sender {
	return &Sender{api: api, log: logger}
}

// SendHTML отправляет текст частями; клавиатура прикрепляется к первой части.
func (s *Sender) SendHTML(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	for i, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if i == 0 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := s.api.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			s.log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram: не удалось отправить сообщение")
			return err
		}
	}
	return nil
}

// AnswerCallback подтверждает нажатие inline-кнопки.
func (s *Sender) AnswerCallback(callbackID, text string) error {
	start := time.Now()
	_, err := s.api.Request(tgbotapi.NewCallback(callbackID, text))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", "callback", start, err)
	if err != nil {
		s.log.Error().Err(err).Msg("telegram: не удалось ответить на callback")
	}
	return err
}
