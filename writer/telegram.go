package writer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

// TelegramNotifier pushes a run summary to a chat. Construction fails only on
// bad credentials; a send failure is reported to the caller and never aborts
// the run that produced the results.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *logger.Log
}

func NewTelegramNotifier(cfg appconfig.TelegramConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id '%s': %w", cfg.ChatID, err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		log:    logger.GetLogger(),
	}, nil
}

// NotifyTopMovers sends the ranked top movers for a run date.
func (n *TelegramNotifier) NotifyTopMovers(date time.Time, table models.ResultTable, topN int, failures int) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatTopMoversMessage(date, table, topN, failures))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	n.log.WithComponent("telegram").WithFields(logger.Fields{
		"chat_id": n.chatID,
		"results": len(table),
	}).Info("top movers notification sent")
	return nil
}

// FormatTopMoversMessage builds the HTML message body. Split out from the
// send path so formatting is testable without a bot token.
func FormatTopMoversMessage(date time.Time, table models.ResultTable, topN int, failures int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>OI Skew Top Movers</b> %s\n", date.Format("02 Jan 2006"))
	fmt.Fprintf(&b, "%d symbols processed, %d failed\n\n", len(table), failures)

	for i, r := range table.TopN(topN) {
		fmt.Fprintf(&b, "%d. <b>%s</b>  spot %.2f  atm %.2f\n", i+1, r.Symbol, r.UnderlyingValue, r.ATMStrike)
		fmt.Fprintf(&b, "   put/call OI %d/%d  chg ratio %s\n", r.SumPutOI, r.SumCallOI, messageRatio(r.CombinedChangeRatio))
	}

	return b.String()
}

func messageRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
