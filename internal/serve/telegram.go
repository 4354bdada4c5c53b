package serve

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zdx-sub/zdx/internal/agent"
	"github.com/zdx-sub/zdx/internal/queue"
)

// TelegramPlatform dispatches inbound Telegram messages through the shared
// Runtime: one queue.Queue worker per chat id, allowlist enforcement from
// config.Config, and rendering via mdToTelegramHTML.
type TelegramPlatform struct {
	// Token is the bot token. When empty, Run reads TELEGRAM_BOT_TOKEN.
	Token string
}

func (p *TelegramPlatform) Name() string { return "telegram" }

func (p *TelegramPlatform) Run(ctx context.Context, rt *Runtime) error {
	token := strings.TrimSpace(p.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	}
	if token == "" {
		return fmt.Errorf("telegram: TELEGRAM_BOT_TOKEN is not set")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("telegram connect: %w", err)
	}
	log.Printf("[telegram] authorised as @%s", bot.Self.UserName)

	notifier := &telegramNotifier{bot: bot}
	rt.Queue = queue.New(notifier)

	adapter := &telegramAdapter{bot: bot, rt: rt, notifier: notifier}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			adapter.handleUpdate(ctx, update)
		}
	}
}

type telegramAdapter struct {
	bot      *tgbotapi.BotAPI
	rt       *Runtime
	notifier *telegramNotifier
}

func (a *telegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID

	if msg.From == nil || !a.rt.Config.UserAllowed(msg.From.ID) || !a.rt.Config.ChatAllowed(chatID) {
		return
	}

	if strings.HasPrefix(strings.TrimSpace(msg.Text), "/cancel") {
		a.rt.Queue.Cancel(chatID, strconv.Itoa(msg.MessageID))
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	messageID := strconv.Itoa(msg.MessageID)
	threadID := strconv.FormatInt(chatID, 10)

	a.rt.Queue.Dispatch(chatID, messageID, func(runCtx context.Context) {
		a.runTurn(runCtx, chatID, threadID, text)
	})
}

func (a *telegramAdapter) runTurn(ctx context.Context, chatID int64, threadID, text string) {
	if _, err := a.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("[telegram] chat action failed: %v", err)
	}

	events, err := a.rt.RunTurnForChat(ctx, threadID, text)
	if err != nil {
		a.sendPlain(chatID, "error: "+err.Error())
		return
	}

	reply := &telegramReply{bot: a.bot, chatID: chatID}
	for ev := range events {
		switch ev.Kind {
		case agent.KindTurnCompleted:
			reply.finish(ev.Completed.FinalText)
		case agent.KindInterrupted:
			reply.finish("_cancelled_")
		case agent.KindError:
			a.sendPlain(chatID, "error: "+ev.Err.Message)
		}
	}
}

func (a *telegramAdapter) sendPlain(chatID int64, text string) {
	if _, err := a.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("[telegram] send failed: %v", err)
	}
}

// telegramReply owns the single outbound message for one turn, sent once
// the turn completes — Telegram's edit-message-text API is rate-limited
// in a way that makes per-delta streaming impractical for a bot of this
// scale, so only the final render is posted.
type telegramReply struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func (r *telegramReply) finish(finalText string) {
	msg := tgbotapi.NewMessage(r.chatID, mdToTelegramHTML(finalText))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.bot.Send(msg); err != nil {
		log.Printf("[telegram] final send failed: %v", err)
	}
}

// telegramNotifier implements queue.Notifier, posting and retracting a
// "queued" status message per chat id.
type telegramNotifier struct {
	bot *tgbotapi.BotAPI

	mu     sync.Mutex
	posted map[queue.Key]map[string]int
}

func (n *telegramNotifier) NotifyQueued(key queue.Key, messageID string) error {
	chatID, ok := key.(int64)
	if !ok {
		return fmt.Errorf("telegram notifier: unexpected key type %T", key)
	}
	sent, err := n.bot.Send(tgbotapi.NewMessage(chatID, "queued…"))
	if err != nil {
		return err
	}

	n.mu.Lock()
	if n.posted == nil {
		n.posted = make(map[queue.Key]map[string]int)
	}
	if n.posted[key] == nil {
		n.posted[key] = make(map[string]int)
	}
	n.posted[key][messageID] = sent.MessageID
	n.mu.Unlock()
	return nil
}

func (n *telegramNotifier) NotifyCancelled(key queue.Key, messageID string) {
	chatID, ok := key.(int64)
	if !ok {
		return
	}

	n.mu.Lock()
	var noticeID int
	if byMsg := n.posted[key]; byMsg != nil {
		noticeID = byMsg[messageID]
		delete(byMsg, messageID)
	}
	n.mu.Unlock()

	if noticeID != 0 {
		if _, err := n.bot.Send(tgbotapi.NewDeleteMessage(chatID, noticeID)); err != nil {
			log.Printf("[telegram] failed to remove queued notice: %v", err)
		}
	} else {
		if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, "cancelled")); err != nil {
			log.Printf("[telegram] send failed: %v", err)
		}
	}
}
