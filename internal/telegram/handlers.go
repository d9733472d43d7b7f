package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/config"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/guardian"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/pricing"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/quota"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/storage"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/workflow"
)

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot   *bot.Bot
	cfg   *config.Config
	guard *guardian.Guardian
	quota *quota.Engine
	wf    *workflow.Workflow
	admin *StateManager
	http  *http.Client
	log   *slog.Logger
}

// New creates a new telegram bot. The conversion workflow is attached
// separately because it downloads and delivers through this very bot.
func New(cfg *config.Config, guard *guardian.Guardian, engine *quota.Engine, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:   cfg,
		guard: guard,
		quota: engine,
		admin: NewStateManager(),
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	// Register command handlers
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/admin", bot.MatchTypeExact, b.adminHandler)

	return b, nil
}

// AttachWorkflow wires the conversion workflow. Must be called before Start.
func (b *Bot) AttachWorkflow(wf *workflow.Workflow) {
	b.wf = wf
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// admit runs the flood gate. The admin is privileged and never observed.
func (b *Bot) admit(userID int64) bool {
	return b.guard.Admit(userID, userID == b.cfg.AdminID)
}

// --- Handlers ---

func (b *Bot) startHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	userID := update.Message.From.ID
	if !b.admit(userID) {
		return
	}

	// Optional referral deep-link payload: "/start <referrer id>"
	var referrerID int64
	if parts := strings.Fields(update.Message.Text); len(parts) > 1 {
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			referrerID = id
		}
	}

	granted, err := b.quota.Register(userID, referrerID)
	if err != nil {
		b.log.Error("register user", "user_id", userID, "error", err)
	}
	if granted {
		// The bonus is durably persisted before this notification is attempted.
		b.sendMessage(ctx, referrerID,
			"🎁 Tabriklaymiz! Sizga 1 kunlik 🌟 PLUS obunasi berildi!", nil)
	}

	name := update.Message.From.FirstName
	if name == "" {
		name = update.Message.From.Username
	}

	text := fmt.Sprintf(
		"Assalamu alaykum, %s!\n"+
			"🔘 [ ΛTOMIC • Λudio Convertor ] ga xush kelibsiz.\n"+
			"🎵 Audio yoki video yuboring, men uni istalgan formatga o'giraman.\n"+
			"🌟 Plus va 🚀 Pro bilan yanada keng imkoniyatlarga ega bo'ling.",
		name,
	)
	b.sendMessage(ctx, update.Message.Chat.ID, text, MainKeyboard())
}

func (b *Bot) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery != nil {
		b.handlePreCheckout(ctx, update.PreCheckoutQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	userID := msg.From.ID
	if !b.admit(userID) {
		return
	}

	if msg.SuccessfulPayment != nil {
		b.handlePaid(ctx, msg)
		return
	}

	if msg.Audio != nil || msg.Voice != nil || msg.Video != nil || msg.Document != nil {
		b.handleUpload(ctx, msg)
		return
	}

	if msg.Text == "" {
		return
	}

	// Admin panel input takes precedence for the admin only
	if userID == b.cfg.AdminID {
		if b.handleAdminText(ctx, msg) {
			return
		}
	}

	switch msg.Text {
	case BtnConvert:
		b.handleConvert(ctx, msg)
	case BtnStats:
		b.showProfile(ctx, msg)
	case BtnBuy:
		b.showBuyMenu(ctx, msg)
	case BtnReferral:
		b.showReferralLink(ctx, msg)
	case BtnAds:
		b.sendMessage(ctx, msg.Chat.ID,
			"Reklama bo'yicha adminga murojaat qiling: @Al_Abdul_Aziz", nil)
	}
}

// handleConvert enters the conversion workflow through the quota gate.
func (b *Bot) handleConvert(ctx context.Context, msg *models.Message) {
	userID := msg.From.ID

	_, err := b.wf.Begin(userID)
	var qe *workflow.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		b.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf(
			"😔 Limit tugadi (%d/%d). Ertaga keling yoki obuna oling!\n"+
				"Aytgancha, do'stingizni taklif qilsangiz 1 kunlik 🌟 PLUS obunasiga ega bo'lasiz.",
			qe.Usage, qe.Limit), nil)
	case err != nil:
		b.log.Error("begin session", "user_id", userID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID,
			"❌ Vaqtincha xatolik. Birozdan so'ng qayta urinib ko'ring.", nil)
	default:
		b.sendMessage(ctx, msg.Chat.ID, "Faylni yuboring (Audio/Video).", nil)
	}
}

// handleUpload feeds an incoming artifact into the workflow.
func (b *Bot) handleUpload(ctx context.Context, msg *models.Message) {
	userID := msg.From.ID

	if b.wf.SessionState(userID) != workflow.StateAwaitingArtifact {
		b.sendMessage(ctx, msg.Chat.ID,
			"Iltimos, avval asosiy menyudan '🎵 Konvertatsiya' tugmasini bosing, so'ngra faylni yuboring.",
			MainKeyboard())
		return
	}

	att, err := extractAttachment(msg)
	if err != nil {
		// Unsupported content: the session keeps waiting for an artifact.
		b.sendMessage(ctx, msg.Chat.ID,
			"❌ Bu fayl turi qo'llab-quvvatlanmaydi. Audio, ovozli xabar, video yoki hujjat yuboring.", nil)
		return
	}

	b.sendMessage(ctx, msg.Chat.ID, "📥 Yuklanmoqda...", nil)

	err = b.wf.Receive(ctx, userID, att)
	var de *workflow.DurationExceededError
	switch {
	case err == nil:
		b.sendMessage(ctx, msg.Chat.ID, "Formatni tanlang:", FormatKeyboard())
	case errors.As(err, &de):
		b.sendMessage(ctx, msg.Chat.ID,
			fmt.Sprintf("⚠️ Limit: %ds. Fayl: %.0fs", de.CapSeconds, de.Seconds), nil)
	case errors.Is(err, workflow.ErrCorruptInput):
		b.sendMessage(ctx, msg.Chat.ID, "❌ Fayl sifati past yoki buzilgan.", nil)
	case errors.Is(err, workflow.ErrNoActiveSession):
		// A concurrent event won the session; nothing to report.
	default:
		b.log.Error("receive artifact", "user_id", userID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID,
			"❌ Yuklashda xatolik. Birozdan so'ng qayta urinib ko'ring.", nil)
	}
}

// extractAttachment maps the message's content to the closed attachment set.
func extractAttachment(msg *models.Message) (workflow.Attachment, error) {
	switch {
	case msg.Audio != nil:
		return workflow.Attachment{Kind: workflow.KindAudio, FileID: msg.Audio.FileID, FileName: msg.Audio.FileName}, nil
	case msg.Voice != nil:
		return workflow.Attachment{Kind: workflow.KindVoice, FileID: msg.Voice.FileID}, nil
	case msg.Video != nil:
		return workflow.Attachment{Kind: workflow.KindVideo, FileID: msg.Video.FileID, FileName: msg.Video.FileName}, nil
	case msg.Document != nil:
		return workflow.Attachment{Kind: workflow.KindDocument, FileID: msg.Document.FileID, FileName: msg.Document.FileName}, nil
	default:
		return workflow.Attachment{}, workflow.ErrUnsupportedType
	}
}

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	userID := cb.From.ID

	// Answer callback to remove loading state
	tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	if !b.admit(userID) {
		return
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "fmt_"):
		b.handleFormatChoice(ctx, cb, strings.TrimPrefix(data, "fmt_"))
	case strings.HasPrefix(data, "buy_"):
		b.handleBuy(ctx, cb, strings.TrimPrefix(data, "buy_"))
	default:
		b.log.Warn("unknown callback", "data", data, "user_id", userID)
	}
}

func (b *Bot) handleFormatChoice(ctx context.Context, cb *models.CallbackQuery, formatStr string) {
	userID := cb.From.ID

	b.editMessage(ctx, cb.Message, fmt.Sprintf("⏳ %s ga o'girilmoqda...", formatStr), nil)

	err := b.wf.Choose(ctx, userID, formatStr)
	switch {
	case err == nil:
		b.deleteMessage(ctx, cb.Message)
	case errors.Is(err, workflow.ErrUnknownFormat):
		// Not one of our variants; leave the choice keyboard as is.
	case errors.Is(err, workflow.ErrNoActiveSession):
		b.editMessage(ctx, cb.Message,
			"Sessiya topilmadi. '🎵 Konvertatsiya' tugmasini bosib qaytadan boshlang.", nil)
	case errors.Is(err, workflow.ErrConversionFailed):
		b.editMessage(ctx, cb.Message, "❌ Konvertatsiya xatosi.", nil)
	case errors.Is(err, workflow.ErrDeliveryFailed):
		b.editMessage(ctx, cb.Message, "❌ Faylni yuborishda xatolik.", nil)
	default:
		b.log.Error("choose format", "user_id", userID, "error", err)
		b.editMessage(ctx, cb.Message, "❌ Vaqtincha xatolik. Qayta urinib ko'ring.", nil)
	}
}

// --- Profile, referral, subscriptions ---

func (b *Bot) showProfile(ctx context.Context, msg *models.Message) {
	userID := msg.From.ID

	st, err := b.quota.ResolveStatus(userID)
	if err != nil {
		b.log.Error("resolve status", "user_id", userID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Vaqtincha xatolik. Qayta urinib ko'ring.", nil)
		return
	}

	referrerLine := "Yo'q"
	if ref, err := b.quota.Referrer(userID); err == nil && ref != nil {
		referrerLine = strconv.FormatInt(*ref, 10)
	}

	text := fmt.Sprintf(
		"👤 <b>Profil:</b>\n"+
			"🏷 Status: <b>%s</b>\n"+
			"🔋 Limit: <b>%d/%d</b>\n"+
			"⏱ Maks. uzunlik: <b>%ds</b>\n"+
			"🤝 Taklif qildi: <b>%s</b>",
		strings.ToUpper(string(st.Tier)), st.DailyUsage, st.DailyLimit, st.DurationCap, referrerLine,
	)
	b.sendMessage(ctx, msg.Chat.ID, text, nil)
}

func (b *Bot) showReferralLink(ctx context.Context, msg *models.Message) {
	link := fmt.Sprintf("https://t.me/%s?start=%d", b.cfg.BotUsername, msg.From.ID)
	text := fmt.Sprintf(
		"👋 <b>Do'stlarni taklif qiling!</b>\n"+
			"Bonus: <b>1 kunlik PLUS obunasi</b>\n\n"+
			"🔗 <b>Havola:</b>\n<code>%s</code>",
		link,
	)
	b.sendMessage(ctx, msg.Chat.ID, text, nil)
}

func (b *Bot) showBuyMenu(ctx context.Context, msg *models.Message) {
	disc := b.quota.DiscountPercent()
	pricePlus := pricing.PlanPrice(storage.TierPlus, disc)
	pricePro := pricing.PlanPrice(storage.TierPro, disc)

	header := ""
	if disc > 0 {
		header = fmt.Sprintf("🎉 <b>%d%% CHEGIRMA!</b>\n\n", disc)
	}

	text := fmt.Sprintf(
		"📦 <b>Tariflar:</b>\n\n%s"+
			"🌟 <b>PLUS</b>\n• 15 fayl, 2 daqiqa\n\n"+
			"🚀 <b>PRO</b>\n• 30 fayl, 8 daqiqa",
		header,
	)
	b.sendMessage(ctx, msg.Chat.ID, text, BuyKeyboard(pricePlus, pricePro, b.cfg.Currency))
}

func (b *Bot) handleBuy(ctx context.Context, cb *models.CallbackQuery, plan string) {
	tier := storage.Tier(plan)
	if tier != storage.TierPlus && tier != storage.TierPro {
		return
	}

	price := pricing.PlanPrice(tier, b.quota.DiscountPercent())

	var chatID int64
	if cb.Message.Message != nil {
		chatID = cb.Message.Message.Chat.ID
	} else {
		chatID = cb.From.ID
	}

	_, err := b.bot.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:         chatID,
		Title:          strings.ToUpper(plan) + " Obuna",
		Description:    "Obuna",
		Payload:        quota.PayloadForPlan(tier),
		ProviderToken:  b.cfg.PaymentToken,
		Currency:       b.cfg.Currency,
		Prices:         []models.LabeledPrice{{Label: "Obuna", Amount: int(price)}},
		StartParameter: "sub_conv",
	})
	if err != nil {
		b.log.Error("send invoice", "user_id", cb.From.ID, "error", err)
		b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            "❌ Xatolik yuz berdi (Token yoki narx).",
			ShowAlert:       true,
		})
	}
}

func (b *Bot) handlePreCheckout(ctx context.Context, q *models.PreCheckoutQuery) {
	_, err := b.bot.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: q.ID,
		OK:                 true,
	})
	if err != nil {
		b.log.Error("answer pre-checkout", "user_id", q.From.ID, "error", err)
	}
}

func (b *Bot) handlePaid(ctx context.Context, msg *models.Message) {
	sp := msg.SuccessfulPayment
	userID := msg.From.ID

	tier, err := b.quota.RecordPayment(userID, int64(sp.TotalAmount), sp.InvoicePayload)
	if err != nil {
		b.log.Error("record payment", "user_id", userID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID,
			"❌ To'lovni qayd etishda xatolik. Admin bilan bog'laning.", nil)
		return
	}

	b.sendMessage(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ To'lov muvaffaqiyatli! Status: <b>%s</b>", strings.ToUpper(string(tier))),
		MainKeyboard())
}

// --- Ban notifications (wired as the guardian's OnBan hook) ---

// NotifyBan tells a freshly banned user and alerts the admin. Called once
// per ban from the guardian.
func (b *Bot) NotifyBan(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b.sendMessage(ctx, userID,
		"⛔️ Juda ko'p so'rov yubordingiz. Botdan foydalanish bloklandi.", nil)
	if b.cfg.AdminID != 0 {
		b.sendMessage(ctx, b.cfg.AdminID,
			fmt.Sprintf("🚨 Flood ban: <code>%d</code>", userID), nil)
	}
}

// --- Helpers ---

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.EditMessageText(ctx, params)
	if err != nil {
		b.log.Error("edit message", "error", err)
	}
}

func (b *Bot) deleteMessage(ctx context.Context, msg models.MaybeInaccessibleMessage) {
	if msg.Message == nil {
		return
	}

	_, err := b.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
	})
	if err != nil {
		b.log.Error("delete message", "error", err)
	}
}
