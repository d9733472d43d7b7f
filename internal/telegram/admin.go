package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) adminHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	userID := update.Message.From.ID
	if userID != b.cfg.AdminID {
		b.sendMessage(ctx, update.Message.Chat.ID, "⛔️ Siz admin emassiz.", nil)
		return
	}
	if !b.admit(userID) {
		return
	}

	b.admin.Clear(userID)
	b.sendMessage(ctx, update.Message.Chat.ID, "🔐 Admin panelga xush kelibsiz.", AdminKeyboard())
}

// handleAdminText routes admin panel buttons and pending inputs. Returns
// true when the message was consumed by the panel.
func (b *Bot) handleAdminText(ctx context.Context, msg *models.Message) bool {
	userID := msg.From.ID

	switch msg.Text {
	case BtnAdminStats:
		b.showAdminStats(ctx, msg)
		return true
	case BtnAdminDiscount:
		b.admin.Set(userID, AdminStateWaitDiscount)
		current := b.quota.DiscountPercent()
		b.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf(
			"Hozirgi chegirma: <b>%d%%</b>\nYangi foizni kiriting (0-100):", current),
			AdminBackKeyboard())
		return true
	case BtnAdminBroadcast:
		b.admin.Set(userID, AdminStateWaitBroadcast)
		b.sendMessage(ctx, msg.Chat.ID,
			"📢 Barcha foydalanuvchilarga yuboriladigan xabarni kiriting:", AdminBackKeyboard())
		return true
	case BtnAdminBack:
		b.admin.Clear(userID)
		b.sendMessage(ctx, msg.Chat.ID, "Asosiy menyu.", MainKeyboard())
		return true
	}

	switch b.admin.Get(userID) {
	case AdminStateWaitDiscount:
		b.admin.Clear(userID)
		b.handleSetDiscount(ctx, msg)
		return true
	case AdminStateWaitBroadcast:
		b.admin.Clear(userID)
		b.broadcast(ctx, msg.Text)
		return true
	}

	return false
}

func (b *Bot) showAdminStats(ctx context.Context, msg *models.Message) {
	users, err := b.quota.UserCount()
	if err != nil {
		b.log.Error("user count", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Statistikani olishda xatolik.", nil)
		return
	}

	revenue, err := b.quota.TotalRevenue()
	if err != nil {
		b.log.Error("total revenue", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Statistikani olishda xatolik.", nil)
		return
	}

	text := fmt.Sprintf(
		"📈 <b>Statistika:</b>\n"+
			"👥 Foydalanuvchilar: <b>%d</b>\n"+
			"💰 Daromad: <b>%d %s</b>\n"+
			"🏷 Chegirma: <b>%d%%</b>",
		users, revenue/100, b.cfg.Currency, b.quota.DiscountPercent(),
	)
	b.sendMessage(ctx, msg.Chat.ID, text, AdminKeyboard())
}

func (b *Bot) handleSetDiscount(ctx context.Context, msg *models.Message) {
	percent, err := strconv.Atoi(msg.Text)
	if err != nil {
		b.sendMessage(ctx, msg.Chat.ID, "❌ Raqam kiriting (0-100).", AdminKeyboard())
		return
	}

	if err := b.quota.SetDiscountPercent(percent); err != nil {
		b.sendMessage(ctx, msg.Chat.ID, "❌ Foiz 0 dan 100 gacha bo'lishi kerak.", AdminKeyboard())
		return
	}

	b.sendMessage(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Chegirma o'rnatildi: <b>%d%%</b>", percent), AdminKeyboard())
}

// broadcast sends text to every known user. Failures are counted and
// skipped so one blocked user does not stop the run.
func (b *Bot) broadcast(ctx context.Context, text string) {
	ids, err := b.quota.AllUserIDs()
	if err != nil {
		b.log.Error("list users for broadcast", "error", err)
		b.sendMessage(ctx, b.cfg.AdminID, "❌ Foydalanuvchilar ro'yxatini olishda xatolik.", AdminKeyboard())
		return
	}

	sent, failed := 0, 0
	for _, id := range ids {
		_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    id,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			failed++
		} else {
			sent++
		}
		time.Sleep(50 * time.Millisecond)
	}

	b.log.Info("broadcast done", "sent", sent, "failed", failed)
	b.sendMessage(ctx, b.cfg.AdminID,
		fmt.Sprintf("✅ Yuborildi: %d ta, xato: %d ta.", sent, failed), AdminKeyboard())
}
