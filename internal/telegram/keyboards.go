package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/audio"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/storage"
)

// Main menu button labels, matched verbatim by the default handler.
const (
	BtnConvert  = "🎵 Konvertatsiya"
	BtnStats    = "📊 Statistika"
	BtnBuy      = "🌟 Obuna olish"
	BtnReferral = "🔗 Referal havolasi"
	BtnAds      = "📢 Reklama"

	BtnAdminStats     = "📈 Statistika"
	BtnAdminDiscount  = "🏷 Chegirma o'rnatish"
	BtnAdminBroadcast = "✉️ Xabar yuborish"
	BtnAdminBack      = "❌ Asosiy menyu"
)

// MainKeyboard returns the main reply menu
func MainKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: BtnConvert}},
			{{Text: BtnStats}, {Text: BtnBuy}},
			{{Text: BtnReferral}, {Text: BtnAds}},
		},
		ResizeKeyboard: true,
	}
}

// AdminKeyboard returns the admin panel reply menu
func AdminKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: BtnAdminStats}},
			{{Text: BtnAdminDiscount}, {Text: BtnAdminBroadcast}},
			{{Text: BtnAdminBack}},
		},
		ResizeKeyboard: true,
	}
}

// AdminBackKeyboard returns a single back button for admin input prompts
func AdminBackKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: BtnAdminBack}},
		},
		ResizeKeyboard: true,
	}
}

// FormatKeyboard returns the inline keyboard of output variants, three per row
func FormatKeyboard() *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton

	for _, f := range audio.Formats() {
		row = append(row, models.InlineKeyboardButton{
			Text:         string(f),
			CallbackData: "fmt_" + string(f),
		})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// BuyKeyboard returns the subscription purchase keyboard with live prices
func BuyKeyboard(pricePlus, pricePro int64, currency string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{
					Text:         fmt.Sprintf("🌟 PLUS (%d %s)", pricePlus/100, currency),
					CallbackData: "buy_" + string(storage.TierPlus),
				},
			},
			{
				{
					Text:         fmt.Sprintf("🚀 PRO (%d %s)", pricePro/100, currency),
					CallbackData: "buy_" + string(storage.TierPro),
				},
			},
		},
	}
}
