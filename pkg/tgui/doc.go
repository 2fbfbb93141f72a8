// Package tgui provides small Telegram UI helpers:
//   - Escaped HTML fragments for ParseMode="HTML"
//   - Callback data helpers (action:payload)
//   - Rune-safe truncation
package tgui
