package telegram

import (
	"toastd/internal/toast"
	"toastd/pkg/tgui"
)

const (
	titleLimit       = 256
	descriptionLimit = 3500
)

var variantIcon = map[toast.Variant]tgui.H{
	toast.VariantSuccess:     "✅ ",
	toast.VariantDestructive: "⛔ ",
	toast.VariantWarning:     "⚠️ ",
	toast.VariantInfo:        "ℹ️ ",
}

// render formats a toast as Telegram HTML.
func render(t toast.Toast) string {
	var title, desc, action tgui.H
	if t.Title != "" {
		title = variantIcon[t.Variant] + tgui.B(truncate(t.Title, titleLimit))
	}
	if t.Description != "" {
		desc = tgui.Esc(truncate(t.Description, descriptionLimit))
		if title == "" {
			desc = variantIcon[t.Variant] + desc
		}
	}
	if t.Action != nil && t.Action.Label != "" {
		action = "→ " + tgui.Esc(truncate(t.Action.Label, titleLimit))
	}

	out := tgui.JoinH("\n", title, desc, action)
	if out == "" {
		out = variantIcon[t.Variant] + tgui.I("(empty toast)")
	}
	if !t.Open {
		out += "\n" + tgui.I("dismissed")
	}
	return out.String()
}

// truncate keeps the result within limit runes, ellipsis included.
func truncate(s string, limit int) string {
	return tgui.TruncRunes(s, limit-1)
}
