package tgui

import (
	"errors"
	"strings"
)

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
// NOTE: This is the length of the full string: "action:payload".
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")

// Data formats inline callback data as "action:payload".
// Payload is kept as-is (no escaping).
func Data(action, payload string) (string, error) {
	action = strings.TrimSpace(action)
	s := action
	if payload != "" {
		s = action + ":" + payload
	}
	if len(s) > MaxCallbackDataLen {
		return "", ErrCallbackDataTooLong
	}
	return s, nil
}

// Parse splits callback data produced by Data.
func Parse(data string) (action, payload string, ok bool) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", "", false
	}
	action, payload, _ = strings.Cut(data, ":")
	return action, payload, action != ""
}
