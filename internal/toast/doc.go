// Package toast is an in-process store for short-lived UI notifications.
//
// A Store holds an ordered list of toasts (newest first, capped at a limit)
// and fans every state change out to subscribed listeners. Producers call
// Store.Toast to create a toast and get back a Handle that can update or
// dismiss it. Consumers (a websocket stream, a Telegram chat, a terminal)
// call Store.Subscribe or Store.Use and render whatever state they receive.
//
// # Lifecycle
//
// Each toast moves through three states:
//
//	created (Open=true) -> dismissed (Open=false) -> removed (absent)
//
// Dismissing a toast flips Open and arms a removal timer; when the timer
// fires, a REMOVE_TOAST action drops it from state. A REMOVE_TOAST issued
// directly (for example, clearing everything) skips the dismissed state.
//
// # Dispatch
//
// State transitions go through a pure Reducer. The Store serializes
// dispatches, performs the timer side effects outside the reducer, and
// delivers notifications to listeners in dispatch order. Listeners may
// dispatch or unsubscribe from inside their callback; nested notifications
// are delivered after the current fan-out finishes.
//
// Time is injected through internal/clock so tests can advance it by hand.
package toast
