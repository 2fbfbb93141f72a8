package toast

import (
	"testing"
	"time"
)

func ids(s State) []string {
	out := make([]string, 0, len(s.Toasts))
	for _, t := range s.Toasts {
		out = append(out, t.ID)
	}
	return out
}

func sameIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestReduceAddPrependsAndTruncates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		limit int
		adds  []string
		want  []string
	}{
		{name: "default limit keeps newest", limit: 1, adds: []string{"1", "2"}, want: []string{"2"}},
		{name: "limit three", limit: 3, adds: []string{"1", "2", "3", "4"}, want: []string{"4", "3", "2"}},
		{name: "under limit", limit: 5, adds: []string{"1", "2"}, want: []string{"2", "1"}},
		{name: "zero limit", limit: 0, adds: []string{"1"}, want: []string{}},
		{name: "negative limit", limit: -2, adds: []string{"1"}, want: []string{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := Reducer{Limit: tt.limit}
			s := State{}
			for _, id := range tt.adds {
				s = r.Reduce(s, Action{Type: ActionAdd, Toast: Toast{ID: id, Open: true}})
				if tt.limit >= 0 && len(s.Toasts) > tt.limit {
					t.Fatalf("len = %d exceeds limit %d", len(s.Toasts), tt.limit)
				}
			}
			if got := ids(s); !sameIDs(got, tt.want...) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	r := Reducer{Limit: 3}
	in := State{Toasts: []Toast{{ID: "1", Title: "a", Open: true}, {ID: "2", Open: true}}}

	_ = r.Reduce(in, Action{Type: ActionUpdate, Patch: Patch{ID: "1", Title: Ptr("b")}})
	_ = r.Reduce(in, Action{Type: ActionDismiss})
	_ = r.Reduce(in, Action{Type: ActionRemove, ToastID: "2"})

	if in.Toasts[0].Title != "a" || !in.Toasts[0].Open || !in.Toasts[1].Open || len(in.Toasts) != 2 {
		t.Fatalf("input state was mutated: %+v", in.Toasts)
	}
}

func TestReduceUpdateMerges(t *testing.T) {
	t.Parallel()
	r := Reducer{Limit: 2}
	at := time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)
	s := State{Toasts: []Toast{
		{ID: "1", Title: "Saved", Description: "Order #7", Extra: map[string]any{"pair": "BTC/USDT"}},
		{ID: "2", Title: "Other"},
	}}

	s = r.Reduce(s, Action{Type: ActionUpdate, At: at, Patch: Patch{
		ID:    "1",
		Title: Ptr("X"),
		Extra: map[string]any{"qty": 2},
	}})

	got := s.Toasts[0]
	if got.Title != "X" {
		t.Fatalf("Title = %q, want X", got.Title)
	}
	if got.Description != "Order #7" {
		t.Fatalf("Description = %q, want unchanged", got.Description)
	}
	if got.Extra["pair"] != "BTC/USDT" || got.Extra["qty"] != 2 {
		t.Fatalf("Extra = %v, want merged", got.Extra)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Fatalf("UpdatedAt = %v, want %v", got.UpdatedAt, at)
	}
	if s.Toasts[1].Title != "Other" {
		t.Fatalf("other toast touched: %+v", s.Toasts[1])
	}
}

func TestReduceUpdateUnknownIDIsNoop(t *testing.T) {
	t.Parallel()
	r := Reducer{Limit: 1}
	s := State{Toasts: []Toast{{ID: "1", Title: "a"}}}
	s = r.Reduce(s, Action{Type: ActionUpdate, Patch: Patch{ID: "9", Title: Ptr("b")}})
	if s.Toasts[0].Title != "a" {
		t.Fatalf("Title = %q, want a", s.Toasts[0].Title)
	}
}

func TestReduceDismiss(t *testing.T) {
	t.Parallel()
	r := Reducer{Limit: 3}
	base := State{Toasts: []Toast{{ID: "1", Open: true}, {ID: "2", Open: true}}}

	one := r.Reduce(base, Action{Type: ActionDismiss, ToastID: "2"})
	if !one.Toasts[0].Open || one.Toasts[1].Open {
		t.Fatalf("dismiss by id: %+v", one.Toasts)
	}

	all := r.Reduce(base, Action{Type: ActionDismiss})
	for _, tt := range all.Toasts {
		if tt.Open {
			t.Fatalf("dismiss all left %s open", tt.ID)
		}
	}

	missing := r.Reduce(base, Action{Type: ActionDismiss, ToastID: "7"})
	if !missing.Toasts[0].Open || !missing.Toasts[1].Open {
		t.Fatal("dismiss of unknown id changed state")
	}
}

func TestReduceRemove(t *testing.T) {
	t.Parallel()
	r := Reducer{Limit: 3}
	base := State{Toasts: []Toast{{ID: "1"}, {ID: "2"}, {ID: "3"}}}

	if got := ids(r.Reduce(base, Action{Type: ActionRemove, ToastID: "2"})); !sameIDs(got, "1", "3") {
		t.Fatalf("remove by id = %v", got)
	}
	if got := r.Reduce(base, Action{Type: ActionRemove}); len(got.Toasts) != 0 || got.Toasts == nil {
		t.Fatalf("remove all = %+v, want empty non-nil", got.Toasts)
	}
	if got := ids(r.Reduce(base, Action{Type: ActionRemove, ToastID: "9"})); !sameIDs(got, "1", "2", "3") {
		t.Fatalf("remove unknown id = %v", got)
	}
}

func TestReduceUnknownActionReturnsState(t *testing.T) {
	t.Parallel()
	r := Reducer{Limit: 1}
	base := State{Toasts: []Toast{{ID: "1"}}}
	got := r.Reduce(base, Action{Type: "SHAKE_TOAST"})
	if !sameIDs(ids(got), "1") {
		t.Fatalf("unknown action changed state: %v", ids(got))
	}
	got.Toasts[0].ID = "x"
	if base.Toasts[0].ID != "1" {
		t.Fatal("unknown action returned the input slice")
	}
}
