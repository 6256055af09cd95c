package domain

import "testing"

func TestSetIdempotent(t *testing.T) {
	s := NewSet[string]()
	if !s.Add("p1") {
		t.Fatalf("ожидали изменение при первом добавлении")
	}
	if s.Add("p1") {
		t.Fatalf("повторное добавление не должно менять множество")
	}
	if len(s) != 1 {
		t.Fatalf("ожидали 1 элемент, получили %d", len(s))
	}
	if s.Remove("p2") {
		t.Fatalf("удаление отсутствующего элемента должно быть no-op")
	}
	if !s.Remove("p1") || s.Has("p1") {
		t.Fatalf("ожидали удаление p1")
	}
}

func TestSortedStrings(t *testing.T) {
	got := SortedStrings(NewSet("b", "a", "c"))
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedStrings() = %v, want %v", got, want)
		}
	}
}

func TestNotificationTypeValid(t *testing.T) {
	tests := []struct {
		name string
		in   NotificationType
		want bool
	}{
		{name: "like", in: NotificationLike, want: true},
		{name: "mention", in: NotificationMention, want: true},
		{name: "unknown", in: NotificationType("poke"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Valid(); got != tt.want {
				t.Fatalf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
