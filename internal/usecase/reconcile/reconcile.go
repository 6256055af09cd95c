// Package reconcile содержит чистые функции слияния свежезапрошенных коллекций
// с коллекциями, которые уже держит клиент.
package reconcile

import (
	"sort"
	"time"

	"social-sync/internal/domain"
)

// Pending локально созданная сущность, ещё не подтверждённая полным перезапросом.
type Pending struct {
	ID             string
	LocalCreatedAt time.Time
}

// FeedMerge результат слияния ленты.
type FeedMerge struct {
	Posts   []domain.Post
	Pending []Pending
	// Pinned идентификатор поста, закреплённого первым; пустой, если закрепления нет.
	Pinned string
}

// MergeFeed сливает удерживаемую ленту с результатом перезапроса.
//
// Самый свежий из ожидающих постов закрепляется первым. Серверная копия поста
// побеждает по всем полям, но отметка локального создания сохраняется. Прочие
// ожидающие посты, которых ещё нет в ответе сервера, идут сразу за закреплённым,
// остальные позиции определяются порядком сервера. Каждый id встречается ровно один раз.
func MergeFeed(held []domain.Post, pending []Pending, fetched []domain.Post) FeedMerge {
	fetched = DedupeByID(fetched, postID)
	fetchedByID := make(map[string]domain.Post, len(fetched))
	for _, p := range fetched {
		fetchedByID[p.ID] = p
	}
	heldByID := make(map[string]domain.Post, len(held))
	for _, p := range held {
		if _, ok := heldByID[p.ID]; !ok {
			heldByID[p.ID] = p
		}
	}

	ordered := SortPending(pending)
	out := FeedMerge{Posts: make([]domain.Post, 0, len(fetched)+len(ordered))}
	placed := make(map[string]struct{}, len(fetched)+len(ordered))
	kept := make([]Pending, 0, len(ordered))

	for _, p := range ordered {
		if _, dup := placed[p.ID]; dup {
			continue
		}
		post, inFetch := fetchedByID[p.ID]
		if !inFetch {
			var ok bool
			post, ok = heldByID[p.ID]
			if !ok {
				// Пост пропал и из ленты, и из ответа: отметка больше ни к чему не привязана.
				continue
			}
		}
		kept = append(kept, p)
		if out.Pinned == "" {
			out.Pinned = p.ID
		} else if inFetch {
			// Подтверждённые сервером посты, кроме закреплённого, остаются на своих местах.
			continue
		}
		out.Posts = append(out.Posts, post)
		placed[p.ID] = struct{}{}
	}

	for _, p := range fetched {
		if _, ok := placed[p.ID]; ok {
			continue
		}
		out.Posts = append(out.Posts, p)
		placed[p.ID] = struct{}{}
	}
	out.Pending = kept
	return out
}

// SortPending возвращает копию, упорядоченную от самого свежего к самому старому.
func SortPending(pending []Pending) []Pending {
	ordered := append([]Pending(nil), pending...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LocalCreatedAt.After(ordered[j].LocalCreatedAt)
	})
	return ordered
}

// DedupeByID оставляет первое вхождение каждого id, сохраняя порядок.
func DedupeByID[T any](items []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := id(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Upsert заменяет элемент с тем же id на месте или добавляет его в конец.
func Upsert[T any](items []T, item T, id func(T) string) []T {
	key := id(item)
	for i := range items {
		if id(items[i]) == key {
			out := append([]T(nil), items...)
			out[i] = item
			return out
		}
	}
	return append(append([]T(nil), items...), item)
}

// Prepend ставит элемент первым, убирая прежнюю копию с тем же id.
func Prepend[T any](items []T, item T, id func(T) string) []T {
	key := id(item)
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	for _, existing := range items {
		if id(existing) != key {
			out = append(out, existing)
		}
	}
	return out
}

// ReplaceSequence целиком заменяет последовательность по ключу страницей сервера.
// Повторное применение той же страницы не меняет результат.
func ReplaceSequence[T any](sequences map[string][]T, key string, page []T, id func(T) string) {
	sequences[key] = DedupeByID(page, id)
}

// AppendSequence добавляет эхо сервера в конец последовательности.
// Если сообщение уже пришло перезапросом, оно заменяется на месте.
func AppendSequence[T any](sequences map[string][]T, key string, item T, id func(T) string) {
	sequences[key] = Upsert(sequences[key], item, id)
}

func postID(p domain.Post) string { return p.ID }
