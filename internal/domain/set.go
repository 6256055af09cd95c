package domain

import "sort"

// Set множество идентификаторов. Добавление и удаление идемпотентны.
type Set[T comparable] map[T]struct{}

// NewSet создаёт множество из среза.
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add добавляет элемент и сообщает, изменилось ли множество.
func (s Set[T]) Add(item T) bool {
	if _, ok := s[item]; ok {
		return false
	}
	s[item] = struct{}{}
	return true
}

// Remove удаляет элемент и сообщает, изменилось ли множество.
func (s Set[T]) Remove(item T) bool {
	if _, ok := s[item]; !ok {
		return false
	}
	delete(s, item)
	return true
}

// Has проверяет принадлежность.
func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

// SortedStrings возвращает элементы строкового множества по возрастанию.
func SortedStrings(s Set[string]) []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
