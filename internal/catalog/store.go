package catalog

import (
	"sort"
	"sync"

	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

// Store — потокобезопасный каталог товаров в памяти.
// Мутации проходят под мьютексом и пересобирают неизменяемый срез-снимок,
// поэтому читатели всегда видят каталог либо до, либо после мутации целиком.
type Store struct {
	mu       sync.RWMutex
	codec    *vector.Codec
	items    map[string]domain.Product
	snapshot []domain.Product // неизменяемый, пересобирается при каждой мутации
}

// ItemError описывает причину отказа по одному элементу при пакетной загрузке.
type ItemError struct {
	ID     string
	Reason string
}

// LoadReport — итог пакетной загрузки каталога.
type LoadReport struct {
	Inserted int
	Skipped  int
	Errors   []ItemError
}

func NewStore(codec *vector.Codec) *Store {
	return &Store{
		codec: codec,
		items: make(map[string]domain.Product),
	}
}

// Dimension возвращает размерность эмбеддингов каталога.
func (s *Store) Dimension() int {
	return s.codec.Dimension()
}

// Insert добавляет товар в каталог.
// При занятом ID возвращает e.ErrDuplicateID, если не запрошен режим upsert —
// тогда запись заменяется целиком. Эмбеддинг копируется через кодек, чтобы
// каталог не делил память с вызывающим.
func (s *Store) Insert(item domain.Product, upsert bool) error {
	if item.ID == "" {
		return e.ErrEmptyID
	}

	emb, err := s.codec.Normalize(item.Embedding)
	if err != nil {
		return e.Wrap(item.ID, err)
	}
	item.Embedding = emb

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; ok && !upsert {
		return e.Wrap(item.ID, e.ErrDuplicateID)
	}

	s.items[item.ID] = item
	s.rebuildSnapshot()

	return nil
}

// BulkLoad загружает элементы независимо друг от друга: ошибка одного элемента
// записывается в отчёт и не прерывает загрузку остальных.
func (s *Store) BulkLoad(items []domain.Product, upsert bool) *LoadReport {
	report := &LoadReport{}

	for _, item := range items {
		if err := s.Insert(item, upsert); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, ItemError{ID: item.ID, Reason: err.Error()})
			continue
		}
		report.Inserted++
	}

	return report
}

// Clear опустошает каталог; используется при переналивке.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]domain.Product)
	s.snapshot = nil
}

// All возвращает текущий снимок каталога, упорядоченный по ID.
// Возвращаемый срез неизменяем: вызывающий не должен его модифицировать.
func (s *Store) All() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot
}

// Count возвращает количество товаров в каталоге.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// GetByID возвращает товар по идентификатору или e.ErrNotFound.
func (s *Store) GetByID(id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return domain.Product{}, e.Wrap(id, e.ErrNotFound)
	}

	return item, nil
}

// rebuildSnapshot пересобирает снимок; вызывается только под мьютексом записи.
func (s *Store) rebuildSnapshot() {
	snap := make([]domain.Product, 0, len(s.items))
	for _, item := range s.items {
		snap = append(snap, item)
	}

	sort.Slice(snap, func(i, j int) bool { return snap[i].ID < snap[j].ID })
	s.snapshot = snap
}
