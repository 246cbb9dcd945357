// Package closer управляет упорядоченным освобождением ресурсов приложения.
package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Func освобождает один ресурс; контекст ограничивает время операции.
type Func func(ctx context.Context) error

// Closer накапливает функции освобождения ресурсов и выполняет их в порядке,
// обратном регистрации: зависимые ресурсы закрываются раньше своих зависимостей.
type Closer struct {
	mu           sync.Mutex
	once         sync.Once
	funcs        []Func
	forceTimeout time.Duration
}

// NewCloser создаёт Closer. forceTimeout ограничивает принудительное
// закрытие ресурсов, не успевших завершиться до отмены контекста Close.
func NewCloser(forceTimeout time.Duration) *Closer {
	if forceTimeout <= 0 {
		forceTimeout = 2 * time.Second
	}
	return &Closer{forceTimeout: forceTimeout}
}

// Add регистрирует функцию освобождения ресурса.
func (c *Closer) Add(f Func) {
	c.mu.Lock()
	c.funcs = append(c.funcs, f)
	c.mu.Unlock()
}

// Close освобождает все зарегистрированные ресурсы в порядке LIFO.
// Повторные вызовы не выполняют работу ещё раз. Если контекст истекает
// раньше, оставшиеся ресурсы закрываются параллельно с отдельным таймаутом,
// а итоговая ошибка собирает все сбои.
func (c *Closer) Close(ctx context.Context) error {
	var closeErr error

	c.once.Do(func() {
		c.mu.Lock()
		funcs := c.funcs
		c.mu.Unlock()

		var errs []error
		pos := len(funcs) - 1
		for ; pos >= 0; pos-- {
			done := make(chan error, 1)
			go func(f Func) {
				done <- f(ctx)
			}(funcs[pos])

			select {
			case err := <-done:
				if err != nil {
					errs = append(errs, err)
				}
			case <-ctx.Done():
				errs = append(errs, c.forceClose(funcs[:pos+1])...)
				errs = append(errs, fmt.Errorf("shutdown deadline exceeded, %d of %d resources closed forcibly", pos+1, len(funcs)))
				closeErr = errors.Join(errs...)
				return
			}
		}

		closeErr = errors.Join(errs...)
	})

	return closeErr
}

// forceClose параллельно закрывает ресурсы, не дождавшиеся штатного завершения.
func (c *Closer) forceClose(funcs []Func) []error {
	ctx, cancel := context.WithTimeout(context.Background(), c.forceTimeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, f := range funcs {
		wg.Add(1)
		go func(f Func) {
			defer wg.Done()
			if err := f(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("forced close: %w", err))
				mu.Unlock()
			}
		}(f)
	}
	wg.Wait()

	return errs
}
