package dispatch

import "time"

// Clock абстракция времени для координатора; в тестах подменяется
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now().UTC() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock возвращает часы на системном времени
func SystemClock() Clock {
	return systemClock{}
}

// RetryPolicy правила повторной доставки: экспоненциальная задержка
// с верхней границей и ограниченным числом попыток.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy возвращает политику по умолчанию: 1s, ×2, не больше
// 30s, пять попыток.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 5,
	}
}

// Delay возвращает задержку перед попыткой с номером attempt (с единицы).
// Рост вдвое с каждой попыткой, не выше MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return p.BaseDelay
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// Exhausted сообщает, исчерпаны ли попытки доставки
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
