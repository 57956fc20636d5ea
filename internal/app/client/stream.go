package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"github.com/shopspring/decimal"
)

const (
	typeTransferStatusChanged = "TRANSFER_STATUS_CHANGED"
	typePriceUpdated          = "PRICE_UPDATED"
	typeInventoryUpdated      = "INVENTORY_UPDATED"
	typePromotionUpdated      = "PROMOTION_UPDATED"
	typeStoreAlert            = "STORE_ALERT"
	typeSyncCompleted         = "SYNC_COMPLETED"
)

// Listener держит SSE-соединение с сервером, применяет события к локальному
// зеркалу и подтверждает прием. При обрыве переподключается с экспоненциальной
// задержкой, продолжая с сохраненной контрольной точки.
type Listener struct {
	api       *httpClient
	mirror    Mirror
	log       *slog.Logger
	baseDelay time.Duration
	maxDelay  time.Duration

	// OnEvent вызывается после применения каждого события (для вывода в watch)
	OnEvent func(env Envelope)
}

func NewListener(api *httpClient, mirror Mirror, baseDelay, maxDelay time.Duration, log *slog.Logger) *Listener {
	return &Listener{
		api:       api,
		mirror:    mirror,
		log:       log.With("component", "listener"),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Run блокируется до отмены контекста
func (l *Listener) Run(ctx context.Context) error {
	delay := l.baseDelay

	for {
		err := l.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// Сервер закрыл поток штатно, переподключаемся сразу
			delay = l.baseDelay
			continue
		}

		l.log.Warn("Поток прерван, переподключение", "error", err, "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > l.maxDelay {
			delay = l.maxDelay
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	checkpoint, err := l.mirror.Checkpoint()
	if err != nil {
		return err
	}

	body, err := l.api.OpenStream(ctx, checkpoint)
	if err != nil {
		return err
	}
	defer body.Close()

	l.log.Info("Поток открыт", "checkpoint", checkpoint)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data.WriteString(strings.TrimPrefix(line, "data: "))
		case line == "":
			if eventType != "" && data.Len() > 0 {
				if err := l.handle(ctx, eventType, data.String()); err != nil {
					return err
				}
			}
			eventType = ""
			data.Reset()
		}
	}

	return scanner.Err()
}

func (l *Listener) handle(ctx context.Context, eventType, data string) error {
	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return fmt.Errorf("ошибка парсинга события: %w", err)
	}

	if eventType == typeSyncCompleted {
		var marker struct {
			Checkpoint int64 `json:"checkpoint"`
		}
		if err := json.Unmarshal(env.Payload, &marker); err == nil && marker.Checkpoint > 0 {
			if err := l.mirror.SetCheckpoint(marker.Checkpoint); err != nil {
				return err
			}
		}
		l.log.Info("Реплей завершен, переход к живому потоку")
		l.notify(env)
		return nil
	}

	if err := applyEnvelope(l.mirror, env); err != nil {
		return fmt.Errorf("ошибка применения события %d: %w", env.Seq, err)
	}

	if err := l.mirror.SetCheckpoint(env.Seq); err != nil {
		return err
	}

	if err := l.api.Ack(ctx, env.Seq); err != nil {
		// Неподтвержденное событие сервер доставит повторно, применение идемпотентно
		l.log.Warn("Не удалось подтвердить событие", "seq", env.Seq, "error", err)
	}

	l.notify(env)
	return nil
}

func (l *Listener) notify(env Envelope) {
	if l.OnEvent != nil {
		l.OnEvent(env)
	}
}

// applyEnvelope раскладывает снимок из события по таблицам зеркала.
// Повторное применение того же события не меняет состояние.
func applyEnvelope(m Mirror, env Envelope) error {
	switch env.Type {
	case typeTransferStatusChanged:
		var snap struct {
			ID             string    `json:"id"`
			TransferNumber string    `json:"transfer_number"`
			FromStoreID    string    `json:"from_store_id"`
			ToStoreID      string    `json:"to_store_id"`
			Status         string    `json:"status"`
			Version        int       `json:"version"`
			UpdatedAt      time.Time `json:"updated_at"`
		}
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			return err
		}
		updatedAt := snap.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = env.Timestamp
		}
		return m.ApplyTransfer(&LocalTransfer{
			ID:             snap.ID,
			TransferNumber: snap.TransferNumber,
			FromStoreID:    snap.FromStoreID,
			ToStoreID:      snap.ToStoreID,
			Status:         snap.Status,
			Version:        snap.Version,
			Snapshot:       env.Payload,
			UpdatedAt:      updatedAt,
		})

	case typePriceUpdated:
		var snap struct {
			ProductID string          `json:"product_id"`
			BasePrice decimal.Decimal `json:"base_price"`
			Version   int             `json:"version"`
			UpdatedAt time.Time       `json:"updated_at"`
		}
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			return err
		}
		updatedAt := snap.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = env.Timestamp
		}
		return m.ApplyPrice(&LocalPrice{
			ProductID: snap.ProductID,
			BasePrice: snap.BasePrice.String(),
			Version:   snap.Version,
			Snapshot:  env.Payload,
			UpdatedAt: updatedAt,
		})

	case typeInventoryUpdated:
		var snap struct {
			StoreID   string    `json:"store_id"`
			ProductID string    `json:"product_id"`
			Quantity  int       `json:"quantity"`
			Version   int       `json:"version"`
			UpdatedAt time.Time `json:"updated_at"`
		}
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			return err
		}
		updatedAt := snap.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = env.Timestamp
		}
		return m.ApplyStock(&LocalStock{
			StoreID:   snap.StoreID,
			ProductID: snap.ProductID,
			Quantity:  snap.Quantity,
			Version:   snap.Version,
			Snapshot:  env.Payload,
			UpdatedAt: updatedAt,
		})

	case typeStoreAlert, typePromotionUpdated:
		return m.SaveAlert(&LocalAlert{
			Seq:        env.Seq,
			Type:       env.Type,
			Payload:    env.Payload,
			ReceivedAt: env.Timestamp,
		})
	}

	// Неизвестный тип: подтверждаем и пропускаем
	return nil
}
