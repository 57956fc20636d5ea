package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/dispatch"
	"storesync/internal/domain/event"
	"storesync/internal/domain/store"
)

const replayPageSize = 200

// Handler потоковая доставка событий магазину: SSE-поток с реплеем от
// контрольной точки и подтверждение получения отдельным POST.
// Huma здесь не используется — долгоживущий поток не укладывается в
// модель запрос-ответ.
type Handler struct {
	events   event.Servicer
	stores   store.Servicer
	registry *dispatch.Registry
	log      *slog.Logger
}

func NewHandler(events event.Servicer, stores store.Servicer, registry *dispatch.Registry, log *slog.Logger) *Handler {
	return &Handler{
		events:   events,
		stores:   stores,
		registry: registry,
		log:      log.With("component", "stream_handler"),
	}
}

func (h *Handler) SetupRoutes(mux *chi.Mux) {
	mux.Get("/api/v1/stream", h.stream)
	mux.Post("/api/v1/stream/ack", h.ack)
}

// stream держит SSE-соединение магазина: сначала реплей исторических
// событий от контрольной точки, затем маркер SYNC_COMPLETED, затем
// живые конверты от координатора.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store")
	if storeID == "" {
		http.Error(w, "store query parameter is required", http.StatusBadRequest)
		return
	}

	st, err := h.stores.Get(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unknown store", http.StatusNotFound)
			return
		}
		http.Error(w, "store lookup failed", http.StatusInternalServerError)
		return
	}
	if !st.Active {
		http.Error(w, "store is deactivated", http.StatusForbidden)
		return
	}

	checkpoint := int64(0)
	if raw := r.URL.Query().Get("checkpoint"); raw != "" {
		checkpoint, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || checkpoint < 0 {
			http.Error(w, "checkpoint must be a non-negative integer", http.StatusBadRequest)
			return
		}
	}
	// События до ввода магазина в эксплуатацию не доставляются.
	if checkpoint < st.ProvisionedSeq {
		checkpoint = st.ProvisionedSeq
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Регистрация до реплея: живые события копятся в канале, пока идет
	// история, и не теряются.
	ch := h.registry.Register(st.Code)
	defer h.registry.Deregister(st.Code, ch)

	h.log.Info("stream opened", "store_id", st.Code, "checkpoint", checkpoint)

	lastSeq, err := h.replay(w, flusher, r, st.Code, checkpoint)
	if err != nil {
		h.log.Warn("replay interrupted", "store_id", st.Code, "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			h.log.Info("stream closed by client", "store_id", st.Code)
			return
		case env, ok := <-ch.Out():
			if !ok {
				h.log.Info("stream displaced by newer connection", "store_id", st.Code)
				return
			}
			// Конверт, уже отданный реплеем, не дублируется.
			if env.Seq <= lastSeq {
				ch.Ack(env.Seq)
				continue
			}
			if err := writeEnvelope(w, env); err != nil {
				h.log.Warn("stream write failed", "store_id", st.Code, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// replay отдает исторические события страницами и завершает историю
// маркером SYNC_COMPLETED. Возвращает наибольший отданный Seq.
func (h *Handler) replay(w http.ResponseWriter, flusher http.Flusher, r *http.Request, storeID string, checkpoint int64) (int64, error) {
	lastSeq := checkpoint
	for {
		events, err := h.events.Replay(r.Context(), storeID, lastSeq, replayPageSize)
		if err != nil {
			return lastSeq, err
		}
		if len(events) == 0 {
			break
		}

		for _, evt := range events {
			if err := writeEnvelope(w, dispatch.NewEnvelope(evt)); err != nil {
				return lastSeq, err
			}
			lastSeq = evt.Seq
		}
		flusher.Flush()
	}

	marker, err := json.Marshal(map[string]int64{"checkpoint": lastSeq})
	if err != nil {
		return lastSeq, err
	}
	if err := writeEnvelope(w, dispatch.Envelope{
		Seq:       lastSeq,
		Type:      event.TypeSyncCompleted,
		Payload:   marker,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return lastSeq, err
	}
	flusher.Flush()

	return lastSeq, nil
}

func writeEnvelope(w http.ResponseWriter, env dispatch.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Type, data); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}

type ackRequest struct {
	Store string `json:"store"`
	Seq   int64  `json:"seq"`
}

// ack подтверждает получение конверта магазином
func (h *Handler) ack(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid ack body", http.StatusBadRequest)
		return
	}
	if req.Store == "" || req.Seq <= 0 {
		http.Error(w, "store and seq are required", http.StatusBadRequest)
		return
	}

	if err := h.registry.Ack(req.Store, req.Seq); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
