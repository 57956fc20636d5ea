package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/app/client/config"
	"storesync/internal/domain/event"
	"storesync/internal/domain/pricing"
	"storesync/internal/domain/store"
	"storesync/internal/domain/transfer"

	"github.com/shopspring/decimal"
)

type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	storeCode string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	baseURL := scheme + cfg.ServerAddress

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   baseURL,
		storeCode: cfg.StoreCode,
		userAgent: "Storesync-Agent/1.0",
	}, nil
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	return nil
}

// ==================== Stores ====================

func (h *httpClient) ProvisionStore(ctx context.Context, code, name, location string) (*store.Store, error) {
	body := struct {
		Code     string `json:"code"`
		Name     string `json:"name"`
		Location string `json:"location,omitempty"`
	}{Code: code, Name: name, Location: location}

	resp, err := h.doRequest(ctx, "POST", "/api/v1/stores", body)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if err := h.parseResponse(resp, &st); err != nil {
		return nil, err
	}

	return &st, nil
}

func (h *httpClient) ListStores(ctx context.Context, activeOnly bool) ([]*store.Store, error) {
	path := "/api/v1/stores"
	if activeOnly {
		path += "?active=true"
	}

	resp, err := h.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var stores []*store.Store
	if err := h.parseResponse(resp, &stores); err != nil {
		return nil, err
	}

	return stores, nil
}

// ==================== Transfers ====================

func (h *httpClient) CreateTransfer(ctx context.Context, req transfer.CreateRequest) (*transfer.TransferRequest, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/transfers", req)
	if err != nil {
		return nil, err
	}

	var tr transfer.TransferRequest
	if err := h.parseResponse(resp, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

func (h *httpClient) GetTransfer(ctx context.Context, id string) (*transfer.TransferRequest, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/v1/transfers/"+id, nil)
	if err != nil {
		return nil, err
	}

	var tr transfer.TransferRequest
	if err := h.parseResponse(resp, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

func (h *httpClient) ListTransfers(ctx context.Context, storeID, status string) ([]*transfer.TransferRequest, error) {
	q := url.Values{}
	if storeID != "" {
		q.Set("store", storeID)
	}
	if status != "" {
		q.Set("status", status)
	}

	path := "/api/v1/transfers"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := h.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var transfers []*transfer.TransferRequest
	if err := h.parseResponse(resp, &transfers); err != nil {
		return nil, err
	}

	return transfers, nil
}

func (h *httpClient) ApproveTransfer(ctx context.Context, id, actor string, expectedVersion int, items []transfer.ApprovedItem) (*transfer.TransferRequest, error) {
	body := struct {
		Actor           string                  `json:"actor"`
		ExpectedVersion int                     `json:"expected_version"`
		Items           []transfer.ApprovedItem `json:"items"`
	}{Actor: actor, ExpectedVersion: expectedVersion, Items: items}

	resp, err := h.doRequest(ctx, "POST", "/api/v1/transfers/"+id+"/approve", body)
	if err != nil {
		return nil, err
	}

	var tr transfer.TransferRequest
	if err := h.parseResponse(resp, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

func (h *httpClient) RejectTransfer(ctx context.Context, id, actor string, expectedVersion int, reason string) (*transfer.TransferRequest, error) {
	body := struct {
		Actor           string `json:"actor"`
		ExpectedVersion int    `json:"expected_version"`
		Reason          string `json:"reason"`
	}{Actor: actor, ExpectedVersion: expectedVersion, Reason: reason}

	resp, err := h.doRequest(ctx, "POST", "/api/v1/transfers/"+id+"/reject", body)
	if err != nil {
		return nil, err
	}

	var tr transfer.TransferRequest
	if err := h.parseResponse(resp, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

func (h *httpClient) RequestModification(ctx context.Context, id, actor, message string) (*transfer.TransferRequest, error) {
	body := struct {
		Actor   string `json:"actor"`
		Message string `json:"message"`
	}{Actor: actor, Message: message}

	resp, err := h.doRequest(ctx, "POST", "/api/v1/transfers/"+id+"/modification", body)
	if err != nil {
		return nil, err
	}

	var tr transfer.TransferRequest
	if err := h.parseResponse(resp, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

// statusChangeRequest — тело запроса на перевод заявки по жизненному циклу
type statusChangeRequest struct {
	Target          string                  `json:"target"`
	Actor           string                  `json:"actor"`
	ExpectedVersion int                     `json:"expected_version"`
	Reason          string                  `json:"reason,omitempty"`
	Location        string                  `json:"location,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	ReceivedItems   []transfer.ReceivedItem `json:"received_items,omitempty"`
}

func (h *httpClient) ChangeTransferStatus(ctx context.Context, id string, req statusChangeRequest) (*transfer.TransferRequest, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/transfers/"+id+"/status", req)
	if err != nil {
		return nil, err
	}

	var tr transfer.TransferRequest
	if err := h.parseResponse(resp, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

func (h *httpClient) SetTracking(ctx context.Context, id, trackingNumber string, estimated *time.Time, expectedVersion int) (*transfer.TransferRequest, error) {
	body := struct {
		TrackingNumber    string     `json:"tracking_number"`
		EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
		ExpectedVersion   int        `json:"expected_version"`
	}{TrackingNumber: trackingNumber, EstimatedDelivery: estimated, ExpectedVersion: expectedVersion}

	resp, err := h.doRequest(ctx, "PUT", "/api/v1/transfers/"+id+"/tracking", body)
	if err != nil {
		return nil, err
	}

	var tr transfer.TransferRequest
	if err := h.parseResponse(resp, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

// ==================== Pricing ====================

func (h *httpClient) GetPricing(ctx context.Context, productID string) (*pricing.PricingRecord, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/v1/pricing/"+productID, nil)
	if err != nil {
		return nil, err
	}

	var rec pricing.PricingRecord
	if err := h.parseResponse(resp, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (h *httpClient) UpdatePricing(ctx context.Context, productID string, basePrice decimal.Decimal, adjustments []pricing.StoreAdjustment, expectedVersion int) (*pricing.PricingRecord, error) {
	body := struct {
		BasePrice        decimal.Decimal           `json:"base_price"`
		StoreAdjustments []pricing.StoreAdjustment `json:"store_adjustments,omitempty"`
		ExpectedVersion  int                       `json:"expected_version"`
	}{BasePrice: basePrice, StoreAdjustments: adjustments, ExpectedVersion: expectedVersion}

	resp, err := h.doRequest(ctx, "PUT", "/api/v1/pricing/"+productID, body)
	if err != nil {
		return nil, err
	}

	var rec pricing.PricingRecord
	if err := h.parseResponse(resp, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (h *httpClient) SyncPricing(ctx context.Context, productIDs []string) (int, error) {
	body := struct {
		ProductIDs []string `json:"product_ids"`
	}{ProductIDs: productIDs}

	resp, err := h.doRequest(ctx, "POST", "/api/v1/pricing/sync", body)
	if err != nil {
		return 0, err
	}

	var syncResp struct {
		Synced int `json:"synced"`
	}
	if err := h.parseResponse(resp, &syncResp); err != nil {
		return 0, err
	}

	return syncResp.Synced, nil
}

// ==================== Sync events ====================

func (h *httpClient) ListEvents(ctx context.Context, status string, limit int) ([]*event.SyncEvent, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/v1/sync/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := h.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var events []*event.SyncEvent
	if err := h.parseResponse(resp, &events); err != nil {
		return nil, err
	}

	return events, nil
}

func (h *httpClient) RetryEvent(ctx context.Context, id string) (*event.SyncEvent, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/sync/events/"+id+"/retry", nil)
	if err != nil {
		return nil, err
	}

	var evt event.SyncEvent
	if err := h.parseResponse(resp, &evt); err != nil {
		return nil, err
	}

	return &evt, nil
}

func (h *httpClient) AbandonEvent(ctx context.Context, id string) (*event.SyncEvent, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/v1/sync/events/"+id+"/abandon", nil)
	if err != nil {
		return nil, err
	}

	var evt event.SyncEvent
	if err := h.parseResponse(resp, &evt); err != nil {
		return nil, err
	}

	return &evt, nil
}

// ==================== Stream ====================

// OpenStream открывает SSE-поток событий. Тело ответа остается открытым,
// закрыть его обязан вызывающий.
func (h *httpClient) OpenStream(ctx context.Context, checkpoint int64) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("store", h.storeCode)
	q.Set("checkpoint", strconv.FormatInt(checkpoint, 10))

	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/v1/stream?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/event-stream")

	// Поток живет дольше обычного таймаута запроса
	streamClient := &http.Client{Transport: h.client.Transport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия потока: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("сервер вернул статус %d: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// Ack подтверждает прием события
func (h *httpClient) Ack(ctx context.Context, seq int64) error {
	body := struct {
		Store string `json:"store"`
		Seq   int64  `json:"seq"`
	}{Store: h.storeCode, Seq: seq}

	resp, err := h.doRequest(ctx, "POST", "/api/v1/stream/ack", body)
	if err != nil {
		return err
	}

	return h.parseResponse(resp, nil)
}

// ==================== Plumbing ====================

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.storeCode != "" {
		req.Header.Set("X-Store-ID", h.storeCode)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("ошибка сервера: %s", errResp.Detail)
		}
		return fmt.Errorf("ошибка сервера: статус %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
