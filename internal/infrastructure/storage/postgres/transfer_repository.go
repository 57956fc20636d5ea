package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/transfer"
)

// TransferRepository реализация хранилища заявок для PostgreSQL.
// Позиции и трекинг-история хранятся как JSONB: заявка читается и
// сохраняется целиком, версия защищает от потерянных обновлений.
type TransferRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewTransferRepository создает репозиторий заявок
func NewTransferRepository(pool *pgxpool.Pool, log *slog.Logger) *TransferRepository {
	return &TransferRepository{
		pool: pool,
		log:  log.With("component", "transfer_repository"),
	}
}

const transferColumns = `id, transfer_number, from_store_id, to_store_id, status, priority,
	       items, requested_by, approved_by, tracking_number, estimated_delivery,
	       actual_delivery, notes, tracking, version, created_at, updated_at`

// Create сохраняет новую заявку
func (r *TransferRepository) Create(ctx context.Context, req *transfer.TransferRequest) error {
	const query = `
		INSERT INTO transfer_requests
			(id, transfer_number, from_store_id, to_store_id, status, priority,
			 items, requested_by, approved_by, tracking_number, estimated_delivery,
			 actual_delivery, notes, tracking, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	items, tracking, err := marshalTransferJSON(req)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		req.ID, req.TransferNumber, req.FromStoreID, req.ToStoreID, req.Status, req.Priority,
		items, req.RequestedBy, req.ApprovedBy, req.TrackingNumber, req.EstimatedDelivery,
		req.ActualDelivery, req.Notes, tracking, req.Version, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		r.log.Error("failed to create transfer",
			"transfer_number", req.TransferNumber, "error", err)
		return fmt.Errorf("create transfer: %w", err)
	}

	return nil
}

// GetByID возвращает заявку по идентификатору
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*transfer.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1`

	req, err := scanTransfer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrNotFound
		}
		r.log.Error("failed to get transfer", "transfer_id", id, "error", err)
		return nil, fmt.Errorf("get transfer: %w", err)
	}

	return req, nil
}

// List возвращает заявки по фильтру, свежие первыми
func (r *TransferRepository) List(ctx context.Context, filter transfer.Filter) ([]*transfer.TransferRequest, error) {
	var (
		conds []string
		args  []any
	)

	if filter.StoreID != "" {
		args = append(args, filter.StoreID)
		n := strconv.Itoa(len(args))
		conds = append(conds, "(from_store_id = $"+n+" OR to_store_id = $"+n+")")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + transferColumns + ` FROM transfer_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list transfers", "error", err)
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*transfer.TransferRequest
	for rows.Next() {
		req, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}

	return transfers, nil
}

// Update сохраняет заявку при совпадении версии
func (r *TransferRepository) Update(ctx context.Context, req *transfer.TransferRequest, expectedVersion int) error {
	const query = `
		UPDATE transfer_requests
		SET status = $1, priority = $2, items = $3, approved_by = $4,
		    tracking_number = $5, estimated_delivery = $6, actual_delivery = $7,
		    notes = $8, tracking = $9, version = $10, updated_at = $11
		WHERE id = $12 AND version = $13`

	items, tracking, err := marshalTransferJSON(req)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, query,
		req.Status, req.Priority, items, req.ApprovedBy,
		req.TrackingNumber, req.EstimatedDelivery, req.ActualDelivery,
		req.Notes, tracking, req.Version, req.UpdatedAt,
		req.ID, expectedVersion,
	)
	if err != nil {
		r.log.Error("failed to update transfer",
			"transfer_number", req.TransferNumber, "error", err)
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо заявки нет, либо версия устарела.
		if _, gerr := r.GetByID(ctx, req.ID); gerr != nil {
			return gerr
		}
		return transfer.ErrVersionConflict
	}

	return nil
}

func marshalTransferJSON(req *transfer.TransferRequest) ([]byte, []byte, error) {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal items: %w", err)
	}
	tracking, err := json.Marshal(req.Tracking)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tracking: %w", err)
	}
	return items, tracking, nil
}

func scanTransfer(row pgx.Row) (*transfer.TransferRequest, error) {
	var (
		req      transfer.TransferRequest
		items    []byte
		tracking []byte
	)

	err := row.Scan(
		&req.ID,
		&req.TransferNumber,
		&req.FromStoreID,
		&req.ToStoreID,
		&req.Status,
		&req.Priority,
		&items,
		&req.RequestedBy,
		&req.ApprovedBy,
		&req.TrackingNumber,
		&req.EstimatedDelivery,
		&req.ActualDelivery,
		&req.Notes,
		&tracking,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &req.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(tracking, &req.Tracking); err != nil {
		return nil, fmt.Errorf("unmarshal tracking: %w", err)
	}

	return &req, nil
}
