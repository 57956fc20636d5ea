package client

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Mirror — локальное зеркало данных магазина. Применение снимка идемпотентно:
// повторная доставка того же события не меняет состояние, устаревшая версия
// не затирает более новую.
type Mirror interface {
	ApplyTransfer(t *LocalTransfer) error
	ApplyPrice(p *LocalPrice) error
	ApplyStock(s *LocalStock) error
	SaveAlert(a *LocalAlert) error

	GetTransfer(id string) (*LocalTransfer, error)
	ListTransfers(status string) ([]*LocalTransfer, error)
	GetPrice(productID string) (*LocalPrice, error)
	ListPrices() ([]*LocalPrice, error)
	ListStock(storeID string) ([]*LocalStock, error)
	ListAlerts(limit int) ([]*LocalAlert, error)

	Checkpoint() (int64, error)
	SetCheckpoint(seq int64) error

	Close() error
}

type SQLiteMirror struct {
	db *sql.DB
}

func NewSQLiteMirror(path string) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	m := &SQLiteMirror{db: db}

	if err := m.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return m, nil
}

func (m *SQLiteMirror) initTables() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS transfers (
			id TEXT PRIMARY KEY,
			transfer_number TEXT NOT NULL,
			from_store TEXT NOT NULL,
			to_store TEXT NOT NULL,
			status TEXT NOT NULL,
			version INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status);

		CREATE TABLE IF NOT EXISTS prices (
			product_id TEXT PRIMARY KEY,
			base_price TEXT NOT NULL,
			version INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS stock_levels (
			store_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			version INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (store_id, product_id)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			seq INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS checkpoint (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			seq INTEGER NOT NULL
		);
	`)

	return err
}

func (m *SQLiteMirror) ApplyTransfer(t *LocalTransfer) error {
	// Версионный барьер: снимок с меньшей версией игнорируется
	_, err := m.db.Exec(`
		INSERT INTO transfers (id, transfer_number, from_store, to_store, status, version, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			transfer_number = excluded.transfer_number,
			from_store = excluded.from_store,
			to_store = excluded.to_store,
			status = excluded.status,
			version = excluded.version,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
		WHERE excluded.version >= transfers.version
	`, t.ID, t.TransferNumber, t.FromStoreID, t.ToStoreID, t.Status, t.Version, string(t.Snapshot), t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("ошибка сохранения перемещения: %w", err)
	}

	return nil
}

func (m *SQLiteMirror) ApplyPrice(p *LocalPrice) error {
	_, err := m.db.Exec(`
		INSERT INTO prices (product_id, base_price, version, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			base_price = excluded.base_price,
			version = excluded.version,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
		WHERE excluded.version >= prices.version
	`, p.ProductID, p.BasePrice, p.Version, string(p.Snapshot), p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("ошибка сохранения цены: %w", err)
	}

	return nil
}

func (m *SQLiteMirror) ApplyStock(s *LocalStock) error {
	_, err := m.db.Exec(`
		INSERT INTO stock_levels (store_id, product_id, quantity, version, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id, product_id) DO UPDATE SET
			quantity = excluded.quantity,
			version = excluded.version,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
		WHERE excluded.version >= stock_levels.version
	`, s.StoreID, s.ProductID, s.Quantity, s.Version, string(s.Snapshot), s.UpdatedAt)

	if err != nil {
		return fmt.Errorf("ошибка сохранения остатка: %w", err)
	}

	return nil
}

func (m *SQLiteMirror) SaveAlert(a *LocalAlert) error {
	// Повторная доставка того же seq не плодит дубликаты
	_, err := m.db.Exec(`
		INSERT OR IGNORE INTO alerts (seq, type, payload, received_at)
		VALUES (?, ?, ?, ?)
	`, a.Seq, a.Type, string(a.Payload), a.ReceivedAt)

	if err != nil {
		return fmt.Errorf("ошибка сохранения уведомления: %w", err)
	}

	return nil
}

func (m *SQLiteMirror) GetTransfer(id string) (*LocalTransfer, error) {
	var t LocalTransfer
	var snapshot string
	var updatedAt string

	err := m.db.QueryRow(`
		SELECT id, transfer_number, from_store, to_store, status, version, snapshot, updated_at
		FROM transfers WHERE id = ?
	`, id).Scan(&t.ID, &t.TransferNumber, &t.FromStoreID, &t.ToStoreID, &t.Status, &t.Version, &snapshot, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("перемещение не найдено: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения перемещения: %w", err)
	}

	t.Snapshot = []byte(snapshot)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &t, nil
}

func (m *SQLiteMirror) ListTransfers(status string) ([]*LocalTransfer, error) {
	query := "SELECT id, transfer_number, from_store, to_store, status, version, snapshot, updated_at FROM transfers"
	args := []interface{}{}

	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var transfers []*LocalTransfer
	for rows.Next() {
		var t LocalTransfer
		var snapshot, updatedAt string

		if err := rows.Scan(&t.ID, &t.TransferNumber, &t.FromStoreID, &t.ToStoreID,
			&t.Status, &t.Version, &snapshot, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования перемещения: %w", err)
		}

		t.Snapshot = []byte(snapshot)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		transfers = append(transfers, &t)
	}

	return transfers, rows.Err()
}

func (m *SQLiteMirror) GetPrice(productID string) (*LocalPrice, error) {
	var p LocalPrice
	var snapshot, updatedAt string

	err := m.db.QueryRow(`
		SELECT product_id, base_price, version, snapshot, updated_at
		FROM prices WHERE product_id = ?
	`, productID).Scan(&p.ProductID, &p.BasePrice, &p.Version, &snapshot, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("цена не найдена: %s", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения цены: %w", err)
	}

	p.Snapshot = []byte(snapshot)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &p, nil
}

func (m *SQLiteMirror) ListPrices() ([]*LocalPrice, error) {
	rows, err := m.db.Query(`
		SELECT product_id, base_price, version, snapshot, updated_at
		FROM prices ORDER BY product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var prices []*LocalPrice
	for rows.Next() {
		var p LocalPrice
		var snapshot, updatedAt string

		if err := rows.Scan(&p.ProductID, &p.BasePrice, &p.Version, &snapshot, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования цены: %w", err)
		}

		p.Snapshot = []byte(snapshot)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		prices = append(prices, &p)
	}

	return prices, rows.Err()
}

func (m *SQLiteMirror) ListStock(storeID string) ([]*LocalStock, error) {
	query := "SELECT store_id, product_id, quantity, version, snapshot, updated_at FROM stock_levels"
	args := []interface{}{}

	if storeID != "" {
		query += " WHERE store_id = ?"
		args = append(args, storeID)
	}
	query += " ORDER BY product_id"

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var stock []*LocalStock
	for rows.Next() {
		var s LocalStock
		var snapshot, updatedAt string

		if err := rows.Scan(&s.StoreID, &s.ProductID, &s.Quantity, &s.Version, &snapshot, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования остатка: %w", err)
		}

		s.Snapshot = []byte(snapshot)
		s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		stock = append(stock, &s)
	}

	return stock, rows.Err()
}

func (m *SQLiteMirror) ListAlerts(limit int) ([]*LocalAlert, error) {
	query := "SELECT seq, type, payload, received_at FROM alerts ORDER BY seq DESC"
	args := []interface{}{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var alerts []*LocalAlert
	for rows.Next() {
		var a LocalAlert
		var payload, receivedAt string

		if err := rows.Scan(&a.Seq, &a.Type, &payload, &receivedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования уведомления: %w", err)
		}

		a.Payload = []byte(payload)
		a.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt)
		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}

func (m *SQLiteMirror) Checkpoint() (int64, error) {
	var seq int64
	err := m.db.QueryRow("SELECT seq FROM checkpoint WHERE id = 1").Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения контрольной точки: %w", err)
	}

	return seq, nil
}

func (m *SQLiteMirror) SetCheckpoint(seq int64) error {
	// Контрольная точка не откатывается назад
	_, err := m.db.Exec(`
		INSERT INTO checkpoint (id, seq) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET seq = excluded.seq
		WHERE excluded.seq > checkpoint.seq
	`, seq)

	if err != nil {
		return fmt.Errorf("ошибка сохранения контрольной точки: %w", err)
	}

	return nil
}

func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}
