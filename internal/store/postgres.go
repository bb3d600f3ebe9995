package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"betpro/internal/money"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	accountColumns = `id, display_name, credential_hash, balance_minor, version, created_at, updated_at`
	wagerColumns   = `id, account_id, match_id, home_team, away_team, league, side, selected_team, price::text, stake_minor, potential_payout_minor, status, placed_at, settled_at`
	entryColumns   = `id, account_id, type, amount_minor, balance_after_minor, ref_type, ref_id, created_at`
)

// Postgres is the relational Store, one SQL transaction per mutating call.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgresWithDB(db), nil
}

func NewPostgresWithDB(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// ApplySchema executes a DDL script such as migrations/000001_init.up.sql.
func (s *Postgres) ApplySchema(ctx context.Context, ddl string) error {
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a   Account
		bal int64
	)
	if err := row.Scan(&a.ID, &a.DisplayName, &a.CredentialHash, &bal, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Balance = money.Amount(bal)
	if a.Balance < 0 {
		return nil, fmt.Errorf("account %s balance %s: %w", a.ID, a.Balance, ErrCorrupt)
	}
	return &a, nil
}

func scanWager(row rowScanner) (*Wager, error) {
	var (
		w         Wager
		price     string
		stake     int64
		payout    int64
		status    string
		settledAt sql.NullTime
	)
	err := row.Scan(&w.ID, &w.AccountID, &w.MatchID, &w.HomeTeam, &w.AwayTeam, &w.League, &w.Side, &w.SelectedTeam,
		&price, &stake, &payout, &status, &w.PlacedAt, &settledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p, err := money.ParsePrice(price)
	if err != nil {
		return nil, fmt.Errorf("wager %s price %q: %w", w.ID, price, ErrCorrupt)
	}
	w.Price = p
	w.Stake = money.Amount(stake)
	w.PotentialPayout = money.Amount(payout)
	w.Status = WagerStatus(status)
	if settledAt.Valid {
		t := settledAt.Time
		w.SettledAt = &t
	}
	if !w.Status.Valid() || (w.Status == WagerPending) != (w.SettledAt == nil) {
		return nil, fmt.Errorf("wager %s status %q: %w", w.ID, status, ErrCorrupt)
	}
	return &w, nil
}

func scanEntry(row rowScanner) (*LedgerEntry, error) {
	var (
		e      LedgerEntry
		amount int64
		after  int64
	)
	if err := row.Scan(&e.ID, &e.AccountID, &e.Type, &amount, &after, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Amount = money.Amount(amount)
	e.BalanceAfter = money.Amount(after)
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Postgres) CreateAccount(ctx context.Context, acc Account, entry *LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		acc.ID, acc.DisplayName, acc.CredentialHash, int64(acc.Balance), acc.Version, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if entry != nil {
		if err := insertEntry(ctx, tx, *entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Postgres) GetAccount(ctx context.Context, id string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (s *Postgres) GetAccountByName(ctx context.Context, displayName string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE display_name = $1`, displayName))
}

func (s *Postgres) ListAccounts(ctx context.Context, limit, offset int) ([]Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at ASC, id ASC`
	q, args := appendPage(q, nil, limit, offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveAccount(ctx context.Context, acc Account, entry *LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.casAccount(ctx, tx, acc); err != nil {
		return err
	}
	if entry != nil {
		if err := insertEntry(ctx, tx, *entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Postgres) casAccount(ctx context.Context, tx *sql.Tx, acc Account) error {
	if acc.Balance < 0 {
		return fmt.Errorf("account %s balance %s: %w", acc.ID, acc.Balance, ErrCorrupt)
	}
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET balance_minor = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4`,
		int64(acc.Balance), s.now().UTC(), acc.ID, acc.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	return missingOrConflict(ctx, tx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, acc.ID)
}

func missingOrConflict(ctx context.Context, tx *sql.Tx, query, id string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *Postgres) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) GetWager(ctx context.Context, id string) (*Wager, error) {
	return scanWager(s.db.QueryRowContext(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE id = $1`, id))
}

func (s *Postgres) ListWagers(ctx context.Context, f WagerFilter, limit, offset int) ([]Wager, error) {
	var (
		where []string
		args  []any
	)
	if f.AccountID != "" {
		args = append(args, f.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("placed_at >= $%d", len(args)))
	}
	q := `SELECT ` + wagerColumns + ` FROM wagers`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY placed_at DESC, id DESC`
	q, args = appendPage(q, args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Wager{}
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *Postgres) PlaceWagers(ctx context.Context, acc Account, wagers []Wager, entries []LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.casAccount(ctx, tx, acc); err != nil {
		return err
	}
	for _, w := range wagers {
		if err := insertWager(ctx, tx, w); err != nil {
			return fmt.Errorf("insert wager %s: %w", w.ID, err)
		}
	}
	for _, e := range entries {
		if err := insertEntry(ctx, tx, e); err != nil {
			return fmt.Errorf("insert ledger entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Postgres) SettleWager(ctx context.Context, w Wager, acc *Account, entry *LedgerEntry) error {
	if w.SettledAt == nil || w.Status == WagerPending {
		return fmt.Errorf("settle wager %s without terminal status: %w", w.ID, ErrCorrupt)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE wagers SET status = $1, settled_at = $2 WHERE id = $3 AND status = 'pending'`,
		string(w.Status), *w.SettledAt, w.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return missingOrConflict(ctx, tx, `SELECT EXISTS (SELECT 1 FROM wagers WHERE id = $1)`, w.ID)
	}
	if acc != nil {
		if err := s.casAccount(ctx, tx, *acc); err != nil {
			return err
		}
	}
	if entry != nil {
		if err := insertEntry(ctx, tx, *entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Postgres) ListLedgerEntries(ctx context.Context, f LedgerFilter, limit, offset int) ([]LedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.AccountID != "" {
		args = append(args, f.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	q := `SELECT ` + entryColumns + ` FROM ledger_entries`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`
	q, args = appendPage(q, args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

func insertWager(ctx context.Context, tx *sql.Tx, w Wager) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO wagers (id, account_id, match_id, home_team, away_team, league, side, selected_team, price, stake_minor, potential_payout_minor, status, placed_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		w.ID, w.AccountID, w.MatchID, w.HomeTeam, w.AwayTeam, w.League, w.Side, w.SelectedTeam,
		w.Price.String(), int64(w.Stake), int64(w.PotentialPayout), string(w.Status), w.PlacedAt)
	return err
}

func insertEntry(ctx context.Context, tx *sql.Tx, e LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO ledger_entries (`+entryColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.AccountID, e.Type, int64(e.Amount), int64(e.BalanceAfter), e.RefType, e.RefID, e.CreatedAt)
	return err
}

func appendPage(q string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return q, args
}
