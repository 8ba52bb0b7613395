package affinity

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// numeric читаем текстом, без потери точности
var walletColumns = []string{
	"owner_id", "balance::text", "total_purchased::text", "total_spent::text",
	"transaction_count", "created_at", "updated_at",
}

var ledgerColumns = []string{
	"id", "owner_id", "seq", "delta::text", "balance_before::text", "balance_after::text",
	"source", "reference", "created_at",
}

type pgWalletTx struct {
	db       *PostgresDB
	tx       pgx.Tx
	wallet   model.Wallet
	appended bool
}

func (t *pgWalletTx) Wallet() model.Wallet {
	return t.wallet
}

func (t *pgWalletTx) Append(ctx context.Context, w model.Wallet, entry model.LedgerEntry) error {
	if t.appended {
		return fmt.Errorf("one entry per wallet update")
	}
	upd := psql.Update("wallets").
		Set("balance", w.Balance.String()).
		Set("total_purchased", w.TotalPurchased.String()).
		Set("total_spent", w.TotalSpent.String()).
		Set("transaction_count", w.TransactionCount).
		Set("updated_at", w.UpdatedAt).
		Where(sq.Eq{"owner_id": w.OwnerID})
	if err := t.db.exec(ctx, t.tx, "Append", upd); err != nil {
		return err
	}

	var reference pgtype.Text
	if entry.Reference != "" {
		reference = pgtype.Text{String: entry.Reference, Status: pgtype.Present}
	} else {
		reference = pgtype.Text{Status: pgtype.Null}
	}
	ins := psql.Insert("ledger").
		Columns("id", "owner_id", "seq", "delta", "balance_before", "balance_after", "source", "reference", "created_at").
		Values(entry.ID, entry.OwnerID, entry.Seq, entry.Delta.String(), entry.BalanceBefore.String(),
			entry.BalanceAfter.String(), string(entry.Source), reference, entry.Timestamp)
	if err := t.db.exec(ctx, t.tx, "Append", ins); err != nil {
		return err
	}
	t.appended = true
	return nil
}

// UpdateWallet - строка кошелька блокируется на время fn
func (p *PostgresDB) UpdateWallet(ctx context.Context, ownerID string, now time.Time, fn func(tx interf.WalletTx) error) error {
	return p.inTx(ctx, func(tx pgx.Tx) error {
		ins := psql.Insert("wallets").
			Columns("owner_id", "balance", "total_purchased", "total_spent", "transaction_count", "created_at", "updated_at").
			Values(ownerID, "0", "0", "0", 0, now, now).
			Suffix("ON CONFLICT (owner_id) DO NOTHING")
		if err := p.exec(ctx, tx, "UpdateWallet", ins); err != nil {
			return err
		}

		sql, args, err := psql.Select(walletColumns...).
			From("wallets").
			Where(sq.Eq{"owner_id": ownerID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			p.logSQL("UpdateWallet", sql, args, err)
			return err
		}
		w, err := scanWallet(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			p.logSQL("UpdateWallet", sql, args, err)
			return err
		}

		wtx := &pgWalletTx{db: p, tx: tx, wallet: w}
		if err := fn(wtx); err != nil {
			return err
		}
		// без записи в журнал кошелек не создаем
		if !wtx.appended && w.TransactionCount == 0 {
			return p.exec(ctx, tx, "UpdateWallet", psql.Delete("wallets").
				Where(sq.Eq{"owner_id": ownerID, "transaction_count": 0}))
		}
		return nil
	})
}

func scanWallet(row pgx.Row) (w model.Wallet, err error) {
	var balance, purchased, spent string
	err = row.Scan(&w.OwnerID, &balance, &purchased, &spent, &w.TransactionCount, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return w, err
	}
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return w, err
	}
	if w.TotalPurchased, err = decimal.NewFromString(purchased); err != nil {
		return w, err
	}
	if w.TotalSpent, err = decimal.NewFromString(spent); err != nil {
		return w, err
	}
	return w, nil
}

func (p *PostgresDB) GetWallet(ctx context.Context, ownerID string) (model.Wallet, error) {
	sql, args, err := psql.Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return model.Wallet{}, err
	}
	w, err := scanWallet(p.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Wallet{}, fmt.Errorf("wallet %w", model.ErrNotFound)
		}
		p.logSQL("GetWallet", sql, args, err)
		return model.Wallet{}, err
	}
	return w, nil
}

func scanEntry(row pgx.Row) (e model.LedgerEntry, err error) {
	var delta, before, after, source string
	var reference pgtype.Text
	err = row.Scan(&e.ID, &e.OwnerID, &e.Seq, &delta, &before, &after, &source, &reference, &e.Timestamp)
	if err != nil {
		return e, err
	}
	if e.Delta, err = decimal.NewFromString(delta); err != nil {
		return e, err
	}
	if e.BalanceBefore, err = decimal.NewFromString(before); err != nil {
		return e, err
	}
	if e.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return e, err
	}
	e.Source = model.Source(source)
	if reference.Status == pgtype.Present {
		e.Reference = reference.String
	}
	return e, nil
}

func (p *PostgresDB) GetEntries(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]model.LedgerEntry, error) {
	if _, err := p.GetWallet(ctx, ownerID); err != nil {
		return nil, err
	}

	q := psql.Select(ledgerColumns...).
		From("ledger").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("seq")
	if !from.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": from})
	}
	if !to.IsZero() {
		q = q.Where(sq.LtOrEq{"created_at": to})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		p.logSQL("GetEntries", sql, args, err)
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgresDB) GetOwners(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, "SELECT owner_id FROM wallets ORDER BY owner_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
