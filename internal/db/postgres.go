package affinity

import (
	"context"
	"fmt"
	"os"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PostgresDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DSN из переменных окружения
func PostgresDSN() (string, error) {
	purl := os.Getenv("AFFINITY_DB")
	if purl == "" {
		return "", fmt.Errorf("env AFFINITY_DB is not set")
	}
	port := os.Getenv("AFFINITY_DB_PORT")
	if port == "" {
		return "", fmt.Errorf("env AFFINITY_DB_PORT is not set")
	}
	user := os.Getenv("AFFINITY_DB_USER")
	if user == "" {
		return "", fmt.Errorf("env AFFINITY_DB_USER is not set")
	}
	password := os.Getenv("AFFINITY_DB_PASSWORD")
	if password == "" {
		return "", fmt.Errorf("env AFFINITY_DB_PASSWORD is not set")
	}
	database := os.Getenv("AFFINITY_DB_BASE")
	if database == "" {
		return "", fmt.Errorf("env AFFINITY_DB_BASE is not set")
	}
	return "postgres://" + user + ":" + password + "@" + purl + ":" + port + "/" + database, nil
}

func NewPostgresDB(ctx context.Context, logger *zap.Logger) (*PostgresDB, error) {
	dsn, err := PostgresDSN()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresDB{pool, logger}, nil
}

func (p *PostgresDB) Close() {
	p.pool.Close()
}

func (p *PostgresDB) logSQL(service string, sql string, args []any, err error) {
	p.logger.Error("SQL error",
		zap.String("service", service),
		zap.Error(err),
		zap.String("query", sql),
		zap.Any("args", args),
	)
}

// выполнить fn в транзакции; rollback при ошибке
func (p *PostgresDB) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		p.logger.Error("Get connection error", zap.Error(err))
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *PostgresDB) exec(ctx context.Context, tx pgx.Tx, service string, b sq.Sqlizer) error {
	sql, args, err := b.ToSql()
	if err != nil {
		p.logSQL(service, sql, args, err)
		return err
	}
	if _, err = tx.Exec(ctx, sql, args...); err != nil {
		p.logSQL(service, sql, args, err)
		return err
	}
	return nil
}
