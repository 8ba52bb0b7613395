package affinity

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
)

var scoreColumns = []string{
	"owner_id", "counterpart_id", "score", "tier",
	"message_count", "gift_count", "video_minutes", "voice_minutes",
	"total_spent", "created_at", "updated_at",
}

var grantColumns = []string{
	"id", "owner_id", "counterpart_id", "tier", "reward_type", "reward_payload",
	"claimed", "created_at", "claimed_at",
}

type pgScoreTx struct {
	db  *PostgresDB
	tx  pgx.Tx
	rec model.ScoreRecord
}

func (t *pgScoreTx) Record() model.ScoreRecord {
	return t.rec
}

func (t *pgScoreTx) GrantExists(ctx context.Context, tier int) (bool, error) {
	var exists bool
	row := t.tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM reward_grants WHERE owner_id = $1 AND counterpart_id = $2 AND tier = $3)",
		t.rec.OwnerID, t.rec.CounterpartID, tier)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *pgScoreTx) Save(ctx context.Context, rec model.ScoreRecord, grants []model.RewardGrant) error {
	upd := psql.Update("scores").
		Set("score", rec.Score).
		Set("tier", rec.Tier).
		Set("message_count", rec.Counters.MessageCount).
		Set("gift_count", rec.Counters.GiftCount).
		Set("video_minutes", rec.Counters.VideoMinutes).
		Set("voice_minutes", rec.Counters.VoiceMinutes).
		Set("total_spent", rec.TotalSpent).
		Set("updated_at", rec.UpdatedAt).
		Where(sq.Eq{"owner_id": rec.OwnerID, "counterpart_id": rec.CounterpartID})
	if err := t.db.exec(ctx, t.tx, "Save", upd); err != nil {
		return err
	}
	if len(grants) == 0 {
		return nil
	}

	// уникальность (owner, counterpart, tier) держит индекс
	ins := psql.Insert("reward_grants").Columns(grantColumns...)
	for _, g := range grants {
		payload, err := g.RewardPayload.Encode()
		if err != nil {
			return err
		}
		ins = ins.Values(g.ID, g.OwnerID, g.CounterpartID, g.Tier, string(g.RewardType), payload, false, g.CreatedAt, nil)
	}
	ins = ins.Suffix("ON CONFLICT (owner_id, counterpart_id, tier) DO NOTHING")
	return t.db.exec(ctx, t.tx, "Save", ins)
}

// UpdateScore - строка пары блокируется на время fn
func (p *PostgresDB) UpdateScore(ctx context.Context, ownerID, counterpartID string, now time.Time, fn func(tx interf.ScoreTx) error) error {
	return p.inTx(ctx, func(tx pgx.Tx) error {
		fresh := model.NewScoreRecord(ownerID, counterpartID, now)
		ins := psql.Insert("scores").
			Columns(scoreColumns...).
			Values(fresh.OwnerID, fresh.CounterpartID, 0, fresh.Tier, 0, 0, 0, 0, 0, now, now).
			Suffix("ON CONFLICT (owner_id, counterpart_id) DO NOTHING")
		if err := p.exec(ctx, tx, "UpdateScore", ins); err != nil {
			return err
		}

		sql, args, err := psql.Select(scoreColumns...).
			From("scores").
			Where(sq.Eq{"owner_id": ownerID, "counterpart_id": counterpartID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			p.logSQL("UpdateScore", sql, args, err)
			return err
		}
		rec, err := scanScore(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			p.logSQL("UpdateScore", sql, args, err)
			return err
		}

		return fn(&pgScoreTx{p, tx, rec})
	})
}

func scanScore(row pgx.Row) (rec model.ScoreRecord, err error) {
	err = row.Scan(&rec.OwnerID, &rec.CounterpartID, &rec.Score, &rec.Tier,
		&rec.Counters.MessageCount, &rec.Counters.GiftCount, &rec.Counters.VideoMinutes, &rec.Counters.VoiceMinutes,
		&rec.TotalSpent, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func (p *PostgresDB) GetScore(ctx context.Context, ownerID, counterpartID string) (model.ScoreRecord, error) {
	sql, args, err := psql.Select(scoreColumns...).
		From("scores").
		Where(sq.Eq{"owner_id": ownerID, "counterpart_id": counterpartID}).
		ToSql()
	if err != nil {
		return model.ScoreRecord{}, err
	}
	rec, err := scanScore(p.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ScoreRecord{}, fmt.Errorf("score %w", model.ErrNotFound)
		}
		p.logSQL("GetScore", sql, args, err)
		return model.ScoreRecord{}, err
	}
	return rec, nil
}

func scanGrant(row pgx.Row) (g model.RewardGrant, err error) {
	var rewardType string
	var payload pgtype.Text
	var claimedAt pgtype.Timestamptz
	err = row.Scan(&g.ID, &g.OwnerID, &g.CounterpartID, &g.Tier, &rewardType, &payload,
		&g.Claimed, &g.CreatedAt, &claimedAt)
	if err != nil {
		return g, err
	}
	g.RewardType = model.RewardKind(rewardType)
	blob := ""
	if payload.Status == pgtype.Present {
		blob = payload.String
	}
	if g.RewardPayload, err = model.DecodeRewardPayload(blob); err != nil {
		return g, err
	}
	if claimedAt.Status == pgtype.Present {
		t := claimedAt.Time
		g.ClaimedAt = &t
	}
	return g, nil
}

func (p *PostgresDB) GetGrants(ctx context.Context, ownerID, counterpartID string) ([]model.RewardGrant, error) {
	sql, args, err := psql.Select(grantColumns...).
		From("reward_grants").
		Where(sq.Eq{"owner_id": ownerID, "counterpart_id": counterpartID}).
		OrderBy("tier").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		p.logSQL("GetGrants", sql, args, err)
		return nil, err
	}
	defer rows.Close()

	var grants []model.RewardGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ClaimGrant - claimed меняется false -> true один раз
func (p *PostgresDB) ClaimGrant(ctx context.Context, grantID uuid.UUID, ownerID string, now time.Time) (grant model.RewardGrant, err error) {
	err = p.inTx(ctx, func(tx pgx.Tx) error {
		sql, args, err := psql.Select(grantColumns...).
			From("reward_grants").
			Where(sq.Eq{"id": grantID, "owner_id": ownerID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return err
		}
		grant, err = scanGrant(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("grant %w", model.ErrNotFound)
			}
			p.logSQL("ClaimGrant", sql, args, err)
			return err
		}
		if grant.Claimed {
			return model.ErrAlreadyClaimed
		}

		upd := psql.Update("reward_grants").
			Set("claimed", true).
			Set("claimed_at", now).
			Where(sq.Eq{"id": grantID})
		if err := p.exec(ctx, tx, "ClaimGrant", upd); err != nil {
			return err
		}
		grant.Claimed = true
		grant.ClaimedAt = &now
		return nil
	})
	if err != nil {
		return model.RewardGrant{}, err
	}
	return grant, nil
}
