package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
)

const slowQueryThreshold = 100 * time.Millisecond

// GetProfile implements ProfileRepository.
func (db *DB) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	start := time.Now()
	defer warnSlow(ctx, "GetProfile", start)

	p := &UserProfile{UserID: userID}
	var updatedAt int64
	err := db.reader.QueryRowContext(ctx,
		`SELECT heir_address, updated_at FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&p.HeirAddress, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.UpdatedAt = fromUnix(updatedAt)

	rows, err := db.reader.QueryContext(ctx, `
		SELECT id, amount, goal, created_at, target_date, daily_target
		FROM savings_targets
		WHERE user_id = ?
		ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query savings targets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t SavingsTarget
		var createdAt, targetDate int64
		if err := rows.Scan(&t.ID, &t.Amount, &t.Goal, &createdAt, &targetDate, &t.DailyTarget); err != nil {
			return nil, fmt.Errorf("failed to scan savings target: %w", err)
		}
		t.CreatedAt = fromUnix(createdAt)
		t.TargetDate = fromUnix(targetDate)
		p.Targets = append(p.Targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate savings targets: %w", err)
	}
	return p, nil
}

// SaveProfile implements ProfileRepository. The stored target list is
// replaced by profile.Targets.
func (db *DB) SaveProfile(ctx context.Context, profile *UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return domerrors.NewValidationError("user_id", "required")
	}
	start := time.Now()
	defer warnSlow(ctx, "SaveProfile", start)

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_profiles (user_id, heir_address, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				heir_address = excluded.heir_address,
				updated_at = excluded.updated_at`,
			profile.UserID, profile.HeirAddress, profile.UpdatedAt.Unix(),
		); err != nil {
			slog.ErrorContext(ctx, "failed to save profile", "user_id", profile.UserID, "error", err)
			return fmt.Errorf("failed to save profile: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM savings_targets WHERE user_id = ?`, profile.UserID); err != nil {
			return fmt.Errorf("failed to clear savings targets: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO savings_targets (id, user_id, position, amount, goal, created_at, target_date, daily_target)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare savings target insert: %w", err)
		}
		defer stmt.Close()

		for i := range profile.Targets {
			t := &profile.Targets[i]
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if _, err := stmt.ExecContext(ctx,
				t.ID, profile.UserID, i, t.Amount, t.Goal, t.CreatedAt.Unix(), t.TargetDate.Unix(), t.DailyTarget,
			); err != nil {
				return fmt.Errorf("failed to save savings target %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// GetFamily implements FamilyRepository.
func (db *DB) GetFamily(ctx context.Context, groupID string) (*FamilyGroup, error) {
	start := time.Now()
	defer warnSlow(ctx, "GetFamily", start)

	g := &FamilyGroup{GroupID: groupID}
	var createdAt, updatedAt int64
	err := db.reader.QueryRowContext(ctx, `
		SELECT savings_goal, total_saved, created_by, created_at, updated_at
		FROM family_groups WHERE group_id = ?`, groupID,
	).Scan(&g.SavingsGoal, &g.TotalSaved, &g.CreatedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("family %s: %w", groupID, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	g.CreatedAt = fromUnix(createdAt)
	g.UpdatedAt = fromUnix(updatedAt)

	rows, err := db.reader.QueryContext(ctx,
		`SELECT user_id FROM family_members WHERE group_id = ? ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		g.Members = append(g.Members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate family members: %w", err)
	}
	return g, nil
}

// SaveFamily implements FamilyRepository. The stored member set is replaced
// by family.Members.
func (db *DB) SaveFamily(ctx context.Context, family *FamilyGroup) error {
	if family == nil || family.GroupID == "" {
		return domerrors.NewValidationError("group_id", "required")
	}
	start := time.Now()
	defer warnSlow(ctx, "SaveFamily", start)

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO family_groups (group_id, savings_goal, total_saved, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(group_id) DO UPDATE SET
				savings_goal = excluded.savings_goal,
				total_saved = excluded.total_saved,
				created_by = excluded.created_by,
				updated_at = excluded.updated_at`,
			family.GroupID, family.SavingsGoal, family.TotalSaved, family.CreatedBy,
			family.CreatedAt.Unix(), family.UpdatedAt.Unix(),
		); err != nil {
			slog.ErrorContext(ctx, "failed to save family", "group_id", family.GroupID, "error", err)
			return fmt.Errorf("failed to save family: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM family_members WHERE group_id = ?`, family.GroupID); err != nil {
			return fmt.Errorf("failed to clear family members: %w", err)
		}
		for _, member := range family.Members {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO family_members (group_id, user_id) VALUES (?, ?)`,
				family.GroupID, member,
			); err != nil {
				return fmt.Errorf("failed to save family member: %w", err)
			}
		}
		return nil
	})
}

// Stats implements Store.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_profiles`).Scan(&s.Profiles); err != nil {
		return Stats{}, fmt.Errorf("failed to count profiles: %w", err)
	}
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM family_groups`).Scan(&s.Families); err != nil {
		return Stats{}, fmt.Errorf("failed to count families: %w", err)
	}
	return s, nil
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func warnSlow(ctx context.Context, op string, start time.Time) {
	if d := time.Since(start); d > slowQueryThreshold {
		slog.WarnContext(ctx, "slow database operation",
			"operation", op,
			"duration_ms", d.Milliseconds())
	}
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
