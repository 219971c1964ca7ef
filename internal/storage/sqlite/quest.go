package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/tacklebox/internal/storage"
)

// LatestDailyQuest returns the most recently assigned daily quest for the
// account, completed or not.
func (s *Store) LatestDailyQuest(ctx context.Context, account string) (storage.DailyQuest, error) {
	var quest storage.DailyQuest
	var assignedAt int64
	var completedAt sql.NullInt64
	err := s.q.QueryRowContext(ctx, `
SELECT account, quest_id, assigned_at, completed, completed_at
FROM daily_quests
WHERE account = ?
ORDER BY assigned_at DESC
LIMIT 1
`, account).Scan(&quest.Account, &quest.QuestID, &assignedAt, &quest.Completed, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DailyQuest{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.DailyQuest{}, fmt.Errorf("latest daily quest: %w", err)
	}
	quest.AssignedAt = fromMillis(assignedAt)
	if completedAt.Valid {
		t := fromMillis(completedAt.Int64)
		quest.CompletedAt = &t
	}
	return quest, nil
}

func (s *Store) InsertDailyQuest(ctx context.Context, assignment storage.DailyQuest) error {
	_, err := s.q.ExecContext(ctx, `
INSERT INTO daily_quests (account, quest_id, assigned_at, completed)
VALUES (?, ?, ?, 0)
`, assignment.Account, assignment.QuestID, toMillis(assignment.AssignedAt))
	if err != nil {
		return fmt.Errorf("insert daily quest: %w", err)
	}
	return nil
}

// CompleteDailyQuest marks the account's latest assignment of questID done.
func (s *Store) CompleteDailyQuest(ctx context.Context, account, questID string, completedAt time.Time) error {
	result, err := s.q.ExecContext(ctx, `
UPDATE daily_quests
SET completed = 1, completed_at = ?
WHERE account = ? AND quest_id = ? AND completed = 0
`, toMillis(completedAt), account, questID)
	if err != nil {
		return fmt.Errorf("complete daily quest: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete daily quest: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AppendQuestCompletion(ctx context.Context, completion storage.QuestCompletion) error {
	_, err := s.q.ExecContext(ctx, `
INSERT INTO quest_completions (account, quest_id, completed_at)
VALUES (?, ?, ?)
`, completion.Account, completion.QuestID, toMillis(completion.CompletedAt))
	if err != nil {
		return fmt.Errorf("append quest completion: %w", err)
	}
	return nil
}

// ReassignQuests moves both the daily assignments and the completion log.
func (s *Store) ReassignQuests(ctx context.Context, from, to string) error {
	if _, err := s.q.ExecContext(ctx, `
UPDATE daily_quests SET account = ? WHERE account = ?
`, to, from); err != nil {
		return fmt.Errorf("reassign daily quests: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, `
UPDATE quest_completions SET account = ? WHERE account = ?
`, to, from); err != nil {
		return fmt.Errorf("reassign quest completions: %w", err)
	}
	return nil
}
