package repo

import (
	"context"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// 历史记录只在 ApplyGeneration 事务内写入，这里只有查询。

func ListHistoryByUser(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID, limit int) ([]domain.GenerationHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT id, user_id, module_code, practical_number, filename, generated_via, created_at
        FROM generation_history
        WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.GenerationHistory
	for rows.Next() {
		var h domain.GenerationHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.ModuleCode, &h.PracticalNumber, &h.Filename, &h.GeneratedVia, &h.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}
