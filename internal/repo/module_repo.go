package repo

import (
	"context"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const moduleColumns = `id, user_id, code, name, template, sheet_type, custom_sheet_type, use_zero_padding, output_path, created_at, updated_at`

func scanModule(row interface{ Scan(dest ...any) error }) (*domain.Module, error) {
	var m domain.Module
	if err := row.Scan(
		&m.ID, &m.UserID, &m.Code, &m.Name, &m.Template, &m.SheetType, &m.CustomSheetType,
		&m.UseZeroPadding, &m.OutputPath, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func InsertModule(ctx context.Context, db *pgxpool.Pool, m *domain.Module) error {
	_, err := db.Exec(ctx, `
		INSERT INTO modules (id, user_id, code, name, template, sheet_type, custom_sheet_type, use_zero_padding, output_path, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`, m.ID, m.UserID, m.Code, m.Name, m.Template, m.SheetType, m.CustomSheetType, m.UseZeroPadding, m.OutputPath)
	return err
}

func ListModulesByUser(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) ([]domain.Module, error) {
	rows, err := db.Query(ctx, `
		SELECT `+moduleColumns+` FROM modules WHERE user_id=$1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *m)
	}
	return res, rows.Err()
}

// GetUserModule 查询模块并校验归属用户
func GetUserModule(ctx context.Context, db *pgxpool.Pool, id, userID uuid.UUID) (*domain.Module, error) {
	row := db.QueryRow(ctx, `
		SELECT `+moduleColumns+` FROM modules WHERE id=$1 AND user_id=$2
	`, id, userID)
	return scanModule(row)
}

func UpdateModule(ctx context.Context, db *pgxpool.Pool, m *domain.Module) error {
	_, err := db.Exec(ctx, `
		UPDATE modules
        SET code=$2, name=$3, template=$4, sheet_type=$5, custom_sheet_type=$6,
            use_zero_padding=$7, output_path=$8, updated_at=NOW()
        WHERE id=$1
	`, m.ID, m.Code, m.Name, m.Template, m.SheetType, m.CustomSheetType, m.UseZeroPadding, m.OutputPath)
	return err
}

func DeleteModule(ctx context.Context, db *pgxpool.Pool, id, userID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		DELETE FROM modules WHERE id=$1 AND user_id=$2
	`, id, userID)
	return err
}

// DeleteModulesByUser 批量同步前清空用户全部模块（schedule 级联删除）
func DeleteModulesByUser(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		DELETE FROM modules WHERE user_id=$1
	`, userID)
	return err
}
