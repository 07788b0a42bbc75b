package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	//连接测试
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	return pool, nil
}

// EnsureSchema 确保最小表结构存在
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            student_id TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            api_key TEXT NOT NULL UNIQUE,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_login TIMESTAMPTZ
        );`,
		`CREATE INDEX IF NOT EXISTS idx_users_api_key ON users(api_key);`,
		`CREATE TABLE IF NOT EXISTS modules (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            code TEXT NOT NULL,
            name TEXT NOT NULL,
            template TEXT NOT NULL DEFAULT 'classic',
            sheet_type TEXT NOT NULL DEFAULT 'Practical',
            custom_sheet_type TEXT NOT NULL DEFAULT '',
            use_zero_padding BOOLEAN NOT NULL DEFAULT TRUE,
            output_path TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS schedules (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            module_id UUID NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
            day_of_week INT NOT NULL,
            lab_time TEXT NOT NULL,
            generate_before_minutes INT NOT NULL DEFAULT 60,
            current_practical_number INT NOT NULL DEFAULT 1,
            auto_increment BOOLEAN NOT NULL DEFAULT TRUE,
            use_zero_padding BOOLEAN NOT NULL DEFAULT TRUE,
            status TEXT NOT NULL DEFAULT 'active',
            skip_dates JSONB NOT NULL DEFAULT '[]',
            upload_to_onedrive BOOLEAN NOT NULL DEFAULT TRUE,
            send_confirmation BOOLEAN NOT NULL DEFAULT TRUE,
            last_email_sent TIMESTAMPTZ,
            last_generated_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_status ON schedules(status);`,
		`CREATE TABLE IF NOT EXISTS generation_history (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            module_code TEXT NOT NULL,
            practical_number INT NOT NULL,
            filename TEXT NOT NULL,
            generated_via TEXT NOT NULL DEFAULT 'email',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON generation_history(user_id, created_at DESC);`,
	}
	for _, q := range ddl {
		if _, err := pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
