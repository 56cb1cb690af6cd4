package database

import (
	"context"
	"database/sql"
	"time"

	"fastaid/config"
	"fastaid/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresDB is the global Postgres handle used when STORE_BACKEND=postgres.
var PostgresDB *sql.DB

// InitPostgres opens the pgx-backed database/sql pool.
func InitPostgres() {
	logger := utils.GetLogger()
	db, err := sql.Open("pgx", config.AppConfig.PostgresURL)
	if err != nil {
		logger.Fatal("failed to open Postgres", zap.Error(err))
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping Postgres", zap.Error(err))
	}
	PostgresDB = db
	logger.Info("Connected to Postgres")
}
