package historydb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/BurntSushi/toml"
	_ "github.com/lib/pq" // registers the postgres driver for sql.Open
)

type config struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode"`
}

func (c config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		sslMode,
	)
}

func OpenPostgres(configPath string) (*sql.DB, error) {
	var cfg config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", configPath, err)
	}
	return sql.Open("postgres", cfg.dsn())
}

// OpenPostgresWithRetries keeps trying until the database answers a ping
// or ctx is done.
func OpenPostgresWithRetries(ctx context.Context, configPath string) (*sql.DB, error) {
	interval := time.Second * 5
	for {
		db, err := OpenPostgres(configPath)
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				return db, nil
			}
			db.Close()
			log.Printf("Failed to ping Postgres: %v\n", err)
		} else {
			log.Printf("Failed to open postgres: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
