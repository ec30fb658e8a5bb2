package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// ddl holds the table definitions in dependency order.  All primary keys are
// UUID strings: schema updates trust client-supplied table/field ids, so the
// server cannot rely on auto-increment columns.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         CHAR(36)  NOT NULL PRIMARY KEY,
		user_id    CHAR(36)  NOT NULL,
		token_hash CHAR(64)  NOT NULL UNIQUE,
		expires_at DATETIME  NOT NULL,
		created_at DATETIME  NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS schemas (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		user_id     CHAR(36)     NOT NULL,
		name        VARCHAR(255) NOT NULL,
		description TEXT         NULL,
		created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_schemas_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS `tables` (" + `
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		schema_id  CHAR(36)     NOT NULL,
		name       VARCHAR(255) NOT NULL,
		position_x VARCHAR(32)  NOT NULL DEFAULT '0',
		position_y VARCHAR(32)  NOT NULL DEFAULT '0',
		config     TEXT         NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_tables_schema FOREIGN KEY (schema_id) REFERENCES schemas(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS fields (
		id             CHAR(36)     NOT NULL PRIMARY KEY,
		table_id       CHAR(36)     NOT NULL,
		name           VARCHAR(255) NOT NULL,
		type           VARCHAR(50)  NOT NULL,
		is_primary_key TINYINT(1)   NOT NULL DEFAULT 0,
		is_nullable    TINYINT(1)   NOT NULL DEFAULT 1,
		is_unique      TINYINT(1)   NOT NULL DEFAULT 0,
		default_value  TEXT         NULL,
		position       INT          NOT NULL DEFAULT 0,
		created_at     DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_fields_table FOREIGN KEY (table_id) REFERENCES ` + "`tables`" + `(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS relationships (
		id            CHAR(36)    NOT NULL PRIMARY KEY,
		from_table_id CHAR(36)    NOT NULL,
		from_field_id CHAR(36)    NULL,
		to_table_id   CHAR(36)    NOT NULL,
		to_field_id   CHAR(36)    NULL,
		type          VARCHAR(20) NOT NULL,
		config        TEXT        NULL,
		created_at    DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_relationships_from FOREIGN KEY (from_table_id) REFERENCES ` + "`tables`" + `(id) ON DELETE CASCADE,
		CONSTRAINT fk_relationships_to   FOREIGN KEY (to_table_id)   REFERENCES ` + "`tables`" + `(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the application tables when they do not exist yet.  The
// statements are idempotent so it is safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
