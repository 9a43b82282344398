package config

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register the MySQL driver.
	_ "github.com/go-sql-driver/mysql"
)

// DB is the shared database handle, initialised once by InitDB.
var DB *sql.DB

// schema is the DDL applied once on startup. Idempotent due to IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS carts (
    user_id     BIGINT       NOT NULL PRIMARY KEY,
    version     BIGINT       NOT NULL DEFAULT 0,
    updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cart_items (
    id              CHAR(36)      NOT NULL PRIMARY KEY,
    user_id         BIGINT        NOT NULL,
    product_id      VARCHAR(64)   NOT NULL,
    name            VARCHAR(255)  NOT NULL,
    unit_price      DECIMAL(10,2) NOT NULL,
    quantity        INT           NOT NULL,
    image           VARCHAR(512)  NOT NULL DEFAULT '',
    size            VARCHAR(32)   NOT NULL DEFAULT '',
    color           VARCHAR(32)   NOT NULL DEFAULT '',
    selected_sizes  TEXT,
    created_at      DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uq_cart_items_user_product (user_id, product_id)
);

CREATE TABLE IF NOT EXISTS addresses (
    id          BIGINT        NOT NULL AUTO_INCREMENT PRIMARY KEY,
    user_id     BIGINT        NOT NULL,
    name        VARCHAR(255)  NOT NULL,
    street      VARCHAR(255)  NOT NULL,
    city        VARCHAR(128)  NOT NULL,
    state       VARCHAR(128)  NOT NULL,
    zipcode     VARCHAR(32)   NOT NULL,
    country     VARCHAR(128)  NOT NULL,
    phone       VARCHAR(32)   NOT NULL,
    is_default  TINYINT(1)    NOT NULL DEFAULT 0,
    created_at  DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    KEY idx_addresses_user (user_id)
);

CREATE TABLE IF NOT EXISTS orders (
    id                   BIGINT        NOT NULL AUTO_INCREMENT PRIMARY KEY,
    order_number         VARCHAR(32)   NOT NULL,
    user_id              BIGINT        NOT NULL,
    subtotal             DECIMAL(10,2) NOT NULL,
    delivery_fee         DECIMAL(10,2) NOT NULL,
    total                DECIMAL(10,2) NOT NULL,
    shipping_address     TEXT,
    payment_method       VARCHAR(32)   NOT NULL DEFAULT '',
    payment_details      TEXT,
    transaction_id       VARCHAR(64),
    status               VARCHAR(32)   NOT NULL,
    cancellation_reason  TEXT,
    created_at           DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at           DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_orders_number (order_number),
    KEY idx_orders_user_status (user_id, status)
);

CREATE TABLE IF NOT EXISTS order_items (
    id              BIGINT        NOT NULL AUTO_INCREMENT PRIMARY KEY,
    order_id        BIGINT        NOT NULL,
    product_id      VARCHAR(64)   NOT NULL,
    name            VARCHAR(255)  NOT NULL,
    unit_price      DECIMAL(10,2) NOT NULL,
    quantity        INT           NOT NULL,
    image           VARCHAR(512)  NOT NULL DEFAULT '',
    size            VARCHAR(32)   NOT NULL DEFAULT '',
    color           VARCHAR(32)   NOT NULL DEFAULT '',
    selected_sizes  TEXT,
    KEY idx_order_items_order (order_id)
);

CREATE TABLE IF NOT EXISTS order_tracking (
    id          BIGINT        NOT NULL AUTO_INCREMENT PRIMARY KEY,
    order_id    BIGINT        NOT NULL,
    status      VARCHAR(32)   NOT NULL,
    location    VARCHAR(255)  NOT NULL DEFAULT '',
    description VARCHAR(512)  NOT NULL DEFAULT '',
    created_at  DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    KEY idx_order_tracking_order (order_id, id)
);

CREATE TABLE IF NOT EXISTS outbox (
    id               CHAR(36)     NOT NULL PRIMARY KEY,
    kind             VARCHAR(64)  NOT NULL,
    payload          TEXT         NOT NULL,
    attempts         INT          NOT NULL DEFAULT 0,
    next_attempt_at  DATETIME     NOT NULL,
    done             TINYINT(1)   NOT NULL DEFAULT 0,
    created_at       DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
    KEY idx_outbox_due (done, next_attempt_at)
);
`

// InitDB opens the database connection pool and applies the schema.
func InitDB(dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return err
	}

	DB = db
	return nil
}

// applySchema runs each DDL statement in order. MySQL's driver does not
// accept multi-statement Exec by default, so the schema is split on the
// statement boundary.
func applySchema(db *sql.DB) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func splitStatements(ddl string) []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
