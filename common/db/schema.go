package db

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS restaurant_group (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS location (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		restaurant_group_id TEXT NOT NULL REFERENCES restaurant_group(id),
		timezone            TEXT NOT NULL DEFAULT 'UTC',
		guests_per_server   INT NOT NULL DEFAULT 4,
		tables_per_host     INT NOT NULL DEFAULT 8,
		orders_per_kitchen  INT NOT NULL DEFAULT 12,
		min_hosts           INT NOT NULL DEFAULT 1,
		min_servers         INT NOT NULL DEFAULT 2,
		min_kitchen         INT NOT NULL DEFAULT 1,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS demand_event (
		id          TEXT PRIMARY KEY,
		location_id TEXT NOT NULL REFERENCES location(id),
		ts          TIMESTAMPTZ NOT NULL,
		event_type  TEXT NOT NULL CHECK (event_type IN ('guest_arrival', 'order_placed', 'table_seated')),
		party_size  INT NOT NULL DEFAULT 1 CHECK (party_size >= 0),
		revenue     DOUBLE PRECISION CHECK (revenue IS NULL OR revenue >= 0),
		source      TEXT NOT NULL DEFAULT 'api',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_demand_event_location_ts ON demand_event (location_id, ts)`,

	`CREATE TABLE IF NOT EXISTS hourly_demand_rollup (
		location_id TEXT NOT NULL REFERENCES location(id),
		hour_start  TIMESTAMPTZ NOT NULL,
		hour_of_day SMALLINT NOT NULL,
		day_of_week SMALLINT NOT NULL,
		avg_guests  DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_orders  DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (location_id, hour_start)
	)`,

	`CREATE TABLE IF NOT EXISTS feedback_event (
		id                 TEXT PRIMARY KEY,
		location_id        TEXT NOT NULL REFERENCES location(id),
		date               DATE NOT NULL,
		actual_guests      INT NOT NULL,
		actual_labor_hours DOUBLE PRECISION NOT NULL,
		avg_wait_time      DOUBLE PRECISION NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
