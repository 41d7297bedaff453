package storage

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create scheduled_reports table",
			SQL: `
				CREATE TABLE IF NOT EXISTS scheduled_reports (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					frequency TEXT NOT NULL,
					time TEXT NOT NULL,
					recipients TEXT NOT NULL, -- JSON
					dashboards TEXT NOT NULL, -- JSON
					format TEXT NOT NULL DEFAULT 'pdf',
					active BOOLEAN DEFAULT TRUE,
					last_run DATETIME,
					next_run DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_reports_active_time ON scheduled_reports(active, time);
				CREATE INDEX IF NOT EXISTS idx_reports_created_at ON scheduled_reports(created_at);
			`,
		},
		{
			Version:     "002",
			Description: "Create report_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS report_logs (
					id TEXT PRIMARY KEY,
					report_id TEXT NOT NULL,
					status TEXT NOT NULL,
					recipients_count INTEGER DEFAULT 0,
					error TEXT,
					executed_at DATETIME NOT NULL,
					FOREIGN KEY (report_id) REFERENCES scheduled_reports (id)
				);

				CREATE INDEX IF NOT EXISTS idx_report_logs_report_id ON report_logs(report_id);
				CREATE INDEX IF NOT EXISTS idx_report_logs_executed_at ON report_logs(executed_at);
			`,
		},
		{
			Version:     "003",
			Description: "Create webhooks and webhook_logs tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS webhooks (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					url TEXT NOT NULL,
					triggers TEXT NOT NULL, -- JSON
					active BOOLEAN DEFAULT TRUE,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE TABLE IF NOT EXISTS webhook_logs (
					id TEXT PRIMARY KEY,
					webhook_id TEXT NOT NULL,
					event_type TEXT NOT NULL,
					status INTEGER NOT NULL DEFAULT 0,
					error TEXT,
					executed_at DATETIME NOT NULL,
					FOREIGN KEY (webhook_id) REFERENCES webhooks (id)
				);

				CREATE INDEX IF NOT EXISTS idx_webhooks_active ON webhooks(active);
				CREATE INDEX IF NOT EXISTS idx_webhook_logs_webhook_id ON webhook_logs(webhook_id);
			`,
		},
		{
			Version:     "004",
			Description: "Create slack_integrations and slack_logs tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS slack_integrations (
					id TEXT PRIMARY KEY,
					channel TEXT NOT NULL,
					webhook_url TEXT NOT NULL,
					alert_types TEXT NOT NULL, -- JSON
					active BOOLEAN DEFAULT TRUE,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE TABLE IF NOT EXISTS slack_logs (
					id TEXT PRIMARY KEY,
					integration_id TEXT NOT NULL,
					alert_type TEXT NOT NULL,
					status INTEGER NOT NULL DEFAULT 0,
					error TEXT,
					sent_at DATETIME NOT NULL,
					FOREIGN KEY (integration_id) REFERENCES slack_integrations (id)
				);

				CREATE INDEX IF NOT EXISTS idx_slack_integrations_active ON slack_integrations(active);
				CREATE INDEX IF NOT EXISTS idx_slack_logs_integration_id ON slack_logs(integration_id);
			`,
		},
	}
}

// GetPostgreSQLMigrations returns PostgreSQL migration scripts
func GetPostgreSQLMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create scheduled_reports table",
			SQL: `
				CREATE TABLE IF NOT EXISTS scheduled_reports (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					frequency TEXT NOT NULL,
					time TEXT NOT NULL,
					recipients JSONB NOT NULL,
					dashboards JSONB NOT NULL,
					format TEXT NOT NULL DEFAULT 'pdf',
					active BOOLEAN DEFAULT TRUE,
					last_run TIMESTAMPTZ,
					next_run TIMESTAMPTZ,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_reports_active_time ON scheduled_reports(active, time);
				CREATE INDEX IF NOT EXISTS idx_reports_created_at ON scheduled_reports(created_at);
			`,
		},
		{
			Version:     "002",
			Description: "Create report_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS report_logs (
					id TEXT PRIMARY KEY,
					report_id TEXT NOT NULL REFERENCES scheduled_reports(id),
					status TEXT NOT NULL,
					recipients_count INTEGER DEFAULT 0,
					error TEXT,
					executed_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_report_logs_report_id ON report_logs(report_id);
				CREATE INDEX IF NOT EXISTS idx_report_logs_executed_at ON report_logs(executed_at);
			`,
		},
		{
			Version:     "003",
			Description: "Create webhooks and webhook_logs tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS webhooks (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					url TEXT NOT NULL,
					triggers JSONB NOT NULL,
					active BOOLEAN DEFAULT TRUE,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS webhook_logs (
					id TEXT PRIMARY KEY,
					webhook_id TEXT NOT NULL REFERENCES webhooks(id),
					event_type TEXT NOT NULL,
					status INTEGER NOT NULL DEFAULT 0,
					error TEXT,
					executed_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_webhooks_active ON webhooks(active);
				CREATE INDEX IF NOT EXISTS idx_webhook_logs_webhook_id ON webhook_logs(webhook_id);
			`,
		},
		{
			Version:     "004",
			Description: "Create slack_integrations and slack_logs tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS slack_integrations (
					id TEXT PRIMARY KEY,
					channel TEXT NOT NULL,
					webhook_url TEXT NOT NULL,
					alert_types JSONB NOT NULL,
					active BOOLEAN DEFAULT TRUE,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS slack_logs (
					id TEXT PRIMARY KEY,
					integration_id TEXT NOT NULL REFERENCES slack_integrations(id),
					alert_type TEXT NOT NULL,
					status INTEGER NOT NULL DEFAULT 0,
					error TEXT,
					sent_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_slack_integrations_active ON slack_integrations(active);
				CREATE INDEX IF NOT EXISTS idx_slack_logs_integration_id ON slack_logs(integration_id);
			`,
		},
	}
}
