package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category    TEXT NOT NULL,
				status      TEXT NOT NULL,
				version     INTEGER NOT NULL DEFAULT 1,
				trigger_spec JSONB NOT NULL DEFAULT '{}'::jsonb,
				steps       JSONB NOT NULL DEFAULT '[]'::jsonb,
				variables   JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_by  TEXT NOT NULL DEFAULT '',
				created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_category ON workflows (category);
			CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows (status);
		`,
	}
}
