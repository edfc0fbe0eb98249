package postgresql

import "github.com/dukex/blitz/pkg/persistence/sqlbase"

// migrationLock serialises API replicas that start against the same database.
const migrationLock = "SELECT pg_advisory_xact_lock(4280175)"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{
			Version: 1,
			Name:    "create workflows",
			SQL: `
				CREATE TABLE workflows (
					id VARCHAR(255) PRIMARY KEY,
					business_id VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					nodes JSONB NOT NULL DEFAULT '[]',
					metadata JSONB,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL,
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL
				);

				CREATE INDEX idx_workflows_business_id ON workflows(business_id);
				CREATE INDEX idx_workflows_created_at ON workflows(created_at);`,
		},
		{
			Version: 2,
			Name:    "index workflow nodes",
			// Containment queries such as nodes @> '[{"role": "router"}]'.
			SQL: `CREATE INDEX idx_workflows_nodes ON workflows USING GIN (nodes jsonb_path_ops);`,
		},
	}
}
