package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				flow_data TEXT NOT NULL DEFAULT '',
				type VARCHAR(50) NOT NULL DEFAULT '',
				complexity_score INT NOT NULL DEFAULT 0,
				node_count INT NOT NULL DEFAULT 0,
				edge_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);
		`,
		2: `
			CREATE TABLE workflow_drafts (
				workflow_id UUID PRIMARY KEY REFERENCES workflows(id) ON DELETE CASCADE,
				flow_data TEXT NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
	}
}
