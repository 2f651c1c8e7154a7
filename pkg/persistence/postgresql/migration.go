package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create pipelines table
			CREATE TABLE pipelines (
				id VARCHAR(255) PRIMARY KEY,
				canvas_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				enabled BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_pipelines_canvas_id ON pipelines(canvas_id);
			CREATE INDEX idx_pipelines_created_at ON pipelines(created_at);
		`,
	}
}
