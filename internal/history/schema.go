package history

const schema = `
CREATE TABLE IF NOT EXISTS poll_cycles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    observed_at TIMESTAMP NOT NULL,
    root_pid INTEGER NOT NULL,
    node_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_id INTEGER NOT NULL,
    pid INTEGER NOT NULL,
    ppid INTEGER NOT NULL,
    name TEXT,
    command TEXT,
    cpu_load REAL NOT NULL,
    memory_bytes REAL NOT NULL,
    FOREIGN KEY (cycle_id) REFERENCES poll_cycles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_samples_pid ON samples(pid);
CREATE INDEX IF NOT EXISTS idx_samples_cycle ON samples(cycle_id);
CREATE INDEX IF NOT EXISTS idx_cycles_observed ON poll_cycles(observed_at);
`
