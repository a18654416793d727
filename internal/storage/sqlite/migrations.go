package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// IMPORTANT: circles must be created before members, invitations and tasks
// due to foreign key constraints.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS circles (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    winner_prize TEXT NOT NULL,
    loser_challenge TEXT NOT NULL,
    duration_days INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    color_code TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    completion_time INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    circle_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    admin INTEGER NOT NULL DEFAULT 0,
    score INTEGER NOT NULL DEFAULT 0,
    notify_task_deadline INTEGER NOT NULL DEFAULT 0,
    notify_circle_updates INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (circle_id, user_id),
    FOREIGN KEY (circle_id) REFERENCES circles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS invitations (
    circle_id TEXT NOT NULL,
    email TEXT NOT NULL,
    invited_at INTEGER NOT NULL,
    PRIMARY KEY (circle_id, email),
    FOREIGN KEY (circle_id) REFERENCES circles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    circle_id TEXT NOT NULL,
    name TEXT NOT NULL,
    points INTEGER NOT NULL,
    assignee_id TEXT NOT NULL,
    deadline INTEGER,
    completed INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER,
    FOREIGN KEY (circle_id) REFERENCES circles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    circle_id TEXT,
    recipient TEXT NOT NULL,
    subject TEXT NOT NULL,
    body_text TEXT NOT NULL,
    body_html TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    sent_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
CREATE INDEX IF NOT EXISTS idx_invitations_circle_id ON invitations(circle_id);
CREATE INDEX IF NOT EXISTS idx_tasks_circle_id ON tasks(circle_id);
CREATE INDEX IF NOT EXISTS idx_circles_completion_time ON circles(completion_time);
CREATE INDEX IF NOT EXISTS idx_circles_name ON circles(name);
CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
