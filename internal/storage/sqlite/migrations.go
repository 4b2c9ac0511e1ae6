package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Every idempotence and "already voted" invariant is backed by a unique
// key here rather than by application-level checks: rule_approvals,
// rule_votes, payment_obligations, cause_losses and deletion_votes all
// carry the unique tuple their component's contract names.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    upi_vpa TEXT NOT NULL DEFAULT '',
    total_paid INTEGER NOT NULL DEFAULT 0,
    total_earned INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    invite_code TEXT NOT NULL UNIQUE,
    creator_id TEXT NOT NULL REFERENCES users(id),
    status TEXT NOT NULL DEFAULT 'PLANNING',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS memberships (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id),
    role TEXT NOT NULL DEFAULT 'member',
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    creator_id TEXT NOT NULL REFERENCES users(id),
    title TEXT NOT NULL,
    stake_amount INTEGER NOT NULL CHECK (stake_amount > 0),
    approved INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    UNIQUE (group_id, creator_id)
);

CREATE TABLE IF NOT EXISTS rule_approvals (
    rule_id TEXT NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
    approver_id TEXT NOT NULL REFERENCES users(id),
    created_at INTEGER NOT NULL,
    PRIMARY KEY (rule_id, approver_id)
);

CREATE TABLE IF NOT EXISTS call_sessions (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'SCHEDULED',
    meeting_url TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    finalized_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS rule_votes (
    call_session_id TEXT NOT NULL REFERENCES call_sessions(id) ON DELETE CASCADE,
    rule_id TEXT NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL REFERENCES users(id),
    target_user_id TEXT NOT NULL REFERENCES users(id),
    value TEXT NOT NULL CHECK (value IN ('YES', 'NO')),
    created_at INTEGER NOT NULL,
    PRIMARY KEY (call_session_id, rule_id, voter_id, target_user_id)
);

CREATE TABLE IF NOT EXISTS payment_obligations (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    rule_id TEXT NOT NULL,
    from_user_id TEXT NOT NULL REFERENCES users(id),
    to_user_id TEXT NOT NULL REFERENCES users(id),
    amount INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    call_session_id TEXT NOT NULL,
    settled_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    UNIQUE (group_id, rule_id, from_user_id, to_user_id)
);

CREATE TABLE IF NOT EXISTS cause_losses (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    rule_id TEXT NOT NULL,
    cycle_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'PLEDGED',
    created_at INTEGER NOT NULL,
    UNIQUE (user_id, group_id, rule_id, cycle_id)
);

CREATE TABLE IF NOT EXISTS deletion_requests (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    requested_by TEXT NOT NULL REFERENCES users(id),
    status TEXT NOT NULL DEFAULT 'PENDING',
    requested_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS deletion_votes (
    request_id TEXT NOT NULL REFERENCES deletion_requests(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL REFERENCES users(id),
    decision TEXT NOT NULL CHECK (decision IN ('APPROVE', 'DECLINE')),
    created_at INTEGER NOT NULL,
    PRIMARY KEY (request_id, voter_id)
);

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    data TEXT NOT NULL DEFAULT '',
    read INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);
CREATE INDEX IF NOT EXISTS idx_rules_group ON rules(group_id);
CREATE INDEX IF NOT EXISTS idx_sessions_group ON call_sessions(group_id, created_at);
CREATE INDEX IF NOT EXISTS idx_votes_session ON rule_votes(call_session_id);
CREATE INDEX IF NOT EXISTS idx_obligations_group ON payment_obligations(group_id);
CREATE INDEX IF NOT EXISTS idx_obligations_from ON payment_obligations(from_user_id);
CREATE INDEX IF NOT EXISTS idx_obligations_to ON payment_obligations(to_user_id);
CREATE INDEX IF NOT EXISTS idx_cause_losses_user ON cause_losses(user_id);
CREATE INDEX IF NOT EXISTS idx_deletion_requests_group ON deletion_requests(group_id, requested_at);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
