package store

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT,
	role TEXT DEFAULT 'user',
	platform TEXT,
	trust_level TEXT DEFAULT 'trusted', -- admin, trusted, guest, restricted, blocked
	metadata TEXT,
	first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
	last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	model TEXT,
	sender_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	thread_id TEXT NOT NULL,
	tool_calls TEXT,
	tool_results TEXT,
	tool_call_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);

CREATE TABLE IF NOT EXISTS facts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	category TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(user_id) REFERENCES users(id),
	UNIQUE(user_id, key)
);

CREATE TABLE IF NOT EXISTS scheduled_plans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	description TEXT NOT NULL,
	action_type TEXT NOT NULL,
	action_payload TEXT,
	schedule_type TEXT NOT NULL,
	schedule_value TEXT,
	next_run_at DATETIME,
	last_run_at DATETIME,
	locked_until DATETIME,
	status TEXT DEFAULT 'active',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS context_documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL UNIQUE,
	content TEXT NOT NULL,
	description TEXT,
	is_active BOOLEAN DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_context_docs_active ON context_documents(is_active);

CREATE TABLE IF NOT EXISTS trusted_identities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL, -- email, phone, api_key
	value TEXT NOT NULL,
	notes TEXT,
	added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(type, value)
);
CREATE INDEX IF NOT EXISTS idx_trusted_identities_type_value ON trusted_identities(type, value);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'medium', -- low, medium, high, urgent, critical
	due_date TEXT,
	status TEXT NOT NULL DEFAULT 'active', -- active, completed
	reminder_periods TEXT, -- JSON array of "HH:MM" strings
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);

CREATE TABLE IF NOT EXISTS checkin_responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	payload TEXT NOT NULL, -- JSON: {qkey: value, ...}
	questions_asked TEXT NOT NULL, -- JSON array of qkeys, in order asked
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_checkin_responses_user_created ON checkin_responses(user_id, created_at);

CREATE TABLE IF NOT EXISTS channel_identities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_kind TEXT NOT NULL,
	external_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	welcomed BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(channel_kind, external_id),
	FOREIGN KEY(user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS schedule_periods (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL, -- tasks, check-ins, messages
	start_time TEXT,
	end_time TEXT,
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, name),
	FOREIGN KEY(user_id) REFERENCES users(id)
);
`
