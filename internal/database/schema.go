package database

// Schema contains all SQL statements for creating tables and indexes
const Schema = `
-- Users table: Club members, with embedded Strava integration state
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,

    -- Profile
    display_name TEXT NOT NULL,
    email TEXT NOT NULL,
    avatar_url TEXT,
    gender TEXT,
    city TEXT,
    country TEXT,
    role TEXT NOT NULL DEFAULT 'member',

    -- Strava integration
    strava_connected BOOLEAN NOT NULL DEFAULT 0,
    strava_athlete_id TEXT,
    access_token TEXT,
    refresh_token TEXT,
    token_expires_at INTEGER,
    connected_at INTEGER,

    -- Metadata
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Events table: Time-boxed team distance challenges
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,

    name TEXT NOT NULL,
    description TEXT,
    start_date TEXT NOT NULL,  -- YYYY-MM-DD
    end_date TEXT NOT NULL,    -- YYYY-MM-DD
    start_time TEXT,           -- optional HH:MM time-of-day
    end_time TEXT,
    status TEXT NOT NULL DEFAULT 'created',

    -- Teams (JSON array of {id, name, capacity})
    teams_json TEXT NOT NULL DEFAULT '[]',

    -- Privacy and registration
    is_private BOOLEAN NOT NULL DEFAULT 0,
    join_password TEXT,
    registration_open BOOLEAN NOT NULL DEFAULT 1,
    max_participants INTEGER,

    cover_image_url TEXT,

    -- Metadata
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Event participants: join records linking a user to an event and a team
CREATE TABLE IF NOT EXISTS event_participants (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    team_id TEXT NOT NULL,

    -- Progress aggregate, written only by the points aggregator
    total_distance REAL NOT NULL DEFAULT 0,
    total_activities INTEGER NOT NULL DEFAULT 0,
    total_points REAL NOT NULL DEFAULT 0,
    valid_activities INTEGER NOT NULL DEFAULT 0,
    completion_rate REAL NOT NULL DEFAULT 0,

    joined_at INTEGER NOT NULL,

    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Track logs: normalized Strava activities
CREATE TABLE IF NOT EXISTS track_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    strava_activity_id TEXT NOT NULL,

    name TEXT NOT NULL,
    date TEXT NOT NULL,        -- YYYY-MM-DD, used for event window membership
    start_time TEXT NOT NULL,  -- full ISO-8601 start timestamp

    distance_km REAL NOT NULL,

    moving_time INTEGER NOT NULL,
    elapsed_time INTEGER NOT NULL,
    moving_time_formatted TEXT NOT NULL,
    elapsed_time_formatted TEXT NOT NULL,

    avg_pace_seconds INTEGER NOT NULL,
    avg_pace_formatted TEXT NOT NULL,

    elevation_gain INTEGER NOT NULL DEFAULT 0,
    elevation_high REAL NOT NULL DEFAULT 0,
    elevation_low REAL NOT NULL DEFAULT 0,

    avg_heart_rate REAL,
    max_heart_rate REAL,
    has_heart_rate BOOLEAN NOT NULL DEFAULT 0,

    avg_speed_kmh REAL NOT NULL DEFAULT 0,
    max_speed_kmh REAL NOT NULL DEFAULT 0,

    calories REAL,
    activity_type TEXT NOT NULL,

    map_polyline TEXT,
    has_map BOOLEAN NOT NULL DEFAULT 0,
    start_lat REAL,
    start_lng REAL,
    end_lat REAL,
    end_lng REAL,

    kudos_count INTEGER NOT NULL DEFAULT 0,
    comment_count INTEGER NOT NULL DEFAULT 0,
    athlete_count INTEGER NOT NULL DEFAULT 0,
    is_private BOOLEAN NOT NULL DEFAULT 0,

    synced_at INTEGER NOT NULL,
    sync_method TEXT NOT NULL,

    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Rule groups: organizational grouping for rule templates
CREATE TABLE IF NOT EXISTS rule_groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    created_at INTEGER NOT NULL
);

-- Rules: scoring rule templates (configuration only, not evaluated)
CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    group_id TEXT,
    name TEXT NOT NULL,
    description TEXT,
    category TEXT NOT NULL,  -- 'distance', 'pace', 'elevation', 'count'
    threshold REAL NOT NULL,
    points REAL NOT NULL,
    created_at INTEGER NOT NULL,

    FOREIGN KEY (group_id) REFERENCES rule_groups(id) ON DELETE SET NULL
);

-- Event rules: per-event rule selections with customized values
CREATE TABLE IF NOT EXISTS event_rules (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    custom_threshold REAL,
    custom_points REAL,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,

    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
    FOREIGN KEY (rule_id) REFERENCES rules(id) ON DELETE CASCADE
);

-- Indexes for users table
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_strava_athlete ON users(strava_athlete_id) WHERE strava_athlete_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_users_connected ON users(strava_connected);

-- Indexes for event_participants table
CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_event_user ON event_participants(event_id, user_id);
CREATE INDEX IF NOT EXISTS idx_participants_event_team ON event_participants(event_id, team_id);
CREATE INDEX IF NOT EXISTS idx_participants_user ON event_participants(user_id);

-- Unique constraint making the sync upsert idempotent per external activity
CREATE UNIQUE INDEX IF NOT EXISTS idx_track_logs_strava_id ON track_logs(strava_activity_id);
CREATE INDEX IF NOT EXISTS idx_track_logs_user_date ON track_logs(user_id, date);
CREATE INDEX IF NOT EXISTS idx_track_logs_date ON track_logs(date DESC);

-- Indexes for rules tables
CREATE INDEX IF NOT EXISTS idx_rules_group ON rules(group_id);
CREATE INDEX IF NOT EXISTS idx_event_rules_event ON event_rules(event_id);
`
