// Package postgres provides the PostgreSQL implementation of the storage
// interfaces. It requires the pgvector extension for similarity ranking.
package postgres

// Schema contains the SQL statements to create the database schema.
// All statements are idempotent (IF NOT EXISTS) so the schema can be applied
// on every startup.
const Schema = `
-- Skill records: skills extracted from evaluation text
CREATE TABLE IF NOT EXISTS dendrite_skills (
    id BIGSERIAL PRIMARY KEY,
    employee_name TEXT NOT NULL,
    skill_name TEXT NOT NULL,
    proficiency TEXT NOT NULL DEFAULT 'novice',
    evidence TEXT,
    embedding vector(768),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_dendrite_skills_employee
    ON dendrite_skills (employee_name);

-- Talent profiles: one synthesized profile per employee
CREATE TABLE IF NOT EXISTS dendrite_profiles (
    id BIGSERIAL PRIMARY KEY,
    employee_name TEXT NOT NULL UNIQUE,
    summary_zh TEXT,
    summary_en TEXT,
    skills_zh JSONB,
    skills_en JSONB,
    embedding vector(768),
    last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Evaluation tags: contributor-submitted tags about target employees
CREATE TABLE IF NOT EXISTS dendrite_evaluation_tags (
    id BIGSERIAL PRIMARY KEY,
    creator_employee TEXT NOT NULL,
    target_employee TEXT NOT NULL,
    raw_tag_name TEXT NOT NULL,
    context TEXT,
    standardized_category TEXT NOT NULL DEFAULT 'HARD_SKILL_GENERAL',
    weight REAL NOT NULL DEFAULT 1.0,
    embedding vector(768),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_dendrite_tags_target
    ON dendrite_evaluation_tags (target_employee);

-- Tag interactions: append-only audit trail of tag value events
CREATE TABLE IF NOT EXISTS dendrite_tag_interactions (
    id BIGSERIAL PRIMARY KEY,
    tag_id BIGINT NOT NULL REFERENCES dendrite_evaluation_tags(id) ON DELETE CASCADE,
    interaction_type TEXT NOT NULL,
    trigger_user TEXT,
    related_query TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Contributors: gamification state, guarded by an optimistic version counter
CREATE TABLE IF NOT EXISTS dendrite_contributors (
    id BIGSERIAL PRIMARY KEY,
    employee_name TEXT NOT NULL UNIQUE,
    current_points BIGINT NOT NULL DEFAULT 0,
    total_accumulated_points BIGINT NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    taste_embedding vector(768),
    total_tags_submitted INTEGER NOT NULL DEFAULT 0,
    search_hits_count INTEGER NOT NULL DEFAULT 0,
    version BIGINT NOT NULL DEFAULT 0
);

-- Reward records: append-only points ledger
CREATE TABLE IF NOT EXISTS dendrite_reward_records (
    id BIGSERIAL PRIMARY KEY,
    employee_name TEXT NOT NULL,
    points_change INTEGER NOT NULL,
    reason TEXT,
    source_interaction_id BIGINT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_dendrite_rewards_employee
    ON dendrite_reward_records (employee_name);
`
