package store

// schemaSQL is the DDL for all archive tables.
const schemaSQL = `
-- Processed inputs with hash-based change detection
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    format TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    status TEXT DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Canonical entities per document
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    entity_id TEXT NOT NULL,
    label TEXT NOT NULL,
    class TEXT NOT NULL,
    surfaces JSON,
    mentions INTEGER DEFAULT 1,
    UNIQUE(document_id, entity_id)
);

-- Full-text search over entity labels via FTS5
CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
    label,
    content='entities',
    content_rowid='id',
    tokenize='porter unicode61'
);

-- FTS triggers to keep the index in sync
CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities BEGIN
    INSERT INTO entities_fts(rowid, label) VALUES (new.id, new.label);
END;
CREATE TRIGGER IF NOT EXISTS entities_ad AFTER DELETE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, label) VALUES ('delete', old.id, old.label);
END;
CREATE TRIGGER IF NOT EXISTS entities_au AFTER UPDATE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, label) VALUES ('delete', old.id, old.label);
    INSERT INTO entities_fts(rowid, label) VALUES (new.id, new.label);
END;

-- Validated statements per document
CREATE TABLE IF NOT EXISTS triples (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    subject_id TEXT NOT NULL,
    predicate TEXT NOT NULL,
    object_id TEXT NOT NULL,
    pattern TEXT
);

-- Competency questions per document, in generation order
CREATE TABLE IF NOT EXISTS questions (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    relation TEXT NOT NULL,
    entity_id TEXT NOT NULL
);

-- Generation audit log
CREATE TABLE IF NOT EXISTS generation_log (
    id INTEGER PRIMARY KEY,
    document_id INTEGER REFERENCES documents(id) ON DELETE SET NULL,
    format TEXT,
    entity_count INTEGER DEFAULT 0,
    triple_count INTEGER DEFAULT 0,
    question_count INTEGER DEFAULT 0,
    rejected_count INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_entities_document ON entities(document_id);
CREATE INDEX IF NOT EXISTS idx_entities_class ON entities(class);
CREATE INDEX IF NOT EXISTS idx_triples_document ON triples(document_id);
CREATE INDEX IF NOT EXISTS idx_triples_predicate ON triples(predicate);
CREATE INDEX IF NOT EXISTS idx_questions_document ON questions(document_id);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
`
