package store

// Schema v1 - score library tables and their uniqueness constraints
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Composers and editors, one row per distinct name
CREATE TABLE IF NOT EXISTS person (
  id INTEGER PRIMARY KEY NOT NULL,
  born INTEGER,
  died INTEGER,
  name VARCHAR NOT NULL
);

-- Compositions
CREATE TABLE IF NOT EXISTS score (
  id INTEGER PRIMARY KEY NOT NULL,
  name VARCHAR,
  genre VARCHAR,
  "key" VARCHAR,
  incipit VARCHAR,
  year INTEGER
);

-- Ordered parts of a composition
CREATE TABLE IF NOT EXISTS voice (
  id INTEGER PRIMARY KEY NOT NULL,
  number INTEGER NOT NULL,
  score INTEGER REFERENCES score(id) NOT NULL,
  "range" VARCHAR,
  name VARCHAR
);

CREATE TABLE IF NOT EXISTS edition (
  id INTEGER PRIMARY KEY NOT NULL,
  score INTEGER REFERENCES score(id) NOT NULL,
  name VARCHAR,
  year INTEGER
);

-- Composer links
CREATE TABLE IF NOT EXISTS score_author (
  id INTEGER PRIMARY KEY NOT NULL,
  score INTEGER REFERENCES score(id) NOT NULL,
  composer INTEGER REFERENCES person(id) NOT NULL
);

-- Editor links
CREATE TABLE IF NOT EXISTS edition_author (
  id INTEGER PRIMARY KEY NOT NULL,
  edition INTEGER REFERENCES edition(id) NOT NULL,
  editor INTEGER REFERENCES person(id) NOT NULL
);

-- Physical prints, keyed by the catalog's print number
CREATE TABLE IF NOT EXISTS print (
  id INTEGER PRIMARY KEY NOT NULL,
  partiture CHAR(1) DEFAULT 'N' NOT NULL,
  edition INTEGER REFERENCES edition(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS person_name_unique_index ON person(name);
CREATE UNIQUE INDEX IF NOT EXISTS score_author_unique_index ON score_author(score, composer);
CREATE UNIQUE INDEX IF NOT EXISTS voice_unique_index ON voice(number, score, ifnull("range", ''), ifnull(name, ''));
CREATE UNIQUE INDEX IF NOT EXISTS print_unique_index ON print(id);
`

// Schema v2 - import run history and lookup indexes
const schemaV2 = `
CREATE TABLE IF NOT EXISTS import_run (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  started_at DATETIME NOT NULL,
  finished_at DATETIME,
  prints_total INTEGER DEFAULT 0,
  prints_imported INTEGER DEFAULT 0,
  prints_conflicted INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_import_run_started_at ON import_run(started_at);

-- Dedup lookups filter on these
CREATE INDEX IF NOT EXISTS idx_score_name ON score(name);
CREATE INDEX IF NOT EXISTS idx_voice_score_number ON voice(score, number);
CREATE INDEX IF NOT EXISTS idx_edition_score ON edition(score);
CREATE INDEX IF NOT EXISTS idx_edition_author_edition ON edition_author(edition);
CREATE INDEX IF NOT EXISTS idx_print_edition ON print(edition);
`
