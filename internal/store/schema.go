package store

// schema is applied at startup with CREATE TABLE IF NOT EXISTS statements,
// matching the teacher's embedded-schema approach rather than a separate
// migration tool (migration tooling is out of scope per spec).
const schema = `
CREATE TABLE IF NOT EXISTS source_version (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	publisher TEXT NOT NULL,
	url_or_path TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	retrieved_at TEXT NOT NULL,
	row_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tariff_measure (
	id TEXT PRIMARY KEY,
	program_id TEXT NOT NULL,
	ch99_heading TEXT NOT NULL,
	scope_hts_type TEXT NOT NULL,
	scope_hts_value TEXT NOT NULL,
	effective_start TEXT NOT NULL,
	effective_end TEXT,
	additional_rate REAL NOT NULL,
	rate_status TEXT NOT NULL,
	role TEXT NOT NULL,
	article_type TEXT NOT NULL,
	source_version_id TEXT,
	supersedes_id TEXT,
	superseded_by_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_tariff_measure_lookup
	ON tariff_measure(program_id, scope_hts_type, scope_hts_value, effective_end);

CREATE TABLE IF NOT EXISTS exclusion_claim (
	id TEXT PRIMARY KEY,
	note_bucket TEXT NOT NULL,
	claim_ch99_heading TEXT NOT NULL,
	source_heading TEXT,
	hts10_exact TEXT NOT NULL DEFAULT '',
	hts8_prefix TEXT NOT NULL DEFAULT '',
	description_scope_text TEXT,
	scope_text_hash TEXT,
	effective_start TEXT NOT NULL,
	effective_end TEXT,
	verification_required INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_exclusion_claim_bucket ON exclusion_claim(note_bucket, effective_end);

CREATE TABLE IF NOT EXISTS country_mapping (
	id TEXT PRIMARY KEY,
	census_code TEXT NOT NULL DEFAULT '',
	ch99_country_code TEXT NOT NULL DEFAULT '',
	iso_alpha2 TEXT NOT NULL,
	effective_start TEXT NOT NULL,
	effective_end TEXT
);

CREATE TABLE IF NOT EXISTS hts_code_history (
	hts_code TEXT NOT NULL,
	effective_start TEXT NOT NULL,
	effective_end TEXT,
	superseded_by_hts TEXT,
	PRIMARY KEY (hts_code, effective_start)
);

CREATE TABLE IF NOT EXISTS document (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	tier TEXT NOT NULL,
	connector_name TEXT NOT NULL,
	canonical_id TEXT NOT NULL,
	url TEXT NOT NULL,
	title TEXT,
	published_at TEXT,
	effective_start TEXT,
	sha256_raw TEXT NOT NULL,
	storage_uri TEXT NOT NULL,
	extracted_text TEXT NOT NULL,
	hts_codes_mentioned TEXT NOT NULL DEFAULT '',
	programs_mentioned TEXT NOT NULL DEFAULT '',
	extraction_failed INTEGER NOT NULL DEFAULT 0,
	UNIQUE(source, canonical_id)
);

CREATE TABLE IF NOT EXISTS document_fetch_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	success INTEGER NOT NULL,
	error TEXT,
	http_status INTEGER
);

CREATE TABLE IF NOT EXISTS document_chunk (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	char_start INTEGER NOT NULL,
	char_end INTEGER NOT NULL,
	text TEXT NOT NULL,
	text_hash TEXT NOT NULL,
	embedding_id TEXT,
	UNIQUE(document_id, chunk_index)
);

CREATE TABLE IF NOT EXISTS verified_assertion (
	id TEXT PRIMARY KEY,
	program_id TEXT NOT NULL,
	hts_code_norm TEXT NOT NULL,
	hts_digits INTEGER NOT NULL,
	material TEXT NOT NULL DEFAULT '',
	assertion_type TEXT NOT NULL,
	claim_code TEXT,
	disclaim_code TEXT,
	duty_rate REAL,
	effective_start TEXT NOT NULL,
	effective_end TEXT,
	document_id TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	evidence_quote TEXT NOT NULL,
	evidence_quote_hash TEXT NOT NULL,
	reader_output TEXT,
	validator_output TEXT,
	verified_at TEXT NOT NULL,
	verified_by TEXT NOT NULL,
	UNIQUE(program_id, hts_code_norm, material, assertion_type, effective_start)
);
CREATE INDEX IF NOT EXISTS idx_verified_assertion_lookup
	ON verified_assertion(program_id, hts_code_norm, material, effective_end);

CREATE TABLE IF NOT EXISTS needs_review_queue (
	id TEXT PRIMARY KEY,
	hts_code TEXT NOT NULL,
	query_type TEXT NOT NULL,
	material TEXT NOT NULL DEFAULT '',
	reader_output TEXT,
	validator_output TEXT,
	block_reason TEXT NOT NULL,
	block_details TEXT,
	status TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	resolved_at TEXT,
	resolved_by TEXT,
	resolution TEXT
);
CREATE INDEX IF NOT EXISTS idx_needs_review_status ON needs_review_queue(status, priority);

CREATE TABLE IF NOT EXISTS section301_ingestion_run (
	id TEXT PRIMARY KEY,
	source_version_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	rows_read INTEGER NOT NULL DEFAULT 0,
	rows_inserted INTEGER NOT NULL DEFAULT 0,
	rows_superseded INTEGER NOT NULL DEFAULT 0,
	rows_skipped INTEGER NOT NULL DEFAULT 0,
	parse_failures TEXT NOT NULL DEFAULT ''
);
`
