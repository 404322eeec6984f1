package postgres

// Reference tables plus the document/extraction provenance roots.
const initialSchemaSQL = `
CREATE TABLE IF NOT EXISTS countries (
	id BIGSERIAL PRIMARY KEY,
	iso_code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	currency_code TEXT NOT NULL,
	timezone TEXT NOT NULL DEFAULT 'Africa/Nairobi',
	locale TEXT NOT NULL DEFAULT 'en-KE',
	metadata JSONB
);

CREATE TABLE IF NOT EXISTS entities (
	id BIGSERIAL PRIMARY KEY,
	country_id BIGINT NOT NULL REFERENCES countries(id),
	type TEXT NOT NULL CHECK (type IN ('NATIONAL','COUNTY','MINISTRY','AGENCY','MUNICIPALITY')),
	canonical_name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	alternate_names JSONB,
	metadata JSONB,
	UNIQUE (country_id, canonical_name)
);

CREATE TABLE IF NOT EXISTS fiscal_periods (
	id BIGSERIAL PRIMARY KEY,
	country_id BIGINT NOT NULL REFERENCES countries(id),
	label TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	UNIQUE (country_id, label)
);

CREATE TABLE IF NOT EXISTS source_documents (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	source_key TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL UNIQUE,
	file_path TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMPTZ NOT NULL,
	md5 TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT 'OTHER',
	status TEXT NOT NULL DEFAULT 'AVAILABLE',
	last_seen_at TIMESTAMPTZ NOT NULL,
	metadata JSONB
);

-- md5 is unknown until the artifact downloads; uniqueness applies once set
CREATE UNIQUE INDEX IF NOT EXISTS idx_source_documents_md5 ON source_documents (md5) WHERE md5 <> '';
CREATE INDEX IF NOT EXISTS idx_source_documents_source ON source_documents (source_key, fetched_at DESC);

CREATE TABLE IF NOT EXISTS extractions (
	id BIGSERIAL PRIMARY KEY,
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id) ON DELETE CASCADE,
	page_number INTEGER NOT NULL DEFAULT 0,
	data JSONB,
	extractor_name TEXT NOT NULL,
	confidence NUMERIC(8,3) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_extractions_document ON extractions (source_document_id);
`

// Fact tables. Natural keys with nullable members get expression indexes
// so ON CONFLICT can route NULLs to the update path instead of duplicating.
const factTablesSQL = `
CREATE TABLE IF NOT EXISTS budget_lines (
	id BIGSERIAL PRIMARY KEY,
	entity_id BIGINT NOT NULL REFERENCES entities(id),
	fiscal_period_id BIGINT NOT NULL REFERENCES fiscal_periods(id),
	category TEXT NOT NULL,
	subcategory TEXT NOT NULL DEFAULT '',
	allocated_amount NUMERIC(18,2),
	actual_spent NUMERIC(18,2),
	committed_amount NUMERIC(18,2),
	currency TEXT NOT NULL DEFAULT 'KES',
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id),
	provenance JSONB NOT NULL,
	UNIQUE (entity_id, fiscal_period_id, category, subcategory)
);

CREATE INDEX IF NOT EXISTS idx_budget_lines_entity ON budget_lines (entity_id, fiscal_period_id);

CREATE TABLE IF NOT EXISTS audits (
	id BIGSERIAL PRIMARY KEY,
	entity_id BIGINT NOT NULL REFERENCES entities(id),
	fiscal_period_id BIGINT REFERENCES fiscal_periods(id),
	finding TEXT NOT NULL,
	severity TEXT NOT NULL CHECK (severity IN ('INFO','WARNING','CRITICAL')),
	status TEXT NOT NULL DEFAULT 'OPEN',
	recommended_action TEXT NOT NULL DEFAULT '',
	amount_involved NUMERIC(18,2),
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id),
	provenance JSONB NOT NULL
);

-- findings are long text; hash them for the uniqueness probe
CREATE UNIQUE INDEX IF NOT EXISTS idx_audits_natural_key ON audits (entity_id, COALESCE(fiscal_period_id, 0), md5(finding));
CREATE INDEX IF NOT EXISTS idx_audits_entity ON audits (entity_id, severity);

CREATE TABLE IF NOT EXISTS population_data (
	id BIGSERIAL PRIMARY KEY,
	entity_id BIGINT NOT NULL REFERENCES entities(id),
	year INTEGER NOT NULL,
	total_population NUMERIC(18,2) NOT NULL,
	male_population NUMERIC(18,2),
	female_population NUMERIC(18,2),
	urban_population NUMERIC(18,2),
	rural_population NUMERIC(18,2),
	density NUMERIC(18,2),
	confidence NUMERIC(8,3) NOT NULL DEFAULT 0,
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id),
	provenance JSONB NOT NULL,
	UNIQUE (entity_id, year)
);

CREATE TABLE IF NOT EXISTS gdp_data (
	id BIGSERIAL PRIMARY KEY,
	entity_id BIGINT REFERENCES entities(id),
	year INTEGER NOT NULL,
	quarter INTEGER CHECK (quarter BETWEEN 1 AND 4),
	gdp_value NUMERIC(18,2) NOT NULL,
	growth_rate NUMERIC(8,3),
	currency TEXT NOT NULL DEFAULT 'KES',
	confidence NUMERIC(8,3) NOT NULL DEFAULT 0,
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id),
	provenance JSONB NOT NULL
);

-- entity_id NULL means national, quarter NULL means annual
CREATE UNIQUE INDEX IF NOT EXISTS idx_gdp_natural_key ON gdp_data (COALESCE(entity_id, 0), year, COALESCE(quarter, 0));

CREATE TABLE IF NOT EXISTS economic_indicators (
	id BIGSERIAL PRIMARY KEY,
	indicator_type TEXT NOT NULL,
	date DATE NOT NULL,
	entity_id BIGINT REFERENCES entities(id),
	value NUMERIC(18,3) NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	confidence NUMERIC(8,3) NOT NULL DEFAULT 0,
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id),
	provenance JSONB NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_indicators_natural_key ON economic_indicators (indicator_type, date, COALESCE(entity_id, 0));

CREATE TABLE IF NOT EXISTS poverty_indices (
	id BIGSERIAL PRIMARY KEY,
	entity_id BIGINT NOT NULL REFERENCES entities(id),
	year INTEGER NOT NULL,
	poverty_rate NUMERIC(8,3),
	extreme_poverty_rate NUMERIC(8,3),
	gini_coefficient NUMERIC(8,3),
	confidence NUMERIC(8,3) NOT NULL DEFAULT 0,
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id),
	provenance JSONB NOT NULL,
	UNIQUE (entity_id, year)
);
`

// Debt register plus the seeded reference aggregates.
const debtTablesSQL = `
CREATE TABLE IF NOT EXISTS loans (
	id BIGSERIAL PRIMARY KEY,
	entity_id BIGINT NOT NULL REFERENCES entities(id),
	lender TEXT NOT NULL,
	issue_date DATE NOT NULL,
	principal NUMERIC(18,2) NOT NULL,
	outstanding NUMERIC(18,2) NOT NULL DEFAULT 0,
	interest_rate NUMERIC(8,3),
	maturity_date DATE,
	currency TEXT NOT NULL DEFAULT 'KES',
	debt_category TEXT NOT NULL DEFAULT 'OTHER',
	source_document_id BIGINT NOT NULL REFERENCES source_documents(id),
	UNIQUE (entity_id, lender, issue_date)
);

CREATE TABLE IF NOT EXISTS debt_timelines (
	id BIGSERIAL PRIMARY KEY,
	fiscal_year TEXT NOT NULL UNIQUE,
	external_debt NUMERIC(18,2) NOT NULL DEFAULT 0,
	domestic_debt NUMERIC(18,2) NOT NULL DEFAULT 0,
	total_debt NUMERIC(18,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fiscal_summaries (
	id BIGSERIAL PRIMARY KEY,
	entity_id BIGINT NOT NULL REFERENCES entities(id),
	fiscal_year TEXT NOT NULL,
	revenue NUMERIC(18,2) NOT NULL DEFAULT 0,
	expenditure NUMERIC(18,2) NOT NULL DEFAULT 0,
	deficit NUMERIC(18,2) NOT NULL DEFAULT 0,
	UNIQUE (entity_id, fiscal_year)
);

CREATE TABLE IF NOT EXISTS revenue_by_source (
	id BIGSERIAL PRIMARY KEY,
	fiscal_year TEXT NOT NULL,
	revenue_source TEXT NOT NULL,
	amount NUMERIC(18,2) NOT NULL DEFAULT 0,
	UNIQUE (fiscal_year, revenue_source)
);
`

// Run observability.
const ingestionJobsSQL = `
CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id UUID PRIMARY KEY,
	domain TEXT NOT NULL,
	status TEXT NOT NULL,
	dry_run BOOLEAN NOT NULL DEFAULT FALSE,
	records_processed INTEGER NOT NULL DEFAULT 0,
	records_created INTEGER NOT NULL DEFAULT 0,
	records_updated INTEGER NOT NULL DEFAULT 0,
	errors JSONB,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_domain ON ingestion_jobs (domain, started_at DESC);
`
