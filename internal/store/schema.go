// Package store persists the ledger in SQLite.
package store

// schemaVersion is recorded in schema_migrations once Schema has been applied.
const schemaVersion = "0001_initial"

// Schema defines the SQL statements to create all tables.
// Amounts are decimal TEXT, calendar dates are YYYY-MM-DD TEXT.
const Schema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    parent_id INTEGER REFERENCES accounts(id),
    level INTEGER NOT NULL,
    allow_posting INTEGER NOT NULL,
    is_system INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    currency TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_name ON accounts(name);
CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_id);

CREATE TABLE IF NOT EXISTS journal_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_date TEXT NOT NULL,
    description TEXT NOT NULL,
    source TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_entries_date ON journal_entries(entry_date);
CREATE INDEX IF NOT EXISTS idx_journal_entries_source ON journal_entries(source);

CREATE TABLE IF NOT EXISTS journal_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id INTEGER NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
    line_no INTEGER NOT NULL,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    debit TEXT NOT NULL,
    credit TEXT NOT NULL,
    memo TEXT NOT NULL DEFAULT '',
    native_amount TEXT,
    native_currency TEXT,
    fx_rate TEXT
);

CREATE INDEX IF NOT EXISTS idx_journal_lines_entry ON journal_lines(entry_id);
CREATE INDEX IF NOT EXISTS idx_journal_lines_account ON journal_lines(account_id);

-- Frozen conversion of a foreign-currency line at posting time.
CREATE TABLE IF NOT EXISTS journal_line_fx (
    line_id INTEGER PRIMARY KEY REFERENCES journal_lines(id) ON DELETE CASCADE,
    native_currency TEXT NOT NULL,
    native_amount TEXT NOT NULL,
    base_currency TEXT NOT NULL,
    fx_rate TEXT NOT NULL,
    base_amount TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fx_rates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    base_currency TEXT NOT NULL,
    quote_currency TEXT NOT NULL,
    rate TEXT NOT NULL,
    as_of TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT 'manual'
);

CREATE INDEX IF NOT EXISTS idx_fx_rates_pair ON fx_rates(base_currency, quote_currency, as_of);

-- fx_revision counts writes to fx_rates from any connection.
CREATE TABLE IF NOT EXISTS fx_revision (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    n INTEGER NOT NULL
);

INSERT OR IGNORE INTO fx_revision (id, n) VALUES (1, 0);

CREATE TRIGGER IF NOT EXISTS fx_rates_ai AFTER INSERT ON fx_rates
BEGIN UPDATE fx_revision SET n = n + 1 WHERE id = 1; END;

CREATE TRIGGER IF NOT EXISTS fx_rates_au AFTER UPDATE ON fx_rates
BEGIN UPDATE fx_revision SET n = n + 1 WHERE id = 1; END;

CREATE TRIGGER IF NOT EXISTS fx_rates_ad AFTER DELETE ON fx_rates
BEGIN UPDATE fx_revision SET n = n + 1 WHERE id = 1; END;

CREATE TABLE IF NOT EXISTS market_prices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    market TEXT NOT NULL,
    currency TEXT NOT NULL,
    price TEXT NOT NULL,
    as_of TEXT NOT NULL,
    source TEXT NOT NULL,
    UNIQUE(symbol, market, as_of, source)
);

CREATE TABLE IF NOT EXISTS data_sync_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    data_type TEXT NOT NULL,
    provider TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS assets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    asset_class TEXT NOT NULL,
    linked_account_id INTEGER NOT NULL REFERENCES accounts(id),
    acquisition_date TEXT NOT NULL,
    acquisition_cost TEXT NOT NULL,
    disposal_date TEXT,
    note TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_assets_account ON assets(linked_account_id);

CREATE TABLE IF NOT EXISTS asset_valuations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
    as_of_date TEXT NOT NULL,
    value_native TEXT NOT NULL,
    currency TEXT NOT NULL,
    method TEXT NOT NULL DEFAULT 'manual',
    source TEXT NOT NULL DEFAULT 'manual',
    note TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_asset_valuations_asset ON asset_valuations(asset_id, as_of_date);

CREATE TABLE IF NOT EXISTS loans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    liability_account_id INTEGER NOT NULL REFERENCES accounts(id),
    asset_id INTEGER REFERENCES assets(id),
    principal_amount TEXT NOT NULL,
    interest_rate TEXT NOT NULL,
    term_months INTEGER NOT NULL,
    start_date TEXT NOT NULL,
    repayment_method TEXT NOT NULL,
    payment_day INTEGER NOT NULL DEFAULT 1,
    grace_period_months INTEGER NOT NULL DEFAULT 0,
    note TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS loan_schedules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    loan_id INTEGER NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
    installment_number INTEGER NOT NULL,
    due_date TEXT NOT NULL,
    principal_payment TEXT NOT NULL,
    interest_payment TEXT NOT NULL,
    total_payment TEXT NOT NULL,
    remaining_balance TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    journal_entry_id INTEGER REFERENCES journal_entries(id),
    UNIQUE(loan_id, installment_number)
);

CREATE INDEX IF NOT EXISTS idx_loan_schedules_due ON loan_schedules(due_date);

CREATE TABLE IF NOT EXISTS subscriptions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    cadence TEXT NOT NULL,
    interval_count INTEGER NOT NULL DEFAULT 1,
    next_due_date TEXT NOT NULL,
    amount TEXT NOT NULL,
    debit_account_id INTEGER NOT NULL REFERENCES accounts(id),
    credit_account_id INTEGER NOT NULL REFERENCES accounts(id),
    memo TEXT NOT NULL DEFAULT '',
    auto_post INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    last_run_date TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_due ON subscriptions(is_active, next_due_date);
`
