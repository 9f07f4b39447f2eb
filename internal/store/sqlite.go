package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local and
// offline runs where no Postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                      TEXT PRIMARY KEY,
	campaign_name           TEXT NOT NULL,
	campaign_type           TEXT NOT NULL DEFAULT '',
	campaign_version        TEXT NOT NULL DEFAULT '',
	data_provider           TEXT,
	state                   TEXT NOT NULL,
	market                  TEXT NOT NULL,
	total_records           INTEGER NOT NULL DEFAULT 0,
	new_leads_count         INTEGER NOT NULL DEFAULT 0,
	duplicates_found        INTEGER NOT NULL DEFAULT 0,
	invalid_count           INTEGER NOT NULL DEFAULT 0,
	duplicate_rate          REAL NOT NULL DEFAULT 0,
	skip_trace_needed       INTEGER NOT NULL DEFAULT 0,
	skip_trace_savings      REAL NOT NULL DEFAULT 0,
	file_name               TEXT,
	file_size_kb            INTEGER NOT NULL DEFAULT 0,
	status                  TEXT NOT NULL DEFAULT 'active',
	uploaded_by             TEXT,
	upload_date             DATETIME NOT NULL DEFAULT (datetime('now')),
	processing_time_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY,
	campaign_id       TEXT NOT NULL REFERENCES campaigns(id),
	original_address  TEXT NOT NULL,
	normalized_address TEXT NOT NULL,
	city              TEXT NOT NULL,
	state             TEXT NOT NULL,
	state_full        TEXT,
	zip_code          TEXT NOT NULL,
	parcel_id         TEXT,
	parcel_id_type    TEXT,
	owner_first_name  TEXT,
	owner_last_name   TEXT,
	owner_full_name   TEXT,
	mailing_address   TEXT,
	phone             TEXT,
	email             TEXT,
	market            TEXT,
	status            TEXT NOT NULL DEFAULT 'New',
	sync_status       TEXT NOT NULL DEFAULT 'Not Synced',
	skip_trace_status TEXT NOT NULL DEFAULT 'Not Started',
	contact_attempts  INTEGER NOT NULL DEFAULT 0,
	extra             TEXT,
	is_deleted        INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_parcel_state ON leads(parcel_id, state);
CREATE INDEX IF NOT EXISTS idx_leads_address_key ON leads(normalized_address, city, state, zip_code);
CREATE UNIQUE INDEX IF NOT EXISTS uq_leads_parcel_state ON leads(parcel_id, state) WHERE parcel_id IS NOT NULL AND is_deleted = 0;

CREATE TABLE IF NOT EXISTS duplicate_log (
	id                     TEXT PRIMARY KEY,
	campaign_id            TEXT NOT NULL REFERENCES campaigns(id),
	lead_id                TEXT,
	duplicate_parcel_id    TEXT,
	duplicate_address      TEXT NOT NULL,
	duplicate_owner_name   TEXT,
	duplicate_state        TEXT NOT NULL,
	duplicate_market       TEXT,
	original_lead_id       TEXT NOT NULL,
	original_status        TEXT NOT NULL DEFAULT '',
	match_type             TEXT NOT NULL,
	matched_on             TEXT NOT NULL,
	original_campaign_name TEXT NOT NULL,
	original_upload_date   DATETIME,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_duplicate_log_campaign_id ON duplicate_log(campaign_id);

CREATE TABLE IF NOT EXISTS markets (
	id               TEXT PRIMARY KEY,
	market_code      TEXT NOT NULL UNIQUE,
	market_name      TEXT NOT NULL,
	state            TEXT NOT NULL,
	state_full       TEXT NOT NULL,
	parcel_id_type   TEXT NOT NULL DEFAULT '',
	parcel_id_format TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_campaigns_market ON campaigns(market);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByParcelIDs(ctx context.Context, parcelIDs []string, state string) ([]model.ExistingLead, error) {
	if len(parcelIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(parcelIDs))
	args := make([]any, 0, len(parcelIDs)+1)
	for i, p := range parcelIDs {
		placeholders[i] = "?"
		args = append(args, p)
	}
	args = append(args, state)

	query := fmt.Sprintf(
		`SELECT id, parcel_id, original_address, normalized_address, city, state, zip_code, campaign_id, created_at
		 FROM leads
		 WHERE parcel_id IN (%s) AND state = ? AND is_deleted = 0
		 ORDER BY created_at ASC`,
		strings.Join(placeholders, ", "),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find by parcel ids")
	}
	defer rows.Close()

	var leads []model.ExistingLead
	for rows.Next() {
		var l model.ExistingLead
		var parcelID sql.NullString
		if err := rows.Scan(&l.ID, &parcelID, &l.OriginalAddress, &l.NormalizedAddress,
			&l.City, &l.State, &l.ZipCode, &l.CampaignID, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan existing lead")
		}
		l.ParcelID = parcelID.String
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: find by parcel ids iterate")
}

func (s *SQLiteStore) FindByAddressKey(ctx context.Context, normalizedAddress, city, state, zip string) (*model.ExistingLead, error) {
	var l model.ExistingLead
	var parcelID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, parcel_id, original_address, normalized_address, city, state, zip_code, campaign_id, created_at
		 FROM leads
		 WHERE normalized_address = ? AND city = ? AND state = ? AND zip_code = ? AND is_deleted = 0
		 ORDER BY created_at ASC LIMIT 1`,
		normalizedAddress, city, state, zip,
	).Scan(&l.ID, &parcelID, &l.OriginalAddress, &l.NormalizedAddress,
		&l.City, &l.State, &l.ZipCode, &l.CampaignID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find by address key")
	}
	l.ParcelID = parcelID.String
	return &l, nil
}

const sqliteInsertLead = `INSERT INTO leads
	 (id, campaign_id, original_address, normalized_address, city,
	  state, state_full, zip_code, parcel_id, parcel_id_type,
	  owner_first_name, owner_last_name, owner_full_name,
	  mailing_address, phone, email, market,
	  status, sync_status, skip_trace_status, contact_attempts,
	  extra, created_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func sqliteLeadArgs(campaignID string, l model.Lead, now time.Time) ([]any, error) {
	var extraJSON any
	if len(l.Extra) > 0 {
		b, err := json.Marshal(l.Extra)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal lead extra")
		}
		extraJSON = string(b)
	}

	return []any{
		uuid.New().String(), campaignID, l.OriginalAddress, l.NormalizedAddress, l.City,
		l.State, nullIfEmpty(l.StateFull), l.ZipCode, nullIfEmpty(l.ParcelID), nullIfEmpty(l.ParcelIDType),
		nullIfEmpty(l.OwnerFirstName), nullIfEmpty(l.OwnerLastName), nullIfEmpty(l.OwnerFullName),
		nullIfEmpty(l.MailingAddress), nullIfEmpty(l.Phone), nullIfEmpty(l.Email), nullIfEmpty(l.Market),
		l.Status, l.SyncStatus, l.SkipTraceStatus, l.ContactAttempts,
		extraJSON, now,
	}, nil
}

// InsertLeads writes a batch of leads inside one transaction.
func (s *SQLiteStore) InsertLeads(ctx context.Context, campaignID string, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, l := range leads {
		args, err := sqliteLeadArgs(campaignID, l, now)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sqliteInsertLead, args...); err != nil {
			return eris.Wrap(err, "sqlite: insert leads")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert leads")
}

func (s *SQLiteStore) InsertLead(ctx context.Context, campaignID string, lead model.Lead) error {
	args, err := sqliteLeadArgs(campaignID, lead, time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqliteInsertLead, args...)
	return eris.Wrap(err, "sqlite: insert lead")
}

func (s *SQLiteStore) InsertDuplicateLogs(ctx context.Context, entries []model.DuplicateLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO duplicate_log
			 (id, campaign_id, lead_id, duplicate_parcel_id, duplicate_address,
			  duplicate_owner_name, duplicate_state, duplicate_market,
			  original_lead_id, original_status, match_type, matched_on,
			  original_campaign_name, original_upload_date, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, e.CampaignID, e.LeadID, nullIfEmpty(e.DuplicateParcelID), e.DuplicateAddress,
			nullIfEmpty(e.DuplicateOwnerName), e.DuplicateState, nullIfEmpty(e.DuplicateMarket),
			e.OriginalLeadID, e.OriginalStatus, string(e.MatchType), e.MatchedOn,
			e.OriginalCampaignName, e.OriginalUploadDate, now,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert duplicate log")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit duplicate logs")
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusActive
	}
	if c.UploadDate.IsZero() {
		c.UploadDate = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns
		 (id, campaign_name, campaign_type, campaign_version, data_provider, state, market,
		  total_records, new_leads_count, duplicates_found, invalid_count, duplicate_rate,
		  skip_trace_needed, skip_trace_savings, file_name, file_size_kb, status,
		  uploaded_by, upload_date, processing_time_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Type, c.Version, nullIfEmpty(c.DataProvider), c.State, c.Market,
		c.TotalRecords, c.NewLeadsCount, c.DuplicatesFound, c.InvalidCount, c.DuplicateRate,
		c.SkipTraceNeeded, c.SkipTraceSavings, nullIfEmpty(c.FileName), c.FileSizeKB, string(c.Status),
		nullIfEmpty(c.UploadedBy), c.UploadDate, c.ProcessingTimeSeconds,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert campaign")
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateCampaign(ctx context.Context, campaignID string, patch model.CampaignPatch) error {
	sets := []string{}
	args := []any{}

	if patch.NewLeadsCount != nil {
		sets = append(sets, "new_leads_count = ?")
		args = append(args, *patch.NewLeadsCount)
	}
	if patch.ProcessingTimeSeconds != nil {
		sets = append(sets, "processing_time_seconds = ?")
		args = append(args, *patch.ProcessingTimeSeconds)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, campaignID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE campaigns SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign %s", campaignID)
	}
	return checkRowsAffected(res, "campaign", campaignID)
}

func scanSQLiteCampaign(row interface{ Scan(...any) error }) (model.Campaign, error) {
	var c model.Campaign
	var dataProvider, fileName, uploadedBy sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Version, &dataProvider, &c.State, &c.Market,
		&c.TotalRecords, &c.NewLeadsCount, &c.DuplicatesFound, &c.InvalidCount, &c.DuplicateRate,
		&c.SkipTraceNeeded, &c.SkipTraceSavings, &fileName, &c.FileSizeKB, &c.Status,
		&uploadedBy, &c.UploadDate, &c.ProcessingTimeSeconds)
	if err != nil {
		return c, err
	}
	c.DataProvider = dataProvider.String
	c.FileName = fileName.String
	c.UploadedBy = uploadedBy.String
	return c, nil
}

const sqliteCampaignColumns = `id, campaign_name, campaign_type, campaign_version, data_provider, state, market,
	 total_records, new_leads_count, duplicates_found, invalid_count, duplicate_rate,
	 skip_trace_needed, skip_trace_savings, file_name, file_size_kb, status,
	 uploaded_by, upload_date, processing_time_seconds`

func (s *SQLiteStore) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCampaignColumns+` FROM campaigns WHERE id = ?`,
		campaignID,
	)
	c, err := scanSQLiteCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get campaign %s", campaignID)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	query := `SELECT ` + sqliteCampaignColumns + ` FROM campaigns WHERE true`
	args := []any{}

	if filter.Market != "" {
		query += ` AND market = ?`
		args = append(args, filter.Market)
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, filter.State)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY upload_date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanSQLiteCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

func (s *SQLiteStore) LookupCampaignsByIDs(ctx context.Context, ids []string) (map[string]model.CampaignRef, error) {
	if len(ids) == 0 {
		return map[string]model.CampaignRef{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, campaign_name, upload_date FROM campaigns WHERE id IN (%s)`,
			strings.Join(placeholders, ", ")),
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup campaigns")
	}
	defer rows.Close()

	refs := make(map[string]model.CampaignRef, len(ids))
	for rows.Next() {
		var r model.CampaignRef
		if err := rows.Scan(&r.ID, &r.Name, &r.UploadDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign ref")
		}
		refs[r.ID] = r
	}
	return refs, eris.Wrap(rows.Err(), "sqlite: lookup campaigns iterate")
}

func (s *SQLiteStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, market_code, market_name, state, state_full, parcel_id_type, parcel_id_format
		 FROM markets ORDER BY market_code ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list markets")
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		var m model.Market
		if err := rows.Scan(&m.ID, &m.MarketCode, &m.MarketName, &m.State, &m.StateFull,
			&m.ParcelIDType, &m.ParcelIDFormat); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan market")
		}
		markets = append(markets, m)
	}
	return markets, eris.Wrap(rows.Err(), "sqlite: list markets iterate")
}

func (s *SQLiteStore) GetMarketByCode(ctx context.Context, code string) (*model.Market, error) {
	var m model.Market
	err := s.db.QueryRowContext(ctx,
		`SELECT id, market_code, market_name, state, state_full, parcel_id_type, parcel_id_format
		 FROM markets WHERE market_code = ?`,
		code,
	).Scan(&m.ID, &m.MarketCode, &m.MarketName, &m.State, &m.StateFull, &m.ParcelIDType, &m.ParcelIDFormat)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get market %s", code)
	}
	return &m, nil
}

func (s *SQLiteStore) UpsertMarkets(ctx context.Context, markets []model.Market) (int64, error) {
	if len(markets) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	var affected int64
	for _, m := range markets {
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO markets (id, market_code, market_name, state, state_full, parcel_id_type, parcel_id_format)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (market_code) DO UPDATE SET
			   market_name = excluded.market_name, state = excluded.state,
			   state_full = excluded.state_full, parcel_id_type = excluded.parcel_id_type,
			   parcel_id_format = excluded.parcel_id_format`,
			id, m.MarketCode, m.MarketName, m.State, m.StateFull, m.ParcelIDType, m.ParcelIDFormat,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert market %s", m.MarketCode)
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert markets")
	}
	return affected, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
