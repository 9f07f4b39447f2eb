package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/db"
	"github.com/sells-group/lead-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot dedup lookup paths.
var preparedStatements = map[string]string{
	"find_by_address_key": `SELECT id, parcel_id, original_address, normalized_address, city, state, zip_code, campaign_id, created_at
		 FROM leads
		 WHERE normalized_address = $1 AND city = $2 AND state = $3 AND zip_code = $4 AND is_deleted = false
		 ORDER BY created_at ASC LIMIT 1`,
	"get_campaign": `SELECT id, campaign_name, campaign_type, campaign_version, data_provider, state, market,
		 total_records, new_leads_count, duplicates_found, invalid_count, duplicate_rate,
		 skip_trace_needed, skip_trace_savings, file_name, file_size_kb, status,
		 uploaded_by, upload_date, processing_time_seconds
		 FROM campaigns WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests and by callers
// that manage pool lifetime themselves.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	duplicate_rate          DOUBLE PRECISION NOT NULL DEFAULT 0,
	skip_trace_needed       INTEGER NOT NULL DEFAULT 0,
	skip_trace_savings      DOUBLE PRECISION NOT NULL DEFAULT 0,
	file_name               TEXT,
	file_size_kb            INTEGER NOT NULL DEFAULT 0,
	status                  TEXT NOT NULL DEFAULT 'active',
	uploaded_by             TEXT,
	upload_date             TIMESTAMPTZ NOT NULL DEFAULT now(),
	processing_time_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	extra             JSONB,
	is_deleted        BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_parcel_state ON leads(parcel_id, state) WHERE parcel_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_leads_address_key ON leads(normalized_address, city, state, zip_code);
CREATE UNIQUE INDEX IF NOT EXISTS uq_leads_parcel_state ON leads(parcel_id, state) WHERE parcel_id IS NOT NULL AND is_deleted = false;

CREATE TABLE IF NOT EXISTS duplicate_log (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	original_upload_date   TIMESTAMPTZ,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_duplicate_log_campaign_id ON duplicate_log(campaign_id);
CREATE INDEX IF NOT EXISTS idx_duplicate_log_match_type ON duplicate_log(match_type);

CREATE TABLE IF NOT EXISTS markets (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	market_code      TEXT NOT NULL UNIQUE,
	market_name      TEXT NOT NULL,
	state            TEXT NOT NULL,
	state_full       TEXT NOT NULL,
	parcel_id_type   TEXT NOT NULL DEFAULT '',
	parcel_id_format TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_campaigns_market ON campaigns(market);
CREATE INDEX IF NOT EXISTS idx_campaigns_upload_date ON campaigns(upload_date DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const existingLeadColumns = `id, parcel_id, original_address, normalized_address, city, state, zip_code, campaign_id, created_at`

func scanExistingLead(row pgx.Row) (model.ExistingLead, error) {
	var l model.ExistingLead
	var parcelID *string
	err := row.Scan(&l.ID, &parcelID, &l.OriginalAddress, &l.NormalizedAddress,
		&l.City, &l.State, &l.ZipCode, &l.CampaignID, &l.CreatedAt)
	if err != nil {
		return l, err
	}
	if parcelID != nil {
		l.ParcelID = *parcelID
	}
	return l, nil
}

// FindByParcelIDs returns every non-deleted lead in the given state whose
// parcel id is in parcelIDs, oldest first.
func (s *PostgresStore) FindByParcelIDs(ctx context.Context, parcelIDs []string, state string) ([]model.ExistingLead, error) {
	if len(parcelIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+existingLeadColumns+` FROM leads
		 WHERE parcel_id = ANY($1) AND state = $2 AND is_deleted = false
		 ORDER BY created_at ASC`,
		parcelIDs, state,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find by parcel ids")
	}
	defer rows.Close()

	var leads []model.ExistingLead
	for rows.Next() {
		l, err := scanExistingLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan existing lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: find by parcel ids iterate")
}

// FindByAddressKey returns the oldest non-deleted lead with an exact match on
// normalized address, city, state, and zip, or nil when none exists.
func (s *PostgresStore) FindByAddressKey(ctx context.Context, normalizedAddress, city, state, zip string) (*model.ExistingLead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+existingLeadColumns+` FROM leads
		 WHERE normalized_address = $1 AND city = $2 AND state = $3 AND zip_code = $4 AND is_deleted = false
		 ORDER BY created_at ASC LIMIT 1`,
		normalizedAddress, city, state, zip,
	)
	l, err := scanExistingLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find by address key")
	}
	return &l, nil
}

var leadColumns = []string{
	"id", "campaign_id", "original_address", "normalized_address", "city",
	"state", "state_full", "zip_code", "parcel_id", "parcel_id_type",
	"owner_first_name", "owner_last_name", "owner_full_name",
	"mailing_address", "phone", "email", "market",
	"status", "sync_status", "skip_trace_status", "contact_attempts",
	"extra", "created_at",
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func leadRow(campaignID string, l model.Lead, now time.Time) ([]any, error) {
	var extraJSON any
	if len(l.Extra) > 0 {
		b, err := json.Marshal(l.Extra)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal lead extra")
		}
		extraJSON = b
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

// InsertLeads writes a batch of leads via COPY. All rows land or none do.
func (s *PostgresStore) InsertLeads(ctx context.Context, campaignID string, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		row, err := leadRow(campaignID, l, now)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if _, err := db.CopyFrom(ctx, s.pool, "leads", leadColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: insert leads")
	}
	return nil
}

// InsertLead writes a single lead. Used as the per-row fallback when a COPY
// batch is rejected.
func (s *PostgresStore) InsertLead(ctx context.Context, campaignID string, lead model.Lead) error {
	row, err := leadRow(campaignID, lead, time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads
		 (id, campaign_id, original_address, normalized_address, city,
		  state, state_full, zip_code, parcel_id, parcel_id_type,
		  owner_first_name, owner_last_name, owner_full_name,
		  mailing_address, phone, email, market,
		  status, sync_status, skip_trace_status, contact_attempts,
		  extra, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		row...,
	)
	return eris.Wrap(err, "postgres: insert lead")
}

var duplicateLogColumns = []string{
	"id", "campaign_id", "lead_id", "duplicate_parcel_id", "duplicate_address",
	"duplicate_owner_name", "duplicate_state", "duplicate_market",
	"original_lead_id", "original_status", "match_type", "matched_on",
	"original_campaign_name", "original_upload_date", "created_at",
}

// InsertDuplicateLogs writes duplicate audit rows via COPY.
func (s *PostgresStore) InsertDuplicateLogs(ctx context.Context, entries []model.DuplicateLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, e.CampaignID, e.LeadID, nullIfEmpty(e.DuplicateParcelID), e.DuplicateAddress,
			nullIfEmpty(e.DuplicateOwnerName), e.DuplicateState, nullIfEmpty(e.DuplicateMarket),
			e.OriginalLeadID, e.OriginalStatus, string(e.MatchType), e.MatchedOn,
			e.OriginalCampaignName, e.OriginalUploadDate, now,
		})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "duplicate_log", duplicateLogColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: insert duplicate logs")
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusActive
	}
	if c.UploadDate.IsZero() {
		c.UploadDate = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns
		 (id, campaign_name, campaign_type, campaign_version, data_provider, state, market,
		  total_records, new_leads_count, duplicates_found, invalid_count, duplicate_rate,
		  skip_trace_needed, skip_trace_savings, file_name, file_size_kb, status,
		  uploaded_by, upload_date, processing_time_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		c.ID, c.Name, c.Type, c.Version, nullIfEmpty(c.DataProvider), c.State, c.Market,
		c.TotalRecords, c.NewLeadsCount, c.DuplicatesFound, c.InvalidCount, c.DuplicateRate,
		c.SkipTraceNeeded, c.SkipTraceSavings, nullIfEmpty(c.FileName), c.FileSizeKB, string(c.Status),
		nullIfEmpty(c.UploadedBy), c.UploadDate, c.ProcessingTimeSeconds,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert campaign")
	}
	return &c, nil
}

// UpdateCampaign applies the non-nil fields of patch to a campaign row.
func (s *PostgresStore) UpdateCampaign(ctx context.Context, campaignID string, patch model.CampaignPatch) error {
	sets := []string{}
	args := []any{}
	argIdx := 1

	if patch.NewLeadsCount != nil {
		sets = append(sets, fmt.Sprintf("new_leads_count = $%d", argIdx))
		args = append(args, *patch.NewLeadsCount)
		argIdx++
	}
	if patch.ProcessingTimeSeconds != nil {
		sets = append(sets, fmt.Sprintf("processing_time_seconds = $%d", argIdx))
		args = append(args, *patch.ProcessingTimeSeconds)
		argIdx++
	}
	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*patch.Status))
		argIdx++
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE campaigns SET %s WHERE id = $%d`, strings.Join(sets, ", "), argIdx)
	args = append(args, campaignID)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign %s", campaignID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("campaign not found: %s", campaignID)
	}
	return nil
}

const campaignColumns = `id, campaign_name, campaign_type, campaign_version, data_provider, state, market,
	 total_records, new_leads_count, duplicates_found, invalid_count, duplicate_rate,
	 skip_trace_needed, skip_trace_savings, file_name, file_size_kb, status,
	 uploaded_by, upload_date, processing_time_seconds`

func scanCampaign(row pgx.Row) (model.Campaign, error) {
	var c model.Campaign
	var dataProvider, fileName, uploadedBy *string
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Version, &dataProvider, &c.State, &c.Market,
		&c.TotalRecords, &c.NewLeadsCount, &c.DuplicatesFound, &c.InvalidCount, &c.DuplicateRate,
		&c.SkipTraceNeeded, &c.SkipTraceSavings, &fileName, &c.FileSizeKB, &c.Status,
		&uploadedBy, &c.UploadDate, &c.ProcessingTimeSeconds)
	if err != nil {
		return c, err
	}
	if dataProvider != nil {
		c.DataProvider = *dataProvider
	}
	if fileName != nil {
		c.FileName = *fileName
	}
	if uploadedBy != nil {
		c.UploadedBy = *uploadedBy
	}
	return c, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`,
		campaignID,
	)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get campaign %s", campaignID)
	}
	return &c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Market != "" {
		query += fmt.Sprintf(` AND market = $%d`, argIdx)
		args = append(args, filter.Market)
		argIdx++
	}
	if filter.State != "" {
		query += fmt.Sprintf(` AND state = $%d`, argIdx)
		args = append(args, filter.State)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY upload_date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

// LookupCampaignsByIDs returns a slim projection of the requested campaigns,
// keyed by id. Missing ids are simply absent from the map.
func (s *PostgresStore) LookupCampaignsByIDs(ctx context.Context, ids []string) (map[string]model.CampaignRef, error) {
	if len(ids) == 0 {
		return map[string]model.CampaignRef{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, campaign_name, upload_date FROM campaigns WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup campaigns")
	}
	defer rows.Close()

	refs := make(map[string]model.CampaignRef, len(ids))
	for rows.Next() {
		var r model.CampaignRef
		if err := rows.Scan(&r.ID, &r.Name, &r.UploadDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign ref")
		}
		refs[r.ID] = r
	}
	return refs, eris.Wrap(rows.Err(), "postgres: lookup campaigns iterate")
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, market_code, market_name, state, state_full, parcel_id_type, parcel_id_format
		 FROM markets ORDER BY market_code ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list markets")
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		var m model.Market
		if err := rows.Scan(&m.ID, &m.MarketCode, &m.MarketName, &m.State, &m.StateFull,
			&m.ParcelIDType, &m.ParcelIDFormat); err != nil {
			return nil, eris.Wrap(err, "postgres: scan market")
		}
		markets = append(markets, m)
	}
	return markets, eris.Wrap(rows.Err(), "postgres: list markets iterate")
}

func (s *PostgresStore) GetMarketByCode(ctx context.Context, code string) (*model.Market, error) {
	var m model.Market
	err := s.pool.QueryRow(ctx,
		`SELECT id, market_code, market_name, state, state_full, parcel_id_type, parcel_id_format
		 FROM markets WHERE market_code = $1`,
		code,
	).Scan(&m.ID, &m.MarketCode, &m.MarketName, &m.State, &m.StateFull, &m.ParcelIDType, &m.ParcelIDFormat)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get market %s", code)
	}
	return &m, nil
}

// UpsertMarkets inserts or refreshes market seed rows keyed on market_code.
func (s *PostgresStore) UpsertMarkets(ctx context.Context, markets []model.Market) (int64, error) {
	if len(markets) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(markets))
	for _, m := range markets {
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, m.MarketCode, m.MarketName, m.State, m.StateFull, m.ParcelIDType, m.ParcelIDFormat})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "markets",
		Columns:      []string{"id", "market_code", "market_name", "state", "state_full", "parcel_id_type", "parcel_id_format"},
		ConflictKeys: []string{"market_code"},
		UpdateCols:   []string{"market_name", "state", "state_full", "parcel_id_type", "parcel_id_format"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert markets")
	}
	return n, nil
}
