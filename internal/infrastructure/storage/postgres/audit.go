package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"clinibill/internal/core/id"
	"clinibill/internal/domain/billing"
)

const batchRunsTable = "sys_batch_runs"

// CompressionAlgo specifies the compression algorithm used for a stored
// report payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// BatchRunEntry is one archived batch run.
type BatchRunEntry struct {
	ID               id.ID           `db:"id"`
	OrganizationID   id.ID           `db:"organization_id"`
	Phase            string          `db:"phase"`
	Generated        int             `db:"generated"`
	ErrorCount       int             `db:"error_count"`
	Report           json.RawMessage `db:"report"`
	ReportCompressed []byte          `db:"report_compressed"`
	CompressionAlgo  CompressionAlgo `db:"compression_algo"`
	CreatedAt        time.Time       `db:"created_at"`
}

// BatchRunAudit archives generation reports so operators can inspect past
// runs. Large reports (many skipped groups or errors) are zstd-compressed.
// Implements billing.AuditSink.
type BatchRunAudit struct {
	txm               *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes, default 10KB
}

var _ billing.AuditSink = (*BatchRunAudit)(nil)

// NewBatchRunAudit creates a batch run audit sink.
func NewBatchRunAudit(txm *TxManager) (*BatchRunAudit, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &BatchRunAudit{
		txm:               txm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// SaveRun archives a finished run report.
func (s *BatchRunAudit) SaveRun(ctx context.Context, orgID id.ID, report *billing.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	entry := BatchRunEntry{
		ID:              id.New(),
		OrganizationID:  orgID,
		Phase:           string(report.Phase),
		Generated:       report.Generated,
		ErrorCount:      len(report.Errors),
		Report:          payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(payload) > s.compressThreshold {
		entry.ReportCompressed = s.encoder.EncodeAll(payload, nil)
		entry.Report = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO ` + batchRunsTable + ` (
			id, organization_id, phase, generated, error_count,
			report, report_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := s.txm.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.OrganizationID, entry.Phase, entry.Generated, entry.ErrorCount,
		entry.Report, entry.ReportCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch run: %w", err)
	}

	return nil
}

// History returns the most recent archived runs for an organization, newest
// first, with compressed payloads inflated.
func (s *BatchRunAudit) History(ctx context.Context, orgID id.ID, limit int) ([]BatchRunEntry, error) {
	sql := `
		SELECT id, organization_id, phase, generated, error_count,
		       report, report_compressed, compression_algo, created_at
		FROM ` + batchRunsTable + `
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.txm.GetQuerier(ctx).Query(ctx, sql, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("query batch runs: %w", err)
	}
	defer rows.Close()

	var entries []BatchRunEntry
	for rows.Next() {
		var e BatchRunEntry
		err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.Phase, &e.Generated, &e.ErrorCount,
			&e.Report, &e.ReportCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan batch run: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.ReportCompressed) > 0 {
			inflated, err := s.decoder.DecodeAll(e.ReportCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress report: %w", err)
			}
			e.Report = inflated
			e.ReportCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
