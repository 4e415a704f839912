package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Lead is the slice of the lead row the drip sender needs.
type Lead struct {
	ID        uuid.UUID
	Phone     string
	Name      *string
	Source    string
	CreatedAt time.Time
}

// stampColumns maps a milestone day to its sent-stamp column. Only these
// columns ever reach the SQL below.
var stampColumns = map[int]string{
	3:  "day3_sms_sent_at",
	7:  "day7_sms_sent_at",
	14: "day14_sms_sent_at",
}

// Repository provides database operations for nurture milestone selection
// and send-stamp claims.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new nurture repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// dueLeadsQuery selects leads inside a milestone's send window. The window
// is two days wide so a missed daily run heals itself without texting
// leads that went stale weeks ago.
const dueLeadsQuery = `
	SELECT id, phone, name, source, created_at FROM leads
	WHERE status IN ('new', 'contacted')
	  AND source IN ('contest', 'partner', 'website')
	  AND %s IS NULL
	  AND created_at <= now() - make_interval(days => $1)
	  AND created_at > now() - make_interval(days => $2)
	ORDER BY created_at`

// DueLeads returns leads whose age has entered the milestone window and
// whose stamp for that milestone is still unset.
func (r *Repository) DueLeads(ctx context.Context, day int) ([]Lead, error) {
	column, ok := stampColumns[day]
	if !ok {
		return nil, fmt.Errorf("unknown milestone day %d", day)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(dueLeadsQuery, column), day, day+2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(&lead.ID, &lead.Phone, &lead.Name, &lead.Source, &lead.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// ClaimStamp sets the milestone stamp if it is still unset and reports
// whether this caller won the claim. A concurrent run claiming the same
// lead matches zero rows and skips it.
func (r *Repository) ClaimStamp(ctx context.Context, leadID uuid.UUID, day int) (bool, error) {
	column, ok := stampColumns[day]
	if !ok {
		return false, fmt.Errorf("unknown milestone day %d", day)
	}

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE leads SET %s = now(), updated_at = now()
		WHERE id = $1 AND %s IS NULL
	`, column, column), leadID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseStamp clears a claimed stamp after a failed send so the lead
// stays eligible while its window is open.
func (r *Repository) ReleaseStamp(ctx context.Context, leadID uuid.UUID, day int) error {
	column, ok := stampColumns[day]
	if !ok {
		return fmt.Errorf("unknown milestone day %d", day)
	}

	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE leads SET %s = NULL, updated_at = now() WHERE id = $1
	`, column), leadID)
	return err
}
