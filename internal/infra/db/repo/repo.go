package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	shared "github.com/kuziva-m/mvp-sub001/pkg/interfaces"
)

type CustomerRepo struct {
	tx pgx.Tx
}

func NewCustomerRepo(tx pgx.Tx) *CustomerRepo {
	return &CustomerRepo{tx: tx}
}

func (r *CustomerRepo) GetCustomerByID(ctx context.Context, id uuid.UUID) (*db.Customer, error) {
	var customer db.Customer
	query := "SELECT id, business_name, first_name, second_name, email, stripe_id, created_at FROM delivery.customers WHERE id = $1"
	err := r.tx.QueryRow(ctx, query, id).Scan(&customer.ID, &customer.BusinessName, &customer.FirstName,
		&customer.SecondName, &customer.Email, &customer.StripeID, &customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepo) GetCustomerByStripeID(ctx context.Context, stripeID string) (*db.Customer, error) {
	var customer db.Customer
	query := "SELECT id, business_name, first_name, second_name, email, stripe_id, created_at FROM delivery.customers WHERE stripe_id = $1"
	err := r.tx.QueryRow(ctx, query, stripeID).Scan(&customer.ID, &customer.BusinessName, &customer.FirstName,
		&customer.SecondName, &customer.Email, &customer.StripeID, &customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepo) GetSiteByID(ctx context.Context, id uuid.UUID) (*db.Site, error) {
	var site db.Site
	query := "SELECT id, customer_id, status, artifact_path, created_at, updated_at FROM delivery.sites WHERE id = $1"
	err := r.tx.QueryRow(ctx, query, id).Scan(&site.ID, &site.CustomerID, &site.Status,
		&site.ArtifactPath, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *CustomerRepo) UpdateSiteStatus(ctx context.Context, id uuid.UUID, status consts.SiteStatus) error {
	_, err := r.tx.Exec(ctx, "UPDATE delivery.sites SET status = $2, updated_at = $3 WHERE id = $1", id, status, time.Now())
	if err != nil {
		return fmt.Errorf("err updating site status, %v", err)
	}
	return nil
}

func (r *CustomerRepo) GetLatestPaidSite(ctx context.Context, customerID uuid.UUID) (*db.Site, error) {
	var site db.Site
	query := `SELECT id, customer_id, status, artifact_path, created_at, updated_at FROM delivery.sites
		WHERE customer_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`
	err := r.tx.QueryRow(ctx, query, customerID, consts.SiteStatusPaid).Scan(&site.ID, &site.CustomerID,
		&site.Status, &site.ArtifactPath, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

type DeliveryRepo struct {
	tx pgx.Tx
}

func NewDeliveryRepo(tx pgx.Tx) *DeliveryRepo {
	return &DeliveryRepo{tx: tx}
}

const attemptColumns = "id, customer_id, site_id, status, domain, deployment_url, credentials, steps, created_at, completed_at"

func (r *DeliveryRepo) InsertAttempt(ctx context.Context, attempt *db.DeliveryAttempt) error {
	steps, err := json.Marshal(attempt.Steps)
	if err != nil {
		return fmt.Errorf("err marshalling steps, %v", err)
	}
	credentials, err := json.Marshal(attempt.Credentials)
	if err != nil {
		return fmt.Errorf("err marshalling credentials, %v", err)
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO delivery.attempts(`+attemptColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		attempt.ID, attempt.CustomerID, attempt.SiteID, attempt.Status, attempt.Domain,
		attempt.DeploymentURL, credentials, steps, attempt.CreatedAt, attempt.CompletedAt)
	if err != nil {
		return fmt.Errorf("err inserting attempt, %v", err)
	}
	return nil
}

func (r *DeliveryRepo) UpdateAttempt(ctx context.Context, attempt *db.DeliveryAttempt) error {
	steps, err := json.Marshal(attempt.Steps)
	if err != nil {
		return fmt.Errorf("err marshalling steps, %v", err)
	}
	credentials, err := json.Marshal(attempt.Credentials)
	if err != nil {
		return fmt.Errorf("err marshalling credentials, %v", err)
	}
	// an operator cancel must not be clobbered by a concurrent step persist
	_, err = r.tx.Exec(ctx, `UPDATE delivery.attempts
			SET status = CASE WHEN status = $8 THEN status ELSE $2 END,
			    domain = $3, deployment_url = $4, credentials = $5, steps = $6, completed_at = $7
			WHERE id = $1`,
		attempt.ID, attempt.Status, attempt.Domain, attempt.DeploymentURL, credentials, steps,
		attempt.CompletedAt, consts.DeliveryStatusCanceled)
	if err != nil {
		return fmt.Errorf("err updating attempt, %v", err)
	}
	return nil
}

func (r *DeliveryRepo) GetAttemptByID(ctx context.Context, id uuid.UUID) (*db.DeliveryAttempt, error) {
	row := r.tx.QueryRow(ctx, "SELECT "+attemptColumns+" FROM delivery.attempts WHERE id = $1", id)
	return scanAttempt(row)
}

func (r *DeliveryRepo) FindActiveAttempt(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error) {
	row := r.tx.QueryRow(ctx, "SELECT "+attemptColumns+` FROM delivery.attempts
		WHERE customer_id = $1 AND site_id = $2 AND status IN ($3, $4)
		ORDER BY created_at DESC LIMIT 1`,
		customerID, siteID, consts.DeliveryStatusPending, consts.DeliveryStatusInProgress)
	attempt, err := scanAttempt(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return attempt, err
}

func (r *DeliveryRepo) FindLatestAttempt(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error) {
	row := r.tx.QueryRow(ctx, "SELECT "+attemptColumns+` FROM delivery.attempts
		WHERE customer_id = $1 AND site_id = $2 ORDER BY created_at DESC LIMIT 1`, customerID, siteID)
	attempt, err := scanAttempt(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return attempt, err
}

func (r *DeliveryRepo) ListAttempts(ctx context.Context, filter interfaces.AttemptFilter) ([]db.DeliveryAttempt, error) {
	query := "SELECT " + attemptColumns + " FROM delivery.attempts WHERE 1=1"
	args := []any{}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if filter.SiteID != nil {
		args = append(args, *filter.SiteID)
		query += fmt.Sprintf(" AND site_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("err listing attempts, %v", err)
	}
	defer rows.Close()

	var attempts []db.DeliveryAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *attempt)
	}
	return attempts, rows.Err()
}

func scanAttempt(row pgx.Row) (*db.DeliveryAttempt, error) {
	var (
		attempt     db.DeliveryAttempt
		credentials []byte
		steps       []byte
	)
	err := row.Scan(&attempt.ID, &attempt.CustomerID, &attempt.SiteID, &attempt.Status, &attempt.Domain,
		&attempt.DeploymentURL, &credentials, &steps, &attempt.CreatedAt, &attempt.CompletedAt)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(credentials, &attempt.Credentials); err != nil {
		return nil, fmt.Errorf("err unmarshalling credentials, %v", err)
	}
	if err = json.Unmarshal(steps, &attempt.Steps); err != nil {
		return nil, fmt.Errorf("err unmarshalling steps, %v", err)
	}
	return &attempt, nil
}

type EventRepo struct {
	tx pgx.Tx
}

func NewEventRepo(tx pgx.Tx) *EventRepo {
	return &EventRepo{tx: tx}
}

func (e *EventRepo) InsertEvent(ctx context.Context, event shared.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("err marshalling event payload, %v", err)
	}
	_, err = e.tx.Exec(ctx, "INSERT INTO delivery.outbox (event, status, payload, created_at) VALUES ($1,$2,$3,$4)",
		event.GetType(), int(consts.NotProcessed), json.RawMessage(payload), time.Now())
	if err != nil {
		return fmt.Errorf("err inserting a new event, %v", err)
	}
	return nil
}
