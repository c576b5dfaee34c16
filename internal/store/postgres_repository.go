/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to users, thrift systems, memberships, contributions, and payouts.
 *
 * Check-then-act sequences from the original workflow (join existence check,
 * admin check before update/payout) are pushed down into conditional writes so
 * that authorization and uniqueness cannot race with the mutation they guard.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transfa/thrift-service/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrThriftSystemNotFound = errors.New("thrift system not found")
	ErrMembershipExists     = errors.New("you are already a member of this thrift system")
	ErrNotAMember           = errors.New("you are not a member of this thrift system")
	ErrAdminRequired        = errors.New("only system admins can perform this action")
	ErrContributionNotFound = errors.New("contribution not found")
	ErrContributionSettled  = errors.New("contribution is no longer pending")
)

const systemColumns = `id, name, description, creator_id, status, total_members,
		contribution_amount, contribution_frequency, start_date, end_date,
		target_amount, privacy_level, created_at, updated_at`

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func scanSystem(row pgx.Row) (*domain.ThriftSystem, error) {
	var sys domain.ThriftSystem
	err := row.Scan(
		&sys.ID, &sys.Name, &sys.Description, &sys.CreatorID, &sys.Status,
		&sys.TotalMembers, &sys.ContributionAmount, &sys.ContributionFrequency,
		&sys.StartDate, &sys.EndDate, &sys.TargetAmount, &sys.PrivacyLevel,
		&sys.CreatedAt, &sys.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sys, nil
}

// FindUserByAuthSubject resolves the internal user row from the identity
// provider subject. The users table is managed by the identity provider
// during onboarding; this service only reads it.
func (r *PostgresRepository) FindUserByAuthSubject(ctx context.Context, authSubject string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, auth_subject, email, first_name, last_name FROM users WHERE auth_subject = $1`
	err := r.db.QueryRow(ctx, query, authSubject).Scan(&user.ID, &user.AuthSubject, &user.Email, &user.FirstName, &user.LastName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByID retrieves a user from the database by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, auth_subject, email, first_name, last_name FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.AuthSubject, &user.Email, &user.FirstName, &user.LastName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateThriftSystemWithAdmin persists a new thrift system together with the
// creator's admin membership. Both inserts run inside one transaction so the
// system can never exist without its first member.
func (r *PostgresRepository) CreateThriftSystemWithAdmin(ctx context.Context, creatorID uuid.UUID, payload domain.CreateThriftSystemPayload) (*domain.ThriftSystem, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create system tx: %w", err)
	}
	defer tx.Rollback(ctx)

	status := payload.Status
	if status == "" {
		status = domain.SystemStatusDraft
	}
	privacy := payload.PrivacyLevel
	if privacy == "" {
		privacy = domain.PrivacyPublic
	}

	insertSystem := `
		INSERT INTO thrift_systems (
			id, name, description, creator_id, status, total_members,
			contribution_amount, contribution_frequency, start_date, end_date,
			target_amount, privacy_level, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING ` + systemColumns

	sys, err := scanSystem(tx.QueryRow(ctx, insertSystem,
		uuid.New(), payload.Name, payload.Description, creatorID, status,
		payload.ContributionAmount, payload.ContributionFrequency,
		payload.StartDate, payload.EndDate, payload.TargetAmount, privacy,
	))
	if err != nil {
		return nil, fmt.Errorf("insert thrift system: %w", err)
	}

	insertMembership := `
		INSERT INTO thrift_system_memberships (
			id, user_id, thrift_system_id, role, is_active, joined_at, contributions_made
		)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), 0)
	`
	if _, err := tx.Exec(ctx, insertMembership, uuid.New(), creatorID, sys.ID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create system tx: %w", err)
	}
	return sys, nil
}

// UpdateThriftSystemAsAdmin applies a partial update guarded by the actor's
// active admin membership inside the UPDATE statement itself. A zero-row
// result is disambiguated into not-found vs. not-admin.
func (r *PostgresRepository) UpdateThriftSystemAsAdmin(ctx context.Context, systemID uuid.UUID, actorID uuid.UUID, patch domain.UpdateThriftSystemPayload) (*domain.ThriftSystem, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{systemID, actorID}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		addSet("name", *patch.Name)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.Status != nil {
		addSet("status", *patch.Status)
	}
	if patch.ContributionAmount != nil {
		addSet("contribution_amount", *patch.ContributionAmount)
	}
	if patch.ContributionFrequency != nil {
		addSet("contribution_frequency", *patch.ContributionFrequency)
	}
	if patch.StartDate != nil {
		addSet("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		addSet("end_date", *patch.EndDate)
	}
	if patch.TargetAmount != nil {
		addSet("target_amount", *patch.TargetAmount)
	}
	if patch.PrivacyLevel != nil {
		addSet("privacy_level", *patch.PrivacyLevel)
	}

	query := fmt.Sprintf(`
		UPDATE thrift_systems
		SET %s
		WHERE id = $1
		  AND EXISTS (
			SELECT 1 FROM thrift_system_memberships m
			WHERE m.thrift_system_id = $1
			  AND m.user_id = $2
			  AND m.role = 'admin'
			  AND m.is_active
		  )
		RETURNING %s`, strings.Join(setClauses, ", "), systemColumns)

	sys, err := scanSystem(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			if _, findErr := r.FindThriftSystemByID(ctx, systemID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrAdminRequired
		}
		return nil, err
	}
	return sys, nil
}

// FindThriftSystemByID retrieves a thrift system by its ID.
func (r *PostgresRepository) FindThriftSystemByID(ctx context.Context, systemID uuid.UUID) (*domain.ThriftSystem, error) {
	query := `SELECT ` + systemColumns + ` FROM thrift_systems WHERE id = $1`
	sys, err := scanSystem(r.db.QueryRow(ctx, query, systemID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrThriftSystemNotFound
		}
		return nil, err
	}
	return sys, nil
}

// ListThriftSystems returns one page of systems ordered newest first, plus
// the total count of rows matching the same filters regardless of the page.
func (r *PostgresRepository) ListThriftSystems(ctx context.Context, opts domain.ThriftSystemListOptions) ([]domain.ThriftSystem, int64, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}

	if opts.Status != "" {
		args = append(args, opts.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM thrift_systems WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count thrift systems: %w", err)
	}

	offset := (opts.Page - 1) * opts.PageSize
	args = append(args, opts.PageSize, offset)
	pageQuery := fmt.Sprintf(`
		SELECT %s FROM thrift_systems
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, systemColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list thrift systems: %w", err)
	}
	defer rows.Close()

	systems := []domain.ThriftSystem{}
	for rows.Next() {
		sys, err := scanSystem(rows)
		if err != nil {
			return nil, 0, err
		}
		systems = append(systems, *sys)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return systems, total, nil
}

// CreateMembership inserts a member-role membership via an atomic conditional
// insert and increments the system's total_members counter in the same
// transaction. Two concurrent joins for the same (user, system) pair cannot
// both succeed: the unique index arbitrates, not a prior read.
func (r *PostgresRepository) CreateMembership(ctx context.Context, userID uuid.UUID, systemID uuid.UUID) (*domain.Membership, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin join tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO thrift_system_memberships (
			id, user_id, thrift_system_id, role, is_active, joined_at, contributions_made
		)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), 0)
		ON CONFLICT (user_id, thrift_system_id) DO NOTHING
		RETURNING id, user_id, thrift_system_id, role, is_active, joined_at, contributions_made
	`
	var m domain.Membership
	err = tx.QueryRow(ctx, insert, uuid.New(), userID, systemID, domain.RoleMember).Scan(
		&m.ID, &m.UserID, &m.ThriftSystemID, &m.Role, &m.IsActive, &m.JoinedAt, &m.ContributionsMade,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMembershipExists
		}
		if isForeignKeyViolation(err) {
			return nil, ErrThriftSystemNotFound
		}
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	increment := `UPDATE thrift_systems SET total_members = total_members + 1, updated_at = NOW() WHERE id = $1`
	tag, err := tx.Exec(ctx, increment, systemID)
	if err != nil {
		return nil, fmt.Errorf("increment total_members: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrThriftSystemNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit join tx: %w", err)
	}
	return &m, nil
}

// HasActiveAdminMembership reports whether the user holds an active admin
// membership for the system.
func (r *PostgresRepository) HasActiveAdminMembership(ctx context.Context, userID uuid.UUID, systemID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM thrift_system_memberships
			WHERE user_id = $1 AND thrift_system_id = $2 AND role = 'admin' AND is_active
		)
	`
	if err := r.db.QueryRow(ctx, query, userID, systemID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// HasMembership reports whether any membership exists for (user, system),
// regardless of role or activity flag.
func (r *PostgresRepository) HasMembership(ctx context.Context, userID uuid.UUID, systemID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM thrift_system_memberships
			WHERE user_id = $1 AND thrift_system_id = $2
		)
	`
	if err := r.db.QueryRow(ctx, query, userID, systemID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateContribution inserts a pending contribution. The membership
// requirement is a predicate of the INSERT itself, so revoking a membership
// concurrently cannot slip a contribution past the check.
func (r *PostgresRepository) CreateContribution(ctx context.Context, userID uuid.UUID, systemID uuid.UUID, amount int64, paymentMethod string) (*domain.Contribution, error) {
	query := `
		INSERT INTO contributions (
			id, user_id, thrift_system_id, amount, contribution_date, status, payment_method
		)
		SELECT $1, $2, $3, $4, NOW(), $5, $6
		WHERE EXISTS (
			SELECT 1 FROM thrift_system_memberships
			WHERE user_id = $2 AND thrift_system_id = $3
		)
		RETURNING id, user_id, thrift_system_id, amount, contribution_date, status, payment_method
	`
	var c domain.Contribution
	err := r.db.QueryRow(ctx, query,
		uuid.New(), userID, systemID, amount, domain.ContributionStatusPending, paymentMethod,
	).Scan(&c.ID, &c.UserID, &c.ThriftSystemID, &c.Amount, &c.ContributionDate, &c.Status, &c.PaymentMethod)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("insert contribution: %w", err)
	}
	return &c, nil
}

// FindContributionByID retrieves a contribution by its ID.
func (r *PostgresRepository) FindContributionByID(ctx context.Context, contributionID uuid.UUID) (*domain.Contribution, error) {
	var c domain.Contribution
	query := `
		SELECT id, user_id, thrift_system_id, amount, contribution_date, status, payment_method
		FROM contributions WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, contributionID).Scan(
		&c.ID, &c.UserID, &c.ThriftSystemID, &c.Amount, &c.ContributionDate, &c.Status, &c.PaymentMethod,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrContributionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SettleContribution moves a pending contribution to its terminal status and,
// for completions, bumps the member's contributions_made counter. The status
// predicate in the UPDATE makes replayed settlement events harmless.
func (r *PostgresRepository) SettleContribution(ctx context.Context, contributionID uuid.UUID, status string) (*domain.Contribution, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settle tx: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE contributions
		SET status = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING id, user_id, thrift_system_id, amount, contribution_date, status, payment_method
	`
	var c domain.Contribution
	err = tx.QueryRow(ctx, update, contributionID, status).Scan(
		&c.ID, &c.UserID, &c.ThriftSystemID, &c.Amount, &c.ContributionDate, &c.Status, &c.PaymentMethod,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			if _, findErr := r.FindContributionByID(ctx, contributionID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrContributionSettled
		}
		return nil, fmt.Errorf("settle contribution: %w", err)
	}

	if status == domain.ContributionStatusCompleted {
		bump := `
			UPDATE thrift_system_memberships
			SET contributions_made = contributions_made + 1
			WHERE user_id = $1 AND thrift_system_id = $2
		`
		if _, err := tx.Exec(ctx, bump, c.UserID, c.ThriftSystemID); err != nil {
			return nil, fmt.Errorf("increment contributions_made: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settle tx: %w", err)
	}
	return &c, nil
}

// CreatePayout schedules a disbursement. The amount aggregate and the admin
// authorization both live inside the INSERT statement: the amount is the sum
// of the system's completed contributions at the moment the row is written,
// and the row is only written when the actor holds an active admin
// membership. Zero completed contributions yield a zero-amount payout.
func (r *PostgresRepository) CreatePayout(ctx context.Context, systemID uuid.UUID, recipientID uuid.UUID, actorID uuid.UUID, payoutMethod string) (*domain.Payout, error) {
	query := `
		INSERT INTO payouts (
			id, thrift_system_id, recipient_id, amount, payout_date, status, payout_method
		)
		SELECT $1, $2, $3,
			COALESCE((
				SELECT SUM(c.amount) FROM contributions c
				WHERE c.thrift_system_id = $2 AND c.status = 'completed'
			), 0),
			NOW(), $4, $5
		WHERE EXISTS (
			SELECT 1 FROM thrift_system_memberships m
			WHERE m.thrift_system_id = $2
			  AND m.user_id = $6
			  AND m.role = 'admin'
			  AND m.is_active
		)
		RETURNING id, thrift_system_id, recipient_id, amount, payout_date, status, payout_method
	`
	var p domain.Payout
	err := r.db.QueryRow(ctx, query,
		uuid.New(), systemID, recipientID, domain.PayoutStatusScheduled, payoutMethod, actorID,
	).Scan(&p.ID, &p.ThriftSystemID, &p.RecipientID, &p.Amount, &p.PayoutDate, &p.Status, &p.PayoutMethod)
	if err != nil {
		if err == pgx.ErrNoRows {
			if _, findErr := r.FindThriftSystemByID(ctx, systemID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrAdminRequired
		}
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("insert payout: %w", err)
	}
	return &p, nil
}
