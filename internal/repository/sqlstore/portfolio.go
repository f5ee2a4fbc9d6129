package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository"
)

// compile-time check that *DB implements repository.PortfolioRepository
var _ repository.PortfolioRepository = (*DB)(nil)

// Every read joins users so the owner's email travels with the row.
const portfolioSelect = `SELECT p.id, p.owner_id, u.email, p.github_username, p.public_url, p.is_active, p.created_at
	FROM portfolios p JOIN users u ON u.id = p.owner_id`

// ListPortfolios returns the owner's portfolios, or all of them when
// ownerEmail is empty. Ordering is stable so repeated reads agree.
func (db *DB) ListPortfolios(ctx context.Context, ownerEmail string) ([]model.Portfolio, error) {
	query := portfolioSelect
	var args []any
	if ownerEmail != "" {
		query += ` WHERE u.email = ?`
		args = append(args, ownerEmail)
	}
	query += ` ORDER BY p.created_at, p.id`

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, apperror.Store("listing portfolios", fmt.Errorf("sqlstore: listing portfolios: %w", err))
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, apperror.Store("listing portfolios", fmt.Errorf("sqlstore: scanning portfolio row: %w", err))
		}
		portfolios = append(portfolios, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("listing portfolios", fmt.Errorf("sqlstore: iterating portfolio rows: %w", err))
	}
	return portfolios, nil
}

func (db *DB) PortfolioExists(ctx context.Context, githubUsername string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT COUNT(*) FROM portfolios WHERE lower(github_username) = lower(?)`),
		githubUsername,
	).Scan(&n)
	if err != nil {
		return false, apperror.Store("checking username", fmt.Errorf("sqlstore: checking %s: %w", githubUsername, err))
	}
	return n > 0, nil
}

// FindPortfolio looks a portfolio up by GitHub username, case-insensitively.
func (db *DB) FindPortfolio(ctx context.Context, githubUsername string) (*model.Portfolio, error) {
	p, err := scanPortfolio(db.conn.QueryRowContext(ctx, db.rebind(
		portfolioSelect+` WHERE lower(p.github_username) = lower(?)`), githubUsername))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("portfolio", githubUsername)
		}
		return nil, apperror.Store("finding portfolio", fmt.Errorf("sqlstore: finding portfolio %s: %w", githubUsername, err))
	}
	return p, nil
}

// CreatePortfolio inserts an inactive portfolio for the owner identified by
// ownerEmail, filling in ID, OwnerID, OwnerEmail and CreatedAt in place.
func (db *DB) CreatePortfolio(ctx context.Context, ownerEmail string, p *model.Portfolio) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		owner, err := db.findUserByEmail(ctx, tx, ownerEmail)
		if err != nil {
			return err
		}

		p.ID = xid.New().String()
		p.OwnerID = owner.ID
		p.OwnerEmail = owner.Email
		p.IsActive = false
		p.CreatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, db.rebind(
			`INSERT INTO portfolios (id, owner_id, github_username, public_url, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			p.ID,
			p.OwnerID,
			p.GitHubUsername,
			p.PublicURL,
			p.IsActive,
			p.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("username already in use")
			}
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", ownerEmail)
			}
			return apperror.Store("creating portfolio", fmt.Errorf("sqlstore: inserting portfolio %s: %w", p.GitHubUsername, err))
		}
		return nil
	})
}

// ActivatePortfolio flips the owner's active portfolio to githubUsername with
// one conditional UPDATE, so there is never a moment with two active rows.
// The target is resolved first; if it is missing nothing is written.
func (db *DB) ActivatePortfolio(ctx context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	var activated *model.Portfolio

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		target, err := db.ownedPortfolio(ctx, tx, ownerEmail, githubUsername)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, db.rebind(
			`UPDATE portfolios SET is_active = (id = ?) WHERE owner_id = ?`),
			target.ID, target.OwnerID,
		); err != nil {
			return apperror.Store("activating portfolio", fmt.Errorf("sqlstore: activating %s: %w", githubUsername, err))
		}

		target.IsActive = true
		activated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// DeletePortfolio removes the owner's portfolio and returns it as it was
// before deletion. No other portfolio is re-activated here.
func (db *DB) DeletePortfolio(ctx context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	var deleted *model.Portfolio

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		target, err := db.ownedPortfolio(ctx, tx, ownerEmail, githubUsername)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM portfolios WHERE id = ?`), target.ID); err != nil {
			return apperror.Store("deleting portfolio", fmt.Errorf("sqlstore: deleting %s: %w", githubUsername, err))
		}

		deleted = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ownedPortfolio resolves the owner by email and then the named portfolio
// among that owner's rows. Unknown owner and foreign portfolio are both
// reported as not found.
func (db *DB) ownedPortfolio(ctx context.Context, q querier, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	owner, err := db.findUserByEmail(ctx, q, ownerEmail)
	if err != nil {
		return nil, err
	}

	p, err := scanPortfolio(q.QueryRowContext(ctx, db.rebind(
		portfolioSelect+` WHERE p.owner_id = ? AND lower(p.github_username) = lower(?)`),
		owner.ID, githubUsername,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("portfolio", githubUsername)
		}
		return nil, apperror.Store("finding portfolio", fmt.Errorf("sqlstore: finding portfolio %s: %w", githubUsername, err))
	}
	return p, nil
}

func scanPortfolio(row rowScanner) (*model.Portfolio, error) {
	var p model.Portfolio
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.OwnerEmail,
		&p.GitHubUsername,
		&p.PublicURL,
		&p.IsActive,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
