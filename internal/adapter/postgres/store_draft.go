package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
)

// --- Drafts ---

var draftColumns = []string{
	"id", "review_id", "COALESCE(template_id::text, '')", "COALESCE(tone_profile_id::text, '')",
	"custom_prompt", "content", "policy", "policy_stale", "status", "fallback", "provider_id",
	"provider_reply_id", "published_at", "publishing_since", "version", "created_at", "updated_at",
}

func scanDraft(row scannable) (draft.Draft, error) {
	var (
		d      draft.Draft
		policy []byte
	)
	err := row.Scan(
		&d.ID, &d.ReviewID, &d.TemplateID, &d.ToneProfileID,
		&d.CustomPrompt, &d.Content, &policy, &d.PolicyStale, &d.Status, &d.Fallback, &d.ProviderID,
		&d.ProviderReplyID, &d.PublishedAt, &d.PublishingSince, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal(policy, &d.Policy); err != nil {
		return d, fmt.Errorf("unmarshal policy result: %w", err)
	}
	return d, nil
}

func (s *Store) CreateDraft(ctx context.Context, d *draft.Draft) error {
	policy, err := json.Marshal(d.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy result: %w", err)
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO drafts (id, review_id, template_id, tone_profile_id, custom_prompt, content, policy,
		                     policy_stale, status, fallback, provider_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING version`,
		d.ID, d.ReviewID, nullIfEmpty(d.TemplateID), nullIfEmpty(d.ToneProfileID), d.CustomPrompt, d.Content,
		policy, d.PolicyStale, string(d.Status), d.Fallback, d.ProviderID, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.Version)
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*draft.Draft, error) {
	q, args, err := psql.Select(draftColumns...).From("drafts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	d, err := scanDraft(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, notFoundWrap(err, "get draft %s", id)
	}
	return &d, nil
}

// ListDrafts returns drafts newest first. f is expected to be normalized.
func (s *Store) ListDrafts(ctx context.Context, f draft.ListFilter) ([]draft.Draft, error) {
	b := psql.Select(draftColumns...).From("drafts").
		OrderBy("created_at DESC", "id").
		Limit(uint64(max(f.Limit, 1))).
		Offset(uint64(max(f.Offset, 0)))
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.ReviewID != "" {
		b = b.Where(sq.Eq{"review_id": f.ReviewID})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []draft.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, d)
	}
	return orEmpty(out), rows.Err()
}

// execer is satisfied by the pool and by a transaction.
type execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func updateDraft(ctx context.Context, db execer, d *draft.Draft) error {
	policy, err := json.Marshal(d.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy result: %w", err)
	}
	err = db.QueryRow(ctx,
		`UPDATE drafts SET content = $2, policy = $3, policy_stale = $4, status = $5,
		        provider_reply_id = $6, published_at = $7, publishing_since = $8, updated_at = $9,
		        version = version + 1
		 WHERE id = $1 AND version = $10
		 RETURNING version`,
		d.ID, d.Content, policy, d.PolicyStale, string(d.Status),
		d.ProviderReplyID, d.PublishedAt, d.PublishingSince, d.UpdatedAt, d.Version,
	).Scan(&d.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update draft %s: %w", d.ID, domain.ErrConflict)
		}
		return fmt.Errorf("update draft %s: %w", d.ID, err)
	}
	return nil
}

func (s *Store) UpdateDraft(ctx context.Context, d *draft.Draft) error {
	return updateDraft(ctx, s.pool, d)
}

// SavePublished records a published reply in one transaction: the draft,
// the reply row and the review's answered state.
func (s *Store) SavePublished(ctx context.Context, d *draft.Draft, reply *review.Reply) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := updateDraft(ctx, tx, d); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO replies (id, review_id, draft_id, content, provider_reply_id, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reply.ID, reply.ReviewID, reply.DraftID, reply.Content, reply.ProviderReplyID, reply.PublishedAt)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE reviews SET has_owner_reply = TRUE, owner_reply_at = $2, owner_reply_text = $3
		 WHERE id = $1`,
		reply.ReviewID, reply.PublishedAt, reply.Content)
	if err := execExpectOne(tag, err, "mark review %s replied", reply.ReviewID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit published reply: %w", err)
	}
	return nil
}
