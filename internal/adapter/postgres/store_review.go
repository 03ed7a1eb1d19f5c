package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/database"
)

// --- Reviews ---

var reviewColumns = []string{
	"id", "location_id", "platform", "external_id", "rating", "text", "title", "author_name",
	"language_code", "published_at", "updated_at", "has_owner_reply", "owner_reply_at", "owner_reply_text",
}

func scanReview(row scannable) (review.Review, error) {
	var r review.Review
	err := row.Scan(
		&r.ID, &r.LocationID, &r.Platform, &r.ExternalID, &r.Rating, &r.Text, &r.Title, &r.AuthorName,
		&r.LanguageCode, &r.PublishedAt, &r.UpdatedAt, &r.HasOwnerReply, &r.OwnerReplyAt, &r.OwnerReplyText,
	)
	return r, err
}

func (s *Store) GetReview(ctx context.Context, id string) (*review.Review, error) {
	q, args, err := psql.Select(reviewColumns...).From("reviews").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	r, err := scanReview(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, notFoundWrap(err, "get review %s", id)
	}
	return &r, nil
}

// ListReviews returns reviews newest first.
func (s *Store) ListReviews(ctx context.Context, f database.ReviewFilter) ([]review.Review, error) {
	b := psql.Select(reviewColumns...).From("reviews").OrderBy("published_at DESC", "id")
	if f.LocationID != "" {
		b = b.Where(sq.Eq{"location_id": f.LocationID})
	}
	if f.Unreplied {
		b = b.Where(sq.Eq{"has_owner_reply": false})
	}
	if f.MaxRating > 0 {
		b = b.Where(sq.LtOrEq{"rating": f.MaxRating})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []review.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, r)
	}
	return orEmpty(out), rows.Err()
}

// UpsertReview inserts r or refreshes the stored copy. Reply state only moves
// forward: a reply recorded locally is never cleared by a platform pull.
func (s *Store) UpsertReview(ctx context.Context, r *review.Review) (bool, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reviews (id, location_id, platform, external_id, rating, text, title, author_name,
		                      language_code, published_at, updated_at, has_owner_reply, owner_reply_at, owner_reply_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (platform, external_id) DO UPDATE SET
		     rating           = EXCLUDED.rating,
		     text             = EXCLUDED.text,
		     title            = EXCLUDED.title,
		     author_name      = EXCLUDED.author_name,
		     language_code    = EXCLUDED.language_code,
		     updated_at       = EXCLUDED.updated_at,
		     has_owner_reply  = reviews.has_owner_reply OR EXCLUDED.has_owner_reply,
		     owner_reply_at   = COALESCE(EXCLUDED.owner_reply_at, reviews.owner_reply_at),
		     owner_reply_text = CASE WHEN EXCLUDED.owner_reply_text <> '' THEN EXCLUDED.owner_reply_text
		                             ELSE reviews.owner_reply_text END
		 RETURNING id, (xmax = 0)`,
		r.ID, r.LocationID, string(r.Platform), r.ExternalID, r.Rating, r.Text, r.Title, r.AuthorName,
		r.LanguageCode, r.PublishedAt, r.UpdatedAt, r.HasOwnerReply, r.OwnerReplyAt, r.OwnerReplyText,
	).Scan(&r.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert review %s/%s: %w", r.Platform, r.ExternalID, err)
	}
	return inserted, nil
}

// --- Replies ---

func (s *Store) ListReplies(ctx context.Context, reviewID string) ([]review.Reply, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, review_id, draft_id, content, provider_reply_id, published_at
		 FROM replies WHERE review_id = $1 ORDER BY published_at DESC`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var out []review.Reply
	for rows.Next() {
		var r review.Reply
		if err := rows.Scan(&r.ID, &r.ReviewID, &r.DraftID, &r.Content, &r.ProviderReplyID, &r.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		out = append(out, r)
	}
	return orEmpty(out), rows.Err()
}
