package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/socialnet/apiserver/types"
)

const postColumns = `id, content, media_urls, author_id, likes, created_at`

// PostRepository handles persistence for posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

func scanPost(row rowScanner) (types.Post, error) {
	var post types.Post
	var likesJSON []byte
	err := row.Scan(
		&post.ID,
		&post.Content,
		pq.Array(&post.MediaURLs),
		&post.AuthorID,
		&likesJSON,
		&post.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	if err := json.Unmarshal(likesJSON, &post.Likes); err != nil {
		return types.Post{}, err
	}
	if post.MediaURLs == nil {
		post.MediaURLs = []string{}
	}
	if post.Likes == nil {
		post.Likes = []types.Like{}
	}
	return post, nil
}

// List returns a page of posts, newest first with id as the tie-break.
func (r *PostRepository) List(ctx context.Context, filter PostFilter, offset, limit int) ([]types.Post, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}
	if filter.ByAuthor && len(filter.AuthorIDs) == 0 {
		return []types.Post{}, nil
	}

	var rows *sql.Rows
	var err error
	if filter.ByAuthor {
		query := `
			SELECT ` + postColumns + `
			FROM posts
			WHERE author_id = ANY($1)
			ORDER BY created_at DESC, id DESC
			OFFSET $2 LIMIT $3`
		rows, err = r.db.QueryContext(ctx, query, pq.Array(filter.AuthorIDs), offset, limit)
	} else {
		query := `
			SELECT ` + postColumns + `
			FROM posts
			ORDER BY created_at DESC, id DESC
			OFFSET $1 LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, offset, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	const query = `SELECT COUNT(1) FROM posts WHERE author_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, authorID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPost(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	post.ID = uuid.NewString()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.MediaURLs == nil {
		post.MediaURLs = []string{}
	}
	post.Likes = []types.Like{}

	const query = `
		INSERT INTO posts (id, content, media_urls, author_id, likes, created_at)
		VALUES ($1, $2, $3, $4, '[]'::jsonb, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		post.ID,
		post.Content,
		pq.Array(post.MediaURLs),
		post.AuthorID,
		post.CreatedAt,
	); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// Update replaces the content and media of a post.
func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	if post.MediaURLs == nil {
		post.MediaURLs = []string{}
	}
	query := `
		UPDATE posts
		SET content = $1,
			media_urls = $2
		WHERE id = $3
		RETURNING ` + postColumns
	return scanPost(r.db.QueryRowContext(ctx, query, post.Content, pq.Array(post.MediaURLs), post.ID))
}

// Delete removes a post together with every comment referencing it.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ToggleLike adds or removes userID's like on a post under a row lock.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID string, at time.Time) (types.LikeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.LikeResult{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var likesJSON []byte
	err = tx.QueryRowContext(ctx, `SELECT likes FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&likesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LikeResult{}, ErrNotFound
		}
		return types.LikeResult{}, err
	}

	var likes []types.Like
	if err := json.Unmarshal(likesJSON, &likes); err != nil {
		return types.LikeResult{}, err
	}

	likes, liked := toggleLike(likes, userID, at)

	updated, err := json.Marshal(likes)
	if err != nil {
		return types.LikeResult{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE posts SET likes = $1 WHERE id = $2`, updated, postID); err != nil {
		return types.LikeResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.LikeResult{}, err
	}
	return types.LikeResult{Liked: liked, LikeCount: len(likes)}, nil
}

// toggleLike removes userID's entry if present, otherwise appends one.
func toggleLike(likes []types.Like, userID string, at time.Time) ([]types.Like, bool) {
	kept := make([]types.Like, 0, len(likes)+1)
	removed := false
	for _, like := range likes {
		if like.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, like)
	}
	if removed {
		return kept, false
	}
	return append(kept, types.Like{UserID: userID, CreatedAt: at}), true
}
