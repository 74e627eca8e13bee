package anime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"animehub/internal/ratings"
	"animehub/pkg/database"
	apperrors "animehub/pkg/errors"
	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q      string   // matches title or exTitle
	Genres []string // genre slugs, any-match
	Status string
	Limit  int
	Offset int
}

// Ranked is an anime with its rating aggregate, used by the top lists.
type Ranked struct {
	models.Anime
	AverageScore float64 `json:"averageScore"`
	TotalRatings int     `json:"totalRatings"`
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const animeColumns = `a.id, a.title, a.ex_title, a.slug, a.description, a.image_url,
	a.release_year, a.total_episode, a.status, a.views, a.created_at, a.updated_at`

type scanner interface{ Scan(...any) error }

func scanAnime(row scanner, extra ...any) (*models.Anime, error) {
	var a models.Anime
	dest := []any{
		&a.ID, &a.Title, &a.ExTitle, &a.Slug, &a.Description, &a.ImageURL,
		&a.ReleaseYear, &a.TotalEpisode, &a.Status, &a.Views, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Genres = []string{}
	return &a, nil
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*models.Anime, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+animeColumns+` FROM animes a WHERE `+where, arg)
	a, err := scanAnime(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get anime: %w", err)
	}
	if err := r.attachGenres(ctx, []*models.Anime{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Anime, error) {
	return r.getOne(ctx, `a.id = ?`, id)
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Anime, error) {
	return r.getOne(ctx, `a.slug = ?`, slug)
}

// Detail is the anime with slug plus its episodes in season/number order.
func (r *Repo) Detail(ctx context.Context, slug string) (*models.AnimeDetail, error) {
	a, err := r.GetBySlug(ctx, slug)
	if err != nil || a == nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, anime_id, title, slug, season, number, video_url, duration, created_at, updated_at
		FROM episodes
		WHERE anime_id = ?
		ORDER BY season ASC, number ASC
	`, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list anime episodes: %w", err)
	}
	defer rows.Close()

	d := &models.AnimeDetail{Anime: *a, Episodes: []models.Episode{}}
	for rows.Next() {
		var e models.Episode
		if err := rows.Scan(&e.ID, &e.AnimeID, &e.Title, &e.Slug, &e.Season, &e.Number,
			&e.VideoURL, &e.Duration, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan anime episode: %w", err)
		}
		d.Episodes = append(d.Episodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return d, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

// List orders by views, most watched first.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Anime, error) {
	sqlStr, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var ptrs []*models.Anime
	for rows.Next() {
		a, err := scanAnime(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		ptrs = append(ptrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	rows.Close()

	if err := r.attachGenres(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]models.Anime, 0, len(ptrs))
	for _, a := range ptrs {
		out = append(out, *a)
	}
	return out, nil
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	sqlStr := `SELECT ` + animeColumns + ` FROM animes a`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM animes a`
	}

	var where []string
	var args []any

	if kw := strings.ToLower(strings.TrimSpace(q.Q)); kw != "" {
		where = append(where, "(LOWER(a.title) LIKE ? OR LOWER(a.ex_title) LIKE ?)")
		kw = "%" + kw + "%"
		args = append(args, kw, kw)
	}

	if s := strings.ToUpper(strings.TrimSpace(q.Status)); s != "" {
		where = append(where, "a.status = ?")
		args = append(args, s)
	}

	var slugs []string
	for _, g := range q.Genres {
		if g = strings.TrimSpace(g); g != "" {
			slugs = append(slugs, g)
		}
	}
	if len(slugs) > 0 {
		where = append(where, `EXISTS (
			SELECT 1 FROM anime_genres ag JOIN genres g ON g.id = ag.genre_id
			WHERE ag.anime_id = a.id AND g.slug IN (`+placeholders(len(slugs))+`))`)
		for _, s := range slugs {
			args = append(args, s)
		}
	}

	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		limit, offset := clampPage(q.Limit, q.Offset)
		sqlStr += " ORDER BY a.views DESC, a.title ASC LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return sqlStr, args
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// attachGenres fills Genres on every anime with one query.
func (r *Repo) attachGenres(ctx context.Context, animes []*models.Anime) error {
	if len(animes) == 0 {
		return nil
	}
	byID := make(map[string]*models.Anime, len(animes))
	args := make([]any, 0, len(animes))
	for _, a := range animes {
		byID[a.ID] = a
		args = append(args, a.ID)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT ag.anime_id, g.name
		FROM anime_genres ag
		JOIN genres g ON g.id = ag.genre_id
		WHERE ag.anime_id IN (`+placeholders(len(args))+`)
		ORDER BY g.name
	`, args...)
	if err != nil {
		return fmt.Errorf("load genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var animeID, name string
		if err := rows.Scan(&animeID, &name); err != nil {
			return fmt.Errorf("scan genre: %w", err)
		}
		if a := byID[animeID]; a != nil {
			a.Genres = append(a.Genres, name)
		}
	}
	return rows.Err()
}

// MostViewed returns the n animes with the highest view count.
func (r *Repo) MostViewed(ctx context.Context, n int) ([]models.Anime, error) {
	return r.List(ctx, ListQuery{Limit: n})
}

// TopRated returns the n animes with the best average score. Unrated animes
// are left out.
func (r *Repo) TopRated(ctx context.Context, n int) ([]Ranked, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+animeColumns+`, AVG(r.score) AS avg_score, COUNT(r.id) AS total
		FROM animes a
		JOIN ratings r ON r.anime_id = a.id
		GROUP BY a.id
		ORDER BY avg_score DESC, total DESC, a.title ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	defer rows.Close()

	out := make([]Ranked, 0, n)
	for rows.Next() {
		var avg float64
		var total int
		a, err := scanAnime(rows, &avg, &total)
		if err != nil {
			return nil, fmt.Errorf("scan top rated: %w", err)
		}
		out = append(out, Ranked{Anime: *a, AverageScore: ratings.RoundScore(avg), TotalRatings: total})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	rows.Close()

	ptrs := make([]*models.Anime, len(out))
	for i := range out {
		ptrs[i] = &out[i].Anime
	}
	if err := r.attachGenres(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

// TotalViews sums the stored view counters of every anime.
func (r *Repo) TotalViews(ctx context.Context) (int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(views), 0) FROM animes`).Scan(&total); err != nil {
		return 0, fmt.Errorf("total views: %w", err)
	}
	return total, nil
}

// Create inserts a new anime. Status and views start at their column
// defaults; the reconciler owns them from then on.
func (r *Repo) Create(ctx context.Context, in models.AnimeInput) (*models.Anime, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO animes (id, title, ex_title, slug, description, image_url, release_year, total_episode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.Title, in.ExTitle, in.Slug, in.Description, in.ImageURL, in.ReleaseYear, in.TotalEpisode)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Wrap(apperrors.ErrorTypeConflict, "slug already in use", err)
		}
		return nil, fmt.Errorf("insert anime: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update overwrites the admin-editable columns of id. It returns nil, nil
// when the anime does not exist.
func (r *Repo) Update(ctx context.Context, id string, in models.AnimeInput) (*models.Anime, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE animes
		SET title = ?, ex_title = ?, slug = ?, description = ?, image_url = ?,
		    release_year = ?, total_episode = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, in.Title, in.ExTitle, in.Slug, in.Description, in.ImageURL, in.ReleaseYear, in.TotalEpisode, id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Wrap(apperrors.ErrorTypeConflict, "slug already in use", err)
		}
		return nil, fmt.Errorf("update anime: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Delete removes the anime; episodes, ratings and views go with it.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM animes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete anime: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
