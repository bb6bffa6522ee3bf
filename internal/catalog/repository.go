package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/trailcut/trailcut/internal/segments"
)

type Repository interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (*Project, error)
	GetProjectByPath(ctx context.Context, path string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, id string) error
	UpdateProjectPresent(ctx context.Context, id string, present bool) error
	CountProjects(ctx context.Context) (int, error)

	UpsertVideo(ctx context.Context, video *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	GetVideoBySlug(ctx context.Context, projectID, slug string) (*Video, error)
	ListVideos(ctx context.Context, projectID string) ([]*Video, error)
	DeleteVideo(ctx context.Context, id string) error
	CountVideos(ctx context.Context) (int, error)
	UpdateVideoTelemetry(ctx context.Context, id, status string) error
	MarkSegmentsSeeded(ctx context.Context, id string) error

	ListSegments(ctx context.Context, videoID string) (segments.Set, error)
	ReplaceSegments(ctx context.Context, videoID string, set segments.Set) error

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	FindActiveJob(ctx context.Context, jobType, projectID, videoID string) (*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const projectColumns = `id, slug, name, path, present, created_at`

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, slug, name, path, present, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Slug, p.Name, p.Path, boolToInt(p.Present), p.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	return r.getProject(ctx, "id", id)
}

func (r *SQLiteRepository) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	return r.getProject(ctx, "slug", slug)
}

func (r *SQLiteRepository) GetProjectByPath(ctx context.Context, path string) (*Project, error) {
	return r.getProject(ctx, "path", path)
}

func (r *SQLiteRepository) getProject(ctx context.Context, column, value string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE "+column+" = ?", value)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var present int
	var createdAt string
	if err := s.Scan(&p.ID, &p.Slug, &p.Name, &p.Path, &present, &createdAt); err != nil {
		return nil, err
	}
	p.Present = present == 1
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdateProjectPresent(ctx context.Context, id string, present bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE projects SET present = ? WHERE id = ?", boolToInt(present), id)
	return err
}

func (r *SQLiteRepository) CountProjects(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}

const videoColumns = `id, project_id, slug, mp4_filename, lrv_filename, thm_filename, path, size, length,
	mtime, fingerprint, telemetry_status, segments_seeded, created_at`

// UpsertVideo inserts or refreshes a video keyed by (project, slug). A changed
// fingerprint means different footage, so its telemetry is extracted again.
func (r *SQLiteRepository) UpsertVideo(ctx context.Context, v *Video) error {
	if v.TelemetryStatus == "" {
		v.TelemetryStatus = TelemetryPending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (id, project_id, slug, mp4_filename, lrv_filename, thm_filename, path, size, length,
			mtime, fingerprint, telemetry_status, segments_seeded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, slug) DO UPDATE SET
			mp4_filename = excluded.mp4_filename,
			lrv_filename = excluded.lrv_filename,
			thm_filename = excluded.thm_filename,
			path = excluded.path,
			size = excluded.size,
			length = excluded.length,
			mtime = excluded.mtime,
			telemetry_status = CASE WHEN videos.fingerprint = excluded.fingerprint
				THEN videos.telemetry_status ELSE 'pending' END,
			fingerprint = excluded.fingerprint
	`, v.ID, v.ProjectID, v.Slug, v.MP4Filename, nullString(v.LRVFilename), nullString(v.THMFilename), v.Path,
		v.Size, v.Length, v.Mtime.Format(time.RFC3339), v.Fingerprint, v.TelemetryStatus,
		boolToInt(v.SegmentsSeeded), v.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *SQLiteRepository) GetVideoBySlug(ctx context.Context, projectID, slug string) (*Video, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE project_id = ? AND slug = ?", projectID, slug)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func scanVideo(s scanner) (*Video, error) {
	var v Video
	var lrv, thm sql.NullString
	var mtime, createdAt string
	var seeded int
	err := s.Scan(&v.ID, &v.ProjectID, &v.Slug, &v.MP4Filename, &lrv, &thm, &v.Path, &v.Size, &v.Length,
		&mtime, &v.Fingerprint, &v.TelemetryStatus, &seeded, &createdAt)
	if err != nil {
		return nil, err
	}
	v.LRVFilename = lrv.String
	v.THMFilename = thm.String
	v.SegmentsSeeded = seeded == 1
	v.Mtime, _ = time.Parse(time.RFC3339, mtime)
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

func (r *SQLiteRepository) ListVideos(ctx context.Context, projectID string) ([]*Video, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE project_id = ? ORDER BY slug", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *SQLiteRepository) DeleteVideo(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM videos WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountVideos(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) UpdateVideoTelemetry(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE videos SET telemetry_status = ? WHERE id = ?", status, id)
	return err
}

func (r *SQLiteRepository) MarkSegmentsSeeded(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE videos SET segments_seeded = 1 WHERE id = ?", id)
	return err
}

// ListSegments returns the stored set in position order, never nil.
func (r *SQLiteRepository) ListSegments(ctx context.Context, videoID string) (segments.Set, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, source FROM segments WHERE video_id = ? ORDER BY position
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := segments.Set{}
	for rows.Next() {
		var s segments.Segment
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Source); err != nil {
			return nil, err
		}
		set = append(set, s)
	}
	return set, rows.Err()
}

// ReplaceSegments swaps the video's whole set in one transaction.
func (r *SQLiteRepository) ReplaceSegments(ctx context.Context, videoID string, set segments.Set) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE video_id = ?", videoID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (id, video_id, position, start_time, end_time, source) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range set {
		source := s.Source
		if source == "" {
			source = segments.SourceUser
		}
		if _, err := stmt.ExecContext(ctx, s.ID, videoID, i, s.StartTime, s.EndTime, source); err != nil {
			return fmt.Errorf("insert segment %d: %w", i, err)
		}
	}
	return tx.Commit()
}

const jobColumns = `id, type, status, project_id, video_id, progress, error, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, project_id, video_id, progress, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, nullString(j.ProjectID), nullString(j.VideoID),
		j.Progress, nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func scanJob(s scanner) (*Job, error) {
	var j Job
	var projectID, videoID, errMsg sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&j.ID, &j.Type, &j.Status, &projectID, &videoID, &j.Progress, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	j.ProjectID = projectID.String
	j.VideoID = videoID.String
	j.Error = errMsg.String
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

// FindActiveJob returns a pending or running job of the given type for the
// same project and video, or nil.
func (r *SQLiteRepository) FindActiveJob(ctx context.Context, jobType, projectID, videoID string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+` FROM jobs
		WHERE type = ? AND status IN ('pending', 'running')
		AND IFNULL(project_id, '') = ? AND IFNULL(video_id, '') = ?
		ORDER BY created_at ASC LIMIT 1`, jobType, projectID, videoID)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// parseTime accepts RFC3339 and the "YYYY-MM-DD HH:MM:SS" form SQLite's
// datetime() writes when a job is failed at startup.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.DateTime, strings.TrimSpace(s))
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
