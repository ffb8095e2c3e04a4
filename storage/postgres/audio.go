package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrAudioNotFound is returned for missing audio attachment rows.
var ErrAudioNotFound = errors.New("postgres: audio attachment not found")

// Audio ties an S3 payload to its owning user. The bytes themselves
// live in object storage under ObjectKey.
type Audio struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ObjectKey   string
	ContentType string
	Size        int64
	CreatedOn   time.Time
}

// AudioStore persists audio attachment metadata.
type AudioStore struct {
	db *DB
}

// NewAudioStore creates the audio metadata store.
func NewAudioStore(db *DB) *AudioStore {
	return &AudioStore{db: db}
}

func (s *AudioStore) Create(ctx context.Context, a *Audio) error {
	const q = `
		INSERT INTO audio (id, users_id, object_key, content_type, size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_on`
	return s.db.conn(ctx).QueryRow(ctx, q,
		a.ID, a.UserID, a.ObjectKey, a.ContentType, a.Size,
	).Scan(&a.CreatedOn)
}

func (s *AudioStore) Find(ctx context.Context, id uuid.UUID) (*Audio, error) {
	const q = `
		SELECT id, users_id, object_key, content_type, size, created_on
		FROM audio WHERE id = $1`
	var a Audio
	err := s.db.conn(ctx).QueryRow(ctx, q, id).Scan(
		&a.ID, &a.UserID, &a.ObjectKey, &a.ContentType, &a.Size, &a.CreatedOn,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAudioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AudioStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM audio WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAudioNotFound
	}
	return nil
}
