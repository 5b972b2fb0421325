package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/repomanager"
	"github.com/katlaang/pestscan-sub001/internal/server/storage"
)

// PhotoService registers photo metadata and confirms uploads. Binaries go
// straight from the device to object storage through presigned URLs.
type PhotoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	presigner   storage.Presigner
	opts        Options
}

// NewPhotoService builds the service. A nil presigner disables upload URLs;
// registration and confirmation still work.
func NewPhotoService(db *sql.DB, m repomanager.RepositoryManager, presigner storage.Presigner, opts Options) *PhotoService {
	opts = opts.withDefaults()
	opts.Logger = opts.Logger.With("module", "photos")
	return &PhotoService{db: db, repomanager: m, presigner: presigner, opts: opts}
}

// Register stores photo metadata, idempotently by local photo id. A replay
// may omit the observation and purpose; a replay naming a different session,
// observation or purpose is a conflict. The returned upload is nil once the
// photo is confirmed or when object storage is not configured.
func (s *PhotoService) Register(ctx context.Context, actor models.Actor, in models.RegisterPhotoInput) (*models.Photo, *models.PhotoUpload, error) {
	if err := checkActor(actor); err != nil {
		return nil, nil, err
	}
	localID := strings.TrimSpace(in.LocalPhotoID)
	if localID == "" {
		return nil, nil, invalid("localPhotoId is required")
	}
	if err := parseID(in.SessionID, "session"); err != nil {
		return nil, nil, err
	}

	session, err := s.liveSession(ctx, in.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if in.ObservationID != nil {
		if err := parseID(*in.ObservationID, "observation"); err != nil {
			return nil, nil, err
		}
		o, err := s.repomanager.Observations(s.db).GetByID(ctx, *in.ObservationID)
		if err != nil {
			return nil, nil, err
		}
		if o.SessionID != session.ID {
			return nil, nil, fmt.Errorf("%w: observation %s", common.ErrorNotFound, *in.ObservationID)
		}
	}

	now := s.opts.now()
	photo := &models.Photo{
		ID:            newID(),
		FarmID:        session.FarmID,
		SessionID:     session.ID,
		ObservationID: in.ObservationID,
		LocalPhotoID:  localID,
		Purpose:       strings.TrimSpace(in.Purpose),
		CapturedAt:    in.CapturedAt,
		SyncStatus:    models.SyncPendingUpload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	repo := s.repomanager.Photos(s.db)
	err = repo.Insert(ctx, photo)
	if errors.Is(err, common.ErrorAlreadyExists) {
		stored, err := repo.GetByLocalID(ctx, session.FarmID, localID)
		if err != nil {
			return nil, nil, err
		}
		if stored.SessionID != session.ID {
			return nil, nil, fmt.Errorf("%w: local photo %s is registered for another session", common.ErrConflict, localID)
		}
		// Omitted fields keep the stored values; contradicting ones are a conflict.
		if in.ObservationID != nil && !equalPtr(in.ObservationID, stored.ObservationID) {
			return nil, nil, fmt.Errorf("%w: local photo %s is registered for another observation", common.ErrConflict, localID)
		}
		if photo.Purpose != "" && photo.Purpose != stored.Purpose {
			return nil, nil, fmt.Errorf("%w: local photo %s is registered with another purpose", common.ErrConflict, localID)
		}
		photo = stored
	} else if err != nil {
		return nil, nil, err
	} else {
		s.opts.Logger.Info(ctx, "photo registered", "photo_id", photo.ID, "session_id", session.ID, "local_photo_id", localID)
	}

	if photo.SyncStatus == models.SyncSynced || s.presigner == nil {
		return photo, nil, nil
	}
	key := storage.PhotoKey(session.FarmID, session.ID, now)
	url, expiresAt, err := s.presigner.PresignPut(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("presign upload: %w", err)
	}
	return photo, &models.PhotoUpload{ObjectKey: key, URL: url, ExpiresAt: expiresAt}, nil
}

// Confirm marks a registered photo as uploaded under objectKey. It fails
// with NotFound when no registered, unconfirmed photo matches.
func (s *PhotoService) Confirm(ctx context.Context, actor models.Actor, sessionID, localPhotoID, objectKey string) (*models.Photo, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil, invalid("objectKey is required")
	}
	if err := parseID(sessionID, "session"); err != nil {
		return nil, err
	}
	session, err := s.repomanager.Sessions(s.db).GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("farms/%s/sessions/%s/", session.FarmID, session.ID)
	if !strings.HasPrefix(objectKey, prefix) {
		return nil, invalid("objectKey must start with %s", prefix)
	}

	photo, err := s.repomanager.Photos(s.db).Confirm(ctx, sessionID, strings.TrimSpace(localPhotoID), objectKey, s.opts.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: no pending upload for photo %s", common.ErrorNotFound, localPhotoID)
		}
		return nil, err
	}
	s.opts.Logger.Info(ctx, "photo upload confirmed", "photo_id", photo.ID, "object_key", objectKey)
	return photo, nil
}

// DownloadURL returns a temporary link to a confirmed photo of the farm.
func (s *PhotoService) DownloadURL(ctx context.Context, farmID, localPhotoID string) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("%w: object storage is not configured", common.ErrorNotFound)
	}
	photo, err := s.repomanager.Photos(s.db).GetByLocalID(ctx, farmID, localPhotoID)
	if err != nil {
		return "", err
	}
	if photo.ObjectKey == nil {
		return "", fmt.Errorf("%w: photo %s is not uploaded yet", common.ErrorNotFound, localPhotoID)
	}
	return s.presigner.PresignGet(ctx, *photo.ObjectKey)
}

func (s *PhotoService) liveSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repomanager.Sessions(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Deleted {
		return nil, fmt.Errorf("%w: session %s", common.ErrorNotFound, id)
	}
	return session, nil
}
