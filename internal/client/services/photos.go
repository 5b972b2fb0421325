package services

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub001/internal/common"
	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
)

// UploadPhoto registers the photo, PUTs the file to the presigned URL and
// confirms the upload. Registering an already confirmed photo is a no-op.
func (a *SyncAgent) UploadPhoto(ctx context.Context, in sm.RegisterPhotoInput, path string) (*sm.Photo, error) {
	data, contentType, err := readPhoto(path)
	if err != nil {
		return nil, err
	}

	photo, upload, err := a.client.RegisterPhoto(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", in.LocalPhotoID, err)
	}

	if upload == nil {
		if photo == nil || photo.SyncStatus != sm.SyncSynced {
			return nil, fmt.Errorf("%w: server has no object storage for %s", common.ErrConflict, in.LocalPhotoID)
		}
	} else {
		if err := uploadToPresignedURL(ctx, upload.URL, contentType, data); err != nil {
			return nil, fmt.Errorf("upload %s: %w", in.LocalPhotoID, err)
		}
		photo, err = a.client.ConfirmPhoto(ctx, in.SessionID, in.LocalPhotoID, upload.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("confirm %s: %w", in.LocalPhotoID, err)
		}
	}

	if err := a.cache.PutPhoto(ctx, photo); err != nil {
		return nil, err
	}
	a.opts.Logger.Info(ctx, "photo uploaded", "local_photo_id", in.LocalPhotoID, "bytes", len(data))
	return photo, nil
}
