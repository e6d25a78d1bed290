package storage

import (
	"context"
	"log"

	"github.com/bwise1/geoplaylists/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const coverFolder = "geoplaylists/covers"

type Cloudinary struct {
	CLD *cloudinary.Cloudinary
}

// NewCloudinary returns nil when no cloud is configured; a nil *Cloudinary
// leaves cover URLs untouched.
func NewCloudinary(cfg *config.Config) *Cloudinary {
	if cfg.CloudinaryCloudName == "" {
		log.Println("[Storage]: cloudinary not configured, playlist covers will not be mirrored")
		return nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		log.Printf("[Storage]: failed to initialize cloudinary: %v", err)
		return nil
	}

	return &Cloudinary{CLD: cld}
}

// MirrorCover copies a playlist cover into the zone's slot and returns the
// hosted URL. Re-mirroring a zone overwrites its previous cover.
func (c *Cloudinary) MirrorCover(ctx context.Context, zoneID uuid.UUID, sourceURL string) (string, error) {
	if c == nil || sourceURL == "" {
		return sourceURL, nil
	}

	resp, err := c.CLD.Upload.Upload(ctx, sourceURL, uploader.UploadParams{
		Folder:    coverFolder,
		PublicID:  zoneID.String(),
		Overwrite: api.Bool(true),
	})
	if err != nil {
		return "", errors.Wrap(err, "upload cover")
	}
	if resp.Error.Message != "" {
		return "", errors.Errorf("upload cover: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}
