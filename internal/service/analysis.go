package service

import (
	"bitwise74/capture-api/internal/model"
	"bitwise74/capture-api/internal/storage"
	"bitwise74/capture-api/pkg/util"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadPrefix is the public path stored blobs are served under
const UploadPrefix = "/uploads/"

// FabricateResponse returns the canned analysis text. No inference happens,
// rating and comment are embedded verbatim
func FabricateResponse(rating int, comment string) string {
	return fmt.Sprintf("AI Analysis: This appears to be a photo with rating %d. The user commented: \"%s\". Interesting composition!", rating, comment)
}

// BlobKey builds a collision resistant blob name from the submission time and
// a random suffix, e.g. 1700000000000-k3j9x0a.jpg
func BlobKey(t time.Time, ext string) string {
	return fmt.Sprintf("%d-%s%s", t.UnixMilli(), util.RandLower(7), ext)
}

type Submission struct {
	UserID      string
	Image       io.Reader
	Size        int64
	ContentType string
	Ext         string
	Comment     string
	Rating      int
}

// Analyzer stores submissions: the blob first, then the record
type Analyzer struct {
	DB    *gorm.DB
	Blobs storage.Store
	Now   func() time.Time
}

func NewAnalyzer(db *gorm.DB, blobs storage.Store) *Analyzer {
	return &Analyzer{
		DB:    db,
		Blobs: blobs,
		Now:   time.Now,
	}
}

// Submit writes the image and records the analysis. If the record can't be
// written the blob is removed again so no orphan is left behind
func (a *Analyzer) Submit(ctx context.Context, s Submission) (*model.Analysis, error) {
	now := a.Now()
	key := BlobKey(now, s.Ext)

	if err := a.Blobs.Put(ctx, key, s.ContentType, s.Image, s.Size); err != nil {
		return nil, fmt.Errorf("failed to store image, %w", err)
	}

	rec := &model.Analysis{
		UserID:     s.UserID,
		ImagePath:  UploadPrefix + key,
		Comment:    s.Comment,
		Rating:     s.Rating,
		AIResponse: FabricateResponse(s.Rating, s.Comment),
		CreatedAt:  now,
	}

	if err := a.DB.WithContext(ctx).Create(rec).Error; err != nil {
		// The request context may already be gone, cleanup must still happen
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if derr := a.Blobs.Delete(cleanupCtx, key); derr != nil {
			zap.L().Error("Failed to cleanup after failed record write", zap.String("key", key), zap.Error(derr))
		} else {
			zap.L().Debug("Cleaned up after failed record write", zap.String("key", key))
		}

		return nil, fmt.Errorf("failed to save analysis record, %w", err)
	}

	return rec, nil
}

// History returns the latest analyses of a user, newest first
func (a *Analyzer) History(ctx context.Context, userID string, limit int) ([]model.Analysis, error) {
	analyses := []model.Analysis{}

	err := a.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&analyses).
		Error
	if err != nil {
		return nil, err
	}

	return analyses, nil
}

// Owns reports whether the blob served at imagePath belongs to userID
func (a *Analyzer) Owns(ctx context.Context, userID, imagePath string) (bool, error) {
	var n int64

	err := a.DB.WithContext(ctx).
		Model(model.Analysis{}).
		Where("image_path = ? AND user_id = ?", imagePath, userID).
		Count(&n).
		Error

	return n > 0, err
}
