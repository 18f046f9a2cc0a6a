package vote

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
	"github.com/memeland/memeland-server/cmd/models"
	"github.com/memeland/memeland-server/service/counter"
)

// Ledger owns the per-(voter, target) vote rows and drives the counter
// engine. Every mutation commits the ledger row and the counter change as
// one transaction; the returned snapshot is read after that commit, so the
// caller always observes its own write.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// CastMemeVote records voterID's vote on a meme. A first vote creates the
// ledger row, a vote with the opposite polarity flips it, and re-casting the
// same polarity is a no-op. The post-operation meme is returned with the
// voter's own vote joined.
func (l *Ledger) CastMemeVote(ctx context.Context, memeID, voterID string, isUpvote bool) (*models.Meme, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MemeVote
		err := tx.Where("user_id = ? AND meme_id = ?", voterID, memeID).First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			newVote := models.MemeVote{UserID: voterID, MemeID: memeID, IsUpvote: isUpvote}
			if err := tx.Create(&newVote).Error; err != nil {
				return apperrors.FromDB(err, "Meme not found", "Vote already exists")
			}
			return counter.VoteCast(tx, counter.MemeTarget(memeID), isUpvote)

		case err != nil:
			return err

		case existing.IsUpvote == isUpvote:
			// Idempotent re-vote: counters stay untouched.
			return nil

		default:
			if err := tx.Model(&models.MemeVote{}).
				Where("user_id = ? AND meme_id = ?", voterID, memeID).
				Update("is_upvote", isUpvote).Error; err != nil {
				return err
			}
			return counter.VoteFlipped(tx, counter.MemeTarget(memeID), isUpvote)
		}
	})
	if err != nil {
		return nil, err
	}

	return l.LoadMeme(ctx, memeID, voterID)
}

// RetractMemeVote removes voterID's vote on a meme. Fails with NotFound when
// no ledger row exists for the pair.
func (l *Ledger) RetractMemeVote(ctx context.Context, memeID, voterID string) (*models.Meme, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MemeVote
		if err := tx.Where("user_id = ? AND meme_id = ?", voterID, memeID).First(&existing).Error; err != nil {
			return apperrors.FromDB(err, "Vote not found for this user", "")
		}

		if err := tx.Where("user_id = ? AND meme_id = ?", voterID, memeID).
			Delete(&models.MemeVote{}).Error; err != nil {
			return err
		}
		return counter.VoteRetracted(tx, counter.MemeTarget(memeID), existing.IsUpvote)
	})
	if err != nil {
		return nil, err
	}

	return l.LoadMeme(ctx, memeID, voterID)
}

// CastCommentVote is CastMemeVote for comment targets.
func (l *Ledger) CastCommentVote(ctx context.Context, commentID, voterID string, isUpvote bool) (*models.Comment, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommentVote
		err := tx.Where("user_id = ? AND comment_id = ?", voterID, commentID).First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			newVote := models.CommentVote{UserID: voterID, CommentID: commentID, IsUpvote: isUpvote}
			if err := tx.Create(&newVote).Error; err != nil {
				return apperrors.FromDB(err, "Comment not found", "Vote already exists")
			}
			return counter.VoteCast(tx, counter.CommentTarget(commentID), isUpvote)

		case err != nil:
			return err

		case existing.IsUpvote == isUpvote:
			return nil

		default:
			if err := tx.Model(&models.CommentVote{}).
				Where("user_id = ? AND comment_id = ?", voterID, commentID).
				Update("is_upvote", isUpvote).Error; err != nil {
				return err
			}
			return counter.VoteFlipped(tx, counter.CommentTarget(commentID), isUpvote)
		}
	})
	if err != nil {
		return nil, err
	}

	return l.LoadComment(ctx, commentID, voterID)
}

// RetractCommentVote removes voterID's vote on a comment.
func (l *Ledger) RetractCommentVote(ctx context.Context, commentID, voterID string) (*models.Comment, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommentVote
		if err := tx.Where("user_id = ? AND comment_id = ?", voterID, commentID).First(&existing).Error; err != nil {
			return apperrors.FromDB(err, "Vote not found for this user", "")
		}

		if err := tx.Where("user_id = ? AND comment_id = ?", voterID, commentID).
			Delete(&models.CommentVote{}).Error; err != nil {
			return err
		}
		return counter.VoteRetracted(tx, counter.CommentTarget(commentID), existing.IsUpvote)
	})
	if err != nil {
		return nil, err
	}

	return l.LoadComment(ctx, commentID, voterID)
}

// LoadMeme fetches a meme with its owner and, when viewerID is non-empty,
// the viewer's own vote.
func (l *Ledger) LoadMeme(ctx context.Context, memeID, viewerID string) (*models.Meme, error) {
	query := l.db.WithContext(ctx).Preload("User")
	if viewerID != "" {
		query = query.Preload("MemeVotes", "user_id = ?", viewerID)
	}

	var meme models.Meme
	if err := query.First(&meme, "id = ?", memeID).Error; err != nil {
		return nil, apperrors.FromDB(err, "Meme not found", "")
	}
	return &meme, nil
}

// LoadComment fetches a comment with its owner and the viewer's own vote.
func (l *Ledger) LoadComment(ctx context.Context, commentID, viewerID string) (*models.Comment, error) {
	query := l.db.WithContext(ctx).Preload("User")
	if viewerID != "" {
		query = query.Preload("CommentVotes", "user_id = ?", viewerID)
	}

	var comment models.Comment
	if err := query.First(&comment, "id = ?", commentID).Error; err != nil {
		return nil, apperrors.FromDB(err, "Comment not found", "")
	}
	return &comment, nil
}
