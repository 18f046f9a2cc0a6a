package counter

// The counter engine keeps the denormalized vote and comment counters on
// memes and comments in sync with the ledger rows. Every function here must
// be called inside the same transaction as the mutation that triggered it:
// if the target row is gone the update reports NotFound and the caller's
// transaction rolls back, so a ledger row can never commit without its
// counter change.
//
// Each update is a single UPDATE ... SET col = col ± 1 statement, so the
// read-modify-write of the counter is serialized per row by the database
// and concurrent increments on the same target cannot lose updates.

import (
	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
	"github.com/memeland/memeland-server/cmd/models"
)

// Target identifies the row whose counters an event applies to.
type Target struct {
	model    interface{}
	id       string
	notFound string
}

func MemeTarget(id string) Target {
	return Target{model: &models.Meme{}, id: id, notFound: "Meme not found"}
}

func CommentTarget(id string) Target {
	return Target{model: &models.Comment{}, id: id, notFound: "Comment not found"}
}

// VoteCast applies a newly created vote to the target's counters.
func VoteCast(tx *gorm.DB, target Target, isUpvote bool) error {
	if isUpvote {
		return adjust(tx, target, map[string]interface{}{
			"upvotes_number": gorm.Expr("upvotes_number + 1"),
		})
	}
	return adjust(tx, target, map[string]interface{}{
		"downvotes_number": gorm.Expr("downvotes_number + 1"),
	})
}

// VoteFlipped moves one vote between the two counters. nowUpvote is the
// polarity after the flip.
func VoteFlipped(tx *gorm.DB, target Target, nowUpvote bool) error {
	if nowUpvote {
		return adjust(tx, target, map[string]interface{}{
			"upvotes_number":   gorm.Expr("upvotes_number + 1"),
			"downvotes_number": gorm.Expr("downvotes_number - 1"),
		})
	}
	return adjust(tx, target, map[string]interface{}{
		"upvotes_number":   gorm.Expr("upvotes_number - 1"),
		"downvotes_number": gorm.Expr("downvotes_number + 1"),
	})
}

// VoteRetracted applies a vote deletion. wasUpvote is the polarity of the
// removed ledger row.
func VoteRetracted(tx *gorm.DB, target Target, wasUpvote bool) error {
	if wasUpvote {
		return adjust(tx, target, map[string]interface{}{
			"upvotes_number": gorm.Expr("upvotes_number - 1"),
		})
	}
	return adjust(tx, target, map[string]interface{}{
		"downvotes_number": gorm.Expr("downvotes_number - 1"),
	})
}

// CommentAdded increments the comment counter of the immediate parent: the
// meme for a top-level comment, otherwise the parent comment. The meme's
// counter is never touched for replies.
func CommentAdded(tx *gorm.DB, memeID string, parentID *string) error {
	return adjust(tx, commentParent(memeID, parentID), map[string]interface{}{
		"comments_number": gorm.Expr("comments_number + 1"),
	})
}

// CommentRemoved decrements the immediate parent's comment counter by
// exactly one, regardless of how many descendants were removed with the
// comment.
func CommentRemoved(tx *gorm.DB, memeID string, parentID *string) error {
	return adjust(tx, commentParent(memeID, parentID), map[string]interface{}{
		"comments_number": gorm.Expr("comments_number - 1"),
	})
}

func commentParent(memeID string, parentID *string) Target {
	if parentID != nil {
		return Target{model: &models.Comment{}, id: *parentID, notFound: "Parent comment not found"}
	}
	return MemeTarget(memeID)
}

func adjust(tx *gorm.DB, target Target, columns map[string]interface{}) error {
	result := tx.Model(target.model).Where("id = ?", target.id).UpdateColumns(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("%s", target.notFound)
	}
	return nil
}
