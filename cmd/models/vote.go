package models

import "time"

// MemeVote is a ledger row keyed by (user, meme). The composite primary key
// guarantees at most one vote per user per meme.
type MemeVote struct {
	UserID    string    `gorm:"column:user_id;size:36;primaryKey" json:"user_id"`
	MemeID    string    `gorm:"column:meme_id;size:36;primaryKey" json:"meme_id"`
	IsUpvote  bool      `gorm:"column:is_upvote;not null" json:"is_upvote"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentVote is the comment-side ledger row, keyed by (user, comment).
type CommentVote struct {
	UserID    string    `gorm:"column:user_id;size:36;primaryKey" json:"user_id"`
	CommentID string    `gorm:"column:comment_id;size:36;primaryKey" json:"comment_id"`
	IsUpvote  bool      `gorm:"column:is_upvote;not null" json:"is_upvote"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
