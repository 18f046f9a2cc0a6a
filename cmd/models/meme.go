package models

import (
	"time"

	"github.com/lib/pq"
)

type Meme struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"size:255" json:"description,omitempty"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	FileName     string         `gorm:"column:file_name;size:255;not null" json:"file_name"`
	OriginalName string         `gorm:"column:original_name;size:255;not null" json:"original_name"`
	FilePath     string         `gorm:"column:file_path;size:500;not null" json:"file_path"`
	UserID       string         `gorm:"column:user_id;size:36;not null;index" json:"user_id"`

	// Derived counters, written only by the counter engine.
	UpvotesNumber   int `gorm:"column:upvotes_number;not null;default:0" json:"upvotes_number"`
	DownvotesNumber int `gorm:"column:downvotes_number;not null;default:0" json:"downvotes_number"`
	CommentsNumber  int `gorm:"column:comments_number;not null;default:0" json:"comments_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MemeVotes []MemeVote `gorm:"foreignKey:MemeID" json:"meme_votes,omitempty"`
}

type Comment struct {
	ID       string  `gorm:"primaryKey;size:36" json:"id"`
	MemeID   string  `gorm:"column:meme_id;size:36;not null;index" json:"meme_id"`
	ParentID *string `gorm:"column:parent_id;size:36;index" json:"parent_id"`
	UserID   string  `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	Content  string  `gorm:"type:text;not null" json:"content"`

	UpvotesNumber   int `gorm:"column:upvotes_number;not null;default:0" json:"upvotes_number"`
	DownvotesNumber int `gorm:"column:downvotes_number;not null;default:0" json:"downvotes_number"`
	CommentsNumber  int `gorm:"column:comments_number;not null;default:0" json:"comments_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CommentVotes []CommentVote `gorm:"foreignKey:CommentID" json:"comment_votes,omitempty"`
}
