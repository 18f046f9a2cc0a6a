package comment

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
	"github.com/memeland/memeland-server/cmd/models"
	"github.com/memeland/memeland-server/cmd/utils"
	"github.com/memeland/memeland-server/service/counter"
	"github.com/memeland/memeland-server/service/vote"
)

type Handler struct {
	db     *gorm.DB
	ledger *vote.Ledger
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, ledger: vote.NewLedger(db)}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/memes/{memeId}/comments", utils.AuthMiddleware(h.CreateComment)).Methods("POST")
	router.HandleFunc("/memes/{memeId}/comments/{id}/replies", utils.OptionalAuthMiddleware(h.GetReplies)).Methods("GET")
	router.HandleFunc("/memes/{memeId}/comments/{id}", utils.AuthMiddleware(h.UpdateComment)).Methods("PUT")
	router.HandleFunc("/memes/{memeId}/comments/{id}", utils.AuthMiddleware(h.DeleteComment)).Methods("DELETE")

	router.HandleFunc("/memes/{memeId}/comments/{id}/vote", utils.AuthMiddleware(h.VoteComment)).Methods("PUT")
	router.HandleFunc("/memes/{memeId}/comments/{id}/vote", utils.AuthMiddleware(h.UnvoteComment)).Methods("DELETE")
}

// CreateComment adds a top-level comment or a reply. The comment row and the
// parent's counter increment commit as one transaction.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	memeID := mux.Vars(r)["memeId"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperrors.Validation("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		utils.WriteError(w, apperrors.Validation("Content is required"))
		return
	}

	newComment := models.Comment{
		ID:       uuid.NewString(),
		MemeID:   memeID,
		ParentID: req.ParentID,
		UserID:   userID,
		Content:  req.Content,
	}

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if req.ParentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, "id = ?", *req.ParentID).Error; err != nil {
				return apperrors.FromDB(err, "Parent comment not found", "")
			}
			if parent.MemeID != memeID {
				return apperrors.Validation("Parent comment belongs to a different meme")
			}
		}

		if err := tx.Create(&newComment).Error; err != nil {
			return err
		}
		return counter.CommentAdded(tx, memeID, req.ParentID)
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	h.db.WithContext(r.Context()).Preload("User").First(&newComment, "id = ?", newComment.ID)

	utils.WriteJSON(w, http.StatusCreated, newComment)
}

// GetReplies returns a comment with a page of its direct replies.
func (h *Handler) GetReplies(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["id"]
	viewerID := utils.CallerID(r.Context())
	page, limit := utils.ParsePagination(r, "page", "limit")

	parent, err := h.ledger.LoadComment(r.Context(), commentID, viewerID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	replyQuery := h.db.WithContext(r.Context()).
		Model(&models.Comment{}).
		Where("parent_id = ?", commentID).
		Preload("User")
	if viewerID != "" {
		replyQuery = replyQuery.Preload("CommentVotes", "user_id = ?", viewerID)
	}

	var total int64
	replyQuery.Count(&total)

	var replies []models.Comment
	if err := replyQuery.Order("created_at DESC").
		Offset(page * limit).Limit(limit).
		Find(&replies).Error; err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"parent":  parent,
			"replies": replies,
		},
		"pagination": map[string]interface{}{
			"page":       page,
			"limit":      limit,
			"totalCount": total,
		},
	})
}

// UpdateComment edits the content of the caller's own comment. Counter
// fields are never client-writable.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperrors.Validation("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		utils.WriteError(w, apperrors.Validation("Content is required"))
		return
	}

	var commentRecord models.Comment
	if err := h.db.WithContext(r.Context()).First(&commentRecord, "id = ?", commentID).Error; err != nil {
		utils.WriteError(w, apperrors.FromDB(err, "Comment not found", ""))
		return
	}

	if err := utils.Authorize(userID, commentRecord.UserID); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.db.WithContext(r.Context()).Model(&commentRecord).Update("content", req.Content).Error; err != nil {
		utils.WriteError(w, err)
		return
	}

	updated, err := h.ledger.LoadComment(r.Context(), commentID, userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, updated)
}

// DeleteComment removes a comment and its whole reply subtree. Only the
// immediate parent's counter is decremented, and by exactly one: descendants
// disappear with the subtree without touching ancestor counters.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var commentRecord models.Comment
	if err := h.db.WithContext(r.Context()).First(&commentRecord, "id = ?", commentID).Error; err != nil {
		utils.WriteError(w, apperrors.FromDB(err, "Comment not found", ""))
		return
	}

	if err := utils.Authorize(userID, commentRecord.UserID); err != nil {
		utils.WriteError(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		subtree, err := collectSubtreeIDs(tx, commentID)
		if err != nil {
			return err
		}

		if err := tx.Where("comment_id IN (?)", subtree).Delete(&models.CommentVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN (?)", subtree).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return counter.CommentRemoved(tx, commentRecord.MemeID, commentRecord.ParentID)
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VoteComment casts or flips the caller's vote on a comment.
func (h *Handler) VoteComment(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		IsUpvote *bool `json:"is_upvote"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsUpvote == nil {
		utils.WriteError(w, apperrors.Validation("is_upvote must be a boolean"))
		return
	}

	updated, err := h.ledger.CastCommentVote(r.Context(), commentID, userID, *req.IsUpvote)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, updated)
}

// UnvoteComment retracts the caller's vote on a comment.
func (h *Handler) UnvoteComment(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	updated, err := h.ledger.RetractCommentVote(r.Context(), commentID, userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, updated)
}

// collectSubtreeIDs walks the reply tree breadth-first and returns the root
// with every descendant comment ID.
func collectSubtreeIDs(tx *gorm.DB, rootID string) ([]string, error) {
	all := []string{rootID}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		var children []string
		if err := tx.Model(&models.Comment{}).
			Where("parent_id IN (?)", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		all = append(all, children...)
		frontier = children
	}

	return all, nil
}
