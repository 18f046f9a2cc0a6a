package meme

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
	"github.com/memeland/memeland-server/cmd/models"
	"github.com/memeland/memeland-server/cmd/utils"
	"github.com/memeland/memeland-server/service/cache"
	"github.com/memeland/memeland-server/service/daily"
	"github.com/memeland/memeland-server/service/vote"
)

// sortColumns whitelists the sortable fields and maps them to columns.
var sortColumns = map[string]string{
	"createdAt":       "created_at",
	"upvotesNumber":   "upvotes_number",
	"downvotesNumber": "downvotes_number",
	"commentsNumber":  "comments_number",
}

type Handler struct {
	db     *gorm.DB
	ledger *vote.Ledger
	picker *daily.Picker
}

func NewHandler(db *gorm.DB, redisCache *cache.RedisCache) *Handler {
	return &Handler{
		db:     db,
		ledger: vote.NewLedger(db),
		picker: daily.NewPicker(db, redisCache),
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Fixed paths before {id} so mux does not swallow them.
	router.HandleFunc("/memes/of-the-day", h.GetMemeOfTheDay).Methods("GET")

	router.HandleFunc("/memes", utils.OptionalAuthMiddleware(h.GetMemes)).Methods("GET")
	router.HandleFunc("/memes/{id}", utils.OptionalAuthMiddleware(h.GetMeme)).Methods("GET")
	router.HandleFunc("/memes", utils.AuthMiddleware(h.CreateMeme)).Methods("POST")
	router.HandleFunc("/memes/{id}", utils.AuthMiddleware(h.UpdateMeme)).Methods("PUT")
	router.HandleFunc("/memes/{id}", utils.AuthMiddleware(h.DeleteMeme)).Methods("DELETE")

	router.HandleFunc("/memes/{id}/vote", utils.AuthMiddleware(h.VoteMeme)).Methods("PUT")
	router.HandleFunc("/memes/{id}/vote", utils.AuthMiddleware(h.UnvoteMeme)).Methods("DELETE")
}

// RegisterStaticRoutes serves uploaded meme files on the root router.
func (h *Handler) RegisterStaticRoutes(router *mux.Router) {
	router.HandleFunc("/images/{filename}", h.ServeImage).Methods("GET")
}

type paginationInfo struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore,omitempty"`
}

// GetMemes lists memes with pagination, filtering and sorting. When the
// caller is authenticated, each meme carries the caller's own vote.
func (h *Handler) GetMemes(w http.ResponseWriter, r *http.Request) {
	page, limit := utils.ParsePagination(r, "page", "limit")

	sortedBy := r.URL.Query().Get("sortedBy")
	if sortedBy == "" {
		sortedBy = "createdAt"
	}
	column, ok := sortColumns[sortedBy]
	if !ok {
		utils.WriteError(w, apperrors.Validation("Invalid sortedBy parameter"))
		return
	}

	direction := strings.ToUpper(r.URL.Query().Get("sortDirection"))
	if direction == "" {
		direction = "DESC"
	}
	if direction != "ASC" && direction != "DESC" {
		utils.WriteError(w, apperrors.Validation("Invalid sortDirection parameter"))
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	tags := normalizeTags(strings.Split(r.URL.Query().Get("tags"), ","))

	query := h.db.WithContext(r.Context()).Model(&models.Meme{}).Preload("User")

	if byUser := r.URL.Query().Get("byUser"); byUser != "" {
		query = query.Where("user_id = ?", byUser)
	}

	// Title match OR tag overlap; either alone filters on its own.
	switch {
	case title != "" && len(tags) > 0:
		query = query.Where("title ILIKE ? OR tags && ?", "%"+title+"%", pq.StringArray(tags))
	case title != "":
		query = query.Where("title ILIKE ?", "%"+title+"%")
	case len(tags) > 0:
		query = query.Where("tags && ?", pq.StringArray(tags))
	}

	if viewerID := utils.CallerID(r.Context()); viewerID != "" {
		query = query.Preload("MemeVotes", "user_id = ?", viewerID)
	}

	var memes []models.Meme
	if err := query.Order(column + " " + direction).
		Offset(page * limit).Limit(limit).
		Find(&memes).Error; err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data": memes,
		"pagination": paginationInfo{
			Page:    page,
			Limit:   limit,
			HasMore: len(memes) == limit,
		},
	})
}

type memeDetailResponse struct {
	models.Meme
	Comments           []models.Comment `json:"comments"`
	CommentsPagination struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalCount int64 `json:"totalCount"`
	} `json:"commentsPagination"`
}

// GetMeme returns one meme with its owner, the viewer's vote and a page of
// top-level comments.
func (h *Handler) GetMeme(w http.ResponseWriter, r *http.Request) {
	memeID := mux.Vars(r)["id"]
	viewerID := utils.CallerID(r.Context())
	page, limit := utils.ParsePagination(r, "commentsPage", "commentsLimit")

	memeRecord, err := h.ledger.LoadMeme(r.Context(), memeID, viewerID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	commentQuery := h.db.WithContext(r.Context()).
		Model(&models.Comment{}).
		Where("meme_id = ? AND parent_id IS NULL", memeID).
		Preload("User")
	if viewerID != "" {
		commentQuery = commentQuery.Preload("CommentVotes", "user_id = ?", viewerID)
	}

	var total int64
	commentQuery.Count(&total)

	var comments []models.Comment
	if err := commentQuery.Order("created_at DESC").
		Offset(page * limit).Limit(limit).
		Find(&comments).Error; err != nil {
		utils.WriteError(w, err)
		return
	}

	response := memeDetailResponse{Meme: *memeRecord, Comments: comments}
	response.CommentsPagination.Page = page
	response.CommentsPagination.Limit = limit
	response.CommentsPagination.TotalCount = total

	utils.WriteJSON(w, http.StatusOK, response)
}

// GetMemeOfTheDay returns today's deterministic pick.
func (h *Handler) GetMemeOfTheDay(w http.ResponseWriter, r *http.Request) {
	memeID, err := h.picker.MemeOfTheDay(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"meme_id": memeID})
}

// CreateMeme uploads a meme image with its metadata.
func (h *Handler) CreateMeme(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		utils.WriteError(w, apperrors.Validation("Error parsing form"))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		utils.WriteError(w, apperrors.Validation("Title is required"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteError(w, apperrors.Validation("Image file is required"))
		return
	}
	defer file.Close()

	fileName, filePath, err := utils.SaveImage(file, header)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	newMeme := models.Meme{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  r.FormValue("description"),
		Tags:         normalizeTags(strings.Split(r.FormValue("tags"), ",")),
		FileName:     fileName,
		OriginalName: header.Filename,
		FilePath:     filePath,
		UserID:       userID,
	}

	if err := h.db.WithContext(r.Context()).Create(&newMeme).Error; err != nil {
		utils.DeleteImage(fileName)
		utils.WriteError(w, err)
		return
	}

	h.db.WithContext(r.Context()).Preload("User").First(&newMeme, "id = ?", newMeme.ID)

	utils.WriteJSON(w, http.StatusCreated, newMeme)
}

// UpdateMeme edits title/description/tags. Counter fields in the payload are
// dropped: they are derived state and never client-writable.
func (h *Handler) UpdateMeme(w http.ResponseWriter, r *http.Request) {
	memeID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var updateData struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		utils.WriteError(w, apperrors.Validation("Invalid request body"))
		return
	}

	var memeRecord models.Meme
	if err := h.db.WithContext(r.Context()).First(&memeRecord, "id = ?", memeID).Error; err != nil {
		utils.WriteError(w, apperrors.FromDB(err, "Meme not found", ""))
		return
	}

	if err := utils.Authorize(userID, memeRecord.UserID); err != nil {
		utils.WriteError(w, err)
		return
	}

	updates := map[string]interface{}{}
	if updateData.Title != nil {
		if strings.TrimSpace(*updateData.Title) == "" {
			utils.WriteError(w, apperrors.Validation("Title cannot be empty"))
			return
		}
		updates["title"] = strings.TrimSpace(*updateData.Title)
	}
	if updateData.Description != nil {
		updates["description"] = *updateData.Description
	}
	if updateData.Tags != nil {
		updates["tags"] = pq.StringArray(normalizeTags(updateData.Tags))
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(r.Context()).Model(&memeRecord).Updates(updates).Error; err != nil {
			utils.WriteError(w, err)
			return
		}
	}

	updated, err := h.ledger.LoadMeme(r.Context(), memeID, userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, updated)
}

// DeleteMeme removes a meme with its comments and votes in one transaction,
// then deletes the stored file.
func (h *Handler) DeleteMeme(w http.ResponseWriter, r *http.Request) {
	memeID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var memeRecord models.Meme
	if err := h.db.WithContext(r.Context()).First(&memeRecord, "id = ?", memeID).Error; err != nil {
		utils.WriteError(w, apperrors.FromDB(err, "Meme not found", ""))
		return
	}

	if err := utils.Authorize(userID, memeRecord.UserID); err != nil {
		utils.WriteError(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("meme_id = ?", memeID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("meme_id = ?", memeID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("meme_id = ?", memeID).Delete(&models.MemeVote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Meme{}, "id = ?", memeID).Error
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := utils.DeleteImage(memeRecord.FileName); err != nil {
		log.Printf("failed to delete meme file %s: %v", memeRecord.FileName, err)
	}

	w.WriteHeader(http.StatusNoContent)
}

type voteRequest struct {
	IsUpvote *bool `json:"is_upvote"`
}

// VoteMeme casts or flips the caller's vote and returns the post-operation
// meme snapshot.
func (h *Handler) VoteMeme(w http.ResponseWriter, r *http.Request) {
	memeID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsUpvote == nil {
		utils.WriteError(w, apperrors.Validation("is_upvote must be a boolean"))
		return
	}

	updated, err := h.ledger.CastMemeVote(r.Context(), memeID, userID, *req.IsUpvote)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, updated)
}

// UnvoteMeme retracts the caller's vote.
func (h *Handler) UnvoteMeme(w http.ResponseWriter, r *http.Request) {
	memeID := mux.Vars(r)["id"]

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	updated, err := h.ledger.RetractMemeVote(r.Context(), memeID, userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, updated)
}

// ServeImage serves an uploaded meme file.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	fileName := mux.Vars(r)["filename"]

	if containsDotDot(fileName) {
		utils.WriteError(w, apperrors.Validation("Invalid path"))
		return
	}

	imagePath := filepath.Join(utils.ImagePath, filepath.Clean(fileName))

	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		utils.WriteError(w, apperrors.NotFound("Image not found"))
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", getContentType(imagePath))

	http.ServeFile(w, r, imagePath)
}

func containsDotDot(v string) bool {
	if !filepath.IsAbs(v) {
		v = filepath.Clean(filepath.Join("/", v))
	}
	return filepath.Clean(v) != v
}

func getContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// normalizeTags lowercases and trims tags and drops empty entries.
func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			normalized = append(normalized, tag)
		}
	}
	return normalized
}
