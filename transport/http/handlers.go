package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chainchat/chainchat/core"
	"github.com/chainchat/chainchat/service"
)

// Handlers contains the HTTP handlers for all endpoints.
type Handlers struct {
	auth  *service.AuthService
	users *service.UserService
	chat  *service.ChatService
}

// NewHandlers creates new handlers.
func NewHandlers(auth *service.AuthService, users *service.UserService, chat *service.ChatService) *Handlers {
	return &Handlers{
		auth:  auth,
		users: users,
		chat:  chat,
	}
}

// UserResponse is the public view of a user record.
type UserResponse struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Username      string    `json:"username,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// MessageResponse is the public view of a message record.
type MessageResponse struct {
	ID          string       `json:"id"`
	Sender      UserResponse `json:"sender"`
	RecipientID string       `json:"recipient_id"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
}

func toUserResponse(u *core.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		WalletAddress: u.WalletAddress,
		Username:      u.Handle,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		CreatedAt:     u.CreatedAt,
	}
}

// Root handles the liveness banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ChainChat API is running!"})
}

// Health handles the health probe.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// AuthRequest handles the challenge request.
func (h *Handlers) AuthRequest(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	message, nonce, err := h.auth.RequestChallenge(c.Request.Context(), req.WalletAddress)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"nonce":   nonce,
	})
}

// AuthVerify handles signature verification and token issuance.
func (h *Handlers) AuthVerify(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Message       string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.WalletAddress, req.Message, req.Signature)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         toUserResponse(user),
	})
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c *gin.Context) {
	identity := CurrentIdentity(c)

	user, err := h.users.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateMe applies a profile patch to the authenticated user. Only the
// enumerated fields are accepted; unknown fields fail the request.
func (h *Handlers) UpdateMe(c *gin.Context) {
	identity := CurrentIdentity(c)

	var req struct {
		Username    *string `json:"username"`
		DisplayName *string `json:"display_name"`
		AvatarURL   *string `json:"avatar_url"`
	}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var patch core.ProfilePatch
	if req.Username != nil {
		patch.Handle = *req.Username
		patch.HandleSet = true
	}
	if req.DisplayName != nil {
		patch.DisplayName = *req.DisplayName
		patch.DisplayNameSet = true
	}
	if req.AvatarURL != nil {
		patch.AvatarURL = *req.AvatarURL
		patch.AvatarURLSet = true
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), identity.UserID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// SearchUsers returns active users matching the query.
func (h *Handlers) SearchUsers(c *gin.Context) {
	identity := CurrentIdentity(c)

	matches, err := h.users.Search(c.Request.Context(), c.Query("q"), identity.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]UserResponse, 0, len(matches))
	for i := range matches {
		out = append(out, toUserResponse(&matches[i]))
	}
	c.JSON(http.StatusOK, out)
}

// SendMessage persists a direct message and triggers real-time delivery.
func (h *Handlers) SendMessage(c *gin.Context) {
	identity := CurrentIdentity(c)

	var req struct {
		RecipientID string `json:"recipient_id"`
		Recipient   string `json:"recipient"`
		Content     string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	recipient := req.RecipientID
	if recipient == "" {
		recipient = req.Recipient
	}

	msg, err := h.chat.Send(c.Request.Context(), identity.UserID, recipient, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}

	sender, err := h.users.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		ID:          msg.ID,
		Sender:      toUserResponse(sender),
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	})
}

// GetMessages returns the conversation with another user, newest first.
func (h *Handlers) GetMessages(c *gin.Context) {
	identity := CurrentIdentity(c)
	otherID := c.Param("user_id")

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.chat.History(c.Request.Context(), identity.UserID, otherID, skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	// A two-party conversation has exactly two possible senders; resolve
	// them once instead of per message.
	senders := make(map[string]UserResponse, 2)
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		sender, ok := senders[msg.SenderID]
		if !ok {
			u, err := h.users.Get(c.Request.Context(), msg.SenderID)
			if err != nil {
				writeError(c, err)
				return
			}
			sender = toUserResponse(u)
			senders[msg.SenderID] = sender
		}
		out = append(out, MessageResponse{
			ID:          msg.ID,
			Sender:      sender,
			RecipientID: msg.RecipientID,
			Content:     msg.Content,
			CreatedAt:   msg.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// writeError maps a service error onto its HTTP status and stable error
// string. Identity and validation failures are client errors; storage
// faults surface as service-unavailable.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrRecipientNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAddress),
		errors.Is(err, core.ErrInvalidRecipientRef),
		errors.Is(err, core.ErrInvalidContent),
		errors.Is(err, core.ErrUsernameTaken):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidSignature),
		errors.Is(err, core.ErrStaleChallenge),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		// Do not leak internals; the details go to the server log.
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "service unavailable"
	}
	c.JSON(status, gin.H{"error": msg})
}
