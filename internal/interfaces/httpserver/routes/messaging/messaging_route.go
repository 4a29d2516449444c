package messaging

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/messaginghandler"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/presencehandler"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/middlewares"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/requests"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/responses"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// SocketServer upgrades a request to the realtime channel of userID.
type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type MessagingRoute struct {
	messages *messaginghandler.MessagingHandler
	presence *presencehandler.PresenceHandler
	sockets  SocketServer
	writer   *responses.Writer
}

func NewMessagingRoute(
	messages *messaginghandler.MessagingHandler,
	presence *presencehandler.PresenceHandler,
	sockets SocketServer,
	writer *responses.Writer,
) *MessagingRoute {
	return &MessagingRoute{
		messages: messages,
		presence: presence,
		sockets:  sockets,
		writer:   writer,
	}
}

func (route *MessagingRoute) RegisterRouter(router gin.IRouter) {
	messages := router.Group("/api/messages")
	messages.POST("/send", route.sendMessage)
	messages.GET("/inbox", route.getInbox)
	messages.GET("/conversation/:user_id", route.getConversation)
	messages.PUT("/mark-as-read/:message_id", route.markAsRead)
	messages.GET("/unread-count", route.getUnreadCount)
	messages.GET("/search", route.searchMessages)
	messages.DELETE("/conversation/:conversation_id", route.deleteConversation)
	messages.POST("/block-user", route.blockUser)
	messages.POST("/typing/:user_id", route.setTyping)
	messages.GET("/typing/:user_id", route.getTyping)
	messages.PUT("/presence", route.updatePresence)
	messages.GET("/presence/:user_id", route.getPresence)
	messages.GET("/ws", route.serveSocket)
}

// sendMessage godoc
// @Summary Send a message
// @Description Sends a message to another user. Accepts form fields or a JSON body. The attachment type is inferred from the URL when omitted.
// @Tags Messaging API
// @Security BearerAuth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param recipient_id formData string true "Recipient user id"
// @Param message_text formData string true "Message text"
// @Param attachment_url formData string false "Attachment URL"
// @Param attachment_type formData string false "image, file or video"
// @Success 200 {object} responses.Envelope{data=responses.MessageResponse}
// @Failure 400 {object} responses.ErrorResponse "Blank message or invalid fields"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /api/messages/send [post]
func (route *MessagingRoute) sendMessage(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}

	var req requests.SendMessageRequest
	if err := reqCtx.ShouldBind(&req); err != nil {
		route.writer.Error(reqCtx, invalidBody(reqCtx, err))
		return
	}
	if err := requests.Validate(reqCtx.Request.Context(), &req); err != nil {
		route.writer.Error(reqCtx, err)
		return
	}

	resp, err := route.messages.SendMessage(reqCtx.Request.Context(), userID, &req)
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Message sent successfully")
}

// getInbox godoc
// @Summary List conversations
// @Description Lists the caller's conversations, most recent first, with the last message preview and the derived unread count.
// @Tags Messaging API
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size (1-100, default 50)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} responses.Envelope{data=[]responses.ConversationSummaryResponse}
// @Failure 400 {object} responses.ErrorResponse "Invalid pagination"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /api/messages/inbox [get]
func (route *MessagingRoute) getInbox(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	page, ok := route.page(reqCtx)
	if !ok {
		return
	}

	resp, err := route.messages.ListConversations(reqCtx.Request.Context(), userID, page)
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OKWithTotal(reqCtx, resp, len(resp), "Conversations retrieved successfully")
}

// getConversation godoc
// @Summary Get a conversation
// @Description Returns the message history with another user, oldest first, and marks every message from that user as read. Storage failures degrade to an empty list.
// @Tags Messaging API
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Other user id"
// @Param limit query int false "Page size (1-100, default 50)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} responses.Envelope{data=[]responses.MessageResponse}
// @Failure 400 {object} responses.ErrorResponse "Invalid pagination"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Router /api/messages/conversation/{user_id} [get]
func (route *MessagingRoute) getConversation(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	page, ok := route.page(reqCtx)
	if !ok {
		return
	}

	resp, err := route.messages.GetConversation(reqCtx.Request.Context(), userID, reqCtx.Param("user_id"), page)
	if err != nil {
		if !messaginghandler.IsStorageError(err) {
			route.writer.Error(reqCtx, err)
			return
		}
		// a missing or broken store must not break the conversation view
		platformerrors.LogError(route.writer.Logger(), platformerrors.AsError(reqCtx.Request.Context(), platformerrors.LayerRoute, err, "conversation degraded to empty"))
		route.writer.OK(reqCtx, []responses.MessageResponse{}, fmt.Sprintf("Failed to retrieve conversation: %s. Returning empty data.", detail(err)))
		return
	}
	route.writer.OK(reqCtx, resp, "Conversation retrieved successfully")
}

// markAsRead godoc
// @Summary Mark a message as read
// @Description Records the caller's read receipt for a message addressed to them. Repeating the call refreshes read_at.
// @Tags Messaging API
// @Security BearerAuth
// @Produce json
// @Param message_id path string true "Message id"
// @Success 200 {object} responses.Envelope{data=responses.ReadReceiptResponse}
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Failure 403 {object} responses.ErrorResponse "Message is not addressed to the caller"
// @Failure 404 {object} responses.ErrorResponse "Message not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /api/messages/mark-as-read/{message_id} [put]
func (route *MessagingRoute) markAsRead(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	resp, err := route.messages.MarkAsRead(reqCtx.Request.Context(), userID, reqCtx.Param("message_id"))
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Message marked as read")
}

// getUnreadCount godoc
// @Summary Count unread messages
// @Tags Messaging API
// @Security BearerAuth
// @Produce json
// @Success 200 {object} responses.Envelope{data=responses.UnreadCountResponse}
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /api/messages/unread-count [get]
func (route *MessagingRoute) getUnreadCount(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	resp, err := route.messages.GetUnreadCount(reqCtx.Request.Context(), userID)
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Unread count retrieved successfully")
}

// searchMessages godoc
// @Summary Search messages
// @Description Case-insensitive substring search over the caller's sent and received messages, newest first.
// @Tags Messaging API
// @Security BearerAuth
// @Produce json
// @Param query query string true "Text to find"
// @Param limit query int false "Maximum results (1-100, default 20)"
// @Success 200 {object} responses.Envelope{data=[]responses.SearchResultResponse}
// @Failure 400 {object} responses.ErrorResponse "Missing query"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /api/messages/search [get]
func (route *MessagingRoute) searchMessages(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	var q requests.SearchQuery
	if err := reqCtx.ShouldBindQuery(&q); err != nil {
		route.writer.Error(reqCtx, invalidQuery(reqCtx, err))
		return
	}
	if err := requests.Validate(reqCtx.Request.Context(), &q); err != nil {
		route.writer.Error(reqCtx, err)
		return
	}

	resp, err := route.messages.SearchMessages(reqCtx.Request.Context(), userID, q)
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Search completed successfully")
}

// deleteConversation godoc
// @Summary Delete a conversation
// @Description Deletes a conversation the caller participates in, together with its messages and their read receipts.
// @Tags Messaging API
// @Security BearerAuth
// @Produce json
// @Param conversation_id path string true "Conversation id"
// @Success 200 {object} responses.Envelope{data=responses.DeletedResponse}
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Failure 403 {object} responses.ErrorResponse "Caller is not a participant"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /api/messages/conversation/{conversation_id} [delete]
func (route *MessagingRoute) deleteConversation(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	resp, err := route.messages.DeleteConversation(reqCtx.Request.Context(), userID, reqCtx.Param("conversation_id"))
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Conversation deleted successfully")
}

// blockUser godoc
// @Summary Block a user
// @Description Removes the conversation with another user. Message history is kept.
// @Tags Messaging API
// @Security BearerAuth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param blocked_user_id query string false "User to block (also accepted as a form field or JSON)"
// @Success 200 {object} responses.Envelope{data=responses.BlockedResponse}
// @Failure 400 {object} responses.ErrorResponse "Missing blocked_user_id"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /api/messages/block-user [post]
func (route *MessagingRoute) blockUser(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}

	var req requests.BlockUserRequest
	if reqCtx.Request.ContentLength != 0 {
		if err := reqCtx.ShouldBind(&req); err != nil {
			route.writer.Error(reqCtx, invalidBody(reqCtx, err))
			return
		}
	}
	if strings.TrimSpace(req.BlockedUserID) == "" {
		req.BlockedUserID = reqCtx.Query("blocked_user_id")
	}
	if err := requests.Validate(reqCtx.Request.Context(), &req); err != nil {
		route.writer.Error(reqCtx, err)
		return
	}

	resp, err := route.messages.BlockUser(reqCtx.Request.Context(), userID, &req)
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "User blocked successfully")
}

// setTyping godoc
// @Summary Set typing state
// @Description Starts or stops the caller's typing indicator in the conversation with another user.
// @Tags Presence API
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user_id path string true "Other user id"
// @Param request body requests.TypingRequest true "Typing state"
// @Success 200 {object} responses.Envelope{data=responses.TypingResponse}
// @Failure 400 {object} responses.ErrorResponse "Invalid body"
// @Failure 404 {object} responses.ErrorResponse "No conversation with that user"
// @Router /api/messages/typing/{user_id} [post]
func (route *MessagingRoute) setTyping(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	var req requests.TypingRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		route.writer.Error(reqCtx, invalidBody(reqCtx, err))
		return
	}
	if err := requests.Validate(reqCtx.Request.Context(), &req); err != nil {
		route.writer.Error(reqCtx, err)
		return
	}

	resp, err := route.presence.SetTyping(reqCtx.Request.Context(), userID, reqCtx.Param("user_id"), &req)
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Typing state updated")
}

// getTyping godoc
// @Summary Get typing state
// @Description Reports whether the other user is typing in the conversation with the caller.
// @Tags Presence API
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Other user id"
// @Success 200 {object} responses.Envelope{data=responses.TypingResponse}
// @Failure 404 {object} responses.ErrorResponse "No conversation with that user"
// @Router /api/messages/typing/{user_id} [get]
func (route *MessagingRoute) getTyping(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	resp, err := route.presence.GetTyping(reqCtx.Request.Context(), userID, reqCtx.Param("user_id"))
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Typing state retrieved")
}

// updatePresence godoc
// @Summary Update presence
// @Tags Presence API
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body requests.PresenceRequest true "Presence"
// @Success 200 {object} responses.Envelope{data=responses.PresenceResponse}
// @Failure 400 {object} responses.ErrorResponse "Invalid status"
// @Router /api/messages/presence [put]
func (route *MessagingRoute) updatePresence(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	var req requests.PresenceRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		route.writer.Error(reqCtx, invalidBody(reqCtx, err))
		return
	}
	if err := requests.Validate(reqCtx.Request.Context(), &req); err != nil {
		route.writer.Error(reqCtx, err)
		return
	}

	resp, err := route.presence.UpdatePresence(reqCtx.Request.Context(), userID, &req)
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Presence updated")
}

// getPresence godoc
// @Summary Get presence
// @Description Returns a user's last known presence. Unknown users are offline.
// @Tags Presence API
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "User id"
// @Success 200 {object} responses.Envelope{data=responses.PresenceResponse}
// @Router /api/messages/presence/{user_id} [get]
func (route *MessagingRoute) getPresence(reqCtx *gin.Context) {
	if _, ok := route.user(reqCtx); !ok {
		return
	}
	resp, err := route.presence.GetPresence(reqCtx.Request.Context(), reqCtx.Param("user_id"))
	if err != nil {
		route.writer.Error(reqCtx, err)
		return
	}
	route.writer.OK(reqCtx, resp, "Presence retrieved")
}

// serveSocket godoc
// @Summary Open the realtime channel
// @Description Upgrades to a websocket that pushes message.created, message.read, typing and presence events. Browsers pass the bearer token as access_token.
// @Tags Realtime API
// @Security BearerAuth
// @Param access_token query string false "Bearer token for browser clients"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized"
// @Router /api/messages/ws [get]
func (route *MessagingRoute) serveSocket(reqCtx *gin.Context) {
	userID, ok := route.user(reqCtx)
	if !ok {
		return
	}
	if err := route.sockets.Serve(reqCtx.Writer, reqCtx.Request, userID); err != nil {
		// the upgrader already answered the client
		_ = reqCtx.Error(err)
	}
}

func (route *MessagingRoute) user(reqCtx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(reqCtx)
	if !ok {
		platformerrors.WriteUnauthorized(reqCtx, "authentication required")
		return "", false
	}
	return userID, true
}

func (route *MessagingRoute) page(reqCtx *gin.Context) (requests.PageQuery, bool) {
	var page requests.PageQuery
	if err := reqCtx.ShouldBindQuery(&page); err != nil {
		route.writer.Error(reqCtx, invalidQuery(reqCtx, err))
		return page, false
	}
	if err := requests.Validate(reqCtx.Request.Context(), &page); err != nil {
		route.writer.Error(reqCtx, err)
		return page, false
	}
	return page, true
}

func invalidBody(reqCtx *gin.Context, err error) error {
	return platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, platformerrors.ErrorTypeValidation, "invalid request body", err, "route-invalid-body")
}

func invalidQuery(reqCtx *gin.Context, err error) error {
	return platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, platformerrors.ErrorTypeValidation, "invalid query parameters", err, "route-invalid-query")
}

func detail(err error) string {
	if pe := platformerrors.GetPlatformError(err); pe != nil {
		return pe.Message
	}
	return "storage unavailable"
}
