// Package messagingapi implements the messaging-api service of the AlumUnity alumni network.
//
// The service provides:
//   - Direct messages between users with one conversation per pair
//   - Read receipts as the single source of unread state
//   - Inbox, conversation history, unread count and message search
//   - Conversation deletion and user blocking
//   - Typing indicators, presence and a websocket channel for live events
//   - A fixture-backed mock mode when no database is reachable
package messagingapi
