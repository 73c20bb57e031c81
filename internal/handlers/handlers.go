package handlers

import (
	"github.com/devconnect/backend/internal/cache"
	"github.com/devconnect/backend/internal/scrub"
	"github.com/devconnect/backend/internal/storage"
	"github.com/devconnect/backend/internal/websocket"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	uploads   storage.ImageUploader
	listing   *cache.Listing
	wsHandler *websocket.Handler
	scrubber  *scrub.Scrubber
}

// NewHandlers creates a new handlers instance. uploads and listing may be
// nil; image endpoints then report the storage as unconfigured and listings
// are served straight from the database.
func NewHandlers(uploads storage.ImageUploader, listing *cache.Listing) *Handlers {
	return &Handlers{
		uploads:  uploads,
		listing:  listing,
		scrubber: scrub.NewScrubber(),
	}
}

// SetWebSocketHandler sets the WebSocket handler for real-time updates
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}
