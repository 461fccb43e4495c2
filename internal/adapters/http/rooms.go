package http

import (
	"errors"
	"net/http"
	"sort"

	"github.com/dkeye/Watch/internal/app"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type CreateRoomRequest struct {
	URL            string `json:"url"`
	MediaReference string `json:"mediaReference"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type RoomResponse struct {
	RoomID      domain.RoomID   `json:"roomId"`
	URL         domain.MediaRef `json:"url"`
	MemberCount *int            `json:"memberCount,omitempty"`
}

type RoomHandler struct {
	Rooms *app.RoomRegistry
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	media := req.URL
	if media == "" {
		media = req.MediaReference
	}

	room, err := h.Rooms.Create(domain.MediaRef(media))
	switch {
	case errors.Is(err, domain.ErrEmptyMediaRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	case errors.Is(err, domain.ErrIDSpaceExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no room id available"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	meta := room.Room()
	c.JSON(http.StatusCreated, RoomResponse{RoomID: meta.ID, URL: meta.Media})
}

func (h *RoomHandler) Get(c *gin.Context) {
	h.lookup(c, domain.RoomID(c.Param("id")))
}

// Join only checks that the room exists; the actual join happens over the
// websocket.
func (h *RoomHandler) Join(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}
	h.lookup(c, domain.RoomID(req.RoomID))
}

func (h *RoomHandler) lookup(c *gin.Context, id domain.RoomID) {
	room, ok := h.Rooms.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	n := room.MemberCount()
	c.JSON(http.StatusOK, RoomResponse{RoomID: id, URL: room.Room().Media, MemberCount: &n})
}

func (h *RoomHandler) List(c *gin.Context) {
	rooms := h.Rooms.List()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": h.Rooms.Len()})
}
