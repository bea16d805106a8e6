package web

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/nova-guide/pkg/hub"
	"github.com/teslashibe/nova-guide/pkg/rooms"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.status == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "status not available yet")
	}
	return c.JSON(s.status.Snapshot())
}

// Room is the API shape of a saved room.
type Room struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (s *Server) handleListRooms(c *fiber.Ctx) error {
	all := s.rooms.All()
	out := make([]Room, 0, len(all))
	for name, p := range all {
		out = append(out, Room{Name: name, X: p.X, Y: p.Y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return c.JSON(out)
}

func (s *Server) handleSaveRoom(c *fiber.Ctx) error {
	var req Room
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid room body")
	}

	err := s.rooms.Save(c.UserContext(), req.Name, rooms.Point{X: req.X, Y: req.Y})
	if errors.Is(err, rooms.ErrEmptyName) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}

	req.Name = rooms.NormalizeName(req.Name)
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (s *Server) handleStatusWS(conn *websocket.Conn) {
	client := hub.NewClient(s.statusHub, conn)
	if client == nil {
		return
	}
	client.Run()
}
