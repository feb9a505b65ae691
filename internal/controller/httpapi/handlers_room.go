package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Freeeeeet/studyroom_booking/internal/controller/render"
	"github.com/Freeeeeet/studyroom_booking/internal/service"
	"github.com/gin-gonic/gin"
)

func (s *Server) listRooms(c *gin.Context) {
	rooms, err := s.rooms.ListRooms(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) createRoom(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	room, err := s.rooms.CreateRoom(c.Request.Context(), service.RoomInput(req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *Server) updateRoom(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	room, err := s.rooms.UpdateRoom(c.Request.Context(), id, service.RoomInput(req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// freeRooms: GET /api/rooms/free?date=YYYY-MM-DD&slot_id=N
func (s *Server) freeRooms(c *gin.Context) {
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}
	slotID, err := strconv.ParseInt(c.Query("slot_id"), 10, 64)
	if err != nil || slotID <= 0 {
		badRequest(c, "slot_id is required")
		return
	}

	rooms, err := s.rooms.FreeRooms(c.Request.Context(), date, slotID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// roomWeek serves the occupancy PNG for the week containing ?date.
func (s *Server) roomWeek(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	slots, err := s.rooms.ListSlots(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	monday := render.WeekStart(date)
	bookings, err := s.bookings.ListForRoom(ctx, id, monday, monday.AddDate(0, 0, 6))
	if err != nil {
		s.fail(c, err)
		return
	}

	png, err := render.RoomWeek(render.WeekInput{
		Room:     room,
		Start:    monday,
		Slots:    slots,
		Bookings: bookings,
		Location: s.loc,
		Now:      s.now(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) listSlots(c *gin.Context) {
	slots, err := s.rooms.ListSlots(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

func (s *Server) createSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, err := parseTimeOfDay(req.StartTime)
	if err != nil {
		badRequest(c, "start_time must be HH:MM")
		return
	}
	end, err := parseTimeOfDay(req.EndTime)
	if err != nil {
		badRequest(c, "end_time must be HH:MM")
		return
	}

	slot, err := s.rooms.CreateSlot(c.Request.Context(), req.Ordinal, start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (s *Server) updateSlot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req slotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.rooms.SetSlotStatus(c.Request.Context(), id, req.Status); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (s *Server) roomRatings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ratings, err := s.ratings.ListForRoom(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}
