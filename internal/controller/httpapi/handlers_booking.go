package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/service"
	"github.com/gin-gonic/gin"
)

func (s *Server) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	booking, err := s.bookings.Create(c.Request.Context(), currentUser(c).ID, service.CreateBookingInput{
		Date:             date,
		RoomID:           req.RoomID,
		SlotID:           req.SlotID,
		Reason:           req.Reason,
		ParticipantCodes: req.ParticipantCodes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (s *Server) getBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := s.bookings.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (s *Server) myBookings(c *gin.Context) {
	bookings, err := s.bookings.ListMine(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// listBookingsByDate defaults to today in the library's zone.
func (s *Server) listBookingsByDate(c *gin.Context) {
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}

	bookings, err := s.bookings.ListByDate(c.Request.Context(), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (s *Server) checkIn(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := s.bookings.CheckIn(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (s *Server) checkOut(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := s.bookings.CheckOut(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (s *Server) cancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := s.bookings.Cancel(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if booking == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	}
	c.JSON(http.StatusOK, booking)
}

// queryDate reads a YYYY-MM-DD query parameter, falling back to today.
func (s *Server) queryDate(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return model.DateOf(s.now().In(s.loc)), true
	}
	date, err := parseDate(raw)
	if err != nil {
		badRequest(c, key+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}
