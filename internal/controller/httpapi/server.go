package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps collects everything the HTTP layer needs.
type Deps struct {
	Auth       AuthAPI
	Bookings   BookingAPI
	Rooms      RoomAPI
	Ratings    RatingAPI
	Reports    ReportAPI
	Reputation ReputationAPI
	Stats      StatsAPI

	Rules    config.Rules
	Location *time.Location
	Logger   *zap.Logger

	// AuthRate limits login and password reset attempts per client IP.
	// Zero means 5 per minute.
	AuthRate  rate.Limit
	AuthBurst int
}

// Server holds the handlers; routing lives in Handler.
type Server struct {
	auth       AuthAPI
	bookings   BookingAPI
	rooms      RoomAPI
	ratings    RatingAPI
	reports    ReportAPI
	reputation ReputationAPI
	stats      StatsAPI

	rules   config.Rules
	loc     *time.Location
	logger  *zap.Logger
	limiter *ipLimiter
	now     func() time.Time
}

func NewServer(d Deps) (*Server, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	limit, burst := d.AuthRate, d.AuthBurst
	if limit == 0 {
		limit = rate.Every(12 * time.Second)
	}
	if burst == 0 {
		burst = 5
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Server{
		auth:       d.Auth,
		bookings:   d.Bookings,
		rooms:      d.Rooms,
		ratings:    d.Ratings,
		reports:    d.Reports,
		reputation: d.Reputation,
		stats:      d.Stats,
		rules:      d.Rules,
		loc:        loc,
		logger:     d.Logger,
		limiter:    newIPLimiter(limit, burst),
		now:        time.Now,
	}, nil
}

// Handler builds the gin engine with every route attached.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	pub := api.Group("/auth", s.limiter.middleware())
	pub.POST("/login", s.login)
	pub.POST("/password-reset", s.requestPasswordReset)
	pub.POST("/password-reset/confirm", s.confirmPasswordReset)

	api.GET("/rules", s.getRules)

	authed := api.Group("", authRequired(s.auth))

	authed.GET("/me", s.me)
	authed.GET("/me/bookings", s.myBookings)

	authed.POST("/bookings", s.createBooking)
	authed.GET("/bookings", staffOnly(), s.listBookingsByDate)
	authed.GET("/bookings/:id", s.getBooking)
	authed.POST("/bookings/:id/check-in", staffOnly(), s.checkIn)
	authed.POST("/bookings/:id/check-out", staffOnly(), s.checkOut)
	authed.POST("/bookings/:id/cancel", s.cancelBooking)

	authed.GET("/rooms", s.listRooms)
	authed.POST("/rooms", adminOnly(), s.createRoom)
	authed.GET("/rooms/free", s.freeRooms)
	authed.PATCH("/rooms/:id", adminOnly(), s.updateRoom)
	authed.GET("/rooms/:id/week.png", s.roomWeek)
	authed.GET("/rooms/:id/ratings", s.roomRatings)

	authed.GET("/slots", s.listSlots)
	authed.POST("/slots", adminOnly(), s.createSlot)
	authed.PATCH("/slots/:id", adminOnly(), s.updateSlot)

	authed.POST("/ratings", s.rate)

	authed.POST("/reports", s.fileReport)
	authed.GET("/reports", staffOnly(), s.listReports)
	authed.POST("/reports/:id/resolve", staffOnly(), s.resolveReport)
	authed.POST("/reports/:id/penalize", staffOnly(), s.penalizeReport)

	authed.GET("/users", staffOnly(), s.listUsers)
	authed.POST("/users", adminOnly(), s.createUser)
	authed.GET("/users/:id/reputation", s.reputationHistory)
	authed.POST("/users/:id/reputation", staffOnly(), s.adjustReputation)

	authed.GET("/stats", staffOnly(), s.statsSummary)

	return r
}
