package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/gin-gonic/gin"
)

func (s *Server) rate(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rating, err := s.ratings.Rate(c.Request.Context(), currentUser(c).ID, req.BookingID, req.Value, req.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (s *Server) fileReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	report, err := s.reports.File(c.Request.Context(), currentUser(c).ID, req.RoomID, req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// listReports: ?status=open|resolved, empty for all
func (s *Server) listReports(c *gin.Context) {
	status := model.ReportStatus(c.Query("status"))
	if status != "" && status != model.ReportStatusOpen && status != model.ReportStatusResolved {
		badRequest(c, "status must be open or resolved")
		return
	}

	reports, err := s.reports.List(c.Request.Context(), status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) resolveReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	report, err := s.reports.Resolve(c.Request.Context(), currentUser(c).ID, id, req.Resolution)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) penalizeReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req penalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	changes, err := s.reputation.PenalizeReportRelated(c.Request.Context(), id, req.Delta, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

// statsSummary: ?from=&to=, defaults to the last 30 days
func (s *Server) statsSummary(c *gin.Context) {
	to, ok := s.queryDate(c, "to")
	if !ok {
		return
	}
	from := to.AddDate(0, 0, -30)
	if c.Query("from") != "" {
		if from, ok = s.queryDate(c, "from"); !ok {
			return
		}
	}

	summary, err := s.stats.Summary(c.Request.Context(), from, to)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
