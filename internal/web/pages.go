package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/claudia/internal/pricing"
	"github.com/pathakanu/claudia/internal/rates"
)

// home sends signed-in users to the dashboard.
func (s *Server) home(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	rate := s.currentRate()
	s.page(c, http.StatusOK, "home", "Inicio", gin.H{
		"Prices": pricing.Quote(pricing.Plans, rate.Value, rate.Currency),
		"Rate":   rate,
	})
}

func (s *Server) static(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.page(c, http.StatusOK, name, title, nil)
	}
}

func (s *Server) currentRate() rates.Rate {
	if s.rates == nil {
		return rates.Rate{}
	}
	return s.rates.Rate()
}

func (s *Server) apiRates(c *gin.Context) {
	rate := s.currentRate()
	c.JSON(http.StatusOK, gin.H{
		"rate":  rate,
		"plans": pricing.Quote(pricing.Plans, rate.Value, rate.Currency),
	})
}
