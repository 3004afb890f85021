package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
)

func (s *Server) createPayout(c *gin.Context) {
	var req payoutdomain.CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", payoutdomain.ErrInvalidRequest, err.Error()))
		return
	}

	payout, err := s.payoutSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payout)
}

func (s *Server) getPayout(c *gin.Context) {
	payout, err := s.payoutSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (s *Server) listPayouts(c *gin.Context) {
	var req payoutdomain.ListPayoutRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", payoutdomain.ErrInvalidRequest, err.Error()))
		return
	}
	if req.MerchantID == "" {
		AbortWithError(c, fmt.Errorf("%w: merchant_id is required", payoutdomain.ErrInvalidRequest))
		return
	}

	resp, err := s.payoutSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listDeliveries(c *gin.Context) {
	payout, err := s.payoutSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records, err := s.dispatcher.Deliveries(c.Request.Context(), payout.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": records})
}

func (s *Server) retryPayout(c *gin.Context) {
	payout, err := s.payoutSvc.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (s *Server) cancelPayout(c *gin.Context) {
	payout, err := s.payoutSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}
