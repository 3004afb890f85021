package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerBankSignature = "X-Bank-Signature"

// bankWebhook ingests an asynchronous status update from a partner
// bank. The body may be an encrypted envelope depending on the bank's
// profile.
func (s *Server) bankWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	err = s.inbound.Ingest(
		c.Request.Context(),
		c.Param("bank_code"),
		body,
		c.GetHeader(headerBankSignature),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
