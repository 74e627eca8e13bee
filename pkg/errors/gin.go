package errors

import (
	"github.com/gin-gonic/gin"
)

// Respond writes err as {"error": ...} with the mapped status. The error is
// attached to the context so the request logger records the full chain.
func Respond(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(HTTPStatus(err), gin.H{"error": PublicMessage(err)})
}
