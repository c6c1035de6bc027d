package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionAttributes tags the New Relic transaction started by nrgin with the
// dashboard caller. It is a no-op when no transaction is attached. Must run after Auth.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		if txn := nrgin.Transaction(c); txn != nil {
			txn.AddAttribute("swift.user", CallerUsername(c))
			txn.AddAttribute("swift.role", string(CallerRole(c)))
		}
		c.Next()

		if txn := nrgin.Transaction(c); txn != nil {
			for _, err := range c.Errors {
				txn.NoticeError(err.Err)
			}
		}
	}
}
