package admin

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tilegate/gethook/log"
)

// Logger logs every request once it has been served.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		resLength := c.Writer.Size()
		if resLength < 0 {
			resLength = 0
		}

		log.Debug("http request",
			log.Int("status", c.Writer.Status()),
			log.String("method", c.Request.Method),
			log.String("uri", c.Request.RequestURI),
			log.String("ip", c.ClientIP()),
			log.Int("length", resLength),
			log.Duration("latency", time.Since(startTime)),
			log.String("ua", c.Request.UserAgent()))
	}
}
