package common

import "github.com/gin-gonic/gin"

// OK and Fail keep every handler on the same JSON envelope:
// {"code": <business code>, "message": ..., "data": ...}.
func OK(c *gin.Context, data any) {
	c.JSON(200, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}
