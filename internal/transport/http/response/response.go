package response

import "github.com/gin-gonic/gin"

const (
	CodeBadRequest         = 40000
	CodeEmptyMessage       = 40001
	CodeInvalidResume      = 40002
	CodeNothingToDeploy    = 40003
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeForbidden          = 40300
	CodeNotFound           = 40400
	CodeUserNotFound       = 40401
	CodeChatNotFound       = 40402
	CodeEmailExists        = 40900
	CodeInternalServer     = 50000
	CodeUploadFailed       = 50001
	CodeGenerationFailed   = 50002
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func JSON(c *gin.Context, httpStatus int, data any) {
	c.JSON(httpStatus, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
