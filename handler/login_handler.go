package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/service"
	"github.com/tieubaoca/rfi-processor-be/types"
	"github.com/tieubaoca/rfi-processor-be/utils"
	"go.uber.org/zap"
)

type LoginHandler interface {
	HandleLogin(c *gin.Context)
}

type loginHandler struct {
	userService service.UserService
}

func NewLoginHandler(userService service.UserService) LoginHandler {
	return &loginHandler{
		userService: userService,
	}
}

// HandleLogin checks the credentials and issues an access token. Unknown
// users and wrong passwords get the same 401 so the response does not
// reveal which usernames exist.
func (h *loginHandler) HandleLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}

	user, err := h.userService.GetUserByUsername(c, req.Username)
	if err != nil || user.Password != req.Password {
		logger.Debug("login rejected", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, types.DataResponse{
			Status:  false,
			Message: "Invalid username or password",
		})
		return
	}

	token, err := utils.GenerateUserToken(user)
	if err != nil {
		logger.Error("failed to sign access token",
			zap.String("username", user.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: "Failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.LoginResponse{
			AccessToken: token,
		},
	})
}
