package api

import (
	"net/http"
	"time"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/model"
	"github.com/gin-gonic/gin"
)

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      *model.Identity `json:"user"`
}

func (h *handler) startSession(c *gin.Context, status int, message string, res *medvault.LoginResult) {
	h.setSessionCookie(c, res.Token)
	c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    sessionResponse{Token: res.Token.Value, ExpiresAt: res.Token.ExpiresAt, User: res.Identity},
	})
}

func (h *handler) setSessionCookie(c *gin.Context, token medvault.Token) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, token.Value, int(h.ttl.Seconds()), h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.engine.Register(c.Request.Context(), req.registration())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, "user registered successfully, please check your email for verification", res)
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.startSession(c, http.StatusOK, "login successful", res)
}

func (h *handler) me(c *gin.Context) {
	respondOK(c, "", caller(c))
}

func (h *handler) updateDetails(c *gin.Context) {
	var req detailsRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, err := h.engine.UpdateDetails(c.Request.Context(), caller(c).ID, medvault.DetailsUpdate{Name: req.Name, Phone: req.Phone})
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "details updated", identity)
}

func (h *handler) updatePassword(c *gin.Context) {
	var req passwordChangeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.engine.ChangePassword(c.Request.Context(), caller(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.startSession(c, http.StatusOK, "password updated", res)
}

func (h *handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.engine.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "if the email is registered, a reset link has been sent", nil)
}

func (h *handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.engine.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.fail(c, err)
		return
	}
	h.clearSessionCookie(c)
	respondOK(c, "password reset successful, please log in", nil)
}

func (h *handler) verifyEmail(c *gin.Context) {
	identity, err := h.engine.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "email verified", identity)
}

func (h *handler) resendVerification(c *gin.Context) {
	if err := h.engine.RequestEmailVerification(c.Request.Context(), caller(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "verification email sent", nil)
}

func (h *handler) logout(c *gin.Context) {
	h.engine.Logout(c.Request.Context(), caller(c).ID)
	h.clearSessionCookie(c)
	respondOK(c, "logged out", nil)
}

func (h *handler) logoutAll(c *gin.Context) {
	if err := h.engine.LogoutAll(c.Request.Context(), caller(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	h.clearSessionCookie(c)
	respondOK(c, "logged out of every session", nil)
}

func (h *handler) refresh(c *gin.Context) {
	token, err := h.engine.Refresh(c.Request.Context(), caller(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setSessionCookie(c, token)
	respondOK(c, "token refreshed", token)
}
