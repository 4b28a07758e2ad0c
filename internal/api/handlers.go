package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campus/internal/auth"
	"campus/internal/queue"
	"campus/internal/records"
)

const userKey = "user"

type handler struct {
	Deps
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (h *handler) healthz(c *gin.Context) {
	storeOK := h.Records.Healthy(c.Request.Context())
	redisOK := true
	if h.RedisHealthy != nil {
		redisOK = h.RedisHealthy(c.Request.Context())
	}
	status := http.StatusOK
	if !storeOK || !redisOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "store": storeOK, "redis": redisOK})
}

type registerRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Role     string  `json:"role" binding:"required"`
	FullName *string `json:"full_name"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	fullName := ""
	if req.FullName != nil {
		fullName = *req.FullName
	}

	u, err := h.Records.Register(c.Request.Context(), records.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     auth.Role(req.Role),
		FullName: fullName,
	})
	switch {
	case errors.Is(err, records.ErrInvalidRole):
		detail(c, http.StatusBadRequest, "Invalid role")
		return
	case errors.Is(err, records.ErrUsernameTaken):
		detail(c, http.StatusBadRequest, "Username already registered")
		return
	case err != nil:
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "user created", "user_id": u.ID})
}

func (h *handler) token(c *gin.Context) {
	username, okU := c.GetPostForm("username")
	password, okP := c.GetPostForm("password")
	if !okU || !okP {
		detail(c, http.StatusUnprocessableEntity, "username and password form fields are required")
		return
	}

	u, err := h.Records.Authenticate(c.Request.Context(), username, password)
	if errors.Is(err, records.ErrInvalidCredentials) {
		detail(c, http.StatusBadRequest, "Incorrect username or password")
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}

	token, _, err := auth.Issue(u.Username, u.Role, h.SigningKey, h.AccessTTL)
	if err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// currentUser resolves the token subject to a stored user.
func (h *handler) currentUser(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		auth.Unauthorized(c)
		return
	}
	u, err := h.Records.UserByUsername(c.Request.Context(), claims.Subject)
	if err != nil {
		h.internal(c, err)
		return
	}
	if u == nil {
		auth.Unauthorized(c)
		return
	}
	c.Set(userKey, *u)
	c.Next()
}

func userFrom(c *gin.Context) records.User {
	u, _ := c.Get(userKey)
	user, _ := u.(records.User)
	return user
}

func requireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !userFrom(c).Role.In(roles...) {
			detail(c, http.StatusForbidden, "Operation not permitted")
			return
		}
		c.Next()
	}
}

func (h *handler) viewAttendance(c *gin.Context) {
	studentID, ok := intParam(c, c.Param("student_id"), "student_id")
	if !ok {
		return
	}
	rows, err := h.Records.StudentAttendance(c.Request.Context(), userFrom(c), studentID)
	if errors.Is(err, records.ErrForbidden) {
		detail(c, http.StatusForbidden, "Not permitted to view others' attendance")
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) viewMarks(c *gin.Context) {
	studentID, ok := intParam(c, c.Param("student_id"), "student_id")
	if !ok {
		return
	}
	rows, err := h.Records.StudentMarks(c.Request.Context(), userFrom(c), studentID)
	if errors.Is(err, records.ErrForbidden) {
		detail(c, http.StatusForbidden, "Not permitted to view others' marks")
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) markAttendance(c *gin.Context) {
	studentID, ok := intParam(c, c.Query("student_id"), "student_id")
	if !ok {
		return
	}
	status, ok := c.GetQuery("status")
	if !ok {
		detail(c, http.StatusUnprocessableEntity, "status is required")
		return
	}
	var note *string
	if v, ok := c.GetQuery("note"); ok {
		note = &v
	}

	by := userFrom(c)
	att, err := h.Records.MarkAttendance(c.Request.Context(), by, studentID, status, note)
	if err != nil {
		h.internal(c, err)
		return
	}
	h.publish(c.Request.Context(), records.Event{
		Type:      records.EventAttendanceMarked,
		RecordID:  att.ID,
		StudentID: studentID,
		ActorID:   by.ID,
		Detail:    status,
	})
	c.JSON(http.StatusOK, gin.H{"msg": "marked", "attendance_id": att.ID})
}

func (h *handler) uploadMarks(c *gin.Context) {
	studentID, ok := intParam(c, c.Query("student_id"), "student_id")
	if !ok {
		return
	}
	subject, ok := c.GetQuery("subject")
	if !ok {
		detail(c, http.StatusUnprocessableEntity, "subject is required")
		return
	}
	score, ok := intParam(c, c.Query("marks"), "marks")
	if !ok {
		return
	}

	by := userFrom(c)
	m, err := h.Records.UploadMarks(c.Request.Context(), by, studentID, subject, int(score))
	if err != nil {
		h.internal(c, err)
		return
	}
	h.publish(c.Request.Context(), records.Event{
		Type:      records.EventMarksUploaded,
		RecordID:  m.ID,
		StudentID: studentID,
		ActorID:   by.ID,
		Detail:    subject + "=" + strconv.Itoa(m.Marks),
	})
	c.JSON(http.StatusOK, gin.H{"msg": "marks uploaded", "marks_id": m.ID})
}

func intParam(c *gin.Context, raw, name string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, name+" must be an integer")
		return 0, false
	}
	return v, true
}

// publish is best effort; a queue outage never fails the mutation.
func (h *handler) publish(ctx context.Context, evt records.Event) {
	if h.Queue == nil {
		return
	}
	evt.At = time.Now().UTC()
	body, err := json.Marshal(evt)
	if err != nil {
		h.Log.Error().Err(err).Msg("encode record event")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.Queue.Publish(ctx, queue.Message{Type: evt.Type, Body: body}); err != nil {
		h.Log.Warn().Err(err).Str("type", evt.Type).Msg("queue publish failed")
	}
}

func (h *handler) internal(c *gin.Context, err error) {
	h.Log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("request failed")
	detail(c, http.StatusInternalServerError, "Internal Server Error")
}
