package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// page is the model every template receives.
type page struct {
	Title  string
	Email  string // signed-in user, empty when anonymous
	Error  string
	Notice string
	Data   any
}

func render(c *gin.Context, status int, name string, p page) {
	if p.Email == "" {
		if sess := middleware.SessionFrom(c); sess != nil {
			p.Email = sess.User.Email
		}
	}
	c.HTML(status, name, p)
}

// NotFound renders the 404 page for unmatched routes.
func NotFound(c *gin.Context) {
	render(c, http.StatusNotFound, "error.html", page{Title: errNotFound})
}

func formString(c *gin.Context, key string) *string {
	v := strings.TrimSpace(c.PostForm(key))
	if v == "" {
		return nil
	}
	return &v
}

func formInt(c *gin.Context, key string) (*int, error) {
	v := strings.TrimSpace(c.PostForm(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a whole number", domain.ErrInvalidInput, key)
	}
	return &n, nil
}

func formFloat(c *gin.Context, key string) (*float64, error) {
	v := strings.TrimSpace(c.PostForm(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
	}
	return &f, nil
}

func formDate(c *gin.Context, key string) (*time.Time, error) {
	v := strings.TrimSpace(c.PostForm(key))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a date", domain.ErrInvalidInput, key)
	}
	return &t, nil
}

// userMessage strips the sentinel prefix from validation errors.
func userMessage(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
}
